package handlers

import (
	"context"

	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// PendingHandler lists work awaiting a second user.
type PendingHandler struct {
	runner  *Runner
	service *services.PendingService
}

// NewPendingHandler creates a new PendingHandler.
func NewPendingHandler(runner *Runner, service *services.PendingService) *PendingHandler {
	return &PendingHandler{runner: runner, service: service}
}

// Handle returns pending actions and events.
func (h *PendingHandler) Handle(ctx context.Context) (*services.PendingReport, error) {
	var report *services.PendingReport
	err := h.runner.Run(ctx, "pending.list", nil, func(ctx context.Context) error {
		var err error
		report, err = h.service.List(ctx)
		return err
	})
	return report, err
}
