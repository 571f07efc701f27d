package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// StratifyHandler runs variant stratification for a run and panel.
type StratifyHandler struct {
	runner  *Runner
	service *services.StratificationService
}

// NewStratifyHandler creates a new StratifyHandler.
func NewStratifyHandler(runner *Runner, service *services.StratificationService) *StratifyHandler {
	return &StratifyHandler{runner: runner, service: service}
}

// Handle stratifies the panel variants of run.
func (h *StratifyHandler) Handle(ctx context.Context, runID, panel string) (*entities.Stratification, error) {
	if strings.TrimSpace(runID) == "" || strings.TrimSpace(panel) == "" {
		return nil, fmt.Errorf("%w: run and panel are required", entities.ErrInvalidInput)
	}

	var result *entities.Stratification
	err := h.runner.Run(ctx, "variants.stratify", map[string]any{"run": runID, "panel": panel}, func(ctx context.Context) error {
		var err error
		result, err = h.service.Stratify(ctx, runID, panel)
		return err
	})
	return result, err
}
