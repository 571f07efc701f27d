package handlers

import (
	"context"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// UserHandler registers users.
type UserHandler struct {
	runner *Runner
	lookup *services.LookupService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(runner *Runner, lookup *services.LookupService) *UserHandler {
	return &UserHandler{runner: runner, lookup: lookup}
}

// HandleAdd creates a user node with an optional display name.
func (h *UserHandler) HandleAdd(ctx context.Context, userID, name string) (*entities.Node, error) {
	props := map[string]any{}
	if name != "" {
		props["name"] = name
	}

	var user entities.Node
	err := h.runner.Run(ctx, "users.add", map[string]any{"user": userID}, func(ctx context.Context) error {
		var err error
		user, err = h.lookup.RegisterUser(ctx, userID, props)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
