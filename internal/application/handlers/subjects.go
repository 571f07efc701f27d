package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// resolveUser maps a userId to its node id.
func resolveUser(ctx context.Context, lookup *services.LookupService, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: user is required", entities.ErrInvalidInput)
	}
	n, err := lookup.User(ctx, userID)
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

// resolveSubject maps a label and its identity value to a node id.
func resolveSubject(ctx context.Context, lookup *services.LookupService, label, key string) (string, error) {
	prop, ok := entities.IdentityProps[label]
	if !ok {
		return "", fmt.Errorf("%w: unsupported subject type %q", entities.ErrInvalidInput, label)
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: subject is required", entities.ErrInvalidInput)
	}
	n, err := lookup.Resolve(ctx, label, prop, key)
	if err != nil {
		return "", err
	}
	return n.ID, nil
}
