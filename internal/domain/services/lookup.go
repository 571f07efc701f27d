package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// LookupService resolves business identifiers to graph nodes.
type LookupService struct {
	graph ports.GraphDB
}

// NewLookupService creates a new LookupService.
func NewLookupService(graph ports.GraphDB) *LookupService {
	return &LookupService{graph: graph}
}

// Resolve finds the single node with label whose key property equals value.
func (s *LookupService) Resolve(ctx context.Context, label, key, value string) (entities.Node, error) {
	var node entities.Node
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		var err error
		node, err = uniqueNode(ctx, tx, label, key, value)
		return err
	})
	if err != nil {
		return entities.Node{}, fmt.Errorf("resolving %s %q: %w", label, value, err)
	}
	return node, nil
}

// User resolves a user by userId.
func (s *LookupService) User(ctx context.Context, userID string) (entities.Node, error) {
	return s.Resolve(ctx, entities.LabelUser, entities.PropUserID, userID)
}

// Variant resolves a variant by variantId.
func (s *LookupService) Variant(ctx context.Context, variantID string) (entities.Node, error) {
	return s.Resolve(ctx, entities.LabelVariant, entities.PropVariantID, variantID)
}

// Panel resolves a virtual panel by name.
func (s *LookupService) Panel(ctx context.Context, name string) (entities.Node, error) {
	return s.Resolve(ctx, entities.LabelVirtualPanel, entities.PropVirtualPanelName, name)
}

// RegisterUser creates a user node. User nodes are immutable once created.
func (s *LookupService) RegisterUser(ctx context.Context, userID string, props map[string]any) (entities.Node, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.Node{}, fmt.Errorf("%w: user id is required", entities.ErrInvalidInput)
	}

	var user entities.Node
	err := s.graph.Update(ctx, func(tx ports.GraphTx) error {
		existing, err := tx.FindNodes(ctx, entities.LabelUser, entities.PropUserID, userID)
		if err != nil {
			return fmt.Errorf("checking user: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: user %q already exists", entities.ErrStateConflict, userID)
		}
		all := make(map[string]any, len(props)+1)
		for k, v := range props {
			all[k] = v
		}
		all[entities.PropUserID] = userID
		user, err = tx.CreateNode(ctx, []string{entities.LabelUser}, all)
		return err
	})
	if err != nil {
		return entities.Node{}, fmt.Errorf("registering user: %w", err)
	}
	return user, nil
}
