package handlers

import (
	"context"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// ClassificationHandler resolves a variant's current classification.
type ClassificationHandler struct {
	runner         *Runner
	lookup         *services.LookupService
	classification *services.ClassificationService
}

// NewClassificationHandler creates a new ClassificationHandler.
func NewClassificationHandler(runner *Runner, lookup *services.LookupService, classification *services.ClassificationService) *ClassificationHandler {
	return &ClassificationHandler{runner: runner, lookup: lookup, classification: classification}
}

// ClassificationResult is a variant's current classification.
type ClassificationResult struct {
	VariantID      string `json:"variant_id"`
	Classification int    `json:"classification"`
	Name           string `json:"name"`
}

// Handle returns the classification of the variant with the given variantId.
func (h *ClassificationHandler) Handle(ctx context.Context, variantID string) (*ClassificationResult, error) {
	var c entities.Classification
	err := h.runner.Run(ctx, "classification.current", map[string]any{"variant": variantID}, func(ctx context.Context) error {
		nodeID, err := resolveSubject(ctx, h.lookup, entities.LabelVariant, variantID)
		if err != nil {
			return err
		}
		c, err = h.classification.Current(ctx, nodeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ClassificationResult{VariantID: variantID, Classification: int(c), Name: c.String()}, nil
}
