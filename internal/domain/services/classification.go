package services

import (
	"context"
	"fmt"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// ClassificationService resolves a variant's currently authorised pathogenicity.
type ClassificationService struct {
	graph ports.GraphDB
}

// NewClassificationService creates a new ClassificationService.
func NewClassificationService(graph ports.GraphDB) *ClassificationService {
	return &ClassificationService{graph: graph}
}

// Current returns the variant's active classification, or ClassificationNone.
func (s *ClassificationService) Current(ctx context.Context, variantID string) (entities.Classification, error) {
	var current entities.Classification
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		if _, err := requireNode(ctx, tx, variantID, entities.LabelVariant); err != nil {
			return err
		}
		var err error
		current, err = currentClassification(ctx, tx, variantID)
		return err
	})
	if err != nil {
		return entities.ClassificationNone, fmt.Errorf("resolving classification: %w", err)
	}
	return current, nil
}

// currentClassification walks the variant's pathogenicity actions oldest first.
// An authorised proposal sets the value and an authorised retraction clears it.
// A retraction still awaiting authorisation leaves the last authorised value
// standing and ends the walk.
func currentClassification(ctx context.Context, tx ports.GraphTx, variantID string) (entities.Classification, error) {
	states, err := subjectActions(ctx, tx, variantID, entities.KindPathogenicity)
	if err != nil {
		return entities.ClassificationNone, err
	}

	current := entities.ClassificationNone
	for _, st := range states {
		if st.edges[entities.RelAddAuthorisedBy] != nil {
			c, err := proposedClassification(st)
			if err != nil {
				return entities.ClassificationNone, err
			}
			current = c
		}
		if st.edges[entities.RelRemoveAuthorisedBy] != nil {
			current = entities.ClassificationNone
		} else if st.edges[entities.RelRemovedBy] != nil {
			return current, nil
		}
	}
	return current, nil
}

func proposedClassification(st *actionState) (entities.Classification, error) {
	added := st.edges[entities.RelAddedBy]
	if added == nil {
		return entities.ClassificationNone, fmt.Errorf("%w: action %s is authorised but has no %s", entities.ErrInternalInconsistency, st.node.ID, entities.RelAddedBy)
	}
	v, ok := added.Int(entities.PropClassification)
	if !ok {
		return entities.ClassificationNone, fmt.Errorf("%w: action %s carries no classification", entities.ErrInternalInconsistency, st.node.ID)
	}
	c := entities.Classification(v)
	if !c.Valid() {
		return entities.ClassificationNone, fmt.Errorf("%w: action %s carries classification %d", entities.ErrInternalInconsistency, st.node.ID, v)
	}
	return c, nil
}
