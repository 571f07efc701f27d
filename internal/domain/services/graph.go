package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// DualControl configures the two-person rule applied to authorisations.
type DualControl struct {
	// AllowSelfAuthorisation lets the proposing user authorise their own change.
	AllowSelfAuthorisation bool
}

// checkDistinct enforces that proposer and authoriser differ.
func (d DualControl) checkDistinct(proposerID, authoriserID string) error {
	if d.AllowSelfAuthorisation || proposerID != authoriserID {
		return nil
	}
	return fmt.Errorf("%w: user %s cannot authorise their own change", entities.ErrStateConflict, authoriserID)
}

// requireNode loads a node and checks it carries label.
func requireNode(ctx context.Context, tx ports.GraphTx, id, label string) (entities.Node, error) {
	n, err := tx.Node(ctx, id)
	if err != nil {
		return entities.Node{}, err
	}
	if !n.HasLabel(label) {
		return entities.Node{}, fmt.Errorf("%w: node %s is not a %s", entities.ErrInvalidInput, id, label)
	}
	return n, nil
}

// singleEdge returns the only outgoing relType edge of nodeID, or nil when absent.
// More than one is a broken single-winner invariant.
func singleEdge(rels []entities.Relationship, nodeID, relType string) (*entities.Relationship, error) {
	var found *entities.Relationship
	for i := range rels {
		if rels[i].Type != relType || rels[i].StartID != nodeID {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: node %s has more than one %s edge", entities.ErrInternalInconsistency, nodeID, relType)
		}
		found = &rels[i]
	}
	return found, nil
}

// auditTrail renders audit edges in chronological order, resolving user ids.
func auditTrail(ctx context.Context, tx ports.GraphTx, rels []entities.Relationship) ([]entities.AuditStamp, error) {
	stamps := make([]entities.AuditStamp, 0, len(rels))
	for _, r := range rels {
		user, err := tx.Node(ctx, r.EndID)
		if err != nil {
			return nil, fmt.Errorf("loading user for %s: %w", r.Type, err)
		}
		stamps = append(stamps, entities.AuditStamp{
			Type:     r.Type,
			UserID:   user.String(entities.PropUserID),
			Date:     r.Date(),
			Evidence: r.String(entities.PropEvidence),
		})
	}
	sort.SliceStable(stamps, func(i, j int) bool { return stamps[i].Date < stamps[j].Date })
	return stamps, nil
}

// stampProps builds the property map carried by a new audit edge.
func stampProps(evidence string) map[string]any {
	props := map[string]any{entities.PropDate: entities.EpochMillis(timeNow())}
	if evidence != "" {
		props[entities.PropEvidence] = evidence
	}
	return props
}
