package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// Proposal describes a new dual-control action.
type Proposal struct {
	SubjectID      string
	Kind           entities.ActionKind
	UserID         string // user node id
	Evidence       string
	Classification entities.Classification // pathogenicity only
	Props          map[string]any          // extra action node properties
}

// AuditService records proposals, retractions and authorisations as audit edges.
// Each call is one transaction; the single-edge and monotone-status rules are
// checked inside it, so a failed call leaves the graph unchanged.
type AuditService struct {
	graph ports.GraphDB
	dual  DualControl
}

// NewAuditService creates a new AuditService.
func NewAuditService(graph ports.GraphDB, dual DualControl) *AuditService {
	return &AuditService{graph: graph, dual: dual}
}

// RecordProposal creates an action node under the subject and stamps it ADDED_BY the user.
func (s *AuditService) RecordProposal(ctx context.Context, p Proposal) (entities.Node, error) {
	if err := validateProposal(p); err != nil {
		return entities.Node{}, err
	}

	var action entities.Node
	err := s.graph.Update(ctx, func(tx ports.GraphTx) error {
		if _, err := requireNode(ctx, tx, p.SubjectID, p.Kind.SubjectLabel); err != nil {
			return err
		}
		if _, err := requireNode(ctx, tx, p.UserID, entities.LabelUser); err != nil {
			return err
		}
		if p.Kind.Name == entities.KindPanelMembership.Name {
			if _, err := uniqueNode(ctx, tx, entities.LabelSymbol, entities.PropSymbolID, memberSymbol(p)); err != nil {
				return fmt.Errorf("resolving panel member: %w", err)
			}
		}

		var err error
		action, err = tx.CreateNode(ctx, []string{p.Kind.ActionLabel}, p.Props)
		if err != nil {
			return fmt.Errorf("creating action node: %w", err)
		}
		if _, err := tx.CreateRelationship(ctx, p.SubjectID, action.ID, p.Kind.ActionRelType, nil); err != nil {
			return fmt.Errorf("linking action to subject: %w", err)
		}

		props := stampProps(p.Evidence)
		if p.Classification.Valid() {
			props[entities.PropClassification] = int64(p.Classification)
		}
		if _, err := tx.CreateRelationship(ctx, action.ID, p.UserID, entities.RelAddedBy, props); err != nil {
			return fmt.Errorf("stamping %s: %w", entities.RelAddedBy, err)
		}
		return nil
	})
	if err != nil {
		return entities.Node{}, fmt.Errorf("recording proposal: %w", err)
	}
	return action, nil
}

func validateProposal(p Proposal) error {
	if p.SubjectID == "" || p.UserID == "" {
		return fmt.Errorf("%w: subject and user are required", entities.ErrInvalidInput)
	}
	if p.Kind.ActionLabel == "" || p.Kind.ActionRelType == "" {
		return fmt.Errorf("%w: action kind is required", entities.ErrInvalidInput)
	}
	switch p.Kind.Name {
	case entities.KindPathogenicity.Name:
		if !p.Classification.Valid() {
			return fmt.Errorf("%w: pathogenicity proposal needs a classification 1..5", entities.ErrInvalidInput)
		}
	default:
		if p.Classification != entities.ClassificationNone {
			return fmt.Errorf("%w: %s proposals carry no classification", entities.ErrInvalidInput, p.Kind.Name)
		}
		if p.Kind.Name == entities.KindPanelMembership.Name && strings.TrimSpace(memberSymbol(p)) == "" {
			return fmt.Errorf("%w: panel membership proposal needs a %s", entities.ErrInvalidInput, entities.PropSymbolID)
		}
	}
	return nil
}

// memberSymbol is the symbol a panel membership action adds or removes.
func memberSymbol(p Proposal) string {
	s, _ := p.Props[entities.PropSymbolID].(string)
	return s
}

// RecordRetraction proposes retiring an active action.
func (s *AuditService) RecordRetraction(ctx context.Context, actionID, userID, evidence string) error {
	err := s.graph.Update(ctx, func(tx ports.GraphTx) error {
		st, err := s.lockAction(ctx, tx, actionID)
		if err != nil {
			return err
		}
		if st.status != entities.ActionActive {
			return fmt.Errorf("%w: action %s is %s, only Active actions can be retracted", entities.ErrStateConflict, actionID, st.status)
		}
		if _, err := requireNode(ctx, tx, userID, entities.LabelUser); err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, actionID, userID, entities.RelRemovedBy, stampProps(evidence)); err != nil {
			return fmt.Errorf("stamping %s: %w", entities.RelRemovedBy, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording retraction: %w", err)
	}
	return nil
}

// RecordAuthorisation approves the pending step of an action. authRelType is
// ADD_AUTHORISED_BY for a pending proposal or REMOVE_AUTHORISED_BY for a pending retraction.
func (s *AuditService) RecordAuthorisation(ctx context.Context, actionID, authRelType, userID string) error {
	var want entities.ActionStatus
	var proposedBy string
	switch authRelType {
	case entities.RelAddAuthorisedBy:
		want, proposedBy = entities.ActionPendingApproval, entities.RelAddedBy
	case entities.RelRemoveAuthorisedBy:
		want, proposedBy = entities.ActionPendingRetire, entities.RelRemovedBy
	default:
		return fmt.Errorf("%w: %q is not an authorisation relationship", entities.ErrInvalidInput, authRelType)
	}

	err := s.graph.Update(ctx, func(tx ports.GraphTx) error {
		st, err := s.lockAction(ctx, tx, actionID)
		if err != nil {
			return err
		}
		if st.status != want {
			return fmt.Errorf("%w: action %s is %s, %s needs %s", entities.ErrStateConflict, actionID, st.status, authRelType, want)
		}
		if _, err := requireNode(ctx, tx, userID, entities.LabelUser); err != nil {
			return err
		}
		if err := s.dual.checkDistinct(st.edges[proposedBy].EndID, userID); err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, actionID, userID, authRelType, stampProps("")); err != nil {
			return fmt.Errorf("stamping %s: %w", authRelType, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording authorisation: %w", err)
	}
	return nil
}

// lockAction locks the action node and reads its audit state.
func (s *AuditService) lockAction(ctx context.Context, tx ports.GraphTx, actionID string) (*actionState, error) {
	if err := tx.Lock(ctx, actionID); err != nil {
		return nil, err
	}
	action, err := tx.Node(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if _, err := actionKindOf(action); err != nil {
		return nil, err
	}
	st, err := loadActionState(ctx, tx, action)
	if err != nil {
		return nil, err
	}
	if st.status == entities.ActionUnknown {
		return nil, fmt.Errorf("%w: action %s has an audit edge set outside the lifecycle", entities.ErrInternalInconsistency, actionID)
	}
	return st, nil
}
