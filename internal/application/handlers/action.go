package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// Authorisation stages.
const (
	StageAdd    = "add"
	StageRemove = "remove"
)

// ActionHandler handles dual-control action use cases.
type ActionHandler struct {
	runner  *Runner
	lookup  *services.LookupService
	audit   *services.AuditService
	actions *services.ActionService
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(runner *Runner, lookup *services.LookupService, audit *services.AuditService, actions *services.ActionService) *ActionHandler {
	return &ActionHandler{
		runner:  runner,
		lookup:  lookup,
		audit:   audit,
		actions: actions,
	}
}

// ProposeRequest describes a new action. Subject is the identity value of the
// kind's subject: a variantId for pathogenicity, a panel name for membership.
type ProposeRequest struct {
	Kind           string
	Subject        string
	User           string
	Classification int64
	Evidence       string
	Props          map[string]any
}

// ActionResult is an action id with its derived status.
type ActionResult struct {
	ID        string                `json:"id"`
	Kind      string                `json:"kind,omitempty"`
	SubjectID string                `json:"subject_id,omitempty"`
	Status    entities.ActionStatus `json:"status"`
}

// HandlePropose records a new proposal.
func (h *ActionHandler) HandlePropose(ctx context.Context, req ProposeRequest) (*ActionResult, error) {
	kind, ok := entities.ActionKindByName(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action kind %q", entities.ErrInvalidInput, req.Kind)
	}

	var result *ActionResult
	fields := map[string]any{"kind": kind.Name, "subject": req.Subject, "user": req.User}
	err := h.runner.Run(ctx, "actions.propose", fields, func(ctx context.Context) error {
		subjectID, err := resolveSubject(ctx, h.lookup, kind.SubjectLabel, req.Subject)
		if err != nil {
			return err
		}
		userID, err := resolveUser(ctx, h.lookup, req.User)
		if err != nil {
			return err
		}

		proposal := services.Proposal{
			SubjectID: subjectID,
			Kind:      kind,
			UserID:    userID,
			Evidence:  req.Evidence,
			Props:     req.Props,
		}
		if kind == entities.KindPathogenicity {
			c, err := entities.ParseClassification(req.Classification)
			if err != nil {
				return err
			}
			proposal.Classification = c
		}

		node, err := h.audit.RecordProposal(ctx, proposal)
		if err != nil {
			return err
		}
		result = &ActionResult{ID: node.ID, Kind: kind.Name, SubjectID: subjectID, Status: entities.ActionPendingApproval}
		return nil
	})
	return result, err
}

// HandleRetract proposes removal of an active action.
func (h *ActionHandler) HandleRetract(ctx context.Context, actionID, user, evidence string) (*ActionResult, error) {
	fields := map[string]any{"action": actionID, "user": user}
	err := h.runner.Run(ctx, "actions.retract", fields, func(ctx context.Context) error {
		userID, err := resolveUser(ctx, h.lookup, user)
		if err != nil {
			return err
		}
		return h.audit.RecordRetraction(ctx, actionID, userID, evidence)
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: actionID, Status: entities.ActionPendingRetire}, nil
}

// HandleAuthorise authorises a pending proposal or retraction. An empty stage
// is inferred from the current status; the write re-checks it.
func (h *ActionHandler) HandleAuthorise(ctx context.Context, actionID, stage, user string) (*ActionResult, error) {
	var status entities.ActionStatus
	fields := map[string]any{"action": actionID, "stage": stage, "user": user}
	err := h.runner.Run(ctx, "actions.authorise", fields, func(ctx context.Context) error {
		relType, next, err := h.authStage(ctx, actionID, stage)
		if err != nil {
			return err
		}
		userID, err := resolveUser(ctx, h.lookup, user)
		if err != nil {
			return err
		}
		if err := h.audit.RecordAuthorisation(ctx, actionID, relType, userID); err != nil {
			return err
		}
		status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: actionID, Status: status}, nil
}

func (h *ActionHandler) authStage(ctx context.Context, actionID, stage string) (string, entities.ActionStatus, error) {
	switch stage {
	case StageAdd:
		return entities.RelAddAuthorisedBy, entities.ActionActive, nil
	case StageRemove:
		return entities.RelRemoveAuthorisedBy, entities.ActionRetired, nil
	case "":
	default:
		return "", "", fmt.Errorf("%w: stage must be %q or %q", entities.ErrInvalidInput, StageAdd, StageRemove)
	}

	status, err := h.actions.Status(ctx, actionID)
	if err != nil {
		return "", "", err
	}
	switch status {
	case entities.ActionPendingApproval:
		return entities.RelAddAuthorisedBy, entities.ActionActive, nil
	case entities.ActionPendingRetire:
		return entities.RelRemoveAuthorisedBy, entities.ActionRetired, nil
	default:
		return "", "", fmt.Errorf("%w: action %s is %s, nothing to authorise", entities.ErrStateConflict, actionID, status)
	}
}

// HandleStatus derives an action's status.
func (h *ActionHandler) HandleStatus(ctx context.Context, actionID string) (*ActionResult, error) {
	var status entities.ActionStatus
	err := h.runner.Run(ctx, "actions.status", map[string]any{"action": actionID}, func(ctx context.Context) error {
		var err error
		status, err = h.actions.Status(ctx, actionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: actionID, Status: status}, nil
}

// HandleHistory lists every action of a kind on a subject with its audit trail.
func (h *ActionHandler) HandleHistory(ctx context.Context, kindName, subject string) ([]entities.ActionRecord, error) {
	kind, ok := entities.ActionKindByName(kindName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action kind %q", entities.ErrInvalidInput, kindName)
	}

	var history []entities.ActionRecord
	fields := map[string]any{"kind": kind.Name, "subject": subject}
	err := h.runner.Run(ctx, "actions.history", fields, func(ctx context.Context) error {
		subjectID, err := resolveSubject(ctx, h.lookup, kind.SubjectLabel, subject)
		if err != nil {
			return err
		}
		history, err = h.actions.History(ctx, subjectID, kind)
		return err
	})
	return history, err
}
