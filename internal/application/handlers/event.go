package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// EventHandler handles event chain use cases.
type EventHandler struct {
	runner *Runner
	lookup *services.LookupService
	events *services.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(runner *Runner, lookup *services.LookupService, events *services.EventService) *EventHandler {
	return &EventHandler{runner: runner, lookup: lookup, events: events}
}

// AppendRequest describes an event to add to a subject's chain.
// SubjectType is the subject label (Variant, Feature, Symbol, VirtualPanel);
// Subject is its identity value.
type AppendRequest struct {
	SubjectType string
	Subject     string
	User        string
	Props       map[string]any
}

// EventResult is an event id with its derived status.
type EventResult struct {
	ID        string               `json:"id"`
	Label     string               `json:"label,omitempty"`
	SubjectID string               `json:"subject_id,omitempty"`
	Status    entities.EventStatus `json:"status"`
}

// HandleAppend appends a pending event to the end of the subject's chain.
func (h *EventHandler) HandleAppend(ctx context.Context, req AppendRequest) (*EventResult, error) {
	label, ok := entities.EventLabelFor(req.SubjectType)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not carry an event chain", entities.ErrInvalidInput, req.SubjectType)
	}

	var result *EventResult
	fields := map[string]any{"subject_type": req.SubjectType, "subject": req.Subject, "user": req.User}
	err := h.runner.Run(ctx, "events.append", fields, func(ctx context.Context) error {
		subjectID, err := resolveSubject(ctx, h.lookup, req.SubjectType, req.Subject)
		if err != nil {
			return err
		}
		userID, err := resolveUser(ctx, h.lookup, req.User)
		if err != nil {
			return err
		}
		node, err := h.events.Append(ctx, subjectID, label, userID, req.Props)
		if err != nil {
			return err
		}
		result = &EventResult{ID: node.ID, Label: label, SubjectID: subjectID, Status: entities.EventPendingAuth}
		return nil
	})
	return result, err
}

// HandleAuthorise authorises a pending event.
func (h *EventHandler) HandleAuthorise(ctx context.Context, eventID, user string) (*EventResult, error) {
	return h.resolve(ctx, "events.authorise", eventID, user, h.events.Authorise, entities.EventActive)
}

// HandleReject rejects a pending event.
func (h *EventHandler) HandleReject(ctx context.Context, eventID, user string) (*EventResult, error) {
	return h.resolve(ctx, "events.reject", eventID, user, h.events.Reject, entities.EventRejected)
}

func (h *EventHandler) resolve(
	ctx context.Context,
	name, eventID, user string,
	apply func(ctx context.Context, eventID, userID string) error,
	next entities.EventStatus,
) (*EventResult, error) {
	fields := map[string]any{"event": eventID, "user": user}
	err := h.runner.Run(ctx, name, fields, func(ctx context.Context) error {
		userID, err := resolveUser(ctx, h.lookup, user)
		if err != nil {
			return err
		}
		return apply(ctx, eventID, userID)
	})
	if err != nil {
		return nil, err
	}
	return &EventResult{ID: eventID, Status: next}, nil
}

// HandleStatus derives an event's status.
func (h *EventHandler) HandleStatus(ctx context.Context, eventID string) (*EventResult, error) {
	var status entities.EventStatus
	err := h.runner.Run(ctx, "events.status", map[string]any{"event": eventID}, func(ctx context.Context) error {
		var err error
		status, err = h.events.Status(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &EventResult{ID: eventID, Status: status}, nil
}

// HandleSubject walks an event's chain back to its subject.
func (h *EventHandler) HandleSubject(ctx context.Context, eventID string) (*entities.Node, error) {
	var subject entities.Node
	err := h.runner.Run(ctx, "events.subject", map[string]any{"event": eventID}, func(ctx context.Context) error {
		var err error
		subject, err = h.events.SubjectOf(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// HandleChain lists a subject's events in chain order.
func (h *EventHandler) HandleChain(ctx context.Context, subjectType, subject string) ([]entities.EventRecord, error) {
	var chain []entities.EventRecord
	fields := map[string]any{"subject_type": subjectType, "subject": subject}
	err := h.runner.Run(ctx, "events.chain", fields, func(ctx context.Context) error {
		subjectID, err := resolveSubject(ctx, h.lookup, subjectType, subject)
		if err != nil {
			return err
		}
		chain, err = h.events.Chain(ctx, subjectID)
		return err
	})
	return chain, err
}
