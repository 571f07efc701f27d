package services

import (
	"context"
	"fmt"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// EventService maintains the per-subject chain of user events.
//
// The chain is Subject -HAS_USER_EVENT-> E1 -HAS_USER_EVENT-> E2 ...; a new event
// may only be appended once every event already in the chain is resolved.
type EventService struct {
	graph ports.GraphDB
	dual  DualControl
}

// NewEventService creates a new EventService.
func NewEventService(graph ports.GraphDB, dual DualControl) *EventService {
	return &EventService{graph: graph, dual: dual}
}

// chainLink is one event visited while walking a chain.
type chainLink struct {
	node   entities.Node
	status entities.EventStatus
}

// Append adds an event to the end of the subject's chain and stamps it ADDED_BY the user.
func (s *EventService) Append(ctx context.Context, subjectID, eventLabel, userID string, props map[string]any) (entities.Node, error) {
	if !entities.IsEventLabel(eventLabel) {
		return entities.Node{}, fmt.Errorf("%w: %q is not an event label", entities.ErrInvalidInput, eventLabel)
	}

	var event entities.Node
	err := s.graph.Update(ctx, func(tx ports.GraphTx) error {
		// Racing appends on one subject serialise here.
		if err := tx.Lock(ctx, subjectID); err != nil {
			return err
		}
		subject, err := tx.Node(ctx, subjectID)
		if err != nil {
			return err
		}
		if isEventNode(subject) {
			return fmt.Errorf("%w: node %s is an event, not a subject", entities.ErrInvalidInput, subjectID)
		}
		if _, err := requireNode(ctx, tx, userID, entities.LabelUser); err != nil {
			return err
		}

		links, err := walkChain(ctx, tx, subjectID)
		if err != nil {
			return err
		}
		tailID := subjectID
		for _, l := range links {
			if l.status == entities.EventPendingAuth {
				return fmt.Errorf("%w: chain busy, event %s on %s awaits authorisation", entities.ErrStateConflict, l.node.ID, subjectID)
			}
			tailID = l.node.ID
		}

		event, err = tx.CreateNode(ctx, []string{eventLabel}, props)
		if err != nil {
			return fmt.Errorf("creating event node: %w", err)
		}
		if _, err := tx.CreateRelationship(ctx, tailID, event.ID, entities.RelHasUserEvent, nil); err != nil {
			return fmt.Errorf("linking event to chain: %w", err)
		}
		if _, err := tx.CreateRelationship(ctx, event.ID, userID, entities.RelAddedBy, stampProps("")); err != nil {
			return fmt.Errorf("stamping %s: %w", entities.RelAddedBy, err)
		}
		return nil
	})
	if err != nil {
		return entities.Node{}, fmt.Errorf("appending event: %w", err)
	}
	return event, nil
}

// Authorise resolves a pending event as accepted.
func (s *EventService) Authorise(ctx context.Context, eventID, userID string) error {
	return s.resolve(ctx, eventID, userID, entities.RelAuthorisedBy)
}

// Reject resolves a pending event as refused.
func (s *EventService) Reject(ctx context.Context, eventID, userID string) error {
	return s.resolve(ctx, eventID, userID, entities.RelRejectedBy)
}

func (s *EventService) resolve(ctx context.Context, eventID, userID, relType string) error {
	err := s.graph.Update(ctx, func(tx ports.GraphTx) error {
		if err := tx.Lock(ctx, eventID); err != nil {
			return err
		}
		event, err := tx.Node(ctx, eventID)
		if err != nil {
			return err
		}
		if !isEventNode(event) {
			return fmt.Errorf("%w: node %s is not an event", entities.ErrInvalidInput, eventID)
		}
		status, err := eventStatus(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if status != entities.EventPendingAuth {
			return fmt.Errorf("%w: event %s is already %s", entities.ErrStateConflict, eventID, status)
		}
		if _, err := requireNode(ctx, tx, userID, entities.LabelUser); err != nil {
			return err
		}

		rels, err := tx.Relationships(ctx, eventID, entities.Outgoing, entities.RelAddedBy)
		if err != nil {
			return fmt.Errorf("reading %s: %w", entities.RelAddedBy, err)
		}
		added, err := singleEdge(rels, eventID, entities.RelAddedBy)
		if err != nil {
			return err
		}
		if added == nil {
			return fmt.Errorf("%w: event %s has no %s edge", entities.ErrInternalInconsistency, eventID, entities.RelAddedBy)
		}
		if err := s.dual.checkDistinct(added.EndID, userID); err != nil {
			return err
		}

		if _, err := tx.CreateRelationship(ctx, eventID, userID, relType, stampProps("")); err != nil {
			return fmt.Errorf("stamping %s: %w", relType, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("resolving event: %w", err)
	}
	return nil
}

// Status returns the event's resolution status.
func (s *EventService) Status(ctx context.Context, eventID string) (entities.EventStatus, error) {
	var status entities.EventStatus
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		event, err := tx.Node(ctx, eventID)
		if err != nil {
			return err
		}
		if !isEventNode(event) {
			return fmt.Errorf("%w: node %s is not an event", entities.ErrInvalidInput, eventID)
		}
		status, err = eventStatus(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("deriving event status: %w", err)
	}
	return status, nil
}

// SubjectOf walks the chain backwards from an event to the subject it hangs off.
func (s *EventService) SubjectOf(ctx context.Context, eventID string) (entities.Node, error) {
	var subject entities.Node
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		event, err := tx.Node(ctx, eventID)
		if err != nil {
			return err
		}
		if !isEventNode(event) {
			return fmt.Errorf("%w: node %s is not an event", entities.ErrInvalidInput, eventID)
		}
		subject, err = subjectOf(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return entities.Node{}, fmt.Errorf("resolving event subject: %w", err)
	}
	return subject, nil
}

// Chain lists the subject's events from oldest to newest.
func (s *EventService) Chain(ctx context.Context, subjectID string) ([]entities.EventRecord, error) {
	var records []entities.EventRecord
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		if _, err := tx.Node(ctx, subjectID); err != nil {
			return err
		}
		links, err := walkChain(ctx, tx, subjectID)
		if err != nil {
			return err
		}
		records = make([]entities.EventRecord, 0, len(links))
		for i, l := range links {
			rec, err := eventRecord(ctx, tx, subjectID, i+1, l)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing event chain: %w", err)
	}
	return records, nil
}

// walkChain follows HAS_USER_EVENT from the subject to the tail, visiting each
// node and relationship at most once. Branches and cycles are reported as
// inconsistencies rather than silently pruned.
func walkChain(ctx context.Context, tx ports.GraphTx, subjectID string) ([]chainLink, error) {
	visitedNodes := map[string]bool{subjectID: true}
	visitedRels := make(map[string]bool)
	var links []chainLink

	current := subjectID
	for {
		rels, err := tx.Relationships(ctx, current, entities.Outgoing, entities.RelHasUserEvent)
		if err != nil {
			return nil, fmt.Errorf("reading chain from %s: %w", current, err)
		}
		var next []entities.Relationship
		for _, r := range rels {
			if !visitedRels[r.ID] {
				next = append(next, r)
			}
		}
		if len(next) == 0 {
			return links, nil
		}
		if len(next) > 1 {
			return nil, fmt.Errorf("%w: chain branches at %s", entities.ErrInternalInconsistency, current)
		}

		r := next[0]
		visitedRels[r.ID] = true
		if visitedNodes[r.EndID] {
			return nil, fmt.Errorf("%w: chain from %s revisits %s", entities.ErrInternalInconsistency, subjectID, r.EndID)
		}
		visitedNodes[r.EndID] = true

		node, err := tx.Node(ctx, r.EndID)
		if err != nil {
			return nil, err
		}
		status, err := eventStatus(ctx, tx, node.ID)
		if err != nil {
			return nil, err
		}
		links = append(links, chainLink{node: node, status: status})
		current = node.ID
	}
}

// eventStatus derives PendingAuth, Active or Rejected from the resolution edges.
func eventStatus(ctx context.Context, tx ports.GraphTx, eventID string) (entities.EventStatus, error) {
	rels, err := tx.Relationships(ctx, eventID, entities.Outgoing, entities.RelAuthorisedBy, entities.RelRejectedBy)
	if err != nil {
		return "", fmt.Errorf("reading resolution edges of %s: %w", eventID, err)
	}
	authorised, err := singleEdge(rels, eventID, entities.RelAuthorisedBy)
	if err != nil {
		return "", err
	}
	rejected, err := singleEdge(rels, eventID, entities.RelRejectedBy)
	if err != nil {
		return "", err
	}

	switch {
	case authorised == nil && rejected == nil:
		return entities.EventPendingAuth, nil
	case authorised != nil && rejected == nil:
		return entities.EventActive, nil
	case authorised == nil && rejected != nil:
		return entities.EventRejected, nil
	default:
		return "", fmt.Errorf("%w: event %s is both authorised and rejected", entities.ErrInternalInconsistency, eventID)
	}
}

func subjectOf(ctx context.Context, tx ports.GraphTx, eventID string) (entities.Node, error) {
	visited := map[string]bool{eventID: true}
	current := eventID
	for {
		rels, err := tx.Relationships(ctx, current, entities.Incoming, entities.RelHasUserEvent)
		if err != nil {
			return entities.Node{}, fmt.Errorf("reading chain into %s: %w", current, err)
		}
		switch len(rels) {
		case 0:
			return entities.Node{}, fmt.Errorf("%w: event %s is not attached to a subject", entities.ErrInternalInconsistency, eventID)
		case 1:
		default:
			return entities.Node{}, fmt.Errorf("%w: chain merges at %s", entities.ErrInternalInconsistency, current)
		}

		prev := rels[0].StartID
		if visited[prev] {
			return entities.Node{}, fmt.Errorf("%w: chain through %s is cyclic", entities.ErrInternalInconsistency, eventID)
		}
		visited[prev] = true

		node, err := tx.Node(ctx, prev)
		if err != nil {
			return entities.Node{}, err
		}
		if !isEventNode(node) {
			return node, nil
		}
		current = prev
	}
}

func eventRecord(ctx context.Context, tx ports.GraphTx, subjectID string, position int, l chainLink) (entities.EventRecord, error) {
	rels, err := tx.Relationships(ctx, l.node.ID, entities.Outgoing,
		entities.RelAddedBy, entities.RelAuthorisedBy, entities.RelRejectedBy)
	if err != nil {
		return entities.EventRecord{}, fmt.Errorf("reading audit edges of %s: %w", l.node.ID, err)
	}
	audit, err := auditTrail(ctx, tx, rels)
	if err != nil {
		return entities.EventRecord{}, err
	}
	label := ""
	if len(l.node.Labels) > 0 {
		label = l.node.Labels[0]
	}
	return entities.EventRecord{
		ID:        l.node.ID,
		Label:     label,
		SubjectID: subjectID,
		Position:  position,
		Status:    l.status,
		Props:     l.node.Props,
		Audit:     audit,
	}, nil
}

func isEventNode(n entities.Node) bool {
	for _, l := range n.Labels {
		if entities.IsEventLabel(l) {
			return true
		}
	}
	return false
}
