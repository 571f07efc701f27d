package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// actionAuditTypes are the four audit edges an action node may originate.
var actionAuditTypes = []string{
	entities.RelAddedBy,
	entities.RelAddAuthorisedBy,
	entities.RelRemovedBy,
	entities.RelRemoveAuthorisedBy,
}

// actionState is the audit picture of one action node inside a transaction.
type actionState struct {
	node   entities.Node
	rels   []entities.Relationship
	edges  map[string]*entities.Relationship
	status entities.ActionStatus
}

func (a *actionState) addedAt() int64 {
	if e := a.edges[entities.RelAddedBy]; e != nil {
		return e.Date()
	}
	return 0
}

// loadActionState reads an action's audit edges and derives its status.
func loadActionState(ctx context.Context, tx ports.GraphTx, action entities.Node) (*actionState, error) {
	rels, err := tx.Relationships(ctx, action.ID, entities.Outgoing, actionAuditTypes...)
	if err != nil {
		return nil, fmt.Errorf("reading audit edges of %s: %w", action.ID, err)
	}
	st := &actionState{node: action, rels: rels, edges: make(map[string]*entities.Relationship, 4)}
	for _, t := range actionAuditTypes {
		e, err := singleEdge(rels, action.ID, t)
		if err != nil {
			return nil, err
		}
		st.edges[t] = e
	}
	st.status = entities.DeriveActionStatus(entities.ActionEdges{
		AddedBy:            st.edges[entities.RelAddedBy] != nil,
		AddAuthorisedBy:    st.edges[entities.RelAddAuthorisedBy] != nil,
		RemovedBy:          st.edges[entities.RelRemovedBy] != nil,
		RemoveAuthorisedBy: st.edges[entities.RelRemoveAuthorisedBy] != nil,
	})
	return st, nil
}

// actionKindOf resolves which kind an action node belongs to from its label.
func actionKindOf(n entities.Node) (entities.ActionKind, error) {
	for _, k := range entities.ActionKinds {
		if n.HasLabel(k.ActionLabel) {
			return k, nil
		}
	}
	return entities.ActionKind{}, fmt.Errorf("%w: node %s is not an action", entities.ErrInvalidInput, n.ID)
}

// ActionService derives the lifecycle status of dual-control actions.
type ActionService struct {
	graph ports.GraphDB
}

// NewActionService creates a new ActionService.
func NewActionService(graph ports.GraphDB) *ActionService {
	return &ActionService{graph: graph}
}

// Status returns the action's current lifecycle status.
func (s *ActionService) Status(ctx context.Context, actionID string) (entities.ActionStatus, error) {
	var status entities.ActionStatus
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		action, err := tx.Node(ctx, actionID)
		if err != nil {
			return err
		}
		if _, err := actionKindOf(action); err != nil {
			return err
		}
		st, err := loadActionState(ctx, tx, action)
		if err != nil {
			return err
		}
		status = st.status
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("deriving action status: %w", err)
	}
	return status, nil
}

// History lists every action of kind attached to subjectID, oldest first.
func (s *ActionService) History(ctx context.Context, subjectID string, kind entities.ActionKind) ([]entities.ActionRecord, error) {
	var records []entities.ActionRecord
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		if _, err := requireNode(ctx, tx, subjectID, kind.SubjectLabel); err != nil {
			return err
		}
		states, err := subjectActions(ctx, tx, subjectID, kind)
		if err != nil {
			return err
		}
		records = make([]entities.ActionRecord, 0, len(states))
		for _, st := range states {
			rec, err := actionRecord(ctx, tx, subjectID, kind, st)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing action history: %w", err)
	}
	return records, nil
}

// subjectActions loads the actions of kind hanging off subjectID, ordered by
// the date on their ADDED_BY edge. Store order breaks ties.
func subjectActions(ctx context.Context, tx ports.GraphTx, subjectID string, kind entities.ActionKind) ([]*actionState, error) {
	links, err := tx.Relationships(ctx, subjectID, entities.Outgoing, kind.ActionRelType)
	if err != nil {
		return nil, fmt.Errorf("reading %s edges: %w", kind.ActionRelType, err)
	}
	states := make([]*actionState, 0, len(links))
	for _, l := range links {
		action, err := tx.Node(ctx, l.EndID)
		if err != nil {
			return nil, err
		}
		st, err := loadActionState(ctx, tx, action)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	sort.SliceStable(states, func(i, j int) bool { return states[i].addedAt() < states[j].addedAt() })
	return states, nil
}

func actionRecord(ctx context.Context, tx ports.GraphTx, subjectID string, kind entities.ActionKind, st *actionState) (entities.ActionRecord, error) {
	audit, err := auditTrail(ctx, tx, st.rels)
	if err != nil {
		return entities.ActionRecord{}, err
	}
	rec := entities.ActionRecord{
		ID:        st.node.ID,
		SubjectID: subjectID,
		Kind:      kind.Name,
		Status:    st.status,
		Props:     st.node.Props,
		Audit:     audit,
	}
	if added := st.edges[entities.RelAddedBy]; added != nil {
		if v, ok := added.Int(entities.PropClassification); ok {
			rec.Classification = entities.Classification(v)
		}
	}
	return rec, nil
}
