// Package mocks provides in-memory implementations of the domain ports for tests.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// GraphDB is an in-memory implementation of ports.GraphDB.
// Update transactions are serialised and applied copy-on-write, so a failing
// transaction leaves the committed state untouched.
type GraphDB struct {
	mu    sync.RWMutex
	state *graphState

	// Err is returned by Update and View before fn runs.
	Err error
	// CommitErrs are returned, one per Update, after fn succeeds; the writes are discarded.
	CommitErrs []error
	// AllowDuplicateEdges lifts the single-edge constraint so tests can seed
	// graphs written before it existed.
	AllowDuplicateEdges bool

	// Call tracking
	UpdateCallCount       int
	ViewCallCount         int
	EnsureSchemaCallCount int
	Closed                bool
}

// NewGraphDB creates an empty in-memory graph.
func NewGraphDB() *GraphDB {
	return &GraphDB{state: newGraphState()}
}

// EnsureSchema is a no-op; the mock has no schema.
func (m *GraphDB) EnsureSchema(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureSchemaCallCount++
	return m.Err
}

// Close marks the graph closed.
func (m *GraphDB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Update runs fn against a private copy of the graph and swaps it in on success.
func (m *GraphDB) Update(ctx context.Context, fn func(tx ports.GraphTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCallCount++
	if m.Err != nil {
		return m.Err
	}

	draft := m.state.clone()
	if err := fn(&graphTx{state: draft, allowDuplicates: m.AllowDuplicateEdges}); err != nil {
		return err
	}
	if len(m.CommitErrs) > 0 {
		err := m.CommitErrs[0]
		m.CommitErrs = m.CommitErrs[1:]
		if err != nil {
			return err
		}
	}
	m.state = draft
	return nil
}

// View runs fn against the committed graph.
func (m *GraphDB) View(ctx context.Context, fn func(tx ports.GraphTx) error) error {
	m.mu.Lock()
	m.ViewCallCount++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return m.Err
	}
	return fn(&graphTx{state: m.state, readOnly: true})
}

// NodeCount returns the number of committed nodes.
func (m *GraphDB) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.order)
}

// RelationshipCount returns the number of committed relationships.
func (m *GraphDB) RelationshipCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.rels)
}

type graphState struct {
	nodes map[string]entities.Node
	order []string
	rels  []entities.Relationship
}

func newGraphState() *graphState {
	return &graphState{nodes: make(map[string]entities.Node)}
}

func (s *graphState) clone() *graphState {
	c := &graphState{
		nodes: make(map[string]entities.Node, len(s.nodes)),
		order: append([]string(nil), s.order...),
		rels:  append([]entities.Relationship(nil), s.rels...),
	}
	for k, v := range s.nodes {
		c.nodes[k] = v
	}
	return c
}

type graphTx struct {
	state           *graphState
	readOnly        bool
	allowDuplicates bool
}

var _ ports.GraphTx = (*graphTx)(nil)

func (t *graphTx) CreateNode(_ context.Context, labels []string, props map[string]any) (entities.Node, error) {
	if t.readOnly {
		return entities.Node{}, fmt.Errorf("create node in read-only transaction")
	}
	n := entities.Node{
		ID:     uuid.New().String(),
		Labels: append([]string(nil), labels...),
		Props:  copyProps(props),
	}
	t.state.nodes[n.ID] = n
	t.state.order = append(t.state.order, n.ID)
	return n, nil
}

func (t *graphTx) Node(_ context.Context, id string) (entities.Node, error) {
	n, ok := t.state.nodes[id]
	if !ok {
		return entities.Node{}, fmt.Errorf("%w: node %s", entities.ErrNotFound, id)
	}
	return n, nil
}

func (t *graphTx) FindNodes(_ context.Context, label, key string, value any) ([]entities.Node, error) {
	var result []entities.Node
	for _, id := range t.state.order {
		n := t.state.nodes[id]
		if n.HasLabel(label) && propEquals(n.Props[key], value) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (t *graphTx) NodesByLabel(_ context.Context, label string) ([]entities.Node, error) {
	var result []entities.Node
	for _, id := range t.state.order {
		if n := t.state.nodes[id]; n.HasLabel(label) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (t *graphTx) CountNodes(ctx context.Context, label string) (int, error) {
	nodes, err := t.NodesByLabel(ctx, label)
	return len(nodes), err
}

func (t *graphTx) CreateRelationship(_ context.Context, startID, endID, relType string, props map[string]any) (entities.Relationship, error) {
	if t.readOnly {
		return entities.Relationship{}, fmt.Errorf("create relationship in read-only transaction")
	}
	if _, ok := t.state.nodes[startID]; !ok {
		return entities.Relationship{}, fmt.Errorf("%w: node %s", entities.ErrNotFound, startID)
	}
	if _, ok := t.state.nodes[endID]; !ok {
		return entities.Relationship{}, fmt.Errorf("%w: node %s", entities.ErrNotFound, endID)
	}
	if isSingleEdgeType(relType) && !t.allowDuplicates {
		for _, r := range t.state.rels {
			if r.StartID == startID && r.Type == relType {
				return entities.Relationship{}, fmt.Errorf("%w: unique constraint on %s from %s", entities.ErrStoreTransient, relType, startID)
			}
		}
	}
	r := entities.Relationship{
		ID:      uuid.New().String(),
		Type:    relType,
		StartID: startID,
		EndID:   endID,
		Props:   copyProps(props),
	}
	t.state.rels = append(t.state.rels, r)
	return r, nil
}

func (t *graphTx) Relationships(_ context.Context, nodeID string, dir entities.Direction, types ...string) ([]entities.Relationship, error) {
	var result []entities.Relationship
	for _, r := range t.state.rels {
		if len(types) > 0 && !contains(types, r.Type) {
			continue
		}
		switch {
		case (dir == entities.Outgoing || dir == entities.Both) && r.StartID == nodeID:
			result = append(result, r)
		case (dir == entities.Incoming || dir == entities.Both) && r.EndID == nodeID:
			result = append(result, r)
		}
	}
	return result, nil
}

func (t *graphTx) Lock(_ context.Context, nodeID string) error {
	if _, ok := t.state.nodes[nodeID]; !ok {
		return fmt.Errorf("%w: node %s", entities.ErrNotFound, nodeID)
	}
	return nil
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func propEquals(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	return okA && okB && fa == fb
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func isSingleEdgeType(relType string) bool {
	return contains(entities.SingleEdgeTypes, relType)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
