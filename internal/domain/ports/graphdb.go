// Package ports defines the interfaces the domain needs from storage.
package ports

import (
	"context"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
)

// GraphDB defines the transactional graph store the core is built on.
// Every derivation or mutation runs inside exactly one Update or View call.
type GraphDB interface {
	// EnsureSchema creates indexes and constraints if they don't exist.
	EnsureSchema(ctx context.Context) error

	// Close releases the store's connections.
	Close() error

	// Update runs fn in a read/write transaction. The transaction commits
	// iff fn returns nil; otherwise nothing fn wrote is persisted.
	// Write conflicts and timeouts are reported wrapping entities.ErrStoreTransient.
	Update(ctx context.Context, fn func(tx GraphTx) error) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx GraphTx) error) error
}

// GraphTx exposes graph primitives scoped to one transaction.
type GraphTx interface {
	// CreateNode creates a node with a fresh id.
	CreateNode(ctx context.Context, labels []string, props map[string]any) (entities.Node, error)

	// Node loads a node by id, wrapping entities.ErrNotFound if absent.
	Node(ctx context.Context, id string) (entities.Node, error)

	// FindNodes returns nodes with label whose property key equals value.
	FindNodes(ctx context.Context, label, key string, value any) ([]entities.Node, error)

	// NodesByLabel returns every node carrying label, in creation order.
	NodesByLabel(ctx context.Context, label string) ([]entities.Node, error)

	// CountNodes counts the nodes carrying label.
	CountNodes(ctx context.Context, label string) (int, error)

	// CreateRelationship creates a directed edge start -[relType]-> end.
	CreateRelationship(ctx context.Context, startID, endID, relType string, props map[string]any) (entities.Relationship, error)

	// Relationships returns the edges attached to nodeID in the given direction,
	// restricted to types when any are given, in creation order.
	Relationships(ctx context.Context, nodeID string, dir entities.Direction, types ...string) ([]entities.Relationship, error)

	// Lock takes a write lock on the node that is held until the transaction ends.
	Lock(ctx context.Context, nodeID string) error
}
