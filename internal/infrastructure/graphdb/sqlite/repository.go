// Package sqlite provides a SQLite implementation of the GraphDB interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlitedriver "modernc.org/sqlite" // Pure Go SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/infrastructure/config"
)

// generateUUID returns a new UUID string.
func generateUUID() string {
	return uuid.New().String()
}

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// identifierRegex matches labels, relationship types and property keys.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Repository implements ports.GraphDB on three tables: nodes, node_labels and relationships.
//
// Writes go through a single connection opened with BEGIN IMMEDIATE, so write
// transactions serialise in-process and across processes (busy_timeout covers the wait).
// Reads use a separate pool and see WAL snapshots.
type Repository struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

var _ ports.GraphDB = (*Repository)(nil)

// NewRepository opens (creating if needed) the SQLite graph at cfg.Path.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	if cfg.Path == ":memory:" {
		// Every connection to :memory: is a separate database, so share one.
		db, err := sql.Open("sqlite", dsn(":memory:", true))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1)
		return &Repository{writer: db, reader: db, path: cfg.Path}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	writer, err := sql.Open("sqlite", dsn(cfg.Path, true))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn(cfg.Path, false))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	return &Repository{writer: writer, reader: reader, path: cfg.Path}, nil
}

// dsn applies the pragmas on every pooled connection rather than only the first.
func dsn(path string, immediate bool) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
	}
	if immediate {
		params = append(params, "_txlock=immediate")
	}
	return path + "?" + strings.Join(params, "&")
}

// Close closes the database connections.
func (r *Repository) Close() error {
	err := r.writer.Close()
	if r.reader != r.writer {
		if rerr := r.reader.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the graph tables if they don't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	single := make([]string, len(entities.SingleEdgeTypes))
	for i, t := range entities.SingleEdgeTypes {
		single[i] = "'" + t + "'"
	}

	schema := `
	-- Nodes (labels are denormalised as a JSON array for reads)
	CREATE TABLE IF NOT EXISTS nodes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		labels TEXT NOT NULL,
		props TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	);

	-- Label index
	CREATE TABLE IF NOT EXISTS node_labels (
		node_id TEXT NOT NULL REFERENCES nodes(id),
		label TEXT NOT NULL,
		PRIMARY KEY (node_id, label)
	);
	CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label, node_id);

	-- Directed, typed relationships
	CREATE TABLE IF NOT EXISTS relationships (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		start_id TEXT NOT NULL REFERENCES nodes(id),
		end_id TEXT NOT NULL REFERENCES nodes(id),
		props TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_start ON relationships(start_id, type);
	CREATE INDEX IF NOT EXISTS idx_relationships_end ON relationships(end_id, type);

	-- A node originates at most one audit edge of each type and one chain link
	CREATE UNIQUE INDEX IF NOT EXISTS idx_relationships_single
		ON relationships(start_id, type) WHERE type IN (` + strings.Join(single, ", ") + `);
	`

	if _, err := r.writer.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Update runs fn in an immediate write transaction.
func (r *Repository) Update(ctx context.Context, fn func(tx ports.GraphTx) error) error {
	tx, err := r.writer.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("beginning write transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&graphTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// View runs fn in a read transaction.
func (r *Repository) View(ctx context.Context, fn func(tx ports.GraphTx) error) error {
	tx, err := r.reader.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("beginning read transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	return fn(&graphTx{tx: tx, readOnly: true})
}

// mapError marks lock contention and single-edge races as transient.
func mapError(err error) error {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return err
	}
	code := se.Code()
	switch {
	case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", entities.ErrStoreTransient, err)
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return fmt.Errorf("%w: %w", entities.ErrStoreTransient, err)
	default:
		return err
	}
}

type graphTx struct {
	tx       *sql.Tx
	readOnly bool
}

var _ ports.GraphTx = (*graphTx)(nil)

func (t *graphTx) CreateNode(ctx context.Context, labels []string, props map[string]any) (entities.Node, error) {
	if t.readOnly {
		return entities.Node{}, errors.New("create node in read-only transaction")
	}
	for _, l := range labels {
		if !identifierRegex.MatchString(l) {
			return entities.Node{}, fmt.Errorf("%w: invalid label %q", entities.ErrInvalidInput, l)
		}
	}
	if labels == nil {
		labels = []string{}
	}

	n := entities.Node{ID: generateUUID(), Labels: labels, Props: props}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return entities.Node{}, fmt.Errorf("encoding labels: %w", err)
	}
	propsJSON, err := encodeProps(props)
	if err != nil {
		return entities.Node{}, err
	}

	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO nodes (id, labels, props, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, string(labelsJSON), propsJSON, timeNow().UTC(),
	)
	if err != nil {
		return entities.Node{}, mapError(fmt.Errorf("inserting node: %w", err))
	}
	for _, l := range labels {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO node_labels (node_id, label) VALUES (?, ?)`, n.ID, l,
		); err != nil {
			return entities.Node{}, mapError(fmt.Errorf("inserting node label: %w", err))
		}
	}
	return n, nil
}

func (t *graphTx) Node(ctx context.Context, id string) (entities.Node, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT id, labels, props FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Node{}, fmt.Errorf("%w: node %s", entities.ErrNotFound, id)
	}
	if err != nil {
		return entities.Node{}, mapError(err)
	}
	return n, nil
}

func (t *graphTx) FindNodes(ctx context.Context, label, key string, value any) ([]entities.Node, error) {
	if !identifierRegex.MatchString(key) {
		return nil, fmt.Errorf("%w: invalid property key %q", entities.ErrInvalidInput, key)
	}
	query := `
		SELECT n.id, n.labels, n.props
		FROM nodes n
		JOIN node_labels l ON l.node_id = n.id
		WHERE l.label = ? AND json_extract(n.props, ?) = ?
		ORDER BY n.seq
	`
	return t.queryNodes(ctx, query, label, "$."+key, value)
}

func (t *graphTx) NodesByLabel(ctx context.Context, label string) ([]entities.Node, error) {
	query := `
		SELECT n.id, n.labels, n.props
		FROM nodes n
		JOIN node_labels l ON l.node_id = n.id
		WHERE l.label = ?
		ORDER BY n.seq
	`
	return t.queryNodes(ctx, query, label)
}

func (t *graphTx) CountNodes(ctx context.Context, label string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM node_labels WHERE label = ?`, label).Scan(&n)
	if err != nil {
		return 0, mapError(fmt.Errorf("counting %s nodes: %w", label, err))
	}
	return n, nil
}

func (t *graphTx) CreateRelationship(ctx context.Context, startID, endID, relType string, props map[string]any) (entities.Relationship, error) {
	if t.readOnly {
		return entities.Relationship{}, errors.New("create relationship in read-only transaction")
	}
	if !identifierRegex.MatchString(relType) {
		return entities.Relationship{}, fmt.Errorf("%w: invalid relationship type %q", entities.ErrInvalidInput, relType)
	}
	for _, id := range []string{startID, endID} {
		if err := t.Lock(ctx, id); err != nil {
			return entities.Relationship{}, err
		}
	}

	rel := entities.Relationship{ID: generateUUID(), Type: relType, StartID: startID, EndID: endID, Props: props}
	propsJSON, err := encodeProps(props)
	if err != nil {
		return entities.Relationship{}, err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO relationships (id, type, start_id, end_id, props, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rel.ID, relType, startID, endID, propsJSON, timeNow().UTC(),
	)
	if err != nil {
		return entities.Relationship{}, mapError(fmt.Errorf("inserting %s relationship: %w", relType, err))
	}
	return rel, nil
}

func (t *graphTx) Relationships(ctx context.Context, nodeID string, dir entities.Direction, types ...string) ([]entities.Relationship, error) {
	var where string
	args := []any{nodeID}
	switch dir {
	case entities.Outgoing:
		where = "start_id = ?"
	case entities.Incoming:
		where = "end_id = ?"
	default:
		where = "(start_id = ? OR end_id = ?)"
		args = append(args, nodeID)
	}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, typ := range types {
			placeholders[i] = "?"
			args = append(args, typ)
		}
		where += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query := `SELECT id, type, start_id, end_id, props FROM relationships WHERE ` + where + ` ORDER BY seq`
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("querying relationships: %w", err))
	}
	defer rows.Close()

	var result []entities.Relationship
	for rows.Next() {
		var rel entities.Relationship
		var props string
		if err := rows.Scan(&rel.ID, &rel.Type, &rel.StartID, &rel.EndID, &props); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		if rel.Props, err = decodeProps(props); err != nil {
			return nil, err
		}
		result = append(result, rel)
	}
	return result, mapError(rows.Err())
}

// Lock checks the node exists. The immediate write transaction already holds
// the database write lock, so there is nothing finer to take.
func (t *graphTx) Lock(ctx context.Context, nodeID string) error {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE id = ?`, nodeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: node %s", entities.ErrNotFound, nodeID)
	}
	if err != nil {
		return mapError(fmt.Errorf("locking node %s: %w", nodeID, err))
	}
	return nil
}

func (t *graphTx) queryNodes(ctx context.Context, query string, args ...any) ([]entities.Node, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("querying nodes: %w", err))
	}
	defer rows.Close()

	var result []entities.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, mapError(rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (entities.Node, error) {
	var n entities.Node
	var labels, props string
	if err := s.Scan(&n.ID, &labels, &props); err != nil {
		return entities.Node{}, err
	}
	if err := json.Unmarshal([]byte(labels), &n.Labels); err != nil {
		return entities.Node{}, fmt.Errorf("decoding labels of %s: %w", n.ID, err)
	}
	var err error
	if n.Props, err = decodeProps(props); err != nil {
		return entities.Node{}, err
	}
	return n, nil
}

func encodeProps(props map[string]any) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	for k := range props {
		if !identifierRegex.MatchString(k) {
			return "", fmt.Errorf("%w: invalid property key %q", entities.ErrInvalidInput, k)
		}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encoding properties: %w", err)
	}
	return string(data), nil
}

// decodeProps restores int64 and float64 values from the stored JSON.
func decodeProps(data string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding properties: %w", err)
	}
	for k, v := range raw {
		num, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := num.Int64(); err == nil {
			raw[k] = i
		} else if f, err := num.Float64(); err == nil {
			raw[k] = f
		}
	}
	return raw, nil
}
