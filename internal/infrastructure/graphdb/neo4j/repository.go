// Package neo4j provides a Neo4j implementation of the GraphDB interface.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/infrastructure/config"
	"github.com/ersonp/variantdb-core/internal/infrastructure/logger"
)

// baseLabel is carried by every node so ids can be uniquely constrained and indexed.
const baseLabel = "GraphNode"

// Internal properties kept off the domain view.
const (
	propID  = "id"
	propSeq = "_seq"
)

const constraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

// identifierRegex matches labels and relationship types safe to splice into Cypher.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.GraphDB on a Neo4j database.
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	log      *logger.Logger
}

var _ ports.GraphDB = (*Repository)(nil)

// NewRepository connects to Neo4j and verifies connectivity.
func NewRepository(ctx context.Context, cfg config.Neo4jConfig, log *logger.Logger) (*Repository, error) {
	if log == nil {
		return nil, errors.New("neo4j: logger required")
	}
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("neo4j: uri is required")
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Repository{
		driver:   driver,
		database: cfg.Database,
		timeout:  timeout,
		log:      log.With("client", "Neo4jGraph"),
	}, nil
}

// Close closes the driver.
func (r *Repository) Close() error {
	if r.driver == nil {
		return nil
	}
	err := r.driver.Close(context.Background())
	r.driver = nil
	return err
}

// EnsureSchema creates the id constraint and the lookup indexes.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT graph_node_id_unique IF NOT EXISTS FOR (n:` + baseLabel + `) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX user_id_idx IF NOT EXISTS FOR (n:` + entities.LabelUser + `) ON (n.` + entities.PropUserID + `)`,
		`CREATE INDEX variant_id_idx IF NOT EXISTS FOR (n:` + entities.LabelVariant + `) ON (n.` + entities.PropVariantID + `)`,
		`CREATE INDEX run_analysis_idx IF NOT EXISTS FOR (n:` + entities.LabelRunInfo + `) ON (n.` + entities.PropAnalysisID + `)`,
		`CREATE INDEX panel_name_idx IF NOT EXISTS FOR (n:` + entities.LabelVirtualPanel + `) ON (n.` + entities.PropVirtualPanelName + `)`,
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: r.database,
	})
	defer session.Close(ctx)

	for _, stmt := range statements {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Update runs fn in a managed write transaction. The driver retries the whole
// function on retryable failures, so fn must not have effects outside tx.
func (r *Repository) Update(ctx context.Context, fn func(tx ports.GraphTx) error) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: r.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&graphTx{tx: tx})
	}, neo4j.WithTxTimeout(r.timeout))
	if err != nil {
		return mapError(err)
	}
	return nil
}

// View runs fn in a managed read transaction.
func (r *Repository) View(ctx context.Context, fn func(tx ports.GraphTx) error) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: r.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&graphTx{tx: tx, readOnly: true})
	}, neo4j.WithTxTimeout(r.timeout))
	if err != nil {
		return mapError(err)
	}
	return nil
}

// mapError marks retryable driver failures and constraint races as transient.
func mapError(err error) error {
	if err == nil || errors.Is(err, entities.ErrStoreTransient) {
		return err
	}
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) && nerr.Code == constraintViolation {
		return fmt.Errorf("%w: %w", entities.ErrStoreTransient, err)
	}
	if neo4j.IsRetryable(err) {
		return fmt.Errorf("%w: %w", entities.ErrStoreTransient, err)
	}
	return err
}

type graphTx struct {
	tx       neo4j.ManagedTransaction
	readOnly bool
}

var _ ports.GraphTx = (*graphTx)(nil)

func (t *graphTx) collect(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, mapError(err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

func (t *graphTx) CreateNode(ctx context.Context, labels []string, props map[string]any) (entities.Node, error) {
	if t.readOnly {
		return entities.Node{}, errors.New("create node in read-only transaction")
	}
	labelClause, err := labelClause(labels)
	if err != nil {
		return entities.Node{}, err
	}

	id := uuid.New().String()
	cypher := `CREATE (n:` + baseLabel + labelClause + `) SET n = $props, n.id = $id, n._seq = $seq RETURN n`
	records, err := t.collect(ctx, cypher, map[string]any{
		"props": propsOrEmpty(props),
		"id":    id,
		"seq":   timeNow().UnixNano(),
	})
	if err != nil {
		return entities.Node{}, fmt.Errorf("creating node: %w", err)
	}
	if len(records) != 1 {
		return entities.Node{}, fmt.Errorf("creating node: expected one record, got %d", len(records))
	}
	return nodeFromRecord(records[0], "n")
}

func (t *graphTx) Node(ctx context.Context, id string) (entities.Node, error) {
	records, err := t.collect(ctx, `MATCH (n:`+baseLabel+` {id: $id}) RETURN n`, map[string]any{"id": id})
	if err != nil {
		return entities.Node{}, fmt.Errorf("loading node %s: %w", id, err)
	}
	if len(records) == 0 {
		return entities.Node{}, fmt.Errorf("%w: node %s", entities.ErrNotFound, id)
	}
	return nodeFromRecord(records[0], "n")
}

func (t *graphTx) FindNodes(ctx context.Context, label, key string, value any) ([]entities.Node, error) {
	if !identifierRegex.MatchString(label) {
		return nil, fmt.Errorf("%w: invalid label %q", entities.ErrInvalidInput, label)
	}
	cypher := `MATCH (n:` + baseLabel + `:` + label + `) WHERE n[$key] = $value RETURN n ORDER BY n._seq`
	return t.queryNodes(ctx, cypher, map[string]any{"key": key, "value": value})
}

func (t *graphTx) NodesByLabel(ctx context.Context, label string) ([]entities.Node, error) {
	if !identifierRegex.MatchString(label) {
		return nil, fmt.Errorf("%w: invalid label %q", entities.ErrInvalidInput, label)
	}
	return t.queryNodes(ctx, `MATCH (n:`+baseLabel+`:`+label+`) RETURN n ORDER BY n._seq`, nil)
}

func (t *graphTx) CountNodes(ctx context.Context, label string) (int, error) {
	if !identifierRegex.MatchString(label) {
		return 0, fmt.Errorf("%w: invalid label %q", entities.ErrInvalidInput, label)
	}
	records, err := t.collect(ctx, `MATCH (n:`+baseLabel+`:`+label+`) RETURN count(n) AS c`, nil)
	if err != nil {
		return 0, fmt.Errorf("counting %s nodes: %w", label, err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	c, _, err := neo4j.GetRecordValue[int64](records[0], "c")
	if err != nil {
		return 0, fmt.Errorf("counting %s nodes: %w", label, err)
	}
	return int(c), nil
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

	if isSingleEdgeType(relType) {
		// The start node is locked, so this check cannot race another writer.
		records, err := t.collect(ctx,
			`MATCH (a:`+baseLabel+` {id: $start})-[r:`+relType+`]->() RETURN count(r) AS c`,
			map[string]any{"start": startID})
		if err != nil {
			return entities.Relationship{}, fmt.Errorf("checking %s: %w", relType, err)
		}
		if c, _, _ := neo4j.GetRecordValue[int64](records[0], "c"); c > 0 {
			return entities.Relationship{}, fmt.Errorf("%w: node %s already has a %s edge", entities.ErrStoreTransient, startID, relType)
		}
	}

	id := uuid.New().String()
	cypher := `
MATCH (a:` + baseLabel + ` {id: $start})
MATCH (b:` + baseLabel + ` {id: $end})
CREATE (a)-[r:` + relType + `]->(b)
SET r = $props, r.id = $id, r._seq = $seq
RETURN r, a.id AS start, b.id AS end
`
	records, err := t.collect(ctx, cypher, map[string]any{
		"start": startID,
		"end":   endID,
		"props": propsOrEmpty(props),
		"id":    id,
		"seq":   timeNow().UnixNano(),
	})
	if err != nil {
		return entities.Relationship{}, fmt.Errorf("creating %s relationship: %w", relType, err)
	}
	if len(records) != 1 {
		return entities.Relationship{}, fmt.Errorf("creating %s relationship: expected one record, got %d", relType, len(records))
	}
	return relationshipFromRecord(records[0])
}

func (t *graphTx) Relationships(ctx context.Context, nodeID string, dir entities.Direction, types ...string) ([]entities.Relationship, error) {
	var pattern string
	switch dir {
	case entities.Outgoing:
		pattern = `(n)-[r]->(m)`
	case entities.Incoming:
		pattern = `(n)<-[r]-(m)`
	default:
		pattern = `(n)-[r]-(m)`
	}
	cypher := `
MATCH (n:` + baseLabel + ` {id: $id})
MATCH ` + pattern + `
WHERE size($types) = 0 OR type(r) IN $types
RETURN DISTINCT r, startNode(r).id AS start, endNode(r).id AS end
ORDER BY r._seq
`
	if types == nil {
		types = []string{}
	}
	records, err := t.collect(ctx, cypher, map[string]any{"id": nodeID, "types": types})
	if err != nil {
		return nil, fmt.Errorf("querying relationships of %s: %w", nodeID, err)
	}

	result := make([]entities.Relationship, 0, len(records))
	for _, rec := range records {
		rel, err := relationshipFromRecord(rec)
		if err != nil {
			return nil, err
		}
		result = append(result, rel)
	}
	return result, nil
}

// Lock takes the node's write lock for the rest of the transaction. Readers are
// not blocked; a second writer locking the same node waits for commit.
func (t *graphTx) Lock(ctx context.Context, nodeID string) error {
	records, err := t.collect(ctx,
		`MATCH (n:`+baseLabel+` {id: $id}) SET n._lock = true REMOVE n._lock RETURN n.id AS id`,
		map[string]any{"id": nodeID})
	if err != nil {
		return fmt.Errorf("locking node %s: %w", nodeID, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: node %s", entities.ErrNotFound, nodeID)
	}
	return nil
}

func (t *graphTx) queryNodes(ctx context.Context, cypher string, params map[string]any) ([]entities.Node, error) {
	records, err := t.collect(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	result := make([]entities.Node, 0, len(records))
	for _, rec := range records {
		n, err := nodeFromRecord(rec, "n")
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

func labelClause(labels []string) (string, error) {
	var b strings.Builder
	for _, l := range labels {
		if !identifierRegex.MatchString(l) || l == baseLabel {
			return "", fmt.Errorf("%w: invalid label %q", entities.ErrInvalidInput, l)
		}
		b.WriteString(":")
		b.WriteString(l)
	}
	return b.String(), nil
}

func nodeFromRecord(rec *neo4j.Record, key string) (entities.Node, error) {
	raw, _, err := neo4j.GetRecordValue[neo4j.Node](rec, key)
	if err != nil {
		return entities.Node{}, fmt.Errorf("decoding node: %w", err)
	}
	labels := make([]string, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		if l != baseLabel {
			labels = append(labels, l)
		}
	}
	id, _ := raw.Props[propID].(string)
	return entities.Node{ID: id, Labels: labels, Props: domainProps(raw.Props)}, nil
}

func relationshipFromRecord(rec *neo4j.Record) (entities.Relationship, error) {
	raw, _, err := neo4j.GetRecordValue[neo4j.Relationship](rec, "r")
	if err != nil {
		return entities.Relationship{}, fmt.Errorf("decoding relationship: %w", err)
	}
	start, _, err := neo4j.GetRecordValue[string](rec, "start")
	if err != nil {
		return entities.Relationship{}, fmt.Errorf("decoding relationship start: %w", err)
	}
	end, _, err := neo4j.GetRecordValue[string](rec, "end")
	if err != nil {
		return entities.Relationship{}, fmt.Errorf("decoding relationship end: %w", err)
	}
	id, _ := raw.Props[propID].(string)
	return entities.Relationship{
		ID:      id,
		Type:    raw.Type,
		StartID: start,
		EndID:   end,
		Props:   domainProps(raw.Props),
	}, nil
}

// domainProps drops the id and the underscore-prefixed bookkeeping properties.
func domainProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k == propID || strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}

func propsOrEmpty(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	return props
}

func isSingleEdgeType(relType string) bool {
	for _, t := range entities.SingleEdgeTypes {
		if t == relType {
			return true
		}
	}
	return false
}

// Reset deletes every node and relationship managed by the repository.
func (r *Repository) Reset(ctx context.Context) error {
	return r.Update(ctx, func(tx ports.GraphTx) error {
		gtx := tx.(*graphTx)
		_, err := gtx.collect(ctx, `MATCH (n:`+baseLabel+`) DETACH DELETE n`, nil)
		return err
	})
}
