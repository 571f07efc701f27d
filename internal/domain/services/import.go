package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/infrastructure/parsers"
)

// ConflictStrategy defines how to handle nodes whose identity already exists.
type ConflictStrategy string

const (
	// ConflictSkip reuses the existing node and skips creating a new one.
	ConflictSkip ConflictStrategy = "skip"
	// ConflictFail rejects the whole import.
	ConflictFail ConflictStrategy = "fail"
)

// identifierRegex matches labels and relationship types the backends accept.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun     bool             // Validate without saving
	OnConflict ConflictStrategy // How to handle existing nodes
}

// ImportError represents an error for a specific fixture entry.
type ImportError struct {
	Line    int    // Position in the nodes or relationships list (1-indexed, 0 if unknown)
	Section string // "nodes" or "relationships"
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s[%d]: %s", e.Section, e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Nodes         int
	Relationships int
	Skipped       int
	Errors        []ImportError
	IDs           map[string]string // fixture key -> node id
}

// ImportService loads graph fixtures (users, runs, panels, variants) into the store.
// Audit and chain relationships are refused: history is only written through
// the audit and event services.
type ImportService struct {
	graph ports.GraphDB
}

// NewImportService creates a new import service.
func NewImportService(graph ports.GraphDB) *ImportService {
	return &ImportService{graph: graph}
}

// Import validates the fixture and writes it in one transaction.
func (s *ImportService) Import(ctx context.Context, fixture *parsers.Fixture, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{IDs: make(map[string]string)}

	result.Errors = validateFixture(fixture)
	if len(result.Errors) > 0 {
		return result, nil
	}

	if opts.DryRun {
		result.Nodes = len(fixture.Nodes)
		result.Relationships = len(fixture.Relationships)
		return result, nil
	}

	err := s.graph.Update(ctx, func(tx ports.GraphTx) error {
		ids := make(map[string]string, len(fixture.Nodes))
		var nodes, skipped int
		for i := range fixture.Nodes {
			raw := &fixture.Nodes[i]
			existing, err := findExisting(ctx, tx, raw)
			if err != nil {
				return err
			}
			if existing != "" {
				if opts.OnConflict == ConflictFail {
					return fmt.Errorf("%w: nodes[%d] %q already exists", entities.ErrStateConflict, raw.LineNum, raw.Key)
				}
				ids[raw.Key] = existing
				skipped++
				continue
			}
			n, err := tx.CreateNode(ctx, raw.Labels, raw.Props)
			if err != nil {
				return fmt.Errorf("creating nodes[%d]: %w", raw.LineNum, err)
			}
			ids[raw.Key] = n.ID
			nodes++
		}

		for i := range fixture.Relationships {
			raw := &fixture.Relationships[i]
			if _, err := tx.CreateRelationship(ctx, ids[raw.From], ids[raw.To], raw.Type, raw.Props); err != nil {
				return fmt.Errorf("creating relationships[%d]: %w", raw.LineNum, err)
			}
		}

		result.IDs = ids
		result.Nodes = nodes
		result.Skipped = skipped
		result.Relationships = len(fixture.Relationships)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importing fixture: %w", err)
	}
	return result, nil
}

// findExisting returns the id of a stored node sharing raw's identity, or "".
func findExisting(ctx context.Context, tx ports.GraphTx, raw *parsers.RawNode) (string, error) {
	for _, label := range raw.Labels {
		key, ok := entities.IdentityProps[label]
		if !ok {
			continue
		}
		value, ok := raw.Props[key]
		if !ok {
			continue
		}
		found, err := tx.FindNodes(ctx, label, key, value)
		if err != nil {
			return "", fmt.Errorf("checking existing %s: %w", label, err)
		}
		if len(found) > 0 {
			return found[0].ID, nil
		}
	}
	return "", nil
}

// validateFixture checks every entry and returns all problems found.
func validateFixture(f *parsers.Fixture) []ImportError {
	var errs []ImportError
	keys := make(map[string]bool, len(f.Nodes))

	for i := range f.Nodes {
		raw := &f.Nodes[i]
		if raw.Key == "" {
			errs = append(errs, ImportError{Line: raw.LineNum, Section: "nodes", Field: "key", Message: "missing required field: key"})
			continue
		}
		if keys[raw.Key] {
			errs = append(errs, ImportError{Line: raw.LineNum, Section: "nodes", Field: "key", Value: raw.Key, Message: fmt.Sprintf("duplicate key %q", raw.Key)})
			continue
		}
		keys[raw.Key] = true
		if len(raw.Labels) == 0 {
			errs = append(errs, ImportError{Line: raw.LineNum, Section: "nodes", Field: "labels", Message: "at least one label is required"})
		}
		for _, l := range raw.Labels {
			if !identifierRegex.MatchString(l) {
				errs = append(errs, ImportError{Line: raw.LineNum, Section: "nodes", Field: "labels", Value: l, Message: fmt.Sprintf("invalid label %q", l)})
			}
			if entities.IsEventLabel(l) || isActionLabel(l) {
				errs = append(errs, ImportError{Line: raw.LineNum, Section: "nodes", Field: "labels", Value: l, Message: fmt.Sprintf("%s nodes are created by the audit workflow, not imported", l)})
			}
		}
	}

	for i := range f.Relationships {
		raw := &f.Relationships[i]
		if !identifierRegex.MatchString(raw.Type) {
			errs = append(errs, ImportError{Line: raw.LineNum, Section: "relationships", Field: "type", Value: raw.Type, Message: fmt.Sprintf("invalid relationship type %q", raw.Type)})
		}
		if isAuditRelType(raw.Type) {
			errs = append(errs, ImportError{Line: raw.LineNum, Section: "relationships", Field: "type", Value: raw.Type, Message: fmt.Sprintf("%s edges are written by the audit workflow, not imported", raw.Type)})
		}
		if !keys[raw.From] {
			errs = append(errs, ImportError{Line: raw.LineNum, Section: "relationships", Field: "from", Value: raw.From, Message: fmt.Sprintf("unknown node key %q", raw.From)})
		}
		if !keys[raw.To] {
			errs = append(errs, ImportError{Line: raw.LineNum, Section: "relationships", Field: "to", Value: raw.To, Message: fmt.Sprintf("unknown node key %q", raw.To)})
		}
	}
	return errs
}

func isAuditRelType(t string) bool {
	for _, s := range entities.SingleEdgeTypes {
		if s == t {
			return true
		}
	}
	for _, k := range entities.ActionKinds {
		if k.ActionRelType == t {
			return true
		}
	}
	return false
}

func isActionLabel(l string) bool {
	for _, k := range entities.ActionKinds {
		if k.ActionLabel == l {
			return true
		}
	}
	return false
}
