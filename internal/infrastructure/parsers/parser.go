// Package parsers provides parsers for importing graph fixtures from various formats.
package parsers

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
)

// RawNode is a node parsed from a fixture before validation.
// Key is a fixture-local handle used by relationships to refer to the node.
type RawNode struct {
	Key     string         `json:"key" yaml:"key"`
	Labels  []string       `json:"labels" yaml:"labels"`
	Props   map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	LineNum int            `json:"-" yaml:"-"` // Position in source file (set by parser)
}

// RawRelationship is a relationship parsed from a fixture before validation.
type RawRelationship struct {
	From    string         `json:"from" yaml:"from"`
	To      string         `json:"to" yaml:"to"`
	Type    string         `json:"type" yaml:"type"`
	Props   map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	LineNum int            `json:"-" yaml:"-"`
}

// Fixture is a parsed graph snapshot.
type Fixture struct {
	Nodes         []RawNode         `json:"nodes" yaml:"nodes"`
	Relationships []RawRelationship `json:"relationships" yaml:"relationships"`
}

// Parser defines the interface for parsing fixtures from various formats.
type Parser interface {
	Parse(r io.Reader) (*Fixture, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "yaml".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "yaml", "yml":
		return &YAMLParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".yaml", ".yml":
		return &YAMLParser{}
	default:
		return nil
	}
}

// number positions and normalise property values so integers stay int64 and
// everything else numeric is float64, whatever the source format.
func (f *Fixture) finish() {
	for i := range f.Nodes {
		f.Nodes[i].LineNum = i + 1
		f.Nodes[i].Props = normalizeProps(f.Nodes[i].Props)
	}
	for i := range f.Relationships {
		f.Relationships[i].LineNum = i + 1
		f.Relationships[i].Props = normalizeProps(f.Relationships[i].Props)
	}
}

func normalizeProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = normalizeValue(n[i])
		}
		return out
	default:
		return v
	}
}
