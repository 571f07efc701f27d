// Package entities contains core domain data structures.
package entities

import (
	"encoding/json"
	"time"
)

// Direction selects which end of a relationship a traversal starts from.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Node is a labelled vertex in the graph store.
type Node struct {
	ID     string         `json:"id"`
	Labels []string       `json:"labels"`
	Props  map[string]any `json:"props,omitempty"`
}

// HasLabel reports whether the node carries the given label.
func (n Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// String returns a string property, or "" when absent.
func (n Node) String(key string) string {
	return stringProp(n.Props, key)
}

// Float returns a numeric property as float64.
func (n Node) Float(key string) (float64, bool) {
	return floatProp(n.Props, key)
}

// Int returns a numeric property as int64.
func (n Node) Int(key string) (int64, bool) {
	return intProp(n.Props, key)
}

// Relationship is a directed, typed edge between two nodes.
type Relationship struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	StartID string         `json:"start_id"`
	EndID   string         `json:"end_id"`
	Props   map[string]any `json:"props,omitempty"`
}

// Other returns the id of the node on the far side of the relationship from nodeID.
func (r Relationship) Other(nodeID string) string {
	if r.StartID == nodeID {
		return r.EndID
	}
	return r.StartID
}

// Date returns the relationship's date property (epoch millis).
func (r Relationship) Date() int64 {
	v, _ := intProp(r.Props, PropDate)
	return v
}

// String returns a string property, or "" when absent.
func (r Relationship) String(key string) string {
	return stringProp(r.Props, key)
}

// Int returns a numeric property as int64.
func (r Relationship) Int(key string) (int64, bool) {
	return intProp(r.Props, key)
}

// EpochMillis converts t to the epoch-millis form stored on audit edges.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func stringProp(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	s, _ := props[key].(string)
	return s
}

func floatProp(props map[string]any, key string) (float64, bool) {
	if props == nil {
		return 0, false
	}
	switch v := props[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func intProp(props map[string]any, key string) (int64, bool) {
	if props == nil {
		return 0, false
	}
	switch v := props[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
