// Package raw models the generic nested structure produced by converting an
// updateinfo XML document. Nearly every nested field in that structure is
// ambiguous: it appears as a single object when there is exactly one child
// and as a list when there are several. This package resolves the ambiguity
// at the boundary where raw input is first read; nothing past it ever sees a
// single-vs-many shape again.
package raw

import (
	"strconv"
)

// Node is one raw advisory node: a nested map decoded from the generic
// structured document.
type Node map[string]any

// AsNode converts a decoded value to a Node if it is map-shaped.
func AsNode(v any) (Node, bool) {
	switch m := v.(type) {
	case Node:
		return m, true
	case map[string]any:
		return Node(m), true
	default:
		return nil, false
	}
}

// Child returns the raw value stored under key.
func (n Node) Child(key string) (any, bool) {
	v, ok := n[key]
	return v, ok
}

// Node returns the child under key as a Node, if it is map-shaped.
func (n Node) Node(key string) (Node, bool) {
	v, ok := n[key]
	if !ok {
		return nil, false
	}
	return AsNode(v)
}

// OneOrMany normalizes the single/many ambiguity: a map-shaped value becomes
// a one-element sequence, a list becomes a sequence of its map-shaped
// elements, anything else (including absence) becomes nil. Every consumer of
// a possibly-repeated node goes through here so the ambiguity never
// propagates past this package.
func OneOrMany(v any) []Node {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		nodes := make([]Node, 0, len(t))
		for _, elem := range t {
			if node, ok := AsNode(elem); ok {
				nodes = append(nodes, node)
			}
		}
		return nodes
	default:
		if node, ok := AsNode(v); ok {
			return []Node{node}
		}
		return nil
	}
}

// Slice returns the children under key as a uniform sequence, applying the
// single/many normalization.
func (n Node) Slice(key string) []Node {
	v, ok := n[key]
	if !ok {
		return nil
	}
	return OneOrMany(v)
}

// String returns the child under key rendered as a scalar string. Wrapper
// objects with a single entry are unwrapped recursively (the date fields
// arrive as {"date": "..."}), and list-shaped values yield their first
// element. Absent or non-scalar values yield the empty string.
func (n Node) String(key string) string {
	v, ok := n[key]
	if !ok {
		return ""
	}
	return Scalar(v)
}

// Scalar force-renders a raw value as a string the way the columns of the
// relational schema expect it.
func Scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any:
		// Unwrap single-entry wrapper objects only; multi-key maps have no
		// well-defined scalar rendering.
		if len(t) == 1 {
			for _, inner := range t {
				return Scalar(inner)
			}
		}
		return ""
	case []any:
		if len(t) > 0 {
			return Scalar(t[0])
		}
		return ""
	default:
		return ""
	}
}
