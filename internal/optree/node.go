// Package optree provides the ordered option tree used for formatter
// configuration.
//
// A Node is either a scalar (string, number, boolean, or a raw JSON value
// such as an array or null) or a group of named children. Groups keep
// their keys in insertion order so that trees parsed from JSON render in
// the same order the keys were written.
package optree

import (
	"strconv"
)

// Kind identifies what a Node holds.
type Kind uint8

const (
	// KindGroup is a nested object.
	KindGroup Kind = iota
	// KindString is a string scalar.
	KindString
	// KindNumber is a numeric scalar.
	KindNumber
	// KindBool is a boolean scalar.
	KindBool
	// KindRaw is any other JSON value (array, null) carried verbatim.
	KindRaw
)

// String returns the kind name used in forms and error messages.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "object"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindRaw:
		return "json"
	default:
		return "unknown"
	}
}

// Node is a single value in an option tree.
// The zero value is an empty group.
type Node struct {
	kind Kind

	str string
	num float64
	b   bool
	raw string

	keys     []string
	children map[string]*Node
}

// NewGroup returns an empty group.
func NewGroup() *Node {
	return &Node{kind: KindGroup}
}

// String returns a string scalar.
func String(s string) *Node {
	return &Node{kind: KindString, str: s}
}

// Number returns a numeric scalar.
func Number(f float64) *Node {
	return &Node{kind: KindNumber, num: f}
}

// Int returns a numeric scalar holding an integer.
func Int(i int) *Node {
	return Number(float64(i))
}

// Bool returns a boolean scalar.
func Bool(b bool) *Node {
	return &Node{kind: KindBool, b: b}
}

// Raw returns a scalar holding verbatim JSON text.
// The caller is responsible for raw being valid JSON.
func Raw(raw string) *Node {
	return &Node{kind: KindRaw, raw: raw}
}

// Kind returns the node kind.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsGroup reports whether n is a group.
func (n *Node) IsGroup() bool {
	return n != nil && n.kind == KindGroup
}

// Str returns the string value. Only meaningful for KindString.
func (n *Node) Str() string { return n.str }

// Num returns the numeric value. Only meaningful for KindNumber.
func (n *Node) Num() float64 { return n.num }

// Bool returns the boolean value. Only meaningful for KindBool.
func (n *Node) Bool() bool { return n.b }

// RawJSON returns the verbatim JSON. Only meaningful for KindRaw.
func (n *Node) RawJSON() string { return n.raw }

// Text renders a scalar for display: strings as-is, numbers in their
// shortest form, booleans as true/false and raw values as JSON text.
// Groups render as the empty string.
func (n *Node) Text() string {
	switch n.kind {
	case KindString:
		return n.str
	case KindNumber:
		return strconv.FormatFloat(n.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(n.b)
	case KindRaw:
		return n.raw
	default:
		return ""
	}
}

// Keys returns the group's keys in insertion order.
// The returned slice must not be modified.
func (n *Node) Keys() []string {
	if !n.IsGroup() {
		return nil
	}
	return n.keys
}

// Len returns the number of children of a group.
func (n *Node) Len() int {
	if !n.IsGroup() {
		return 0
	}
	return len(n.keys)
}

// Child returns the named child of a group.
func (n *Node) Child(key string) (*Node, bool) {
	if !n.IsGroup() || n.children == nil {
		return nil, false
	}
	c, ok := n.children[key]
	return c, ok
}

// Set stores child under key. New keys are appended; existing keys keep
// their position. Set on a scalar is a no-op.
func (n *Node) Set(key string, child *Node) {
	if !n.IsGroup() || child == nil {
		return
	}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, exists := n.children[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.children[key] = child
}

// Delete removes key from a group. Returns true if the key existed.
func (n *Node) Delete(key string) bool {
	if !n.IsGroup() || n.children == nil {
		return false
	}
	if _, exists := n.children[key]; !exists {
		return false
	}
	delete(n.children, key)
	for i, k := range n.keys {
		if k == key {
			n.keys = append(n.keys[:i:i], n.keys[i+1:]...)
			break
		}
	}
	return true
}

// StringAt returns the string stored directly under key, if any.
func (n *Node) StringAt(key string) (string, bool) {
	c, ok := n.Child(key)
	if !ok || c.kind != KindString {
		return "", false
	}
	return c.str, true
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		kind: n.kind,
		str:  n.str,
		num:  n.num,
		b:    n.b,
		raw:  n.raw,
	}
	if n.kind == KindGroup && len(n.keys) > 0 {
		out.keys = make([]string, len(n.keys))
		copy(out.keys, n.keys)
		out.children = make(map[string]*Node, len(n.children))
		for k, c := range n.children {
			out.children[k] = c.Clone()
		}
	}
	return out
}

// Equal reports whether two trees hold the same values.
// Key order is ignored.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case KindString:
		return n.str == other.str
	case KindNumber:
		return n.num == other.num
	case KindBool:
		return n.b == other.b
	case KindRaw:
		return n.raw == other.raw
	}
	if len(n.keys) != len(other.keys) {
		return false
	}
	for _, k := range n.keys {
		oc, ok := other.Child(k)
		if !ok || !n.children[k].Equal(oc) {
			return false
		}
	}
	return true
}
