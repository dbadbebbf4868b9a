// Package form reflects an effective option tree into a nested editable
// form and applies field edits back onto the override tree.
package form

import (
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/preset"
)

// FieldType is the declared type of an editable field.
type FieldType string

const (
	// TypeString fields hold display-escaped text.
	TypeString FieldType = "string"
	// TypeNumber fields accept base-10 integers.
	TypeNumber FieldType = "number"
	// TypeBoolean fields accept true or false.
	TypeBoolean FieldType = "boolean"
	// TypeJSON fields hold arrays and null as JSON text.
	TypeJSON FieldType = "json"
)

// TypeOf returns the field type used to edit a scalar of kind k.
func TypeOf(k optree.Kind) FieldType {
	switch k {
	case optree.KindNumber:
		return TypeNumber
	case optree.KindBool:
		return TypeBoolean
	case optree.KindRaw:
		return TypeJSON
	default:
		return TypeString
	}
}

// Field is an editable scalar leaf.
type Field struct {
	Type FieldType

	// Value is the user's explicit override, escaped for display.
	// Empty when the path is not overridden.
	Value string

	// Placeholder is the effective (inherited) value, escaped for display.
	Placeholder string

	// Overridden reports whether the user set this path explicitly.
	Overridden bool
}

// Node is one entry of a rendered form: a group with children, or a
// leaf holding a Field.
type Node struct {
	Key      string
	Path     optree.Path
	Field    *Field
	Children []*Node
}

// IsGroup reports whether the node is a collapsible group.
func (n *Node) IsGroup() bool {
	return n.Field == nil
}

// Render builds the form for effective, showing values from overrides.
// Keys come from effective so unset defaults are visible as
// placeholders. The reserved root keys preset and plugins are left out.
func Render(effective, overrides *optree.Node) *Node {
	root := &Node{}
	if !effective.IsGroup() {
		return root
	}
	root.Children = renderGroup(effective, overrides, nil)
	return root
}

func renderGroup(effective, overrides *optree.Node, prefix optree.Path) []*Node {
	keys := effective.Keys()
	out := make([]*Node, 0, len(keys))

	for _, key := range keys {
		if len(prefix) == 0 && (key == preset.PresetKey || key == preset.PluginsKey) {
			continue
		}
		value, _ := effective.Child(key)
		path := prefix.Child(key)

		var override *optree.Node
		if overrides.IsGroup() {
			override, _ = overrides.Child(key)
		}

		if value.IsGroup() {
			out = append(out, &Node{
				Key:      key,
				Path:     path,
				Children: renderGroup(value, override, path),
			})
			continue
		}
		out = append(out, &Node{
			Key:   key,
			Path:  path,
			Field: newField(value, override),
		})
	}
	return out
}

func newField(value, override *optree.Node) *Field {
	f := &Field{
		Type:        TypeOf(value.Kind()),
		Placeholder: display(value),
	}
	if override != nil && !override.IsGroup() {
		f.Overridden = true
		f.Value = display(override)
	}
	return f
}

func display(n *optree.Node) string {
	if n.Kind() == optree.KindString {
		return Escape(n.Str())
	}
	return n.Text()
}

// Lookup finds the form node at path.
func Lookup(root *Node, path optree.Path) (*Node, bool) {
	current := root
	for _, key := range path {
		var next *Node
		for _, c := range current.Children {
			if c.Key == key {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}
