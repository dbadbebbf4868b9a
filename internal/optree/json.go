package optree

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Parse decodes a JSON document whose root must be an object.
// Key order is preserved.
func Parse(data []byte) (*Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return nil, ErrNotObject
	}
	return fromResult(result), nil
}

// ParseValue decodes any JSON value into a node.
func ParseValue(text string) (*Node, error) {
	if !gjson.Valid(text) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.Parse(text)), nil
}

func fromResult(r gjson.Result) *Node {
	switch r.Type {
	case gjson.String:
		return String(r.Str)
	case gjson.Number:
		return Number(r.Num)
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.JSON:
		if r.IsObject() {
			group := NewGroup()
			r.ForEach(func(key, value gjson.Result) bool {
				group.Set(key.Str, fromResult(value))
				return true
			})
			return group
		}
		return Raw(compact(r.Raw))
	default:
		return Raw("null")
	}
}

// MarshalJSON encodes the tree as compact JSON in key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	if !n.IsGroup() {
		return scalarJSON(n)
	}

	out := []byte("{}")
	for _, key := range n.keys {
		child, err := n.children[key].MarshalJSON()
		if err != nil {
			return nil, err
		}
		out, err = sjson.SetRawBytes(out, escapeKey(key), child)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", key, err)
		}
	}
	return out, nil
}

// UnmarshalJSON decodes any JSON value into n.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(string(data))
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// Pretty encodes the tree as indented JSON for display.
func Pretty(n *Node) ([]byte, error) {
	raw, err := n.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(raw, &pretty.Options{
		Width:  80,
		Indent: "  ",
	}), nil
}

func scalarJSON(n *Node) ([]byte, error) {
	if n.kind == KindRaw {
		return []byte(n.raw), nil
	}

	var value any
	switch n.kind {
	case KindString:
		value = n.str
	case KindNumber:
		value = n.num
	case KindBool:
		value = n.b
	}

	doc, err := sjson.SetBytes([]byte("{}"), "v", value)
	if err != nil {
		return nil, err
	}
	return []byte(gjson.GetBytes(doc, "v").Raw), nil
}

func compact(raw string) string {
	return string(pretty.Ugly([]byte(raw)))
}

// keyEscaper escapes characters sjson treats as path syntax.
var keyEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`:`, `\:`,
)

func escapeKey(key string) string {
	return keyEscaper.Replace(key)
}
