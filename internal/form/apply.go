package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/esplay/internal/optree"
)

// ErrInvalidValue indicates input that cannot be coerced to the field type.
var ErrInvalidValue = errors.New("invalid value")

// ValueError describes a rejected edit.
type ValueError struct {
	Path  string
	Type  FieldType
	Input string
	Err   error
}

func (e *ValueError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: cannot use %q as %s", e.Path, e.Input, e.Type)
	}
	return fmt.Sprintf("%s: cannot use %q as %s: %v", e.Path, e.Input, e.Type, e.Err)
}

// Unwrap matches ErrInvalidValue and the parse error behind it.
func (e *ValueError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidValue}
	}
	return []error{ErrInvalidValue, e.Err}
}

// Editor is the override store as seen by the form.
type Editor interface {
	Set(ctx context.Context, path optree.Path, value *optree.Node) error
	Delete(ctx context.Context, path optree.Path) (bool, error)
}

// Apply commits input for the field at path. Empty input removes the
// override and prunes the groups on path left empty. Otherwise input is
// coerced to typ and written; a coercion failure leaves the store as is.
func Apply(ctx context.Context, ed Editor, path optree.Path, typ FieldType, input string) error {
	if input == "" {
		_, err := ed.Delete(ctx, path)
		return err
	}

	value, err := Coerce(typ, input)
	if err != nil {
		return &ValueError{Path: path.String(), Type: typ, Input: input, Err: err}
	}
	return ed.Set(ctx, path, value)
}

// Coerce converts field text to a node of the given type. Strings are
// unescaped; numbers must be base-10 integers.
func Coerce(typ FieldType, input string) (*optree.Node, error) {
	switch typ {
	case TypeNumber:
		i, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			return nil, err
		}
		return optree.Int(i), nil
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(input))
		if err != nil {
			return nil, err
		}
		return optree.Bool(b), nil
	case TypeJSON:
		return optree.ParseValue(input)
	default:
		return optree.String(Unescape(input)), nil
	}
}

// Guess picks a field type for a path that has no effective value yet:
// JSON scalars keep their type and anything else is a string.
func Guess(input string) FieldType {
	n, err := optree.ParseValue(input)
	if err != nil || n.IsGroup() {
		return TypeString
	}
	switch n.Kind() {
	case optree.KindNumber:
		if _, err := strconv.Atoi(input); err == nil {
			return TypeNumber
		}
		return TypeJSON
	case optree.KindString:
		return TypeString
	default:
		return TypeOf(n.Kind())
	}
}
