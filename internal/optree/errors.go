package optree

import (
	"errors"
	"fmt"
)

// Errors returned by option tree operations.
var (
	// ErrInvalidJSON indicates the input is not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid JSON")

	// ErrNotObject indicates a configuration document whose root is not an object.
	ErrNotObject = errors.New("configuration must be a JSON object")

	// ErrInvalidPath indicates an empty path or a path with empty segments.
	ErrInvalidPath = errors.New("invalid option path")

	// ErrNotGroup indicates a group operation on a scalar.
	ErrNotGroup = errors.New("not an option group")
)

// PathError records the path an operation failed on.
type PathError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("option %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}
