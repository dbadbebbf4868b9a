package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call runs past its timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNoFunction is returned when the called global is not a function.
	ErrNoFunction = errors.New("lua function not defined")

	// ErrBadResult is returned when a function returns the wrong type.
	ErrBadResult = errors.New("lua function returned unexpected value")
)
