package preset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Errors returned by preset resolution.
var (
	// ErrUnknownPreset indicates a preset name that is not registered.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrInvalidPreset indicates a malformed preset definition or a
	// non-string preset reference.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrPresetCycle indicates a preset chain that refers back to itself.
	ErrPresetCycle = errors.New("preset chain contains a cycle")

	// ErrChainTooDeep indicates a preset chain longer than MaxChainDepth.
	ErrChainTooDeep = errors.New("preset chain too deep")
)

// ChainError describes a failure while walking a preset chain.
type ChainError struct {
	// Chain lists the presets visited, immediate preset first.
	Chain []string
	// Name is the preset being resolved when the walk failed.
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("preset %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("preset %q: %v (%s)", e.Name, e.Err, strings.Join(append(slices.Clone(e.Chain), e.Name), " -> "))
}

// Unwrap returns the underlying error.
func (e *ChainError) Unwrap() error {
	return e.Err
}
