package formatter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEngineNotFound indicates the formatter command is not installed.
	ErrEngineNotFound = errors.New("formatter command not found")

	// ErrTimeout indicates the formatter did not finish in time.
	ErrTimeout = errors.New("formatter timed out")
)

// FormatError reports a failed format run. The session displays it in
// place of the output.
type FormatError struct {
	// Stage is "engine" or the name of the transform that failed.
	Stage string

	// ExitCode is the engine's exit status, or -1.
	ExitCode int

	// Stderr holds the engine's diagnostic output, if any.
	Stderr string

	Err error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "format failed in %s", e.Stage)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		b.WriteString(": ")
		b.WriteString(firstLine(msg))
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
