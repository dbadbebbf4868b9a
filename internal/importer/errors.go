package importer

import "errors"

var (
	// ErrInvalidOptions indicates an options file that is not a valid
	// override object. The parse error is wrapped alongside it.
	ErrInvalidOptions = errors.New("invalid options file")

	// ErrBinaryFile indicates a script import of a non-text file.
	ErrBinaryFile = errors.New("not a text file")

	// ErrTooLarge indicates a file over MaxFileSize.
	ErrTooLarge = errors.New("file too large")

	// ErrSuperseded is the cancellation cause of a read replaced by a
	// newer read of the same kind.
	ErrSuperseded = errors.New("superseded by a newer read")
)
