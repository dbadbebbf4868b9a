package importer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dshills/esplay/internal/optree"
)

// MaxFileSize bounds imported files.
const MaxFileSize = 4 << 20

// ReadScript reads a source file for the input editor. Files that do
// not detect as text are rejected with ErrBinaryFile.
func ReadScript(ctx context.Context, path string) (string, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return "", err
	}
	if len(data) > 0 && !isText(data) {
		return "", fmt.Errorf("%s: %w (%s)", path, ErrBinaryFile, mimetype.Detect(data).String())
	}
	return string(data), nil
}

// ReadOptions reads and validates an options file.
func ReadOptions(ctx context.Context, path string) (*optree.Node, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	tree, err := ParseOptions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// ParseOptions parses an override object. The root must be a JSON
// object, keys must not be empty, and a preset reference, if present,
// must be a string.
func ParseOptions(data []byte) (*optree.Node, error) {
	tree, err := optree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if p, ok := tree.Child("preset"); ok && p.Kind() != optree.KindString {
		return nil, fmt.Errorf("%w: preset must be a string, got %s", ErrInvalidOptions, p.Kind())
	}
	if path, ok := emptyKey(tree, nil); ok {
		return nil, fmt.Errorf("%w: empty key in %q", ErrInvalidOptions, path.String())
	}
	return tree, nil
}

// emptyKey finds a group holding an empty key and returns its path.
func emptyKey(n *optree.Node, path optree.Path) (optree.Path, bool) {
	for _, key := range n.Keys() {
		if key == "" {
			return path, true
		}
		child, _ := n.Child(key)
		if child.IsGroup() {
			if p, ok := emptyKey(child, path.Child(key)); ok {
				return p, true
			}
		}
	}
	return nil, false
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(&ctxReader{ctx: ctx, r: f}, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	return data, nil
}

// isText reports whether data detects as text/plain or a subtype of it.
func isText(data []byte) bool {
	for t := mimetype.Detect(data); t != nil; t = t.Parent() {
		if t.Is("text/plain") {
			return true
		}
	}
	return false
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, context.Cause(c.ctx)
	}
	return c.r.Read(p)
}
