package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/esplay/internal/plugin/lua"
)

// TransformFunc is the global a script plugin must define.
const TransformFunc = "transform"

// ErrNoTransform indicates a script without a transform function.
var ErrNoTransform = errors.New("script does not define " + TransformFunc)

// Script is a source transform backed by a Lua file.
type Script struct {
	name  string
	path  string
	state *lua.State
}

// LoadScript runs the file at path in a fresh sandboxed state and checks
// that it defines transform. Script output from print goes to logger.
func LoadScript(ctx context.Context, path string, logger *slog.Logger) (*Script, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	log := logger.With("script", name)

	state := lua.NewState(lua.WithPrint(func(line string) {
		log.Info(line)
	}))
	if err := state.DoFile(ctx, path); err != nil {
		state.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if !state.HasFunction(TransformFunc) {
		state.Close()
		return nil, fmt.Errorf("load %s: %w", path, ErrNoTransform)
	}
	return &Script{name: name, path: path, state: state}, nil
}

// Name returns the transform identity, distinct from module names.
func (s *Script) Name() string {
	return "lua:" + s.name
}

// Apply implements formatter.SourceTransform.
func (s *Script) Apply(ctx context.Context, source string) (string, error) {
	return s.state.CallString(ctx, TransformFunc, source)
}

// Close releases the Lua state.
func (s *Script) Close() error {
	return s.state.Close()
}

// LoadDir adds a descriptor for every *.lua file in dir, in name order.
// A missing dir is not an error. Scripts that fail to load are skipped
// and reported together.
func (r *Registry) LoadDir(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		script, err := LoadScript(ctx, path, r.logger)
		if err != nil {
			r.logger.Warn("skipping plugin script", "path", path, "error", err)
			errs = append(errs, err)
			continue
		}
		d := Descriptor{
			Name:        script.Name(),
			DisplayName: script.name,
			Transform:   script,
			Origin:      path,
		}
		if err := r.Add(d); err != nil {
			script.Close()
			errs = append(errs, err)
			continue
		}
		r.logger.Debug("plugin script loaded", "path", path)
	}
	return errors.Join(errs...)
}
