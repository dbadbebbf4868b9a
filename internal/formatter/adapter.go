// Package formatter adapts the external code formatter.
//
// The formatter itself is a black box reached through an Engine, by
// default the esformatter command line. The Adapter owns the set of
// active plugin transforms: module transforms are handed to the engine
// by name, and source transforms run in-process on the engine output.
package formatter

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/esplay/internal/optree"
)

// Transform is a formatter plugin capability that can be registered
// with an Adapter. Transforms are identified by Name.
type Transform interface {
	Name() string
}

// SourceTransform rewrites formatted source in-process.
type SourceTransform interface {
	Transform
	Apply(ctx context.Context, source string) (string, error)
}

// ModuleTransform is a plugin module loaded by the engine itself.
type ModuleTransform struct {
	Module string
}

// Name returns the module name.
func (m ModuleTransform) Name() string {
	return m.Module
}

// Request is one engine invocation.
type Request struct {
	Source  string
	Options *optree.Node

	// Plugins lists the module transforms to load, in registration order.
	Plugins []string
}

// Engine formats source text.
type Engine interface {
	Format(ctx context.Context, req Request) (string, error)
}

// Adapter formats source with the effective options and the active
// transforms. It is safe for concurrent use.
type Adapter struct {
	mu     sync.RWMutex
	engine Engine
	active []Transform
	logger *slog.Logger
}

// New creates an adapter over engine. logger may be nil.
func New(engine Engine, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{engine: engine, logger: logger}
}

// Register activates t. It returns false if a transform with the same
// name is already active.
func (a *Adapter) Register(t Transform) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.indexLocked(t.Name()) >= 0 {
		return false
	}
	a.active = append(a.active, t)
	a.logger.Debug("plugin registered", "plugin", t.Name())
	return true
}

// Unregister deactivates t. It returns false if t was not active.
func (a *Adapter) Unregister(t Transform) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexLocked(t.Name())
	if i < 0 {
		return false
	}
	a.active = slices.Delete(a.active, i, i+1)
	a.logger.Debug("plugin unregistered", "plugin", t.Name())
	return true
}

// IsActive reports whether a transform named name is registered.
func (a *Adapter) IsActive(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.indexLocked(name) >= 0
}

// Active returns the names of the registered transforms in order.
func (a *Adapter) Active() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.active))
	for i, t := range a.active {
		names[i] = t.Name()
	}
	return names
}

func (a *Adapter) indexLocked(name string) int {
	return slices.IndexFunc(a.active, func(t Transform) bool {
		return t.Name() == name
	})
}

// Format runs the engine on source with the effective options, then
// every active source transform in registration order. Failures are
// returned as *FormatError.
func (a *Adapter) Format(ctx context.Context, source string, effective *optree.Node) (string, error) {
	a.mu.RLock()
	var (
		modules []string
		scripts []SourceTransform
	)
	for _, t := range a.active {
		if st, ok := t.(SourceTransform); ok {
			scripts = append(scripts, st)
			continue
		}
		modules = append(modules, t.Name())
	}
	a.mu.RUnlock()

	out, err := a.engine.Format(ctx, Request{
		Source:  source,
		Options: effective,
		Plugins: modules,
	})
	if err != nil {
		return "", asFormatError("engine", err)
	}

	for _, st := range scripts {
		out, err = st.Apply(ctx, out)
		if err != nil {
			return "", asFormatError(st.Name(), err)
		}
	}
	return out, nil
}

func asFormatError(stage string, err error) error {
	if fe, ok := err.(*FormatError); ok {
		return fe
	}
	return &FormatError{Stage: stage, ExitCode: -1, Err: err}
}
