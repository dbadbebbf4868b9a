// Package plugin lists the formatter plugins a session can toggle and
// applies toggles to the formatter adapter.
//
// Built-in plugins are esformatter modules loaded by the engine. Script
// plugins are *.lua files exposing a global transform(source) function
// that rewrites the formatted output.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/esplay/internal/formatter"
)

var (
	// ErrUnknownPlugin indicates a display name not in the registry.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrDuplicatePlugin indicates a display name registered twice.
	ErrDuplicatePlugin = errors.New("duplicate plugin")
)

// Descriptor describes one toggleable plugin.
type Descriptor struct {
	// Name is the internal name, the module or script identifier.
	Name string

	// DisplayName labels the checkbox and is the lookup key.
	DisplayName string

	// Transform is handed to the adapter when the plugin is enabled.
	Transform formatter.Transform

	// Origin is "builtin" or the script path.
	Origin string
}

// Builtins returns the esformatter plugin modules offered by default.
func Builtins() []Descriptor {
	modules := []struct{ display, module string }{
		{"quotes", "esformatter-quotes"},
		{"braces", "esformatter-braces"},
		{"semicolons", "esformatter-semicolons"},
	}

	out := make([]Descriptor, 0, len(modules))
	for _, m := range modules {
		out = append(out, Descriptor{
			Name:        m.module,
			DisplayName: m.display,
			Transform:   formatter.ModuleTransform{Module: m.module},
			Origin:      "builtin",
		})
	}
	return out
}

// Adapter is the part of the formatter adapter the registry drives.
type Adapter interface {
	Register(t formatter.Transform) bool
	Unregister(t formatter.Transform) bool
	IsActive(name string) bool
}

// Registry is the fixed list of plugins for a session. Activation state
// lives in the adapter and is never persisted.
type Registry struct {
	mu          sync.RWMutex
	adapter     Adapter
	descriptors []Descriptor
	logger      *slog.Logger
}

// NewRegistry creates a registry driving adapter. logger may be nil.
func NewRegistry(adapter Adapter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{adapter: adapter, logger: logger}
}

// Add appends a descriptor.
func (r *Registry) Add(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(d.DisplayName) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, d.DisplayName)
	}
	r.descriptors = append(r.descriptors, d)
	return nil
}

// Descriptors returns the plugins in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.descriptors)
}

// Lookup finds a plugin by display name.
func (r *Registry) Lookup(displayName string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexLocked(displayName)
	if i < 0 {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Enabled reports whether the named plugin is active in the adapter.
func (r *Registry) Enabled(displayName string) bool {
	d, ok := r.Lookup(displayName)
	return ok && r.adapter.IsActive(d.Transform.Name())
}

// Toggle enables or disables the named plugin. Unknown names return
// ErrUnknownPlugin and change nothing.
func (r *Registry) Toggle(displayName string, on bool) error {
	d, ok := r.Lookup(displayName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlugin, displayName)
	}

	if on {
		r.adapter.Register(d.Transform)
	} else {
		r.adapter.Unregister(d.Transform)
	}
	r.logger.Info("plugin toggled", "plugin", displayName, "enabled", on)
	return nil
}

// Close releases script plugin resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, d := range r.descriptors {
		if c, ok := d.Transform.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) indexLocked(displayName string) int {
	return slices.IndexFunc(r.descriptors, func(d Descriptor) bool {
		return d.DisplayName == displayName
	})
}
