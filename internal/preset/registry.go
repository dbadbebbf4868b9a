// Package preset holds the named preset option trees and resolves the
// effective formatter configuration from a preset chain and the user's
// overrides.
package preset

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/esplay/internal/optree"
)

const (
	// DefaultPreset is selected when no override names a preset.
	DefaultPreset = "default"

	// PresetKey is the reserved key naming a parent preset.
	PresetKey = "preset"

	// PluginsKey is the reserved key listing formatter plugins.
	PluginsKey = "plugins"

	// MaxChainDepth bounds the number of presets walked for one resolution.
	MaxChainDepth = 32
)

//go:embed presets/*.json
var builtinFS embed.FS

// Registry maps preset names to their default option trees.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]*optree.Node
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		presets: make(map[string]*optree.Node),
	}
}

// Builtin creates a registry holding the bundled esformatter presets.
func Builtin() (*Registry, error) {
	r := New()
	if err := r.LoadFS(builtinFS, "presets"); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadDir adds every *.json file in dir as a preset named after the file.
// A missing directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return r.LoadFS(os.DirFS(dir), ".")
}

// LoadFS adds every *.json file in dir of fsys as a preset.
func (r *Registry) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading presets in %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading preset %s: %w", entry.Name(), err)
		}
		node, err := optree.Parse(data)
		if err != nil {
			return fmt.Errorf("parsing preset %s: %w", entry.Name(), err)
		}
		if err := r.Add(strings.TrimSuffix(entry.Name(), ".json"), node); err != nil {
			return err
		}
	}
	return nil
}

// Add registers or replaces a preset.
func (r *Registry) Add(name string, defaults *optree.Node) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPreset)
	}
	if !defaults.IsGroup() {
		return fmt.Errorf("%w: %s is not an object", ErrInvalidPreset, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.presets[name]; !exists {
		r.order = append(r.order, name)
		r.sortNames()
	}
	r.presets[name] = defaults.Clone()
	return nil
}

// sortNames keeps DefaultPreset first and the rest alphabetical.
func (r *Registry) sortNames() {
	sort.SliceStable(r.order, func(i, j int) bool {
		a, b := r.order[i], r.order[j]
		if a == DefaultPreset || b == DefaultPreset {
			return a == DefaultPreset && b != DefaultPreset
		}
		return a < b
	})
}

// Names returns the registered preset names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.presets[name]
	return ok
}

// Get returns a copy of the named preset's own definition, without its
// parents merged in.
func (r *Registry) Get(name string) (*optree.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.presets[name]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}
