// Package layer merges the sources of esplay's own settings.
//
// Each source (built-in defaults, the settings file, the environment,
// command-line flags) is a Layer. Higher priority layers override
// values from lower priority layers.
package layer

import (
	"sort"
	"sync"
)

// Source indicates where a layer came from.
type Source uint8

const (
	// SourceBuiltin is the built-in defaults.
	SourceBuiltin Source = iota
	// SourceFile is the settings file.
	SourceFile
	// SourceEnv is ESPLAY_* environment variables.
	SourceEnv
	// SourceFlags is command-line flags.
	SourceFlags
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "environment"
	case SourceFlags:
		return "flags"
	default:
		return "unknown"
	}
}

// Priority returns the merge priority of a source.
func (s Source) Priority() int {
	return int(s) * 100
}

// Layer is a single settings source.
type Layer struct {
	Name   string
	Source Source

	// Path is the file path, for file layers.
	Path string

	// Data holds the values as a nested map.
	Data map[string]any
}

// New creates a layer holding data.
func New(name string, source Source, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{Name: name, Source: source, Data: data}
}

// Manager holds layers ordered by priority.
type Manager struct {
	mu     sync.RWMutex
	layers []*Layer
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add adds a layer, keeping layers sorted by priority.
func (m *Manager) Add(l *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = append(m.layers, l)
	sort.SliceStable(m.layers, func(i, j int) bool {
		return m.layers[i].Source.Priority() < m.layers[j].Source.Priority()
	})
}

// Layers returns the layers from lowest to highest priority.
func (m *Manager) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// Merge combines all layers, lowest priority first.
func (m *Manager) Merge() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]any)
	for _, l := range m.layers {
		result = DeepMerge(result, l.Data)
	}
	return result
}

// Which returns the highest priority layer defining path, or nil.
func (m *Manager) Which(path string) *Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.layers) - 1; i >= 0; i-- {
		if _, ok := GetByPath(m.layers[i].Data, path); ok {
			return m.layers[i]
		}
	}
	return nil
}
