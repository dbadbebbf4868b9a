package preset

import (
	"fmt"

	"github.com/dshills/esplay/internal/optree"
)

// Chain returns the preset names reachable from name, immediate preset
// first and oldest ancestor last. The walk fails on unknown names,
// cycles, or chains longer than MaxChainDepth.
func (r *Registry) Chain(name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, names, err := r.chainLocked(name)
	return names, err
}

func (r *Registry) chainLocked(name string) ([]*optree.Node, []string, error) {
	var (
		layers  []*optree.Node
		names   []string
		visited = make(map[string]bool)
	)

	for name != "" {
		if visited[name] {
			return nil, names, &ChainError{Chain: names, Name: name, Err: ErrPresetCycle}
		}
		if len(names) >= MaxChainDepth {
			return nil, names, &ChainError{Chain: names, Name: name, Err: ErrChainTooDeep}
		}

		defaults, ok := r.presets[name]
		if !ok {
			return nil, names, &ChainError{Chain: names, Name: name, Err: ErrUnknownPreset}
		}
		visited[name] = true
		names = append(names, name)
		layers = append(layers, defaults)

		parent, err := presetRef(defaults)
		if err != nil {
			return nil, names, &ChainError{Chain: names[:len(names)-1], Name: name, Err: err}
		}
		name = parent
	}
	return layers, names, nil
}

// Resolve computes the effective configuration for overrides: an empty
// base, then every preset from the oldest ancestor to the immediate
// preset, then the overrides themselves, merged in that order.
// overrides is not modified.
func (r *Registry) Resolve(overrides *optree.Node) (*optree.Node, error) {
	if overrides == nil {
		overrides = optree.NewGroup()
	}
	if !overrides.IsGroup() {
		return nil, fmt.Errorf("%w: overrides must be an object", ErrInvalidPreset)
	}

	name, err := presetRef(overrides)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	chain, _, err := r.chainLocked(name)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	layers := make([]*optree.Node, 0, len(chain)+2)
	layers = append(layers, optree.NewGroup())
	for i := len(chain) - 1; i >= 0; i-- {
		layers = append(layers, chain[i])
	}
	layers = append(layers, overrides)

	return optree.MergeAll(layers...), nil
}

// presetRef returns the parent preset named by n, or "" when n has none.
func presetRef(n *optree.Node) (string, error) {
	ref, ok := n.Child(PresetKey)
	if !ok {
		return "", nil
	}
	if ref.Kind() != optree.KindString {
		return "", fmt.Errorf("%w: %q must be a string, got %s", ErrInvalidPreset, PresetKey, ref.Kind())
	}
	return ref.Str(), nil
}
