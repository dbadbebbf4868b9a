// Package store holds the user's option overrides and the selected
// preset, persisting them to a local key/value store on every accepted
// edit.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/esplay/internal/config/notify"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/preset"
	"github.com/dshills/esplay/internal/storage"
)

// StorageKey is the key holding the serialized override tree.
const StorageKey = "options"

var (
	// ErrCorruptState indicates the persisted overrides could not be
	// parsed. The store falls back to the default overrides.
	ErrCorruptState = errors.New("persisted options are corrupt")

	// ErrNotObject indicates a replacement tree that is not an object.
	ErrNotObject = errors.New("options must be an object")
)

// Store owns the override tree. Mutations are applied to a copy,
// persisted, and only then made current, so a failed write leaves both
// the in-memory and persisted state unchanged. It is safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	kv        storage.KV
	notifier  *notify.Notifier
	overrides *optree.Node
}

// New creates a store over kv. notifier may be nil.
func New(kv storage.KV, notifier *notify.Notifier) *Store {
	return &Store{
		kv:        kv,
		notifier:  notifier,
		overrides: Defaults(),
	}
}

// Defaults returns the override tree used when nothing is persisted.
func Defaults() *optree.Node {
	n := optree.NewGroup()
	n.Set(preset.PresetKey, optree.String(preset.DefaultPreset))
	return n
}

// Load reads the persisted overrides. A missing key leaves the defaults
// in place. Unparseable data also leaves the defaults and returns an
// error wrapping ErrCorruptState.
func (s *Store) Load(ctx context.Context) error {
	data, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		s.overrides = Defaults()
		return nil
	}
	tree, err := optree.Parse(data)
	if err != nil {
		s.overrides = Defaults()
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	s.overrides = tree
	return nil
}

// Overrides returns a copy of the override tree.
func (s *Store) Overrides() *optree.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides.Clone()
}

// Preset returns the selected preset name, or "" if none is set.
func (s *Store) Preset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, _ := s.overrides.StringAt(preset.PresetKey)
	return name
}

// Get returns a copy of the override at path.
func (s *Store) Get(path optree.Path) (*optree.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.overrides.Get(path)
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Set writes value at path, creating intermediate groups.
func (s *Store) Set(ctx context.Context, path optree.Path, value *optree.Node) error {
	return s.As("").Set(ctx, path, value)
}

// Delete removes the override at path and prunes the ancestors on that
// path left empty. It reports whether anything was removed.
func (s *Store) Delete(ctx context.Context, path optree.Path) (bool, error) {
	return s.As("").Delete(ctx, path)
}

// SetPreset selects the named preset.
func (s *Store) SetPreset(ctx context.Context, name string) error {
	return s.As("").SetPreset(ctx, name)
}

// Replace swaps in a whole new override tree.
func (s *Store) Replace(ctx context.Context, tree *optree.Node) error {
	return s.As("").Replace(ctx, tree)
}

// Reset restores the default overrides.
func (s *Store) Reset(ctx context.Context) error {
	return s.As("").Replace(ctx, Defaults())
}

// Save writes the current overrides to storage.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, s.overrides)
}

// As returns an Editor that stamps its changes with source ("form",
// "cli", "import").
func (s *Store) As(source string) *Editor {
	return &Editor{store: s, source: source}
}

// Editor mutates a store on behalf of one change source.
type Editor struct {
	store  *Store
	source string
}

// Set writes value at path.
func (e *Editor) Set(ctx context.Context, path optree.Path, value *optree.Node) error {
	if value == nil {
		_, err := e.Delete(ctx, path)
		return err
	}

	var old *optree.Node
	err := e.store.update(ctx, func(tree *optree.Node) (bool, error) {
		if prev, ok := tree.Get(path); ok {
			old = prev.Clone()
		}
		if err := tree.SetPath(path, value.Clone()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	changeType := notify.ChangeSet
	if len(path) == 1 && path[0] == preset.PresetKey {
		changeType = notify.ChangePreset
	}
	e.store.notify(notify.Change{
		Path:     path,
		Type:     changeType,
		OldValue: old,
		NewValue: value.Clone(),
		Source:   e.source,
	})
	return nil
}

// Delete removes the override at path.
func (e *Editor) Delete(ctx context.Context, path optree.Path) (bool, error) {
	var old *optree.Node
	err := e.store.update(ctx, func(tree *optree.Node) (bool, error) {
		prev, ok := tree.Get(path)
		if !ok {
			return false, nil
		}
		old = prev.Clone()
		return tree.DeletePath(path), nil
	})
	if err != nil || old == nil {
		return false, err
	}

	e.store.notify(notify.Change{
		Path:     path,
		Type:     notify.ChangeDelete,
		OldValue: old,
		Source:   e.source,
	})
	return true, nil
}

// SetPreset selects the named preset. An empty name clears it.
func (e *Editor) SetPreset(ctx context.Context, name string) error {
	path := optree.Path{preset.PresetKey}
	if name == "" {
		_, err := e.Delete(ctx, path)
		return err
	}
	return e.Set(ctx, path, optree.String(name))
}

// Replace swaps in a whole new override tree.
func (e *Editor) Replace(ctx context.Context, tree *optree.Node) error {
	if tree == nil || !tree.IsGroup() {
		return ErrNotObject
	}

	var old *optree.Node
	err := e.store.update(ctx, func(cur *optree.Node) (bool, error) {
		old = cur.Clone()
		return true, nil
	}, tree.Clone())
	if err != nil {
		return err
	}

	e.store.notify(notify.Change{
		Type:     notify.ChangeReplace,
		OldValue: old,
		NewValue: tree.Clone(),
		Source:   e.source,
	})
	return nil
}

// update runs fn against a copy of the overrides and commits the copy
// once it has been persisted. If next is given it becomes the new tree
// instead of the edited copy. fn reports whether anything changed.
func (s *Store) update(ctx context.Context, fn func(tree *optree.Node) (bool, error), next ...*optree.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.overrides.Clone()
	changed, err := fn(work)
	if err != nil || !changed {
		return err
	}
	if len(next) > 0 {
		work = next[0]
	}

	if err := s.persist(ctx, work); err != nil {
		return err
	}
	s.overrides = work
	return nil
}

func (s *Store) persist(ctx context.Context, tree *optree.Node) error {
	data, err := tree.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	if err := s.kv.Put(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save options: %w", err)
	}
	return nil
}

func (s *Store) notify(change notify.Change) {
	if s.notifier != nil {
		s.notifier.Notify(change)
	}
}
