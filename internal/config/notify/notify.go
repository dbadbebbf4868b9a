// Package notify provides change notification for option overrides.
//
// The notify package implements an observer pattern that lets the session
// react to override edits: persisting them, regenerating the export view
// and reformatting the input.
package notify

import (
	"strings"
	"sync"

	"github.com/dshills/esplay/internal/optree"
)

// ChangeType represents the type of override change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value was deleted.
	ChangeDelete

	// ChangePreset indicates the selected preset changed.
	ChangePreset

	// ChangeReplace indicates the whole override tree was replaced,
	// as after an import or a reset.
	ChangeReplace
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangePreset:
		return "preset"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Change represents an override change event.
type Change struct {
	// Path is the path of the changed option. Empty for replace events.
	Path optree.Path

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value (may be nil).
	OldValue *optree.Node

	// NewValue is the new value (nil for deletes).
	NewValue *optree.Node

	// Source identifies where the change came from ("form", "cli", "import").
	Source string
}

// Observer is called when an override changes.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	id       uint64
	prefix   string
	observer Observer
}

// Notifier manages change subscriptions. Observers run synchronously on
// the goroutine that reported the change, in subscription order.
type Notifier struct {
	mu      sync.RWMutex
	entries []entry
	nextID  uint64
	closed  bool
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.add("", observer)
}

// SubscribePath registers an observer for changes at or below path.
// Replace events reach every observer.
func (n *Notifier) SubscribePath(path optree.Path, observer Observer) *Subscription {
	return n.add(path.String(), observer)
}

func (n *Notifier) add(prefix string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.entries = append(n.entries, entry{id: id, prefix: prefix, observer: observer})

	return &Subscription{id: id, notifier: n}
}

// Notify sends a change to all matching observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}

	path := change.Path.String()
	var observers []entry
	for _, e := range n.entries {
		if change.Type == ChangeReplace || matches(e.prefix, path) {
			observers = append(observers, e)
		}
	}
	n.mu.RUnlock()

	// Call observers outside the lock
	for _, e := range observers {
		e.observer(change)
	}
}

// Close stops delivery. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.entries = nil
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.entries {
		if e.id == id {
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			return
		}
	}
}

// matches reports whether an observer registered for prefix wants a
// change at path. "indent" matches "indent" and "indent/value".
func matches(prefix, path string) bool {
	if prefix == "" || prefix == path {
		return true
	}
	return strings.HasPrefix(path, prefix+optree.PathSeparator)
}
