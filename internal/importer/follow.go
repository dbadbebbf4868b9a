package importer

import (
	"path/filepath"
	"sync"

	"github.com/dshills/esplay/internal/config/watcher"
)

// Follower watches the most recently imported script so it can be
// reloaded when it changes on disk. Only one file is followed at a time.
type Follower struct {
	mu   sync.Mutex
	w    *watcher.Watcher
	path string
}

// NewFollower creates a follower that calls onChange with the path of
// the followed file after it is written.
func NewFollower(onChange func(path string), opts ...watcher.Option) (*Follower, error) {
	f := &Follower{}
	w, err := watcher.New(func(e watcher.Event) {
		if e.Op != watcher.OpWrite {
			return
		}
		f.mu.Lock()
		current := f.path
		f.mu.Unlock()
		if e.Path == current {
			onChange(e.Path)
		}
	}, opts...)
	if err != nil {
		return nil, err
	}
	f.w = w
	return f, nil
}

// Follow switches to path. Following the current path again is a no-op.
func (f *Follower) Follow(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if abs == f.path {
		return nil
	}
	if f.path != "" {
		_ = f.w.Unwatch(f.path)
		f.path = ""
	}
	if err := f.w.Watch(abs); err != nil {
		return err
	}
	f.path = abs
	return nil
}

// Path returns the followed file, or "".
func (f *Follower) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

// Stop stops following without closing the watcher.
func (f *Follower) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.path != "" {
		_ = f.w.Unwatch(f.path)
		f.path = ""
	}
}

// Close releases the watcher.
func (f *Follower) Close() error {
	f.Stop()
	return f.w.Close()
}
