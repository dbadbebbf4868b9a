// Package importer reads scripts and option files for the playground
// and writes exported options.
//
// Reads run as cancellable tasks. Starting a read cancels the pending
// read of the same kind, so the latest selection always wins; the
// completion of a cancelled read is dropped even when the read had
// already finished.
package importer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind groups reads that supersede each other.
type Kind string

const (
	// KindScript reads replace the input text.
	KindScript Kind = "script"
	// KindOptions reads replace the override tree.
	KindOptions Kind = "options"
)

// Task is one pending read.
type Task struct {
	ID      string
	Kind    Kind
	Path    string
	Started time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Context returns the task's context. It is cancelled when the task is
// superseded or the runner closes.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Result is the outcome of a read, delivered to its completion.
type Result[T any] struct {
	Task  *Task
	Value T
	Err   error
}

// Deliver hands a completion to the goroutine that owns the session
// state. It must not block for long.
type Deliver func(fn func())

// Runner tracks the pending read of each kind.
type Runner struct {
	mu      sync.Mutex
	pending map[Kind]*Task
	deliver Deliver
	logger  *slog.Logger
	wg      sync.WaitGroup
	closed  bool
}

// NewRunner creates a runner. A nil deliver runs completions on the
// reading goroutine.
func NewRunner(deliver Deliver, logger *slog.Logger) *Runner {
	if deliver == nil {
		deliver = func(fn func()) { fn() }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		pending: make(map[Kind]*Task),
		deliver: deliver,
		logger:  logger,
	}
}

// Pending returns the pending task of kind, or nil.
func (r *Runner) Pending(kind Kind) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[kind]
}

// Close cancels every pending read and waits for the readers to return.
// Completions after Close are dropped.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	for kind, t := range r.pending {
		t.cancel(context.Canceled)
		delete(r.pending, kind)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// begin registers a new task, superseding the previous one of its kind.
func (r *Runner) begin(parent context.Context, kind Kind, path string) *Task {
	ctx, cancel := context.WithCancelCause(parent)
	t := &Task{
		ID:      uuid.New().String(),
		Kind:    kind,
		Path:    path,
		Started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		cancel(context.Canceled)
		return t
	}
	if old := r.pending[kind]; old != nil {
		old.cancel(ErrSuperseded)
		r.logger.Debug("read superseded", "kind", kind, "task", old.ID, "path", old.Path)
	}
	r.pending[kind] = t
	return t
}

// finish reports whether t is still the pending task of its kind and,
// if so, clears it.
func (r *Runner) finish(t *Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[t.Kind] != t {
		return false
	}
	delete(r.pending, t.Kind)
	t.cancel(nil)
	return true
}

// Start runs read on a new goroutine and delivers its result to done,
// unless a newer read of the same kind started in the meantime.
func Start[T any](r *Runner, ctx context.Context, kind Kind, path string,
	read func(ctx context.Context, path string) (T, error), done func(Result[T])) *Task {

	t := r.begin(ctx, kind, path)
	r.logger.Debug("read started", "kind", kind, "task", t.ID, "path", path)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		value, err := read(t.ctx, path)
		if err == nil && t.ctx.Err() != nil {
			err = context.Cause(t.ctx)
		}
		r.deliver(func() {
			if !r.finish(t) {
				r.logger.Debug("stale read dropped", "kind", kind, "task", t.ID)
				return
			}
			done(Result[T]{Task: t, Value: value, Err: err})
		})
	}()
	return t
}
