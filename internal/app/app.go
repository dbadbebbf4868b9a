package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dshills/esplay/internal/importer"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/renderer/backend"
	"github.com/dshills/esplay/internal/ui"
)

// Options configures the terminal playground.
type Options struct {
	// Script is loaded into the input pane on start.
	Script string

	// Follow reloads Script whenever it changes on disk.
	Follow bool

	// Manual disables formatting after every change; Ctrl-F still
	// formats.
	Manual bool
}

// Application runs the playground on a terminal backend. All screen and
// session updates happen on the event loop goroutine; background work
// hands its results back through the task channel.
type Application struct {
	svc     *Services
	backend backend.Backend
	screen  *ui.Screen
	runner  *importer.Runner
	follow  *importer.Follower
	logger  *slog.Logger
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	events chan backend.Event
	tasks  chan func()
	done   chan struct{}

	running  atomic.Bool
	stopOnce sync.Once
	closing  sync.Once
	closeErr error
	wg       sync.WaitGroup

	// Owned by the event loop.
	formatting  bool
	formatAgain bool
	script      string
	quit        bool
}

// New creates the playground over svc and b.
func New(svc *Services, b backend.Backend, opts Options) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		svc:     svc,
		backend: b,
		logger:  svc.logger.With("component", "app"),
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan backend.Event, 64),
		tasks:   make(chan func(), 64),
		done:    make(chan struct{}),
	}

	app.runner = importer.NewRunner(app.deliver, svc.logger.With("component", "importer"))

	follow, err := importer.NewFollower(func(path string) {
		app.deliver(func() { app.reloadScript(path) })
	})
	if err != nil {
		cancel()
		return nil, &InitError{Component: "file watcher", Err: err}
	}
	app.follow = follow

	theme := ui.NewTheme(svc.Settings.UI.Accent, svc.Settings.UI.Muted)
	app.screen = ui.New(ctx, svc.Session, theme, ui.Actions{
		Format:        app.requestFormat,
		ImportScript:  app.importScript,
		ImportOptions: app.importOptions,
		ToggleFollow:  app.toggleFollow,
		Quit:          func() { app.quit = true },
	})
	return app, nil
}

// Screen returns the playground screen.
func (app *Application) Screen() *ui.Screen {
	return app.screen
}

// Run initializes the backend and runs the event loop until the user
// quits or Shutdown is called. Quitting returns ErrQuit.
func (app *Application) Run() (err error) {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := app.backend.Init(); err != nil {
		return &InitError{Component: "terminal", Err: err}
	}
	defer app.backend.Shutdown()
	defer app.stop()

	defer func() {
		if r := recover(); r != nil {
			err = &RecoveredPanicError{Value: r, Stack: string(debug.Stack())}
			app.logger.Error("event loop panic", "panic", r)
		}
	}()

	app.wg.Add(1)
	go app.pollEvents()

	if app.opts.Script != "" {
		app.importScript(app.opts.Script)
		if app.opts.Follow {
			if _, err := app.toggleFollow(); err != nil {
				app.screen.SetError(err)
			}
		}
	} else if !app.opts.Manual {
		app.requestFormat()
	}
	return app.loop()
}

func (app *Application) loop() error {
	app.draw()
	for {
		select {
		case <-app.done:
			return nil
		case ev := <-app.events:
			app.handleEvent(ev)
		case fn := <-app.tasks:
			fn()
		}
		if app.quit {
			return ErrQuit
		}
		app.autoFormat()
		app.draw()
	}
}

func (app *Application) pollEvents() {
	defer app.wg.Done()
	for {
		ev := app.backend.PollEvent()
		if ev.Type == backend.EventNone {
			select {
			case <-app.done:
				return
			default:
				continue
			}
		}
		select {
		case app.events <- ev:
		case <-app.done:
			return
		}
	}
}

func (app *Application) handleEvent(ev backend.Event) {
	switch ev.Type {
	case backend.EventResize:
		app.backend.Clear()
	case backend.EventKey:
		app.screen.HandleEvent(ev)
	}
}

func (app *Application) draw() {
	app.screen.Draw(app.backend)
	app.backend.Show()
}

// deliver hands fn to the event loop. It gives up once the loop has
// stopped so background goroutines never block on shutdown.
func (app *Application) deliver(fn func()) {
	select {
	case app.tasks <- fn:
	case <-app.done:
	}
}

func (app *Application) autoFormat() {
	if app.opts.Manual || !app.svc.Session.Stale() {
		return
	}
	if app.formatting {
		app.formatAgain = true
		return
	}
	app.requestFormat()
}

// requestFormat formats on a background goroutine. A request while a
// run is in flight is folded into one follow-up run.
func (app *Application) requestFormat() {
	if app.formatting {
		app.formatAgain = true
		return
	}
	app.formatting = true

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		_, err := app.svc.Session.Format(app.ctx)
		app.deliver(func() { app.formatDone(err) })
	}()
}

func (app *Application) formatDone(err error) {
	app.formatting = false
	app.screen.Refresh()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			app.screen.SetError(err)
		}
	} else {
		app.screen.SetStatus("formatted")
	}
	if app.formatAgain {
		app.formatAgain = false
		app.requestFormat()
	}
}

func (app *Application) importScript(path string) {
	app.screen.SetStatus("reading " + path)
	app.startScriptRead(path, func(src string) {
		app.script = path
		app.screen.SetInput(src)
		app.screen.SetStatus("loaded " + path)
		if app.follow.Path() != "" {
			if err := app.follow.Follow(path); err != nil {
				app.screen.SetError(err)
			}
		}
	})
}

// reloadScript re-reads the followed script after a change on disk.
func (app *Application) reloadScript(path string) {
	if path != app.follow.Path() {
		return
	}
	app.startScriptRead(path, func(src string) {
		if src == app.svc.Session.Source() {
			return
		}
		app.screen.SetInput(src)
		app.screen.SetStatus("reloaded " + filepath.Base(path))
	})
}

func (app *Application) startScriptRead(path string, apply func(string)) {
	importer.Start(app.runner, app.ctx, importer.KindScript, path, importer.ReadScript,
		func(res importer.Result[string]) {
			if res.Err != nil {
				app.screen.SetError(fmt.Errorf("open %s: %w", res.Task.Path, res.Err))
				return
			}
			apply(res.Value)
		})
}

func (app *Application) importOptions(path string) {
	app.screen.SetStatus("reading " + path)
	importer.Start(app.runner, app.ctx, importer.KindOptions, path, importer.ReadOptions,
		func(res importer.Result[*optree.Node]) {
			err := res.Err
			if err == nil {
				err = app.svc.Session.ImportOptions(app.ctx, res.Value)
			}
			if err != nil {
				app.screen.SetError(fmt.Errorf("load %s: %w", res.Task.Path, err))
				return
			}
			app.screen.Refresh()
			app.screen.SetStatus("options loaded from " + res.Task.Path)
		})
}

// toggleFollow watches the last imported script, or stops watching.
func (app *Application) toggleFollow() (bool, error) {
	if app.follow.Path() != "" {
		app.follow.Stop()
		return false, nil
	}
	path := app.script
	if path == "" {
		path = app.opts.Script
	}
	if path == "" {
		return false, errors.New("no script to watch; open one with ^O")
	}
	if err := app.follow.Follow(path); err != nil {
		return false, err
	}
	return true, nil
}

// stop ends the event loop and waits for background work.
func (app *Application) stop() {
	app.stopOnce.Do(func() {
		close(app.done)
		app.cancel()
		app.backend.PostEvent(backend.Event{Type: backend.EventInterrupt})
	})
}

// Shutdown stops the event loop and releases the watcher and pending
// reads. It is safe to call more than once and from any goroutine.
func (app *Application) Shutdown() error {
	app.stop()
	app.closing.Do(func() {
		app.runner.Close()
		app.closeErr = app.follow.Close()
		app.wg.Wait()
	})
	return app.closeErr
}
