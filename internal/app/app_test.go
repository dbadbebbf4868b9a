package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/esplay/internal/config"
	"github.com/dshills/esplay/internal/formatter"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/plugin"
	"github.com/dshills/esplay/internal/renderer/backend"
	"github.com/dshills/esplay/internal/storage"
	"github.com/dshills/esplay/internal/store"
)

// prefixEngine marks its output so tests can tell it from the input.
type prefixEngine struct {
	calls atomic.Int32
}

func (e *prefixEngine) Format(_ context.Context, req formatter.Request) (string, error) {
	e.calls.Add(1)
	return "out:" + req.Source, nil
}

func loadSettings(t *testing.T, flags map[string]any) *config.Settings {
	t.Helper()
	t.Setenv("ESPLAY_CONFIG_DIR", t.TempDir())
	t.Setenv("ESPLAY_DATA_DIR", t.TempDir())

	s, err := config.Load(config.Options{SkipEnv: true, Flags: flags})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return s
}

func bootstrap(t *testing.T, settings *config.Settings, opts ...Option) *Services {
	t.Helper()
	svc, err := Bootstrap(context.Background(), settings, nil, opts...)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBootstrap_Memory(t *testing.T) {
	settings := loadSettings(t, map[string]any{"storage.disabled": true})
	svc := bootstrap(t, settings, WithEngine(&prefixEngine{}))

	if got := svc.Store.Preset(); got != "default" {
		t.Errorf("Preset() = %q, expected default", got)
	}
	if !svc.Session.Presets().Has("jquery") {
		t.Error("builtin presets missing")
	}
	if len(svc.Session.Plugins().Descriptors()) != len(plugin.Builtins()) {
		t.Error("builtin plugins missing")
	}
	if _, err := os.Stat(settings.Storage.Path); !os.IsNotExist(err) {
		t.Error("database created while storage is disabled")
	}
}

func TestBootstrap_PersistsAcrossRuns(t *testing.T) {
	settings := loadSettings(t, nil)
	ctx := context.Background()

	svc, err := Bootstrap(ctx, settings, nil, WithEngine(&prefixEngine{}))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Session.Edit(ctx, optree.ParsePath("indent/value"), "", `\t`); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	svc = bootstrap(t, settings, WithEngine(&prefixEngine{}))
	n, ok := svc.Store.Get(optree.ParsePath("indent/value"))
	if !ok || n.Str() != "\t" {
		t.Errorf("indent/value = %v, %v after restart", n, ok)
	}
}

func TestBootstrap_CorruptState(t *testing.T) {
	settings := loadSettings(t, nil)

	kv, err := storage.OpenSQLite(settings.Storage.Path)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Put(context.Background(), store.StorageKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	svc := bootstrap(t, settings, WithEngine(&prefixEngine{}))
	if got := svc.Store.Preset(); got != "default" {
		t.Errorf("Preset() = %q, expected the default overrides", got)
	}

	data, ok, err := svc.kv.Get(context.Background(), store.StorageKey)
	if err != nil || !ok {
		t.Fatalf("stored options: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(string(data), `"default"`) {
		t.Errorf("corrupt row not replaced: %s", data)
	}
}

func TestBootstrap_UserPresets(t *testing.T) {
	settings := loadSettings(t, map[string]any{"storage.disabled": true})
	if err := os.MkdirAll(settings.Presets.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	err := os.WriteFile(filepath.Join(settings.Presets.Dir, "team.json"),
		[]byte(`{"preset": "default", "indent": {"value": "    "}}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	svc := bootstrap(t, settings, WithEngine(&prefixEngine{}))
	if err := svc.Session.SelectPreset(context.Background(), "team"); err != nil {
		t.Fatalf("SelectPreset(team): %v", err)
	}
	effective, err := svc.Session.Effective()
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := effective.Child("indent"); !ok {
		t.Error("effective options missing indent")
	} else if v, _ := n.StringAt("value"); v != "    " {
		t.Errorf("indent.value = %q, expected the team preset", v)
	}
}

func TestBootstrap_BadPresetDir(t *testing.T) {
	settings := loadSettings(t, map[string]any{"storage.disabled": true})
	if err := os.MkdirAll(settings.Presets.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(settings.Presets.Dir, "broken.json"), []byte(`{`), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := bootstrap(t, settings, WithEngine(&prefixEngine{}))
	if !svc.Session.Presets().Has("default") {
		t.Error("builtin presets lost after an unreadable user preset")
	}
}

func TestBootstrap_StorageError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	settings := loadSettings(t, map[string]any{"storage.path": filepath.Join(blocker, "state.db")})

	_, err := Bootstrap(context.Background(), settings, nil)
	var ie *InitError
	if !errors.As(err, &ie) || ie.Component != "storage" {
		t.Fatalf("err = %v, expected storage InitError", err)
	}
}

type harness struct {
	app    *Application
	svc    *Services
	engine *prefixEngine
	term   *backend.NullBackend
	done   chan error
}

func startApp(t *testing.T, opts Options) *harness {
	t.Helper()
	settings := loadSettings(t, map[string]any{"storage.disabled": true})
	engine := &prefixEngine{}
	svc := bootstrap(t, settings, WithEngine(engine))
	term := backend.NewNullBackend(200, 40)

	app, err := New(svc, term, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := &harness{app: app, svc: svc, engine: engine, term: term, done: make(chan error, 1)}
	go func() { h.done <- app.Run() }()
	t.Cleanup(func() {
		app.Shutdown()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after Shutdown")
		}
	})
	return h
}

func (h *harness) key(k backend.Key) {
	h.term.PostEvent(backend.Event{Type: backend.EventKey, Key: k})
}

func (h *harness) typeText(text string) {
	for _, r := range text {
		h.term.PostEvent(backend.Event{Type: backend.EventKey, Key: backend.KeyRune, Rune: r})
	}
}

func (h *harness) waitScreen(t *testing.T, text string) {
	t.Helper()
	waitFor(t, "screen to show "+text, func() bool {
		return strings.Contains(h.term.Screen(), text)
	})
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.js")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplication_ScriptAndQuit(t *testing.T) {
	h := startApp(t, Options{Script: writeScript(t, "var a = 1;")})

	h.waitScreen(t, "out:var a = 1;")
	if got := h.svc.Session.Source(); got != "var a = 1;" {
		t.Errorf("Source() = %q", got)
	}

	h.key(backend.KeyCtrlQ)
	select {
	case err := <-h.done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("Run() = %v, expected ErrQuit", err)
		}
		h.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("Ctrl-Q did not stop the loop")
	}
}

func TestApplication_TypingReformats(t *testing.T) {
	h := startApp(t, Options{})
	h.waitScreen(t, "formatted")

	h.typeText("x=1")
	h.waitScreen(t, "out:x=1")
}

func TestApplication_Manual(t *testing.T) {
	h := startApp(t, Options{Manual: true})

	h.typeText("y")
	waitFor(t, "input", func() bool { return h.svc.Session.Source() == "y" })
	time.Sleep(50 * time.Millisecond)
	if n := h.engine.calls.Load(); n != 0 {
		t.Fatalf("engine ran %d times without Ctrl-F", n)
	}

	h.key(backend.KeyCtrlF)
	h.waitScreen(t, "out:y")
}

func TestApplication_ImportOptions(t *testing.T) {
	h := startApp(t, Options{Manual: true})

	path := filepath.Join(t.TempDir(), "opts.json")
	if err := os.WriteFile(path, []byte(`{"preset": "jquery", "lineBreak": {"value": "\n"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	h.key(backend.KeyCtrlL)
	h.typeText(path)
	h.key(backend.KeyEnter)

	waitFor(t, "import", func() bool { return h.svc.Store.Preset() == "jquery" })
	h.waitScreen(t, "options loaded from")
}

func TestApplication_ImportInvalidOptions(t *testing.T) {
	h := startApp(t, Options{Manual: true})

	path := filepath.Join(t.TempDir(), "opts.json")
	if err := os.WriteFile(path, []byte(`{"preset": "nope"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	h.key(backend.KeyCtrlL)
	h.typeText(path)
	h.key(backend.KeyEnter)

	h.waitScreen(t, "invalid options file")
	if got := h.svc.Store.Preset(); got != "default" {
		t.Errorf("Preset() = %q after a failed import", got)
	}
}

func TestApplication_Follow(t *testing.T) {
	path := writeScript(t, "one")
	h := startApp(t, Options{Script: path, Follow: true})
	h.waitScreen(t, "out:one")

	if err := os.WriteFile(path, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	h.waitScreen(t, "out:two")
}

func TestApplication_RunTwice(t *testing.T) {
	h := startApp(t, Options{Manual: true})
	waitFor(t, "first draw", func() bool { return strings.Contains(h.term.Screen(), "input") })

	if err := h.app.Run(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, expected ErrAlreadyRunning", err)
	}
}

func TestApplication_Shutdown(t *testing.T) {
	h := startApp(t, Options{Manual: true})
	waitFor(t, "first draw", func() bool { return strings.Contains(h.term.Screen(), "input") })

	if err := h.app.Shutdown(); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() = %v after Shutdown", err)
		}
		h.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	if err := h.app.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
}
