package session

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/esplay/internal/config/notify"
	"github.com/dshills/esplay/internal/form"
	"github.com/dshills/esplay/internal/formatter"
	"github.com/dshills/esplay/internal/importer"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/plugin"
	"github.com/dshills/esplay/internal/preset"
	"github.com/dshills/esplay/internal/storage"
	"github.com/dshills/esplay/internal/store"
)

// indentEngine expands tabs to the configured indent and swaps quotes
// when the quotes module is loaded.
type indentEngine struct {
	calls int
	err   error
}

func (e *indentEngine) Format(_ context.Context, req formatter.Request) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	out := req.Source
	if indent, ok := req.Options.Get(optree.ParsePath("indent/value")); ok {
		out = strings.ReplaceAll(out, "\t", indent.Str())
	}
	for _, p := range req.Plugins {
		if p == "esformatter-quotes" {
			out = strings.ReplaceAll(out, `"`, `'`)
		}
	}
	return out, nil
}

func newSession(t *testing.T, engine formatter.Engine) (*Session, storage.KV) {
	t.Helper()
	kv := storage.NewMemory()
	notifier := notify.New()
	st := store.New(kv, notifier)
	if err := st.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	presets, err := preset.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	adapter := formatter.New(engine, nil)
	plugins := plugin.NewRegistry(adapter, nil)
	for _, d := range plugin.Builtins() {
		if err := plugins.Add(d); err != nil {
			t.Fatal(err)
		}
	}
	s := New(Config{
		Store:    st,
		Notifier: notifier,
		Presets:  presets,
		Plugins:  plugins,
		Adapter:  adapter,
	})
	t.Cleanup(func() { s.Close() })
	return s, kv
}

func format(t *testing.T, s *Session) string {
	t.Helper()
	out, err := s.Format(context.Background())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return out
}

func TestSession_EditFlow(t *testing.T) {
	s, _ := newSession(t, &indentEngine{})
	ctx := context.Background()
	s.SetSource("if (a) {\n\tb(\"x\");\n}")

	baseline := format(t, s)
	if baseline != "if (a) {\n  b(\"x\");\n}" {
		t.Fatalf("baseline = %q", baseline)
	}

	path := optree.ParsePath("indent/value")
	if err := s.Edit(ctx, path, form.TypeString, `\t\t`); err != nil {
		t.Fatal(err)
	}
	if got := format(t, s); got != "if (a) {\n\t\tb(\"x\");\n}" {
		t.Errorf("after edit = %q", got)
	}

	if err := s.Edit(ctx, path, form.TypeString, ""); err != nil {
		t.Fatal(err)
	}
	if got := format(t, s); got != baseline {
		t.Errorf("after delete = %q, want baseline", got)
	}
	if _, ok := s.Store().Overrides().Child("indent"); ok {
		t.Error("emptied indent group was not pruned")
	}
}

func TestSession_InvalidEditKeepsState(t *testing.T) {
	s, _ := newSession(t, &indentEngine{})
	before := s.Store().Overrides()

	err := s.Edit(context.Background(), optree.ParsePath("indent/SwitchCase"), form.TypeNumber, "two")
	if !errors.Is(err, form.ErrInvalidValue) {
		t.Fatalf("err = %v, want ErrInvalidValue", err)
	}
	if !IsUserError(err) {
		t.Error("invalid value not reported as a user error")
	}
	if !s.Store().Overrides().Equal(before) {
		t.Error("failed edit changed the overrides")
	}
}

func TestSession_SelectPreset(t *testing.T) {
	s, _ := newSession(t, &indentEngine{})
	ctx := context.Background()
	s.SetSource("\tx")

	if err := s.SelectPreset(ctx, "jquery"); err != nil {
		t.Fatal(err)
	}
	if got := format(t, s); got != "\tx" {
		t.Errorf("jquery output = %q", got)
	}

	root, err := s.Form()
	if err != nil {
		t.Fatal(err)
	}
	n, ok := form.Lookup(root, optree.ParsePath("indent/value"))
	if !ok || n.Field.Placeholder != `\t` {
		t.Errorf("indent/value field = %+v", n)
	}

	err = s.SelectPreset(ctx, "nope")
	if !errors.Is(err, preset.ErrUnknownPreset) {
		t.Errorf("unknown preset err = %v", err)
	}
	if s.Store().Preset() != "jquery" {
		t.Errorf("preset = %q after failed select", s.Store().Preset())
	}
}

func TestSession_PluginToggleRestoresBaseline(t *testing.T) {
	s, _ := newSession(t, &indentEngine{})
	s.SetSource(`a("b")`)

	baseline := format(t, s)
	if err := s.TogglePlugin("quotes", true); err != nil {
		t.Fatal(err)
	}
	if !s.Stale() {
		t.Error("toggle did not mark output stale")
	}
	if got := format(t, s); got != `a('b')` {
		t.Errorf("with quotes = %q", got)
	}
	if err := s.TogglePlugin("quotes", false); err != nil {
		t.Fatal(err)
	}
	if got := format(t, s); got != baseline {
		t.Errorf("after disabling = %q, want %q", got, baseline)
	}

	if err := s.TogglePlugin("nope", true); !errors.Is(err, plugin.ErrUnknownPlugin) {
		t.Errorf("unknown plugin err = %v", err)
	}
}

func TestSession_FormatError(t *testing.T) {
	engine := &indentEngine{}
	s, _ := newSession(t, engine)
	s.SetSource("x")
	format(t, s)

	engine.err = &formatter.FormatError{Stage: "esformatter", ExitCode: 1, Stderr: "Unexpected token"}
	_, err := s.Format(context.Background())
	var fe *formatter.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FormatError", err)
	}

	out, lastErr := s.Output()
	if out != "x" || lastErr == nil {
		t.Errorf("Output = %q, %v; want previous output and the error", out, lastErr)
	}
}

func TestSession_ImportOptions(t *testing.T) {
	s, kv := newSession(t, &indentEngine{})
	ctx := context.Background()

	tree, err := importer.ParseOptions([]byte(`{"preset":"jquery","indent":{"value":"   "}}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ImportOptions(ctx, tree); err != nil {
		t.Fatal(err)
	}
	if s.Store().Preset() != "jquery" {
		t.Errorf("preset = %q", s.Store().Preset())
	}
	export, _ := s.Export()
	if !strings.Contains(export, `"value": "   "`) {
		t.Errorf("export view not refreshed:\n%s", export)
	}

	raw, _, _ := kv.Get(ctx, store.StorageKey)
	bad, _ := importer.ParseOptions([]byte(`{"preset":"missing"}`))
	err = s.ImportOptions(ctx, bad)
	if !errors.Is(err, importer.ErrInvalidOptions) || !errors.Is(err, preset.ErrUnknownPreset) {
		t.Errorf("err = %v, want ErrInvalidOptions wrapping ErrUnknownPreset", err)
	}
	if s.Store().Preset() != "jquery" {
		t.Error("failed import replaced the overrides")
	}
	after, _, _ := kv.Get(ctx, store.StorageKey)
	if string(after) != string(raw) {
		t.Error("failed import changed persisted state")
	}
}

func TestSession_ExportFileAndReset(t *testing.T) {
	s, _ := newSession(t, &indentEngine{})
	ctx := context.Background()

	if err := s.Edit(ctx, optree.ParsePath("quotes/type"), form.TypeString, "single"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "options.json")
	if err := s.ExportFile(path); err != nil {
		t.Fatal(err)
	}
	tree, err := importer.ReadOptions(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !tree.Equal(s.Store().Overrides()) {
		t.Error("exported file differs from overrides")
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.Store().Overrides().Equal(store.Defaults()) {
		t.Error("Reset did not restore defaults")
	}
	export, _ := s.Export()
	if strings.Contains(export, "quotes") {
		t.Error("export view still shows reset override")
	}
}

func TestSession_Stale(t *testing.T) {
	s, _ := newSession(t, &indentEngine{})
	if !s.Stale() {
		t.Error("new session is not stale")
	}
	s.SetSource("x")
	format(t, s)
	if s.Stale() {
		t.Error("stale after Format")
	}
	_ = s.Edit(context.Background(), optree.ParsePath("indent/value"), form.TypeString, " ")
	if !s.Stale() {
		t.Error("edit did not mark output stale")
	}
}

func TestSession_EditReservedKeys(t *testing.T) {
	s, kv := newSession(t, &indentEngine{})
	ctx := context.Background()
	raw, _, _ := kv.Get(ctx, store.StorageKey)

	tests := []struct {
		name  string
		path  string
		typ   form.FieldType
		input string
		want  error
	}{
		{"unknown preset", "preset", form.TypeString, "nosuch", preset.ErrUnknownPreset},
		{"number preset", "preset", form.TypeNumber, "42", preset.ErrUnknownPreset},
		{"below preset", "preset/x", form.TypeNumber, "1", form.ErrInvalidValue},
		{"below plugins", "plugins/quotes", form.TypeBoolean, "true", form.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Edit(ctx, optree.ParsePath(tt.path), tt.typ, tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, expected %v", err, tt.want)
			}
			if _, err := s.Form(); err != nil {
				t.Errorf("Form after rejected edit: %v", err)
			}
			after, _, _ := kv.Get(ctx, store.StorageKey)
			if string(after) != string(raw) {
				t.Errorf("rejected edit persisted %s", after)
			}
		})
	}

	if err := s.Edit(ctx, optree.Path{preset.PresetKey}, form.TypeString, "jquery"); err != nil {
		t.Fatal(err)
	}
	if got := s.Store().Preset(); got != "jquery" {
		t.Errorf("preset = %q after editing the preset field", got)
	}
	if _, err := s.Effective(); err != nil {
		t.Errorf("Effective: %v", err)
	}
}

func TestSession_PresetChangeLogged(t *testing.T) {
	var buf strings.Builder
	kv := storage.NewMemory()
	notifier := notify.New()
	st := store.New(kv, notifier)
	presets, err := preset.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{
		Store:    st,
		Notifier: notifier,
		Presets:  presets,
		Adapter:  formatter.New(&indentEngine{}, nil),
		Logger:   slog.New(slog.NewTextHandler(&buf, nil)),
	})
	defer s.Close()

	ctx := context.Background()
	if err := s.Edit(ctx, optree.ParsePath("indent/value"), form.TypeString, " "); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "preset selected") {
		t.Error("an option edit was logged as a preset change")
	}
	if err := s.SelectPreset(ctx, "jquery"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `msg="preset selected" preset=jquery source=preset`) {
		t.Errorf("log = %q", buf.String())
	}
}
