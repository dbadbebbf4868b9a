package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/term"

	"github.com/dshills/esplay/internal/app"
	"github.com/dshills/esplay/internal/form"
	"github.com/dshills/esplay/internal/formatter"
	"github.com/dshills/esplay/internal/importer"
	"github.com/dshills/esplay/internal/preset"
)

// reportEngine prints the indent option and the plugins it was given
// ahead of the source.
type reportEngine struct{}

func (reportEngine) Format(_ context.Context, req formatter.Request) (string, error) {
	indent := ""
	if n, ok := req.Options.Child("indent"); ok {
		indent, _ = n.StringAt("value")
	}
	return fmt.Sprintf("indent=%q plugins=%v\n%s", indent, req.Plugins, req.Source), nil
}

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ESPLAY_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("ESPLAY_DATA_DIR", filepath.Join(dir, "data"))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(app.WithEngine(reportEngine{}))
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("esplay %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestOptions_SetShowUnset(t *testing.T) {
	setup(t)

	mustRun(t, "options", "set", "indent/value", `\t`)
	mustRun(t, "options", "set", "indent/SwitchCase", "2")

	out := mustRun(t, "options", "show", "--match", "indent/*")
	for _, want := range []string{`indent/value       \t`, "indent/SwitchCase  2"} {
		if !strings.Contains(out, want) {
			t.Errorf("show missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "preset") {
		t.Errorf("--match did not filter:\n%s", out)
	}

	mustRun(t, "options", "unset", "indent/value")
	mustRun(t, "options", "unset", "indent/SwitchCase")
	out = mustRun(t, "options", "show")
	if strings.Contains(out, "indent") {
		t.Errorf("unset left the indent group behind:\n%s", out)
	}
	if !strings.Contains(out, "preset") {
		t.Errorf("show lost the preset:\n%s", out)
	}
}

func TestOptions_SetInvalid(t *testing.T) {
	setup(t)

	_, err := run(t, "", "options", "set", "indent/SwitchCase", "two")
	if !errors.Is(err, form.ErrInvalidValue) {
		t.Fatalf("err = %v, expected ErrInvalidValue", err)
	}
	if _, err := run(t, "", "options", "set", "a//b", "1"); err == nil {
		t.Error("empty path segment accepted")
	}
	if _, err := run(t, "", "options", "set", "preset", "nosuch"); !errors.Is(err, preset.ErrUnknownPreset) {
		t.Errorf("set preset err = %v, expected ErrUnknownPreset", err)
	}
	if _, err := run(t, "", "options", "set", "plugins/quotes", "true"); !errors.Is(err, form.ErrInvalidValue) {
		t.Errorf("set plugins/quotes err = %v, expected ErrInvalidValue", err)
	}
	if got := strings.TrimSpace(mustRun(t, "options", "preset")); got != "default" {
		t.Errorf("preset = %q after rejected edits", got)
	}
}

func TestOptions_Effective(t *testing.T) {
	setup(t)

	out := mustRun(t, "options", "effective", "-m", "indent/value")
	if out != "indent/value    \n" {
		t.Errorf("effective = %q, expected the two-space default", out)
	}

	mustRun(t, "options", "preset", "jquery")
	out = mustRun(t, "options", "effective", "-m", "indent/value")
	if !strings.Contains(out, `\t`) {
		t.Errorf("jquery indent not effective: %q", out)
	}
	if got := strings.TrimSpace(mustRun(t, "options", "preset")); got != "jquery" {
		t.Errorf("options preset = %q", got)
	}

	if _, err := run(t, "", "options", "preset", "nope"); !errors.Is(err, preset.ErrUnknownPreset) {
		t.Errorf("err = %v, expected ErrUnknownPreset", err)
	}
}

func TestOptions_ExportImport(t *testing.T) {
	dir := setup(t)

	mustRun(t, "options", "set", "indent/value", "    ")
	out := mustRun(t, "options", "export")
	if !strings.Contains(out, `"value": "    "`) {
		t.Errorf("export = %s", out)
	}

	file := filepath.Join(dir, "opts.json")
	mustRun(t, "options", "export", file)
	mustRun(t, "options", "reset")
	if strings.Contains(mustRun(t, "options", "show"), "indent") {
		t.Fatal("reset kept the override")
	}

	out = mustRun(t, "options", "import", file)
	if !strings.Contains(out, `preset "default"`) {
		t.Errorf("import = %q", out)
	}
	if !strings.Contains(mustRun(t, "options", "show"), "indent/value") {
		t.Error("import did not restore the override")
	}
}

func TestOptions_ImportInvalid(t *testing.T) {
	dir := setup(t)
	mustRun(t, "options", "set", "indent/value", "x")

	tests := []struct {
		name    string
		content string
	}{
		{"malformed", `{"indent": `},
		{"unknown preset", `{"preset": "nope"}`},
		{"not an object", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-")+".json")
			if err := os.WriteFile(file, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := run(t, "", "options", "import", file)
			if !errors.Is(err, importer.ErrInvalidOptions) {
				t.Errorf("err = %v, expected ErrInvalidOptions", err)
			}
		})
	}

	if !strings.Contains(mustRun(t, "options", "show"), "indent/value  x") {
		t.Error("failed import changed the stored options")
	}
}

func TestFormat(t *testing.T) {
	dir := setup(t)

	out, err := run(t, "var a;", "format")
	if err != nil {
		t.Fatal(err)
	}
	if out != "indent=\"  \" plugins=[]\nvar a;" {
		t.Errorf("format = %q", out)
	}

	out, err = run(t, "var a;", "format", "--preset", "jquery", "--plugin", "quotes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "indent=\"\\t\" plugins=[esformatter-quotes]\n") {
		t.Errorf("format --preset jquery --plugin quotes = %q", out)
	}
	if got := strings.TrimSpace(mustRun(t, "options", "preset")); got != "default" {
		t.Errorf("--preset was saved: preset = %q", got)
	}

	script := filepath.Join(dir, "a.js")
	if err := os.WriteFile(script, []byte("var b;"), 0o644); err != nil {
		t.Fatal(err)
	}
	mustRun(t, "format", "-w", script)
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\nvar b;") {
		t.Errorf("--write result = %q", data)
	}

	if _, err := run(t, "", "format", "--plugin", "nope"); err == nil {
		t.Error("unknown plugin accepted")
	}
	if _, err := run(t, "", "format", "-w"); err == nil {
		t.Error("--write without a file accepted")
	}
}

func TestFormat_OptionsFile(t *testing.T) {
	dir := setup(t)
	file := filepath.Join(dir, "opts.json")
	if err := os.WriteFile(file, []byte(`{"preset": "default", "indent": {"value": "\t"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "x", "format", "--options", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "indent=\"\\t\"") {
		t.Errorf("format --options = %q", out)
	}
	if strings.Contains(mustRun(t, "options", "show"), "indent") {
		t.Error("--options was saved")
	}
}

func TestPresets(t *testing.T) {
	setup(t)

	out := mustRun(t, "presets")
	if !strings.Contains(out, "* default\n") || !strings.Contains(out, "  jquery\n") {
		t.Errorf("presets = %q", out)
	}

	out = mustRun(t, "presets", "jquery")
	if !strings.HasPrefix(out, "chain: jquery -> default\n") {
		t.Errorf("presets jquery = %q", out)
	}
	if strings.Contains(out, `"preset"`) {
		t.Error("resolved preset shows the preset key")
	}

	if _, err := run(t, "", "presets", "nope"); !errors.Is(err, preset.ErrUnknownPreset) {
		t.Errorf("err = %v, expected ErrUnknownPreset", err)
	}

	out = mustRun(t, "presets", "jquery", "--own")
	if strings.HasPrefix(out, "chain:") || !strings.Contains(out, `"preset": "default"`) {
		t.Errorf("presets jquery --own = %q", out)
	}
	if _, err := run(t, "", "presets", "nope", "--own"); !errors.Is(err, preset.ErrUnknownPreset) {
		t.Errorf("--own err = %v, expected ErrUnknownPreset", err)
	}
}

func TestPlugins(t *testing.T) {
	setup(t)

	out := mustRun(t, "plugins")
	for _, want := range []string{"NAME", "quotes", "esformatter-quotes", "builtin"} {
		if !strings.Contains(out, want) {
			t.Errorf("plugins missing %q:\n%s", want, out)
		}
	}
}

func TestSettings(t *testing.T) {
	setup(t)

	out := mustRun(t, "settings", "--log-level", "debug")
	for _, want := range []string{"formatter.command", "esformatter", "builtin", "log.level", "flags"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, "", "settings", "--log-level", "loud"); err == nil {
		t.Error("invalid log level accepted")
	}
}

func TestNoPersist(t *testing.T) {
	setup(t)

	mustRun(t, "--no-persist", "options", "set", "indent/value", "x")
	if strings.Contains(mustRun(t, "options", "show"), "indent") {
		t.Error("--no-persist saved the option")
	}
}

func TestPlayground_NeedsTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("running on a terminal")
	}
	setup(t)

	if _, err := run(t, ""); !errors.Is(err, app.ErrNotTerminal) {
		t.Errorf("err = %v, expected ErrNotTerminal", err)
	}
}
