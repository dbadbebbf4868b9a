package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ESPLAY_CONFIG_DIR", t.TempDir())
	t.Setenv("ESPLAY_DATA_DIR", "/data")

	s, err := Load(Options{SkipEnv: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Formatter.Command != "esformatter" || s.Formatter.Timeout != 10*time.Second {
		t.Errorf("Formatter = %+v", s.Formatter)
	}
	if s.Storage.Path != filepath.Join("/data", "state.db") || s.Storage.Disabled {
		t.Errorf("Storage = %+v", s.Storage)
	}
	if s.Log.Level != "info" {
		t.Errorf("Log.Level = %q", s.Log.Level)
	}
	if s.UI.Accent.Hex() != "#5fafff" {
		t.Errorf("UI.Accent = %s", s.UI.Accent.Hex())
	}
	if s.File != "" {
		t.Errorf("File = %q, want none", s.File)
	}
	if got := s.Origin("log.level"); got != "builtin" {
		t.Errorf("Origin(log.level) = %q", got)
	}
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ESPLAY_CONFIG_DIR", dir)
	file := filepath.Join(dir, "config.toml")
	writeFile(t, file, `
[formatter]
command = "npx"
args = ["esformatter"]
timeout = "3s"

[log]
level = "warn"

[ui]
accent = "#ff0000"
`)

	env := []string{
		"ESPLAY_TIMEOUT=5",
		"ESPLAY_LOG=off",
	}
	s, err := Load(Options{
		Environ: func() []string { return env },
		Flags:   map[string]any{"log.level": "debug", "storage.disabled": true},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.File != file {
		t.Errorf("File = %q, want %q", s.File, file)
	}
	if s.Formatter.Command != "npx" || len(s.Formatter.Args) != 1 || s.Formatter.Args[0] != "esformatter" {
		t.Errorf("Formatter = %+v", s.Formatter)
	}
	if s.Formatter.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want env value 5s", s.Formatter.Timeout)
	}
	if s.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want flag value", s.Log.Level)
	}
	if !s.Storage.Disabled {
		t.Error("Storage.Disabled flag ignored")
	}

	origins := map[string]string{
		"formatter.command": "file (" + file + ")",
		"formatter.timeout": "environment",
		"log.level":         "flags",
		"storage.path":      "builtin",
	}
	for path, want := range origins {
		if got := s.Origin(path); got != want {
			t.Errorf("Origin(%s) = %q, want %q", path, got, want)
		}
	}

	var found bool
	for _, kv := range s.Flatten() {
		if kv[0] == "ui.accent" && kv[1] == "#ff0000" {
			found = true
		}
	}
	if !found {
		t.Error("Flatten missing ui.accent")
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.toml"), SkipEnv: true})
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, want ErrFileNotFound", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("ESPLAY_CONFIG_DIR", t.TempDir())

	tests := []struct {
		name  string
		flags map[string]any
		path  string
	}{
		{"bad timeout", map[string]any{"formatter.timeout": "soon"}, "formatter.timeout"},
		{"zero timeout", map[string]any{"formatter.timeout": "0s"}, "formatter.timeout"},
		{"bad level", map[string]any{"log.level": "loud"}, "log.level"},
		{"bad color", map[string]any{"ui.muted": "grey"}, "ui.muted"},
		{"empty command", map[string]any{"formatter.command": ""}, "formatter.command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Options{SkipEnv: true, Flags: tt.flags})
			var se *SettingError
			if !errors.As(err, &se) || se.Path != tt.path {
				t.Fatalf("err = %v, want SettingError for %s", err, tt.path)
			}
			if !errors.Is(err, ErrInvalidSetting) {
				t.Error("SettingError does not match ErrInvalidSetting")
			}
		})
	}
}
