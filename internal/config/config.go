// Package config loads esplay's own settings: where the formatter lives,
// where state is stored, logging and colors.
//
// Settings are layered: built-in defaults, then the TOML settings file,
// then ESPLAY_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/esplay/internal/config/layer"
	"github.com/dshills/esplay/internal/config/loader"
)

var (
	// ErrFileNotFound indicates an explicitly named settings file is missing.
	ErrFileNotFound = errors.New("settings file not found")

	// ErrInvalidSetting indicates a setting with an unusable value.
	ErrInvalidSetting = errors.New("invalid setting")
)

// SettingError describes an invalid setting.
type SettingError struct {
	Path    string
	Value   any
	Message string
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("setting %s = %v: %s", e.Path, e.Value, e.Message)
}

func (e *SettingError) Unwrap() error {
	return ErrInvalidSetting
}

// Settings is the resolved configuration.
type Settings struct {
	Formatter FormatterSettings
	Storage   StorageSettings
	Presets   DirSettings
	Plugins   DirSettings
	Log       LogSettings
	UI        UISettings

	// File is the settings file that was read, if any.
	File string

	layers *layer.Manager
}

// FormatterSettings locates the external formatter.
type FormatterSettings struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// StorageSettings locates the persisted overrides.
type StorageSettings struct {
	Path string

	// Disabled keeps overrides in memory only.
	Disabled bool
}

// DirSettings names a directory of user-supplied files.
type DirSettings struct {
	Dir string
}

// LogSettings configures logging.
type LogSettings struct {
	Level string
	File  string
}

// UISettings holds the terminal colors.
type UISettings struct {
	Accent colorful.Color
	Muted  colorful.Color
}

// Options controls Load.
type Options struct {
	// File overrides the settings file location. When set, the file
	// must exist.
	File string

	// Flags are flag values keyed by dotted setting path.
	Flags map[string]any

	// Environ replaces os.Environ.
	Environ func() []string

	// SkipEnv ignores the environment.
	SkipEnv bool
}

// Load resolves settings from every layer.
func Load(opts Options) (*Settings, error) {
	m := layer.NewManager()
	m.Add(layer.New("defaults", layer.SourceBuiltin, Defaults()))

	file := opts.File
	explicit := file != ""
	if !explicit {
		file = filepath.Join(ConfigDir(), "config.toml")
	}
	data, err := loader.NewTOMLLoader(file).Load()
	if err != nil {
		return nil, err
	}
	if data == nil && explicit {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, file)
	}
	if data != nil {
		l := layer.New("file", layer.SourceFile, data)
		l.Path = file
		m.Add(l)
	} else {
		file = ""
	}

	if !opts.SkipEnv {
		env := loader.NewEnvLoader(loader.EnvPrefix)
		if opts.Environ != nil {
			env.WithEnviron(opts.Environ)
		}
		data, err := env.Load()
		if err != nil {
			return nil, err
		}
		m.Add(layer.New("environment", layer.SourceEnv, data))
	}

	if len(opts.Flags) > 0 {
		flags := make(map[string]any)
		for path, v := range opts.Flags {
			layer.SetByPath(flags, path, v)
		}
		m.Add(layer.New("flags", layer.SourceFlags, flags))
	}

	s, err := decode(m.Merge())
	if err != nil {
		return nil, err
	}
	s.File = file
	s.layers = m
	return s, nil
}

// Defaults returns the built-in settings layer.
func Defaults() map[string]any {
	return map[string]any{
		"formatter": map[string]any{
			"command": "esformatter",
			"args":    []any{},
			"timeout": "10s",
		},
		"storage": map[string]any{
			"path":     filepath.Join(DataDir(), "state.db"),
			"disabled": false,
		},
		"presets": map[string]any{"dir": filepath.Join(ConfigDir(), "presets")},
		"plugins": map[string]any{"dir": filepath.Join(ConfigDir(), "plugins")},
		"log": map[string]any{
			"level": "info",
			"file":  filepath.Join(DataDir(), "esplay.log"),
		},
		"ui": map[string]any{
			"accent": "#5fafff",
			"muted":  "#808080",
		},
	}
}

// Origin returns the name of the layer that supplied path.
func (s *Settings) Origin(path string) string {
	if s.layers == nil {
		return ""
	}
	if l := s.layers.Which(path); l != nil {
		if l.Path != "" {
			return l.Source.String() + " (" + l.Path + ")"
		}
		return l.Source.String()
	}
	return ""
}

// Flatten lists every setting as dotted path and value, sorted by path.
func (s *Settings) Flatten() [][2]string {
	if s.layers == nil {
		return nil
	}
	flat := layer.FlattenMap(s.layers.Merge())
	out := make([][2]string, 0, len(flat))
	for k, v := range flat {
		out = append(out, [2]string{k, fmt.Sprint(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// ConfigDir is $XDG_CONFIG_HOME/esplay, or ESPLAY_CONFIG_DIR when set.
func ConfigDir() string {
	if dir := os.Getenv("ESPLAY_CONFIG_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "esplay")
	}
	return ".esplay"
}

// DataDir is $XDG_DATA_HOME/esplay, or ESPLAY_DATA_DIR when set.
func DataDir() string {
	if dir := os.Getenv("ESPLAY_DATA_DIR"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "esplay")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "esplay")
	}
	return ".esplay"
}
