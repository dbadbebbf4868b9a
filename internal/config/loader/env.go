package loader

import (
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// EnvPrefix is the prefix of esplay environment variables.
const EnvPrefix = "ESPLAY_"

// EnvLoader loads settings from environment variables.
// ESPLAY_FORMATTER_COMMAND maps to formatter.command; ESPLAY_UI_ACCENT
// to ui.accent. Variables not matching a known path use the first
// underscore as the section separator.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	environ func() []string
}

// NewEnvLoader creates a loader for variables starting with prefix.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		environ: os.Environ,
	}
}

// WithEnviron replaces the environment source, for tests.
func (l *EnvLoader) WithEnviron(environ func() []string) *EnvLoader {
	l.environ = environ
	return l
}

// defaultEnvMapping maps shorthand variables to setting paths. An empty
// path marks a variable that is read elsewhere.
func defaultEnvMapping() map[string]string {
	return map[string]string{
		"ESPLAY_CONFIG_DIR":  "",
		"ESPLAY_DATA_DIR":    "",
		"ESPLAY_STORAGE":     "storage.path",
		"ESPLAY_LOG":         "log.level",
		"ESPLAY_PLUGIN_DIR":  "plugins.dir",
		"ESPLAY_PRESET_DIR":  "presets.dir",
		"ESPLAY_FORMATTER":   "formatter.command",
		"ESPLAY_TIMEOUT":     "formatter.timeout",
		"ESPLAY_NO_PERSIST":  "storage.disabled",
		"ESPLAY_ACCENT":      "ui.accent",
		"ESPLAY_MUTED_COLOR": "ui.muted",
	}
}

// Load reads the environment. Empty values count as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	settings := make(map[string]any)

	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(settings, path, parseValue(value))
	}
	return settings, nil
}

// envToPath converts ESPLAY_FORMATTER_COMMAND to formatter.command and
// ESPLAY_STORAGE_BUSY_TIMEOUT to storage.busyTimeout.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	section, rest, ok := strings.Cut(name, "_")
	if !ok || section == "" || rest == "" {
		return ""
	}

	parts := strings.Split(rest, "_")
	setting := strings.ToLower(parts[0])
	for _, p := range parts[1:] {
		if p != "" {
			setting += strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		}
	}
	return strings.ToLower(section) + "." + setting
}

// parseValue converts true/false, integers and JSON arrays; everything
// else, durations and "off" included, stays a string.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.HasPrefix(s, "[") && gjson.Valid(s) {
		var items []any
		for _, r := range gjson.Parse(s).Array() {
			items = append(items, r.Value())
		}
		return items
	}
	return s
}

func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
