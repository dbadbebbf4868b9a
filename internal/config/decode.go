package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/esplay/internal/config/layer"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "off": true}

// decode builds Settings from the merged layers, validating as it goes.
func decode(data map[string]any) (*Settings, error) {
	d := decoder{data: data}
	s := &Settings{
		Formatter: FormatterSettings{
			Command: d.str("formatter.command"),
			Args:    d.strs("formatter.args"),
			Timeout: d.duration("formatter.timeout"),
		},
		Storage: StorageSettings{
			Path:     d.str("storage.path"),
			Disabled: d.boolean("storage.disabled"),
		},
		Presets: DirSettings{Dir: d.str("presets.dir")},
		Plugins: DirSettings{Dir: d.str("plugins.dir")},
		Log: LogSettings{
			Level: strings.ToLower(d.str("log.level")),
			File:  d.str("log.file"),
		},
		UI: UISettings{
			Accent: d.color("ui.accent"),
			Muted:  d.color("ui.muted"),
		},
	}

	if s.Formatter.Command == "" {
		d.fail("formatter.command", "", "must not be empty")
	}
	if s.Formatter.Timeout <= 0 {
		d.fail("formatter.timeout", s.Formatter.Timeout, "must be positive")
	}
	if !logLevels[s.Log.Level] {
		d.fail("log.level", s.Log.Level, "must be debug, info, warn, error or off")
	}

	if d.err != nil {
		return nil, d.err
	}
	return s, nil
}

// decoder reads typed values, keeping the first error.
type decoder struct {
	data map[string]any
	err  error
}

func (d *decoder) fail(path string, value any, msg string) {
	if d.err == nil {
		d.err = &SettingError{Path: path, Value: value, Message: msg}
	}
}

func (d *decoder) get(path string) any {
	v, _ := layer.GetByPath(d.data, path)
	return v
}

func (d *decoder) str(path string) string {
	switch v := d.get(path).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (d *decoder) strs(path string) []string {
	switch v := d.get(path).(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return strings.Fields(v)
	default:
		d.fail(path, v, "must be a list of strings")
		return nil
	}
}

func (d *decoder) boolean(path string) bool {
	switch v := d.get(path).(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			d.fail(path, v, "must be true or false")
		}
		return b
	default:
		d.fail(path, v, "must be true or false")
		return false
	}
}

// duration accepts Go duration text or a whole number of seconds.
func (d *decoder) duration(path string) time.Duration {
	switch v := d.get(path).(type) {
	case time.Duration:
		return v
	case string:
		dur, err := time.ParseDuration(v)
		if err != nil {
			d.fail(path, v, err.Error())
		}
		return dur
	case int64:
		return time.Duration(v) * time.Second
	case int:
		return time.Duration(v) * time.Second
	default:
		d.fail(path, v, "must be a duration such as 5s")
		return 0
	}
}

func (d *decoder) color(path string) colorful.Color {
	text := d.str(path)
	c, err := colorful.Hex(text)
	if err != nil {
		d.fail(path, text, "must be a #rrggbb color")
	}
	return c
}
