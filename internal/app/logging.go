package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/dshills/esplay/internal/config"
)

// ParseLevel converts a level name to a slog level. "warning" is
// accepted for warn; unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logging owns the application logger and its log file.
type Logging struct {
	Logger *slog.Logger

	file *os.File
}

// NewLogging builds the logger described by s. Records at s.Level and
// above go to s.File. When console is not nil, warnings and errors are
// also written there; the terminal UI passes nil because tcell owns the
// screen. Level "off" discards everything.
func NewLogging(s config.LogSettings, console io.Writer) (*Logging, error) {
	level := ParseLevel(s.Level)
	l := &Logging{}

	if strings.EqualFold(s.Level, "off") {
		l.Logger = slog.New(slog.DiscardHandler)
		return l, nil
	}

	var handlers []slog.Handler
	if s.File != "" {
		if err := os.MkdirAll(filepath.Dir(s.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(s.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{
			Level: max(level, slog.LevelWarn),
		}))
	}

	if len(handlers) == 0 {
		l.Logger = slog.New(slog.DiscardHandler)
	} else {
		l.Logger = slog.New(slogmulti.Fanout(handlers...))
	}
	return l, nil
}

// Component returns a logger tagged with a component name.
func (l *Logging) Component(name string) *slog.Logger {
	return l.Logger.With("component", name)
}

// Close closes the log file.
func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
