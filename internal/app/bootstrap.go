package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dshills/esplay/internal/config"
	"github.com/dshills/esplay/internal/config/notify"
	"github.com/dshills/esplay/internal/formatter"
	"github.com/dshills/esplay/internal/plugin"
	"github.com/dshills/esplay/internal/preset"
	"github.com/dshills/esplay/internal/session"
	"github.com/dshills/esplay/internal/storage"
	"github.com/dshills/esplay/internal/store"
)

// Services are the long-lived collaborators shared by the terminal UI
// and the command line.
type Services struct {
	Settings *config.Settings
	Notifier *notify.Notifier
	Store    *store.Store
	Adapter  *formatter.Adapter
	Session  *session.Session

	kv     storage.KV
	logger *slog.Logger
}

// Option configures Bootstrap.
type Option func(*bootstrapOptions)

type bootstrapOptions struct {
	engine formatter.Engine
	kv     storage.KV
}

// WithEngine replaces the esformatter process.
func WithEngine(e formatter.Engine) Option {
	return func(o *bootstrapOptions) { o.engine = e }
}

// WithStorage replaces the storage selected by the settings. Services
// take ownership of kv.
func WithStorage(kv storage.KV) Option {
	return func(o *bootstrapOptions) { o.kv = kv }
}

// Bootstrap builds the services in dependency order. Storage that
// cannot be opened is fatal. Unreadable persisted options, presets and
// plugin scripts are logged and skipped.
func Bootstrap(ctx context.Context, settings *config.Settings, logger *slog.Logger, opts ...Option) (*Services, error) {
	var o bootstrapOptions
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	svc := &Services{Settings: settings, logger: logger}

	// 1. Storage
	svc.kv = o.kv
	if svc.kv == nil {
		kv, err := openStorage(settings.Storage, logger)
		if err != nil {
			return nil, &InitError{Component: "storage", Err: err}
		}
		svc.kv = kv
	}

	// 2. Override store
	svc.Notifier = notify.New()
	svc.Store = store.New(svc.kv, svc.Notifier)
	if err := svc.Store.Load(ctx); err != nil {
		if !errors.Is(err, store.ErrCorruptState) {
			svc.close()
			return nil, &InitError{Component: "store", Err: err}
		}
		logger.Warn("using default options", "component", "store", "error", err)
		if err := svc.Store.Save(ctx); err != nil {
			svc.close()
			return nil, &InitError{Component: "store", Err: err}
		}
	}

	// 3. Presets
	presets, err := preset.Builtin()
	if err != nil {
		svc.close()
		return nil, &InitError{Component: "presets", Err: err}
	}
	if err := presets.LoadDir(settings.Presets.Dir); err != nil {
		logger.Warn("skipping user presets", "component", "presets", "dir", settings.Presets.Dir, "error", err)
	}

	// 4. Formatter
	engine := o.engine
	if engine == nil {
		engine = &formatter.ProcessEngine{
			Command: settings.Formatter.Command,
			Args:    settings.Formatter.Args,
			Timeout: settings.Formatter.Timeout,
		}
	}
	svc.Adapter = formatter.New(engine, logger.With("component", "formatter"))

	// 5. Plugins
	plugins := plugin.NewRegistry(svc.Adapter, logger.With("component", "plugins"))
	for _, d := range plugin.Builtins() {
		if err := plugins.Add(d); err != nil {
			svc.close()
			return nil, &InitError{Component: "plugins", Err: err}
		}
	}
	if err := plugins.LoadDir(ctx, settings.Plugins.Dir); err != nil {
		logger.Warn("skipping plugin scripts", "component", "plugins", "dir", settings.Plugins.Dir, "error", err)
	}

	// 6. Session
	svc.Session = session.New(session.Config{
		Store:    svc.Store,
		Notifier: svc.Notifier,
		Presets:  presets,
		Plugins:  plugins,
		Adapter:  svc.Adapter,
		Logger:   logger.With("component", "session"),
	})

	logger.Info("services ready",
		"preset", svc.Store.Preset(),
		"presets", len(presets.Names()),
		"plugins", len(plugins.Descriptors()),
		"persistent", !settings.Storage.Disabled,
	)
	return svc, nil
}

func openStorage(s config.StorageSettings, logger *slog.Logger) (storage.KV, error) {
	if s.Disabled {
		logger.Info("options kept in memory", "component", "storage")
		return storage.NewMemory(), nil
	}
	kv, err := storage.OpenSQLite(s.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("storage opened", "component", "storage", "path", s.Path)
	return kv, nil
}

// Close releases the session, the notifier and the storage.
func (s *Services) Close() error {
	var errs ErrorList
	if s.Session != nil {
		errs.Add(s.Session.Close())
	}
	errs.Add(s.close())
	return errs.AsError()
}

func (s *Services) close() error {
	if s.Notifier != nil {
		s.Notifier.Close()
	}
	if s.kv == nil {
		return nil
	}
	err := s.kv.Close()
	s.kv = nil
	return err
}
