// Package session coordinates one playground session: the override
// store, the preset and plugin registries, the formatter adapter, the
// input text and the last formatting result.
//
// A Session is passed explicitly to the terminal UI and the command
// line; there is no package-level state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/esplay/internal/config/notify"
	"github.com/dshills/esplay/internal/form"
	"github.com/dshills/esplay/internal/formatter"
	"github.com/dshills/esplay/internal/importer"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/plugin"
	"github.com/dshills/esplay/internal/preset"
	"github.com/dshills/esplay/internal/store"
)

// Change sources recorded on override notifications.
const (
	SourceForm   = "form"
	SourcePreset = "preset"
	SourceImport = "import"
	SourceCLI    = "cli"
)

// Config holds the session's collaborators. Store, Presets and Adapter
// are required.
type Config struct {
	Store    *store.Store
	Notifier *notify.Notifier
	Presets  *preset.Registry
	Plugins  *plugin.Registry
	Adapter  *formatter.Adapter
	Logger   *slog.Logger
}

// Session is the state of one playground.
type Session struct {
	store     *store.Store
	notifier  *notify.Notifier
	presets   *preset.Registry
	plugins   *plugin.Registry
	adapter   *formatter.Adapter
	logger    *slog.Logger
	sub       *notify.Subscription
	presetSub *notify.Subscription

	mu        sync.Mutex
	source    string
	output    string
	formatErr error
	export    string
	exportErr error

	// gen counts changes to the input, overrides and plugins; formatted
	// is the gen the last Format started from.
	gen       uint64
	formatted uint64
}

// New creates a session. The export view is kept current by observing
// override changes.
func New(cfg Config) *Session {
	s := &Session{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		presets:  cfg.Presets,
		plugins:  cfg.Plugins,
		adapter:  cfg.Adapter,
		logger:   cfg.Logger,
		gen:      1,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.plugins == nil {
		s.plugins = plugin.NewRegistry(s.adapter, s.logger)
	}
	if s.notifier != nil {
		s.sub = s.notifier.Subscribe(s.onChange)
		s.presetSub = s.notifier.SubscribePath(optree.Path{preset.PresetKey}, s.onPresetChange)
	}
	s.refreshExport()
	return s
}

func (s *Session) onPresetChange(c notify.Change) {
	name := ""
	if c.NewValue != nil {
		name = c.NewValue.Text()
	}
	s.logger.Info("preset selected", "preset", name, "source", c.Source)
}

func (s *Session) onChange(c notify.Change) {
	s.logger.Debug("overrides changed", "type", c.Type, "path", c.Path.String(), "source", c.Source)
	s.refreshExport()
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

func (s *Session) refreshExport() {
	data, err := importer.Export(s.store.Overrides())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.export, s.exportErr = string(data), err
}

// Store returns the override store.
func (s *Session) Store() *store.Store { return s.store }

// Presets returns the preset registry.
func (s *Session) Presets() *preset.Registry { return s.presets }

// Plugins returns the plugin registry.
func (s *Session) Plugins() *plugin.Registry { return s.plugins }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Effective resolves the overrides against the selected preset chain.
func (s *Session) Effective() (*optree.Node, error) {
	return s.presets.Resolve(s.store.Overrides())
}

// Form renders the option form. When the preset chain cannot be
// resolved, the form shows the overrides alone alongside the error.
func (s *Session) Form() (*form.Node, error) {
	overrides := s.store.Overrides()
	effective, err := s.presets.Resolve(overrides)
	if err != nil {
		return form.Render(overrides, overrides), err
	}
	return form.Render(effective, overrides), nil
}

// Edit applies form input to the option at path. typ is the field type
// shown in the form; an unknown path guesses it from the input.
func (s *Session) Edit(ctx context.Context, path optree.Path, typ form.FieldType, input string) error {
	return s.EditAs(ctx, SourceForm, path, typ, input)
}

// EditAs is Edit with the change recorded under source. The root
// preset key goes through preset selection; nothing below the reserved
// preset and plugins keys can be edited.
func (s *Session) EditAs(ctx context.Context, source string, path optree.Path, typ form.FieldType, input string) error {
	if len(path) > 0 && (path[0] == preset.PresetKey || path[0] == preset.PluginsKey) {
		if len(path) == 1 && path[0] == preset.PresetKey {
			return s.selectPreset(ctx, source, form.Unescape(input))
		}
		err := fmt.Errorf("%w: %s is reserved", form.ErrInvalidValue, path[0])
		return &OperationError{Op: "edit", Target: path.String(), Err: err}
	}
	if typ == "" {
		typ = form.Guess(input)
	}
	if err := form.Apply(ctx, s.store.As(source), path, typ, input); err != nil {
		return &OperationError{Op: "edit", Target: path.String(), Err: err}
	}
	return nil
}

// SelectPreset makes name the parent preset of the overrides. An empty
// name clears the selection.
func (s *Session) SelectPreset(ctx context.Context, name string) error {
	return s.selectPreset(ctx, SourcePreset, name)
}

func (s *Session) selectPreset(ctx context.Context, source, name string) error {
	if name != "" && !s.presets.Has(name) {
		return &OperationError{Op: "select preset", Target: name, Err: preset.ErrUnknownPreset}
	}
	if err := s.store.As(source).SetPreset(ctx, name); err != nil {
		return &OperationError{Op: "select preset", Target: name, Err: err}
	}
	return nil
}

// TogglePlugin enables or disables a plugin for this session.
func (s *Session) TogglePlugin(name string, on bool) error {
	if err := s.plugins.Toggle(name, on); err != nil {
		return &OperationError{Op: "toggle plugin", Target: name, Err: err}
	}
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
	return nil
}

// SetSource replaces the input text.
func (s *Session) SetSource(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src != s.source {
		s.source = src
		s.gen++
	}
}

// Source returns the input text.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Stale reports whether the input, overrides or plugins changed since
// the last Format.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != s.formatted
}

// Format formats the input with the effective options and the active
// plugins. The result is kept for Output. Failures are returned and
// kept; they never change the overrides.
func (s *Session) Format(ctx context.Context) (string, error) {
	s.mu.Lock()
	src, gen := s.source, s.gen
	s.mu.Unlock()

	out, err := s.format(ctx, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen > s.formatted {
		s.formatted = gen
	}
	if err != nil {
		s.formatErr = err
		return "", err
	}
	s.output, s.formatErr = out, nil
	return out, nil
}

func (s *Session) format(ctx context.Context, src string) (string, error) {
	effective, err := s.Effective()
	if err != nil {
		return "", &OperationError{Op: "format", Err: err}
	}
	out, err := s.adapter.Format(ctx, src, effective)
	if err != nil {
		s.logger.Warn("format failed", "error", err)
		return "", &OperationError{Op: "format", Err: err}
	}
	s.logger.Debug("formatted", "bytes", len(out), "plugins", s.adapter.Active())
	return out, nil
}

// Output returns the last successful output and the error of the last
// attempt, if it failed.
func (s *Session) Output() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output, s.formatErr
}

// Export returns the overrides as indented JSON.
func (s *Session) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.export, s.exportErr
}

// ExportFile writes the overrides to path.
func (s *Session) ExportFile(path string) error {
	if err := importer.ExportFile(path, s.store.Overrides()); err != nil {
		return &OperationError{Op: "export", Target: path, Err: err}
	}
	s.logger.Info("options exported", "path", path)
	return nil
}

// ImportOptions replaces the overrides with tree. The tree must resolve
// against the registered presets; otherwise the import fails with
// ErrInvalidOptions and the current overrides are kept.
func (s *Session) ImportOptions(ctx context.Context, tree *optree.Node) error {
	if tree == nil || !tree.IsGroup() {
		return &OperationError{Op: "import options", Err: importer.ErrInvalidOptions}
	}
	if _, err := s.presets.Resolve(tree); err != nil {
		return &OperationError{Op: "import options", Err: fmt.Errorf("%w: %w", importer.ErrInvalidOptions, err)}
	}
	if err := s.store.As(SourceImport).Replace(ctx, tree); err != nil {
		return &OperationError{Op: "import options", Err: err}
	}
	s.logger.Info("options imported", "preset", s.store.Preset())
	return nil
}

// Reset restores the default overrides.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.store.As(SourceForm).Replace(ctx, store.Defaults()); err != nil {
		return &OperationError{Op: "reset", Err: err}
	}
	return nil
}

// Close stops observing changes and releases plugin resources.
func (s *Session) Close() error {
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.presetSub.Unsubscribe()
	}
	return s.plugins.Close()
}

// OperationError records the session operation that failed.
type OperationError struct {
	Op     string
	Target string
	Err    error
}

func (e *OperationError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg += " " + e.Target
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsUserError reports whether err comes from bad input rather than a
// failing collaborator.
func IsUserError(err error) bool {
	return errors.Is(err, form.ErrInvalidValue) ||
		errors.Is(err, importer.ErrInvalidOptions) ||
		errors.Is(err, importer.ErrBinaryFile) ||
		errors.Is(err, preset.ErrUnknownPreset) ||
		errors.Is(err, plugin.ErrUnknownPlugin)
}
