// Package cli is esplay's command line: the terminal playground and
// headless commands over the same stored options.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/esplay/internal/app"
	"github.com/dshills/esplay/internal/config"
	"github.com/dshills/esplay/internal/renderer/backend"
)

// Version is set at build time via ldflags.
var Version = "dev"

// globals holds the persistent flags and the services they open.
type globals struct {
	configFile string
	logLevel   string
	storage    string
	noPersist  bool
	command    string
	timeout    time.Duration

	bootOpts []app.Option
}

// Execute runs the command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. opts are passed to
// app.Bootstrap, letting tests replace the formatter.
func NewRootCommand(opts ...app.Option) *cobra.Command {
	g := &globals{bootOpts: opts}

	var follow, manual bool
	root := &cobra.Command{
		Use:   "esplay [script]",
		Short: "Formatter options playground",
		Long: "esplay edits esformatter options in a terminal form and shows the formatted\n" +
			"result of a script as you type. Options are saved between runs.",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{Follow: follow, Manual: manual}
			if len(args) == 1 {
				opts.Script = args[0]
			}
			return runPlayground(cmd, g, opts)
		},
	}
	root.Flags().BoolVarP(&follow, "follow", "f", false, "reload the script when it changes on disk")
	root.Flags().BoolVar(&manual, "manual", false, "format only on ^F")

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "settings file (default $XDG_CONFIG_HOME/esplay/config.toml)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error or off")
	pf.StringVar(&g.storage, "storage", "", "options database path")
	pf.BoolVar(&g.noPersist, "no-persist", false, "keep options in memory only")
	pf.StringVar(&g.command, "formatter", "", "formatter command")
	pf.DurationVar(&g.timeout, "timeout", 0, "formatter timeout")

	root.AddCommand(
		newFormatCommand(g),
		newOptionsCommand(g),
		newPresetsCommand(g),
		newPluginsCommand(g),
		newSettingsCommand(g),
	)
	return root
}

// flagSettings maps the persistent flags the user set to setting paths.
func (g *globals) flagSettings(cmd *cobra.Command) map[string]any {
	flags := make(map[string]any)
	set := func(name, path string, value any) {
		if cmd.Flags().Changed(name) {
			flags[path] = value
		}
	}
	set("log-level", "log.level", g.logLevel)
	set("storage", "storage.path", g.storage)
	set("no-persist", "storage.disabled", g.noPersist)
	set("formatter", "formatter.command", g.command)
	set("timeout", "formatter.timeout", g.timeout)
	return flags
}

func (g *globals) settings(cmd *cobra.Command) (*config.Settings, error) {
	return config.Load(config.Options{File: g.configFile, Flags: g.flagSettings(cmd)})
}

// env is what a command runs against.
type env struct {
	settings *config.Settings
	logging  *app.Logging
	svc      *app.Services
}

// open loads settings and starts the services. Headless commands log
// warnings to stderr; the playground logs to the file only.
func (g *globals) open(cmd *cobra.Command, headless bool) (*env, error) {
	settings, err := g.settings(cmd)
	if err != nil {
		return nil, err
	}

	var console = cmd.ErrOrStderr()
	if !headless {
		console = nil
	}
	logging, err := app.NewLogging(settings.Log, console)
	if err != nil {
		return nil, err
	}
	logging.Component("cli").Debug("settings loaded", "file", settings.File, "command", cmd.CommandPath())

	svc, err := app.Bootstrap(ctxOf(cmd), settings, logging.Logger, g.bootOpts...)
	if err != nil {
		logging.Close()
		return nil, err
	}
	return &env{settings: settings, logging: logging, svc: svc}, nil
}

func (e *env) Close() error {
	var errs app.ErrorList
	errs.Add(e.svc.Close())
	errs.Add(e.logging.Close())
	return errs.AsError()
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runPlayground(cmd *cobra.Command, g *globals, opts app.Options) (err error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("%w: the playground needs an interactive terminal; see esplay format", app.ErrNotTerminal)
	}

	e, err := g.open(cmd, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()

	screen, err := backend.NewTerminal()
	if err != nil {
		return &app.InitError{Component: "terminal", Err: err}
	}
	a, err := app.New(e.svc, screen, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctxOf(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		a.Shutdown()
	}()

	err = a.Run()
	var panicErr *app.RecoveredPanicError
	if errors.As(err, &panicErr) {
		e.logging.Component("cli").Error("playground crashed", "error", panicErr)
		err = fmt.Errorf("playground crashed: %v", panicErr.Value)
	}
	if serr := a.Shutdown(); err == nil || errors.Is(err, app.ErrQuit) {
		err = serr
	}
	return err
}
