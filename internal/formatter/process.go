package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommand is the esformatter command line.
const DefaultCommand = "esformatter"

// DefaultTimeout bounds one engine run.
const DefaultTimeout = 10 * time.Second

// ProcessEngine runs the formatter as a child process. The options are
// written to a temporary JSON file passed with --config, the active
// plugin modules with --plugins, and the source is piped on stdin.
type ProcessEngine struct {
	// Command is the executable. Defaults to DefaultCommand.
	Command string

	// Args come before the generated flags.
	Args []string

	// Timeout bounds one run. Defaults to DefaultTimeout.
	Timeout time.Duration

	// TempDir holds the generated config files. Defaults to os.TempDir.
	TempDir string
}

// Format implements Engine.
func (e *ProcessEngine) Format(ctx context.Context, req Request) (string, error) {
	configPath, err := e.writeConfig(req)
	if err != nil {
		return "", &FormatError{Stage: "engine", ExitCode: -1, Err: err}
	}
	defer os.Remove(configPath)

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.command(), e.args(configPath, req.Plugins)...)
	cmd.Stdin = strings.NewReader(req.Source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	fe := &FormatError{Stage: "engine", ExitCode: -1, Stderr: stderr.String(), Err: err}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		fe.Err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case errors.Is(err, exec.ErrNotFound):
		fe.Err = fmt.Errorf("%w: %s", ErrEngineNotFound, e.command())
	case errors.As(err, &exitErr):
		fe.ExitCode = exitErr.ExitCode()
	}
	return "", fe
}

func (e *ProcessEngine) command() string {
	if e.Command == "" {
		return DefaultCommand
	}
	return e.Command
}

func (e *ProcessEngine) args(configPath string, plugins []string) []string {
	args := make([]string, 0, len(e.Args)+4)
	args = append(args, e.Args...)
	args = append(args, "--config", configPath)
	if len(plugins) > 0 {
		args = append(args, "--plugins", strings.Join(plugins, ","))
	}
	return args
}

func (e *ProcessEngine) writeConfig(req Request) (string, error) {
	data := []byte("{}")
	if req.Options != nil {
		var err error
		data, err = req.Options.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("encode options: %w", err)
		}
	}

	f, err := os.CreateTemp(e.TempDir, "esplay-*.json")
	if err != nil {
		return "", fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write config file: %w", err)
	}
	return f.Name(), nil
}
