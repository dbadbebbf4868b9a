package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/esplay/internal/importer"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/preset"
)

func newFormatCommand(g *globals) *cobra.Command {
	var (
		optionsFile string
		presetName  string
		plugins     []string
		write       bool
	)

	cmd := &cobra.Command{
		Use:   "format [file]",
		Short: "Format a script with the stored options",
		Long: "Format a script (or stdin) with the stored options and print the result.\n" +
			"--options and --preset apply to this run only; nothing is saved.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			if write && path == "-" {
				return fmt.Errorf("--write needs a file")
			}

			e, err := g.open(cmd, true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := e.Close(); err == nil {
					err = cerr
				}
			}()
			ctx := ctxOf(cmd)

			src, err := readSource(cmd, path)
			if err != nil {
				return err
			}

			overrides := e.svc.Store.Overrides()
			if optionsFile != "" {
				if overrides, err = importer.ReadOptions(ctx, optionsFile); err != nil {
					return fmt.Errorf("read %s: %w", optionsFile, err)
				}
			}
			if presetName != "" {
				overrides.Set(preset.PresetKey, optree.String(presetName))
			}
			effective, err := e.svc.Session.Presets().Resolve(overrides)
			if err != nil {
				return err
			}
			for _, name := range plugins {
				if err := e.svc.Session.TogglePlugin(name, true); err != nil {
					return err
				}
			}

			out, err := e.svc.Adapter.Format(ctx, src, effective)
			if err != nil {
				return err
			}
			if write {
				if out == src {
					return nil
				}
				return os.WriteFile(path, []byte(out), 0o644)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&optionsFile, "options", "", "use this options file instead of the stored options")
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "format with this preset")
	cmd.Flags().StringSliceVar(&plugins, "plugin", nil, "enable a plugin (repeatable)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	return cmd
}

// readSource reads a script file, or stdin for "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path != "-" {
		src, err := importer.ReadScript(ctxOf(cmd), path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return src, nil
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), importer.MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > importer.MaxFileSize {
		return "", fmt.Errorf("stdin: %w", importer.ErrTooLarge)
	}
	return string(data), nil
}
