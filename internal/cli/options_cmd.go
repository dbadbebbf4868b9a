package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/match"

	"github.com/dshills/esplay/internal/form"
	"github.com/dshills/esplay/internal/importer"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/session"
)

func newOptionsCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Inspect and edit the stored options",
	}
	cmd.AddCommand(
		newOptionsShowCommand(g, false),
		newOptionsShowCommand(g, true),
		newOptionsExportCommand(g),
		newOptionsImportCommand(g),
		newOptionsSetCommand(g),
		newOptionsUnsetCommand(g),
		newOptionsPresetCommand(g),
		newOptionsResetCommand(g),
	)
	return cmd
}

// withEnv runs fn against freshly opened services and closes them.
func withEnv(g *globals, fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		e, err := g.open(cmd, true)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := e.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args, e)
	}
}

func newOptionsShowCommand(g *globals, effective bool) *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the options you changed",
		Args:  cobra.NoArgs,
		RunE: withEnv(g, func(cmd *cobra.Command, _ []string, e *env) error {
			tree := e.svc.Store.Overrides()
			if effective {
				var err error
				if tree, err = e.svc.Session.Effective(); err != nil {
					return err
				}
			}
			return printOptions(cmd.OutOrStdout(), tree, pattern)
		}),
	}
	if effective {
		cmd.Use = "effective"
		cmd.Short = "List every option after applying the preset chain"
	}
	cmd.Flags().StringVarP(&pattern, "match", "m", "", "only paths matching this glob, e.g. 'indent/*'")
	return cmd
}

// printOptions writes one "path  value" line per scalar. String values
// are escaped the way the form shows them.
func printOptions(w io.Writer, tree *optree.Node, pattern string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	tree.Walk(func(path optree.Path, leaf *optree.Node) {
		p := path.String()
		if pattern != "" && !match.Match(p, pattern) {
			return
		}
		value := leaf.Text()
		if leaf.Kind() == optree.KindString {
			value = form.Escape(value)
		}
		fmt.Fprintf(tw, "%s\t%s\n", p, value)
	})
	return tw.Flush()
}

func newOptionsExportCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Print the options as JSON, or write them to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(g, func(cmd *cobra.Command, args []string, e *env) error {
			if len(args) == 1 {
				return e.svc.Session.ExportFile(args[0])
			}
			out, err := e.svc.Session.Export()
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		}),
	}
}

func newOptionsImportCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the options with a JSON options file",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(g, func(cmd *cobra.Command, args []string, e *env) error {
			ctx := ctxOf(cmd)
			tree, err := importer.ReadOptions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if err := e.svc.Session.ImportOptions(ctx, tree); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (preset %q)\n", args[0], e.svc.Store.Preset())
			return nil
		}),
	}
}

func newOptionsSetCommand(g *globals) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set one option",
		Long: "Set the option at a slash-separated path, e.g. indent/value '\\t'.\n" +
			"The value is read like form input: strings accept \\t, \\n and \\r escapes.\n" +
			"The type comes from the current value, or --type for new options.",
		Args: cobra.ExactArgs(2),
		RunE: withEnv(g, func(cmd *cobra.Command, args []string, e *env) error {
			path := optree.ParsePath(args[0])
			if !path.Valid() {
				return fmt.Errorf("invalid option path %q", args[0])
			}
			ft := form.FieldType(typ)
			if ft == "" {
				ft = fieldType(e, path)
			}
			return e.svc.Session.EditAs(ctxOf(cmd), session.SourceCLI, path, ft, args[1])
		}),
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "value type: string, number, boolean or json")
	return cmd
}

// fieldType is the type the form would use for path.
func fieldType(e *env, path optree.Path) form.FieldType {
	effective, err := e.svc.Session.Effective()
	if err != nil {
		return ""
	}
	if n, ok := effective.Get(path); ok && !n.IsGroup() {
		return form.TypeOf(n.Kind())
	}
	return ""
}

func newOptionsUnsetCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <path>",
		Short: "Remove one option, falling back to the preset value",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(g, func(cmd *cobra.Command, args []string, e *env) error {
			path := optree.ParsePath(args[0])
			if !path.Valid() {
				return fmt.Errorf("invalid option path %q", args[0])
			}
			return e.svc.Session.EditAs(ctxOf(cmd), session.SourceCLI, path, form.TypeString, "")
		}),
	}
}

func newOptionsPresetCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "preset [name]",
		Short: "Show or select the preset the options extend",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(g, func(cmd *cobra.Command, args []string, e *env) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), e.svc.Store.Preset())
				return nil
			}
			return e.svc.Session.SelectPreset(ctxOf(cmd), args[0])
		}),
	}
}

func newOptionsResetCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard every change and return to the default preset",
		Args:  cobra.NoArgs,
		RunE: withEnv(g, func(cmd *cobra.Command, _ []string, e *env) error {
			return e.svc.Session.Reset(ctxOf(cmd))
		}),
	}
}
