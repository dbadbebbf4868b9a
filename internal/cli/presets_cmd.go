package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/preset"
)

func newPresetsCommand(g *globals) *cobra.Command {
	var own bool
	cmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "List presets, or show one preset's chain and options",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(g, func(cmd *cobra.Command, args []string, e *env) error {
			presets := e.svc.Session.Presets()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				selected := e.svc.Store.Preset()
				for _, name := range presets.Names() {
					mark := " "
					if name == selected {
						mark = "*"
					}
					fmt.Fprintf(out, "%s %s\n", mark, name)
				}
				return nil
			}

			name := args[0]
			if own {
				defaults, ok := presets.Get(name)
				if !ok {
					return fmt.Errorf("%w: %q", preset.ErrUnknownPreset, name)
				}
				data, err := optree.Pretty(defaults)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			chain, err := presets.Chain(name)
			if err != nil {
				return err
			}
			query := optree.NewGroup()
			query.Set(preset.PresetKey, optree.String(name))
			resolved, err := presets.Resolve(query)
			if err != nil {
				return err
			}
			resolved.Delete(preset.PresetKey)
			data, err := optree.Pretty(resolved)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "chain: %s\n", strings.Join(chain, " -> "))
			_, err = out.Write(data)
			return err
		}),
	}
	cmd.Flags().BoolVar(&own, "own", false, "show only the options the preset itself sets, including its parent")
	return cmd
}

func newPluginsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the available plugins",
		Args:  cobra.NoArgs,
		RunE: withEnv(g, func(cmd *cobra.Command, _ []string, e *env) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTRANSFORM\tORIGIN")
			for _, d := range e.svc.Session.Plugins().Descriptors() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.DisplayName, d.Transform.Name(), d.Origin)
			}
			return tw.Flush()
		}),
	}
}

func newSettingsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show esplay's own settings and where each came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := g.settings(cmd)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SETTING\tVALUE\tFROM")
			for _, kv := range settings.Flatten() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", kv[0], kv[1], settings.Origin(kv[0]))
			}
			return tw.Flush()
		},
	}
}
