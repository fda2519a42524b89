package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/pkg/pipeline"
	"github.com/matzehuels/calostack/pkg/report"
)

type inspectOpts struct {
	plain      bool
	permissive bool
	noCache    bool
}

func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect [description.toml|geometry.json]",
		Short: "Browse the layers of a build interactively",
		Long: `Build a description (or load a saved report) and browse each detector's
stack: layer codes, orientations, z positions and identifiers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.inspectReport(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if opts.plain {
				return writeLayerTables(cmd.OutOrStdout(), g)
			}
			_, err = tea.NewProgram(NewLayerBrowserModel(g), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print the layer tables instead of starting the browser")
	cmd.Flags().BoolVar(&opts.permissive, "permissive", false, "report layers overflowing the envelope as warnings")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) inspectReport(ctx context.Context, path string, opts inspectOpts) (*report.Geometry, error) {
	if filepath.Ext(path) == ".json" {
		return loadReport(path)
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()
	return runner.Build(ctx, pipeline.Options{DescriptionPath: path, Permissive: opts.permissive})
}

// writeLayerTables prints every detector's full stack.
func writeLayerTables(w io.Writer, g *report.Geometry) error {
	for i, d := range g.Detectors {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n", StyleTitle.Render(d.Name), StyleDim.Render(d.Type))
		fmt.Fprintln(w, layerTable(d, -1, 0, len(d.Layers)))
		for _, warn := range d.Warnings {
			fmt.Fprintf(w, "%s %s\n", StyleWarning.Render(iconWarning), warn)
		}
	}
	return nil
}
