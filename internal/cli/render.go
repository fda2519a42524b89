package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/pkg/pipeline"
	"github.com/matzehuels/calostack/pkg/report"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string
	formats  string
	view     string
	detector string
	labels   bool
	elements bool
	detailed bool
	scale    float64
	id       string // archived report ID instead of a file
	storeDir string
	noCache  bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		output: ".",
		view:   pipeline.DefaultView,
		scale:  pipeline.DefaultScale,
	}

	cmd := &cobra.Command{
		Use:   "render [geometry.json]",
		Short: "Render a saved geometry report",
		Long: `Render a report written by "build -f json", or an archived report
selected with --id, without rebuilding the description.`,
		Example: `  calostack render geometry.json -f png --labels
  calostack render --id 6f1c... --view hierarchy -f dot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (opts.id == "") {
				return fmt.Errorf("give either a report file or --id")
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output directory")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, pdf, dot, json (comma-separated)")
	cmd.Flags().StringVar(&opts.view, "view", opts.view, "view: stack, hierarchy")
	cmd.Flags().StringVar(&opts.detector, "detector", "", "render only this detector")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "label layers with their codes")
	cmd.Flags().BoolVar(&opts.elements, "elements", false, "draw individual bars")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show solids and materials in the hierarchy")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "side view scale in pixels per mm")
	cmd.Flags().StringVar(&opts.id, "id", "", "render an archived report")
	cmd.Flags().StringVar(&opts.storeDir, "store-dir", "", "archive directory")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, out io.Writer, path string, opts renderOpts) error {
	g, err := c.fetchReport(ctx, path, opts.id, opts.storeDir)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, g, pipeline.Options{
		Formats:  parseFormats(opts.formats),
		View:     opts.view,
		Detector: opts.detector,
		Labels:   opts.labels,
		Elements: opts.elements,
		Detailed: opts.detailed,
		Scale:    opts.scale,
	})
	if err != nil {
		return err
	}

	paths, err := writeArtifacts(opts.output, artifacts)
	if err != nil {
		return err
	}
	con := newConsole(out)
	con.success("Rendered %s", g.ID)
	con.stats(g.Stats, cached)
	con.files(paths)
	return nil
}

// fetchReport loads a report from path, or from the archive when id is set.
func (c *CLI) fetchReport(ctx context.Context, path, id, storeDir string) (*report.Geometry, error) {
	if id == "" {
		return loadReport(path)
	}
	st, err := c.newStore(ctx, storeDir)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Get(ctx, id)
}
