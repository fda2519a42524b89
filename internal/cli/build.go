package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/pkg/pipeline"
)

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	output     string // output directory
	formats    string // comma-separated output formats
	view       string // stack or hierarchy
	detector   string // render only this detector
	detectors  string // build only these detectors (comma-separated)
	permissive bool   // downgrade overflow to a warning
	labels     bool   // label layers with their codes
	elements   bool   // draw bar outlines
	detailed   bool   // detailed hierarchy nodes
	scale      float64
	noCache    bool
	refresh    bool
	parallel   int  // concurrent builds when several files are given
	archive    bool // save reports to the archive
	storeDir   string
}

func (c *CLI) buildCommand() *cobra.Command {
	opts := buildOpts{
		output:   ".",
		formats:  "svg,json",
		view:     pipeline.DefaultView,
		scale:    pipeline.DefaultScale,
		parallel: 4,
	}

	cmd := &cobra.Command{
		Use:   "build [description.toml...]",
		Short: "Build detector descriptions into geometry reports and drawings",
		Long: `Build one or more TOML detector descriptions.

Every detector's layer code string is composed into a stack of layers,
placed into the world and reported. Output files are named after their
detector (SplitCal.svg), the hierarchy (hierarchy.dot) or the report
(geometry.json).`,
		Example: `  calostack build examples/splitcal.toml
  calostack build examples/*.toml -o out -f svg,png
  calostack build ship.toml --detectors SplitCal,Tracker --view hierarchy -f dot,svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output directory")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", opts.formats, "output format(s): svg, png, pdf, dot, json (comma-separated)")
	cmd.Flags().StringVar(&opts.view, "view", opts.view, "view: stack, hierarchy")
	cmd.Flags().StringVar(&opts.detector, "detector", "", "render only this detector")
	cmd.Flags().StringVar(&opts.detectors, "detectors", "", "build only these detectors (comma-separated)")
	cmd.Flags().BoolVar(&opts.permissive, "permissive", false, "report layers overflowing the envelope as warnings")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "label layers with their codes")
	cmd.Flags().BoolVar(&opts.elements, "elements", false, "draw individual bars")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show solids and materials in the hierarchy")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "side view scale in pixels per mm")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "rebuild even if cached")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "j", opts.parallel, "concurrent builds")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "save reports to the archive")
	cmd.Flags().StringVar(&opts.storeDir, "store-dir", "", "archive directory (default ~/.local/share/calostack/geometries)")

	return cmd
}

func (o buildOpts) pipelineOptions(path string) pipeline.Options {
	return pipeline.Options{
		DescriptionPath: path,
		Detectors:       parseList(o.detectors),
		Permissive:      o.permissive,
		Refresh:         o.refresh,
		Formats:         parseFormats(o.formats),
		View:            o.view,
		Detector:        o.detector,
		Labels:          o.labels,
		Elements:        o.elements,
		Detailed:        o.detailed,
		Scale:           o.scale,
	}
}

func (c *CLI) runBuild(ctx context.Context, out io.Writer, inputs []string, opts buildOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	if opts.archive {
		st, err := c.newStore(ctx, opts.storeDir)
		if err != nil {
			return err
		}
		runner.Store = st
	}

	all := make([]pipeline.Options, len(inputs))
	for i, in := range inputs {
		all[i] = opts.pipelineOptions(in)
		all[i].Logger = c.Logger
		if err := all[i].ValidateAndSetDefaults(); err != nil {
			return err
		}
	}

	label := "Building " + plural(len(inputs), "description")
	start := time.Now()
	spinner := newSpinnerWithContext(ctx, label)
	restore := trackProgress(spinner, label)
	spinner.Start()
	results, err := runner.ExecuteAll(ctx, all, opts.parallel)
	spinner.Stop()
	restore()
	if err != nil {
		return err
	}
	logElapsed(c.Logger, start, "built descriptions", "count", len(inputs))

	con := newConsole(out)
	for i, res := range results {
		con.success("Built %s", inputs[i])
		con.stats(res.Report.Stats, res.CacheInfo.BuildHit)
		con.warnings(res.Report)
		paths, err := writeArtifacts(outputDir(opts.output, inputs[i], len(inputs) > 1), res.Artifacts)
		if err != nil {
			return err
		}
		con.files(paths)
		if opts.archive {
			con.detail("Archived as %s", res.Report.ID)
		}
	}

	con.hint("Browse the layers", fmt.Sprintf("%s inspect %s", appName, inputs[0]))
	return nil
}
