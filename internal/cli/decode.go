package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/report"
)

type decodeOpts struct {
	id       string
	storeDir string
	root     string
	detector string
	key      int64
	hasKey   bool
}

func (c *CLI) decodeCommand() *cobra.Command {
	var opts decodeOpts

	cmd := &cobra.Command{
		Use:   "decode [geometry.json] field=value[,field=value]...",
		Short: "Resolve a readout identifier chain to its volume path",
		Long: `Resolve a chain of identifiers, outermost first, against a report.

Each argument is one placement step; a step may require several fields,
separated by commas. The first step is matched against the children of the
world volume.

With --key, a packed layer/element key of one detector is resolved instead
of a chain.`,
		Example: `  calostack decode geometry.json system=9 splitcal_layer=3 splitcal_bar=1
  calostack decode --id 6f1c... system=2 layer=0 slice=4
  calostack decode geometry.json --detector SplitCal --key 12884901889`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if opts.id == "" {
				if len(args) == 0 {
					return fmt.Errorf("a geometry report or --id is required")
				}
				path, args = args[0], args[1:]
			}
			opts.hasKey = cmd.Flags().Changed("key")
			return c.runDecode(cmd.Context(), cmd.OutOrStdout(), path, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.id, "id", "", "decode against an archived report")
	cmd.Flags().StringVar(&opts.storeDir, "store-dir", "", "archive directory")
	cmd.Flags().StringVar(&opts.root, "root", "", "volume to start from (default: the world)")
	cmd.Flags().StringVar(&opts.detector, "detector", "", "detector the --key belongs to")
	cmd.Flags().Int64Var(&opts.key, "key", 0, "packed layer/element key to resolve")

	return cmd
}

func (c *CLI) runDecode(ctx context.Context, w io.Writer, path string, args []string, opts decodeOpts) error {
	var chain [][]ident.Value
	if opts.hasKey {
		if opts.detector == "" {
			return fmt.Errorf("--key needs --detector")
		}
		if len(args) > 0 {
			return fmt.Errorf("--key cannot be combined with an identifier chain")
		}
	} else {
		var err error
		if chain, err = parseChain(args); err != nil {
			return err
		}
	}
	g, err := c.fetchReport(ctx, path, opts.id, opts.storeDir)
	if err != nil {
		return err
	}
	root := opts.root
	if root == "" {
		root = g.World.Name
	}

	var nodes []ident.Node
	if opts.hasKey {
		root = g.World.Name
		nodes, err = g.ResolveKey(opts.detector, opts.key)
	} else {
		nodes, err = g.Decoder().Resolve(root, chain)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, StyleValue.Render(root))
	for depth, n := range nodes {
		fmt.Fprintf(w, "%s%s %s %s\n",
			strings.Repeat("  ", depth),
			StyleDim.Render(iconArrow),
			StyleHighlight.Render(n.Volume),
			StyleDim.Render(formatValues(n.Values)))
	}
	if key, ok := report.PathKey(nodes); ok && root == g.World.Name {
		fmt.Fprintf(w, "%s %s %s\n", StyleDim.Render("key"),
			StyleNumber.Render(fmt.Sprint(key)), StyleDim.Render("("+ident.Decode(key).String()+")"))
	}
	return nil
}

// parseChain parses one step per argument.
func parseChain(args []string) ([][]ident.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one identifier step is required")
	}
	chain := make([][]ident.Value, 0, len(args))
	for _, arg := range args {
		var step []ident.Value
		for _, part := range parseList(arg) {
			v, err := ident.ParseValue(part)
			if err != nil {
				return nil, err
			}
			step = append(step, v)
		}
		if len(step) == 0 {
			return nil, fmt.Errorf("empty identifier step %q", arg)
		}
		chain = append(chain, step)
	}
	return chain, nil
}

func formatValues(vs []ident.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
