package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/pkg/detector"
	"github.com/matzehuels/calostack/pkg/stack"
)

func (c *CLI) codesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "codes [type]",
		Short: "List the layer codes of each detector type",
		Example: `  calostack codes
  calostack codes DD4hep_SandwichCalo`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: detector.Types(),
		RunE: func(cmd *cobra.Command, args []string) error {
			types := detector.Types()
			if len(args) == 1 {
				if _, ok := detector.Lookup(args[0]); !ok {
					return fmt.Errorf("unknown detector type %q", args[0])
				}
				types = args
			}
			return writeCodeTables(cmd.OutOrStdout(), types)
		},
	}
}

// writeCodeTables prints one table per detector type.
func writeCodeTables(w io.Writer, types []string) error {
	for i, typ := range types {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, StyleTitle.Render(typ))
		tbl, ok := detector.CodeTable(typ)
		if !ok {
			fmt.Fprintln(w, StyleDim.Render("  fixed layout, no layer codes"))
			continue
		}
		infos := tbl.Describe()
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(styleBorder).
			Headers("Code", "Layer", "Orientation", "Identifier", "Recentred").
			Rows(codeRows(infos)...).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == -1:
					return styleHeader
				case col == 0:
					return StyleNumber
				case col == 1:
					return kindStyle(infos[row].Kind)
				}
				return lipgloss.NewStyle()
			})
		fmt.Fprintln(w, t.Render())
	}
	return nil
}

func codeRows(infos []stack.CodeInfo) [][]string {
	var rows [][]string
	for _, info := range infos {
		recentred := ""
		if info.Recentre {
			recentred = iconSuccess
		}
		rows = append(rows, []string{
			info.Code,
			info.Label,
			strconv.Itoa(info.Orientation) + "°",
			string(info.Field),
			recentred,
		})
	}
	return rows
}
