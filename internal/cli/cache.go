package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/pkg/cache"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local build cache",
		Long: `Manage the file cache of built reports and rendered drawings. A shared
Redis cache selected with --redis expires on its own and is not touched.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove all cached reports and drawings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				con := newConsole(cmd.OutOrStdout())
				fc, err := openFileCache()
				if err != nil {
					return err
				}
				if fc == nil {
					con.info("Cache is empty")
					return nil
				}
				n, err := fc.Clear()
				if err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				con.success("Cleared %s", plural(n, "entry"))
				con.detail("Directory: %s", fc.Dir())
				return nil
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show the number and size of cached entries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				con := newConsole(cmd.OutOrStdout())
				fc, err := openFileCache()
				if err != nil {
					return err
				}
				if fc == nil {
					con.info("Cache is empty")
					return nil
				}
				n, size, err := fc.Usage()
				if err != nil {
					return fmt.Errorf("read cache: %w", err)
				}
				con.info("%s, %s", plural(n, "entry"), formatBytes(size))
				con.detail("Directory: %s", fc.Dir())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := cacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), dir)
				return nil
			},
		},
	)
	return cmd
}

// openFileCache opens the default file cache. It returns nil without error
// when the directory does not exist yet.
func openFileCache() (*cache.FileCache, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, fmt.Errorf("get cache dir: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return cache.NewFileCache(dir)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
