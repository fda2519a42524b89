package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/internal/server"
	"github.com/matzehuels/calostack/pkg/store"
)

type serveOpts struct {
	addr     string
	storeDir string
	memory   bool
	noCache  bool
	maxBody  int64
}

func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{
		addr:    ":8080",
		maxBody: server.DefaultMaxBodyBytes,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build pipeline over HTTP",
		Long: `Serve the geometry API. Reports are archived in MongoDB when --mongo is
set, otherwise in the file store (or in memory with --memory).`,
		Example: `  calostack serve --addr :9000
  calostack serve --mongo mongodb://localhost:27017 --redis localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.storeDir, "store-dir", "", "archive directory")
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "keep reports in memory only")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", opts.maxBody, "maximum description size in bytes")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, out io.Writer, opts serveOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var st store.Store = store.NewMemory()
	if !opts.memory {
		if st, err = c.newStore(ctx, opts.storeDir); err != nil {
			return err
		}
	}
	defer st.Close()

	srv, err := server.New(server.Config{
		Runner:       runner,
		Store:        st,
		Logger:       c.Logger,
		MaxBodyBytes: opts.maxBody,
	})
	if err != nil {
		return err
	}
	newConsole(out).info("Serving on %s", StyleHighlight.Render(opts.addr))
	return srv.ListenAndServe(ctx, opts.addr)
}
