package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/calostack/pkg/buildinfo"
	"github.com/matzehuels/calostack/pkg/cache"
	"github.com/matzehuels/calostack/pkg/observability"
	"github.com/matzehuels/calostack/pkg/pipeline"
	"github.com/matzehuels/calostack/pkg/store"
	"github.com/matzehuels/calostack/pkg/store/mongo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "calostack"

	// envRedisAddr selects a shared Redis cache instead of the file cache.
	envRedisAddr = "CALOSTACK_REDIS_ADDR"

	// envMongoURI selects the MongoDB report archive.
	envMongoURI = "CALOSTACK_MONGO_URI"

	// envCachePrefix scopes cache keys, for deployments sharing one Redis.
	envCachePrefix = "CALOSTACK_CACHE_PREFIX"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// redisAddr, mongoURI and cachePrefix are bound to persistent flags.
	redisAddr   string
	mongoURI    string
	cachePrefix string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:    newLogger(w, level),
		redisAddr:   os.Getenv(envRedisAddr),
		mongoURI:    os.Getenv(envMongoURI),
		cachePrefix: os.Getenv(envCachePrefix),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Calostack composes layered calorimeter and tracker geometry",
		Long: `Calostack builds segmented calorimeter and tracker geometries from TOML
descriptions. A layer code string like "1212772" selects, layer by layer,
which sub-assembly is stacked along the beam axis; calostack places the
layers, assigns readout identifiers and reports the resulting volume tree.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.SetBuildHooks(observability.NewLogBuildHooks(c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.redisAddr, "redis", c.redisAddr, "Redis address for a shared cache (env "+envRedisAddr+")")
	root.PersistentFlags().StringVar(&c.mongoURI, "mongo", c.mongoURI, "MongoDB URI for the report archive (env "+envMongoURI+")")
	root.PersistentFlags().StringVar(&c.cachePrefix, "cache-prefix", c.cachePrefix, "prefix for cache keys (env "+envCachePrefix+")")

	// Register all subcommands
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.codesCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.decodeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, c.keyer(), c.Logger), nil
}

// keyer returns the cache keyer, scoped when a prefix is configured.
func (c *CLI) keyer() cache.Keyer {
	if c.cachePrefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.cachePrefix)
}

// newCache picks the Redis cache when an address is configured, else the
// file cache. An unreachable Redis falls back to the file cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if c.redisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.redisAddr})
		if err == nil {
			return rc, nil
		}
		c.Logger.Warn("redis unavailable, using file cache", "addr", c.redisAddr, "error", err)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore opens the report archive: MongoDB when a URI is configured,
// otherwise the file store under dir (the default location when empty).
func (c *CLI) newStore(ctx context.Context, dir string) (store.Store, error) {
	if c.mongoURI != "" {
		return mongo.NewStore(ctx, mongo.Config{URI: c.mongoURI})
	}
	return store.NewFileStore(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory ($XDG_CACHE_HOME/calostack or the
// user cache directory).
func cacheDir() (string, error) {
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseList parses a comma-separated flag value into a slice.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if f := parseList(s); len(f) > 0 {
		return f
	}
	return []string{pipeline.FormatSVG}
}
