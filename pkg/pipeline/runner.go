package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/calostack/pkg/cache"
	"github.com/matzehuels/calostack/pkg/observability"
	"github.com/matzehuels/calostack/pkg/report"
	"github.com/matzehuels/calostack/pkg/store"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its cache, store and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// Store, when set, archives every report returned by Execute.
	Store store.Store

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Execute runs the complete build → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Build
	buildStart := time.Now()
	g, buildHit, err := r.BuildWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Report = g
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Detectors = g.Stats.Detectors
	result.Stats.Layers = g.Stats.Layers
	result.Stats.Volumes = g.Stats.Volumes
	result.Stats.Placements = g.Stats.Placements
	result.CacheInfo.BuildHit = buildHit

	r.Logger.Info("built geometry",
		"id", g.ID,
		"detectors", g.Stats.Detectors,
		"layers", g.Stats.Layers,
		"volumes", g.Stats.Volumes,
		"cached", buildHit,
		"duration", result.Stats.BuildTime)

	if r.Store != nil {
		if err := r.Store.Save(ctx, g); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"view", opts.View,
		"artifacts", len(artifacts),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ExecuteAll runs Execute for every option set, at most parallel at a time
// (unbounded when parallel <= 0). Results are returned in input order. The
// first failure cancels the remaining runs.
func (r *Runner) ExecuteAll(ctx context.Context, all []Options, parallel int) ([]*Result, error) {
	results := make([]*Result, len(all))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := range all {
		g.Go(func() error {
			res, err := r.Execute(gctx, all[i])
			if err != nil {
				name := all[i].DescriptionPath
				if name == "" {
					name = fmt.Sprintf("description %d", i)
				}
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BuildWithCacheInfo builds the report with caching and returns cache hit info.
// A fresh build gets a new ID and creation time; a cached report keeps the
// ones it was stored with.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, opts Options) (*report.Geometry, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForBuild(); err != nil {
		return nil, false, err
	}

	data, desc, err := opts.LoadDescription()
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.GeometryKey(cache.Hash(data), opts.GeometryKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if cached, hit := r.cacheGet(ctx, cacheKey, "geometry"); hit {
			g, err := report.Unmarshal(cached)
			if err == nil {
				return g, true, nil
			}
			r.Logger.Warn("dropping cached report", "error", fmt.Errorf("%w: %v", cache.ErrCorrupt, err))
			_ = r.Cache.Delete(ctx, cacheKey)
		}
	}

	g, err := Build(ctx, data, desc, opts)
	if err != nil {
		return nil, false, err
	}
	g.ID = r.newID()
	g.CreatedAt = r.now().UTC()

	if encoded, err := report.Marshal(g); err == nil {
		r.cacheSet(ctx, cacheKey, "geometry", encoded, cache.TTLGeometry)
	}
	return g, false, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, opts Options) (*report.Geometry, error) {
	g, _, err := r.BuildWithCacheInfo(ctx, opts)
	return g, err
}

// RenderWithCacheInfo renders artifacts with caching and returns cache hit info.
// Artifacts are cached per format under a key derived from the report's
// description hash and detector selection. The JSON report carries the
// build ID, so it is always encoded from g and never cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *report.Geometry, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	reportKey := renderKey(g)
	artifacts := make(map[string][]byte)
	allCached := !opts.Refresh && slices.ContainsFunc(opts.Formats, func(f string) bool { return f != FormatJSON })
	for _, format := range opts.Formats {
		if !allCached {
			break
		}
		if format == FormatJSON {
			continue
		}
		data, hit := r.cacheGet(ctx, r.Keyer.ArtifactKey(reportKey, opts.ArtifactKeyOpts(format)), "artifact")
		if !hit {
			allCached = false
			break
		}
		var byName map[string][]byte
		if err := json.Unmarshal(data, &byName); err != nil {
			allCached = false
			break
		}
		for name, a := range byName {
			artifacts[name] = a
		}
	}
	if allCached {
		if slices.Contains(opts.Formats, FormatJSON) {
			data, err := report.Marshal(g)
			if err != nil {
				return nil, false, err
			}
			artifacts[ReportArtifact] = data
		}
		return artifacts, true, nil
	}

	artifacts = make(map[string][]byte)
	for _, format := range opts.Formats {
		one := opts
		one.Formats = []string{format}
		rendered, err := Render(ctx, g, one)
		if err != nil {
			return nil, false, err
		}
		if format != FormatJSON {
			if data, err := json.Marshal(rendered); err == nil {
				r.cacheSet(ctx, r.Keyer.ArtifactKey(reportKey, opts.ArtifactKeyOpts(format)), "artifact", data, cache.TTLArtifact)
			}
		}
		for name, a := range rendered {
			artifacts[name] = a
		}
	}
	return artifacts, false, nil
}

// renderKey identifies the drawable content of g: the description it was
// built from and the detectors it contains.
func renderKey(g *report.Geometry) string {
	names := make([]string, len(g.Detectors))
	for i, d := range g.Detectors {
		names[i] = d.Name
	}
	return cache.Hash([]byte(g.DescriptionHash + "|" + strings.Join(names, ",")))
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *report.Geometry, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return artifacts, err
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// cacheGet reads key, treating cache failures as misses.
func (r *Runner) cacheGet(ctx context.Context, key, keyType string) ([]byte, bool) {
	var (
		data []byte
		hit  bool
	)
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, hit, err = r.Cache.Get(ctx, key)
		return err
	})
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "error", err)
		return nil, false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType)
	}
	return data, hit
}

// cacheSet writes key, logging failures.
func (r *Runner) cacheSet(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	err := cache.RetryWithBackoff(ctx, func() error {
		return r.Cache.Set(ctx, key, data, ttl)
	})
	if err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
