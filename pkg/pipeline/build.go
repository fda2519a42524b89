package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/calostack/pkg/backend/memory"
	"github.com/matzehuels/calostack/pkg/cache"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/detector"
	"github.com/matzehuels/calostack/pkg/observability"
	"github.com/matzehuels/calostack/pkg/report"
)

// Build builds every detector of desc into a fresh in-memory backend and
// reports the result. data is the raw description the report is hashed by.
//
// The report carries no ID or creation time; the runner assigns those.
func Build(ctx context.Context, data []byte, desc *config.Description, opts Options) (*report.Geometry, error) {
	opts.SetBuildDefaults()
	hooks := observability.Build()
	hooks.OnBuildStart(ctx, len(desc.Detectors))
	start := time.Now()

	reg := memory.NewRegistry()
	w, err := detector.Build(ctx, reg, desc, detector.Options{
		Permissive: opts.Permissive,
		Logger:     opts.Logger,
	})
	if err != nil {
		hooks.OnBuildComplete(ctx, observability.BuildStats{}, time.Since(start), err)
		return nil, err
	}
	for _, d := range w.Detectors {
		hooks.OnDetectorBuilt(ctx, d.Name, d.Type, len(d.Plan.Layers), d.Duration)
	}

	g := report.New(w, reg)
	g.DescriptionHash = cache.Hash(data)
	hooks.OnBuildComplete(ctx, observability.BuildStats{
		Detectors:  g.Stats.Detectors,
		Layers:     g.Stats.Layers,
		Volumes:    g.Stats.Volumes,
		Placements: g.Stats.Placements,
	}, time.Since(start), nil)
	return g, nil
}
