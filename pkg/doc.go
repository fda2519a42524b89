// Package pkg provides the core libraries for calostack layered detector geometry.
//
// # Overview
//
// calostack turns a TOML detector description into a placed volume hierarchy:
// segmented calorimeters and fibre trackers built from stacked layers, with
// every sensitive element carrying a packed identifier. The pkg directory is
// organized into four main areas:
//
//  1. Geometry primitives ([geom], [ident], [backend]) - solids, transforms,
//     identifier encoding and the volume backend contract
//  2. Composition ([assembly], [stack], [detector]) - sub-assembly rows,
//     layer-code stacking and the four detector types
//  3. Infrastructure ([config], [cache], [store], [observability]) - description
//     loading, artifact caching, archived builds and hooks
//  4. Orchestration ([pipeline], [report], [render]) - load, build, render
//
// # Architecture
//
// The typical data flow:
//
//	TOML description
//	       ↓
//	  [config] package (decode + validate)
//	       ↓
//	  [detector] package (plan layers via [stack], fill rows via [assembly])
//	       ↓
//	  [backend] (materialize volumes and placements)
//	       ↓
//	  [report] (geometry summary) → [render] (SVG/PDF/PNG/DOT/JSON)
//
// # Quick Start
//
// Build every detector of a description into an in-memory backend:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/calostack/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Execute(context.Background(), pipeline.Options{
//	    DescriptionPath: "examples/sandwich.toml",
//	    Formats:         []string{pipeline.FormatSVG, pipeline.FormatJSON},
//	})
//
// Or compose a stack by hand:
//
//	plan, err := stack.Compose("1272", stack.SandwichTable, dims, stack.Options{Detector: "Cal"})
//
// # Layer Codes
//
// Detector stacks are described by strings over the digits 1 to 8. Each code
// names a sub-assembly kind and its orientation; see [stack] for the table
// semantics and [detector] for the per-detector code tables.
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/geom
// [ident]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/ident
// [backend]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/backend
// [assembly]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/assembly
// [stack]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/stack
// [detector]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/detector
// [config]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/pipeline
// [report]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/report
// [render]: https://pkg.go.dev/github.com/matzehuels/calostack/pkg/render
package pkg
