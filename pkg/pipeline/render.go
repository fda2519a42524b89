package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/observability"
	"github.com/matzehuels/calostack/pkg/render"
	"github.com/matzehuels/calostack/pkg/render/hierarchy"
	"github.com/matzehuels/calostack/pkg/render/sink"
	"github.com/matzehuels/calostack/pkg/report"
)

// ReportArtifact is the artifact name of the JSON report.
const ReportArtifact = "geometry.json"

// ArtifactName returns the file name of an artifact. Stack views are named
// after their detector, hierarchy views "hierarchy".
func ArtifactName(view, detector, format string) string {
	if format == FormatJSON {
		return ReportArtifact
	}
	if view == ViewHierarchy {
		return "hierarchy." + format
	}
	return detector + "." + format
}

// Render generates artifacts for g in the requested formats and view.
func Render(ctx context.Context, g *report.Geometry, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	hooks := observability.Build()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	var (
		artifacts map[string][]byte
		err       error
	)
	if opts.View == ViewHierarchy {
		artifacts, err = renderHierarchy(ctx, g, opts)
	} else {
		artifacts, err = renderStacks(g, opts)
	}
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

// renderStacks renders one side view per detector.
func renderStacks(g *report.Geometry, opts Options) (map[string][]byte, error) {
	dets := g.Detectors
	if opts.Detector != "" {
		d, ok := g.Detector(opts.Detector)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "no detector named %q in report", opts.Detector)
		}
		dets = []report.Detector{*d}
	}

	svgOpts := buildSVGOptions(opts)
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		if format == FormatJSON {
			data, err := report.Marshal(g)
			if err != nil {
				return nil, err
			}
			artifacts[ReportArtifact] = data
			continue
		}
		for _, d := range dets {
			data, err := sink.Export(d, format, DefaultPNGScale, svgOpts...)
			if err != nil {
				return nil, fmt.Errorf("render %s %s: %w", d.Name, format, err)
			}
			artifacts[ArtifactName(ViewStack, d.Name, format)] = data
		}
	}
	return artifacts, nil
}

// renderHierarchy renders the volume tree once.
func renderHierarchy(ctx context.Context, g *report.Geometry, opts Options) (map[string][]byte, error) {
	dot := hierarchy.ToDOT(g, hierarchy.Options{Detailed: opts.Detailed, Detector: opts.Detector})

	var svg []byte
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		if (format == FormatSVG || format == FormatPNG || format == FormatPDF) && svg == nil {
			if svg, err = hierarchy.RenderSVG(ctx, dot); err != nil {
				return nil, fmt.Errorf("render hierarchy: %w", err)
			}
		}
		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data = svg
		case FormatPNG:
			data, err = render.ToPNG(svg, DefaultPNGScale)
		case FormatPDF:
			data, err = render.ToPDF(svg)
		case FormatJSON:
			data, err = report.Marshal(g)
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "unsupported hierarchy format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render hierarchy %s: %w", format, err)
		}
		artifacts[ArtifactName(ViewHierarchy, "", format)] = data
	}
	return artifacts, nil
}

// buildSVGOptions builds side view options.
func buildSVGOptions(opts Options) []sink.SVGOption {
	svgOpts := []sink.SVGOption{sink.WithScale(opts.Scale)}
	if opts.Labels {
		svgOpts = append(svgOpts, sink.WithLabels())
	}
	if opts.Elements {
		svgOpts = append(svgOpts, sink.WithElements())
	}
	return svgOpts
}
