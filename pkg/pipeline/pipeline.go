// Package pipeline provides the geometry pipeline shared by the CLI and the
// HTTP API.
//
// # Architecture
//
// The pipeline has two stages:
//
//  1. Build: parse a TOML description, build every detector into an
//     in-memory backend and turn the result into a [report.Geometry]
//  2. Render: produce artifacts from the report (stack side views, the
//     volume hierarchy, the JSON report)
//
// Both stages are cached through [cache.Cache]. Builds are deterministic, so
// the build key only depends on the description bytes and the build options.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    DescriptionPath: "examples/splitcal.toml",
//	    Formats:         []string{"svg", "json"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["SplitCal.svg"]
//
// [report.Geometry]: github.com/matzehuels/calostack/pkg/report
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/calostack/pkg/cache"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/render"
	"github.com/matzehuels/calostack/pkg/report"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Views.
const (
	// ViewStack renders one x–z side view per detector.
	ViewStack = "stack"
	// ViewHierarchy renders the volume tree.
	ViewHierarchy = "hierarchy"
)

const (
	// DefaultView is the default rendered view.
	DefaultView = ViewStack

	// DefaultScale is the default side view scale in pixels per millimetre.
	DefaultScale = 1.0

	// DefaultPNGScale is the default PNG resolution multiplier.
	DefaultPNGScale = 2.0
)

// Format constants for output formats.
const (
	FormatSVG  = render.FormatSVG
	FormatPNG  = render.FormatPNG
	FormatPDF  = render.FormatPDF
	FormatDOT  = render.FormatDOT
	FormatJSON = render.FormatJSON
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// ValidViews is the set of supported views.
var ValidViews = map[string]bool{
	ViewStack:     true,
	ViewHierarchy: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the geometry pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Build options
	Description     string   `json:"description,omitempty"` // TOML text
	DescriptionPath string   `json:"-"`
	Detectors       []string `json:"detectors,omitempty"` // Build only these detectors
	Permissive      bool     `json:"permissive,omitempty"`
	Refresh         bool     `json:"refresh,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	View     string   `json:"view,omitempty"`
	Detector string   `json:"detector,omitempty"` // Limit rendering to one detector
	Labels   bool     `json:"labels,omitempty"`
	Elements bool     `json:"elements,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`
	Scale    float64  `json:"scale,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Report is the geometry report.
	Report *report.Geometry

	// Artifacts contains rendered outputs keyed by file name, e.g.
	// "SplitCal.svg", "hierarchy.dot" or "geometry.json".
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Detectors  int
	Layers     int
	Volumes    int
	Placements int
	BuildTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	BuildHit  bool // Whether the report came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: svg, png, pdf, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateView checks that a view is valid.
func ValidateView(view string) error {
	if !ValidViews[view] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid view: %q (must be one of: stack, hierarchy)", view)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForBuild checks required fields for building.
func (o *Options) ValidateForBuild() error {
	if o.Description == "" && o.DescriptionPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "description or description path is required")
	}
	if o.Description != "" && o.DescriptionPath != "" {
		return errors.New(errors.ErrCodeInvalidInput, "description and description path are mutually exclusive")
	}
	o.SetBuildDefaults()
	return nil
}

// SetBuildDefaults sets default values for building.
func (o *Options) SetBuildDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.View == "" {
		o.View = DefaultView
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateView(o.View); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.View == ViewStack && slices.Contains(o.Formats, FormatDOT) {
		return errors.New(errors.ErrCodeInvalidInput, "format dot is only available for the hierarchy view")
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must not be negative, got %g", o.Scale)
	}
	return nil
}

// LoadDescription returns the raw and parsed description.
func (o *Options) LoadDescription() ([]byte, *config.Description, error) {
	data := []byte(o.Description)
	if o.DescriptionPath != "" {
		var err error
		if data, err = config.ReadFile(o.DescriptionPath); err != nil {
			return nil, nil, err
		}
	}
	desc, err := config.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	if desc, err = selectDetectors(desc, o.Detectors); err != nil {
		return nil, nil, err
	}
	return data, desc, nil
}

// GeometryKeyOpts returns cache key options for building.
func (o *Options) GeometryKeyOpts() cache.GeometryKeyOpts {
	return cache.GeometryKeyOpts{
		Permissive: o.Permissive,
		Detectors:  o.Detectors,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Kind:     o.View,
		Detector: o.Detector,
		Labels:   o.Labels,
		Elements: o.Elements,
		Detailed: o.Detailed,
		Scale:    o.Scale,
	}
}

// selectDetectors restricts desc to the named detectors, keeping the
// description's order.
func selectDetectors(desc *config.Description, names []string) (*config.Description, error) {
	if len(names) == 0 {
		return desc, nil
	}
	for _, n := range names {
		if _, ok := desc.Detector(n); !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "no detector named %q (have %s)", n, detectorNames(desc))
		}
	}
	out := *desc
	out.Detectors = nil
	for _, d := range desc.Detectors {
		if slices.Contains(names, d.Name) {
			out.Detectors = append(out.Detectors, d)
		}
	}
	return &out, nil
}

func detectorNames(desc *config.Description) string {
	names := make([]string, len(desc.Detectors))
	for i, d := range desc.Detectors {
		names[i] = d.Name
	}
	return fmt.Sprintf("[%s]", strings.Join(names, ", "))
}
