// Package detector builds complete detectors from their descriptions.
//
// Each detector type has a [Constructor] registered under its type name.
// A constructor plans every sub-assembly and the layer stack first, which
// catches configuration and overflow errors before anything is placed, and
// only then materializes volumes in the backend.
//
// [Build] places every detector of a description into a world volume. When a
// detector fails, everything it created is rolled back (if the backend
// implements [backend.Checkpointer]) and detectors built before it are left
// untouched.
package detector

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/stack"
)

// Registered detector types.
const (
	TypeSplitCal     = "DD4hep_SplitCal"
	TypeSandwichCalo = "DD4hep_SandwichCalo"
	TypeLayerOfBars  = "DD4hep_LayerOfBars"
	TypeFibreTracker = "DD4hep_SHiP_HPL_Fibre_Tracker"
)

// DefaultWorldSize is the full edge length of the world cube used when a
// description has no world box, in mm.
const DefaultWorldSize = 20000.0

// Detector is a built detector.
type Detector struct {
	Name string
	Type string
	ID   int

	// Envelope is the detector's outer volume and EnvelopeBox its half-extents.
	Envelope    backend.VolumeRef
	EnvelopeBox geom.Box
	// Transform places the envelope in the world.
	Transform geom.Transform
	Placement backend.PlacementRef

	// Plan is the composed layer stack. Detectors without a stack have an
	// empty plan.
	Plan       stack.Plan
	Assemblies []*assembly.SubAssembly
	Warnings   []string
	Duration   time.Duration
}

// Assembly returns the sub-assembly of the given kind.
func (d *Detector) Assembly(kind assembly.Kind) (*assembly.SubAssembly, bool) {
	for _, sa := range d.Assemblies {
		if sa.Kind == kind {
			return sa, true
		}
	}
	return nil, false
}

// Context carries what a constructor needs to build one detector.
type Context struct {
	Backend    backend.Backend
	Mother     backend.VolumeRef
	Logger     *log.Logger
	Permissive bool
}

// Constructor builds one detector into c.Mother.
type Constructor func(c *Context, det *config.Detector) (*Detector, error)

var (
	registryMu   sync.RWMutex
	constructors = map[string]Constructor{
		TypeSplitCal:     BuildSplitCal,
		TypeSandwichCalo: BuildSandwich,
		TypeLayerOfBars:  BuildLayerOfBars,
		TypeFibreTracker: BuildFibreTracker,
	}
)

// Register adds or replaces the constructor for a detector type.
func Register(typ string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	constructors[typ] = c
}

// Lookup returns the constructor registered for typ.
func Lookup(typ string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := constructors[typ]
	return c, ok
}

// Types returns the registered type names, sorted.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CodeTable returns the layer code table a detector type composes its
// stack with. The fibre tracker stacks fixed rows and has no table.
func CodeTable(typ string) (stack.Table, bool) {
	switch typ {
	case TypeSplitCal:
		return stack.SplitCalTable, true
	case TypeSandwichCalo:
		return stack.SandwichTable, true
	case TypeLayerOfBars:
		return LayerOfBarsTable, true
	}
	return nil, false
}

// Options configure a world build.
type Options struct {
	// Permissive downgrades stack overflow errors to logged warnings.
	Permissive bool
	Logger     *log.Logger
}

// World is a built world volume with its detectors.
type World struct {
	Name      string
	Volume    backend.VolumeRef
	Box       geom.Box
	Detectors []*Detector
}

// Detector returns the built detector with the given name.
func (w *World) Detector(name string) (*Detector, bool) {
	for _, d := range w.Detectors {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Build creates the world volume and every detector of desc in order. It
// stops at the first failing detector and returns the world built so far
// together with the error. ctx is checked between detectors.
func Build(ctx context.Context, b backend.Backend, desc *config.Description, opts Options) (*World, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	box := geom.NewBox(DefaultWorldSize, DefaultWorldSize, DefaultWorldSize)
	if wb := desc.World.Box; wb != nil {
		box = geom.NewBox(wb.X, wb.Y, wb.Z)
	}
	vol, err := b.Volume(desc.World.Name, box, desc.World.Material)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	w := &World{Name: desc.World.Name, Volume: vol, Box: box}

	c := &Context{Backend: b, Mother: vol, Logger: logger, Permissive: opts.Permissive}
	for i := range desc.Detectors {
		if err := ctx.Err(); err != nil {
			return w, errors.Wrap(errors.ErrCodeTimeout, err, "build interrupted before %s", desc.Detectors[i].Name)
		}
		d, err := BuildDetector(c, &desc.Detectors[i])
		if err != nil {
			return w, err
		}
		w.Detectors = append(w.Detectors, d)
	}
	return w, nil
}

// BuildDetector runs the constructor for det.Type. On failure it rolls back
// everything the constructor created and returns an error attributed to
// the detector.
func BuildDetector(c *Context, det *config.Detector) (*Detector, error) {
	construct, ok := Lookup(det.Type)
	if !ok {
		return nil, errors.Configuration(det.Name, "type", "unknown detector type %q", det.Type)
	}

	cp, canRollback := c.Backend.(backend.Checkpointer)
	var mark int
	if canRollback {
		mark = cp.Checkpoint()
	}

	start := time.Now()
	d, err := construct(c, det)
	if err != nil {
		if canRollback {
			if rbErr := cp.Rollback(mark); rbErr != nil {
				c.Logger.Error("rollback failed", "detector", det.Name, "error", rbErr)
			}
		}
		return nil, errors.WithDetector(err, det.Name)
	}
	d.Duration = time.Since(start)
	c.Logger.Info("built detector", "name", d.Name, "type", d.Type,
		"layers", len(d.Plan.Layers), "thickness", d.Plan.Thickness(), "duration", d.Duration)
	return d, nil
}

// checkPlan validates the stack against the envelope. In permissive mode an
// overflow is logged and recorded as a warning.
func (c *Context) checkPlan(d *Detector, plan stack.Plan) error {
	err := plan.Validate(d.Name, d.EnvelopeBox.DZ)
	if err == nil {
		return nil
	}
	if c.Permissive && errors.Is(err, errors.ErrCodeGeometryOverflow) {
		c.Logger.Warn("stack overflows envelope", "detector", d.Name, "error", errors.UserMessage(err))
		d.Warnings = append(d.Warnings, errors.UserMessage(err))
		return nil
	}
	return err
}

// envelope creates the outer volume of det.
func (c *Context) envelope(det *config.Detector, box geom.Box) (backend.VolumeRef, error) {
	material := det.Box.Material
	if material == "" {
		material = "Air"
	}
	v, err := c.Backend.Volume(det.Name, box, material)
	if err != nil {
		return backend.VolumeRef{}, err
	}
	attrs := backend.Attributes{Region: det.Box.Region, Limits: det.Box.Limits, Vis: det.Box.Vis}
	if err := c.Backend.SetAttributes(v, attrs); err != nil {
		return backend.VolumeRef{}, err
	}
	return v, nil
}

// placeInMother places the envelope into the mother volume with the
// detector's rotation and position and stamps the system identifier.
func (c *Context) placeInMother(d *Detector, det *config.Detector) error {
	d.Transform = geom.Transform{Rotation: det.Rotation, Position: det.Position}
	pv, err := c.Backend.Place(c.Mother, d.Envelope, d.Transform)
	if err != nil {
		return err
	}
	if err := c.Backend.AddPhysVolID(pv, string(ident.System), det.ID); err != nil {
		return err
	}
	d.Placement = pv
	return nil
}

// placeLayers places one sub-assembly per planned layer.
func placeLayers(b *assembly.Builder, d *Detector, bykind map[assembly.Kind]*assembly.SubAssembly) error {
	for _, l := range d.Plan.Layers {
		sa, ok := bykind[l.Kind]
		if !ok {
			return errors.New(errors.ErrCodeInternal, "no %s built for layer %d", l.Kind, l.Index)
		}
		if _, err := b.Place(d.Envelope, sa, l.Transform(), l.Field, l.ID); err != nil {
			return err
		}
	}
	return nil
}

// startOffset resolves the start convention, falling back to def.
func startOffset(det *config.Detector, halfZ float64, def string) float64 {
	start := det.Start
	if start == "" {
		start = def
	}
	if start == config.StartFront {
		return -halfZ
	}
	return 0
}
