package assembly

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
)

// Builder materializes plans in a backend. Volume names are prefixed with
// the detector name so several detectors can share one backend.
//
// A Builder belongs to one detector build and is not safe for concurrent use.
type Builder struct {
	Backend backend.Backend
	IDs     *ident.Registry
	Prefix  string
	Logger  *log.Logger

	elements map[string]backend.VolumeRef
}

// NewBuilder creates a builder for the named detector.
func NewBuilder(b backend.Backend, prefix string, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Builder{
		Backend:  b,
		IDs:      ident.NewRegistry(),
		Prefix:   prefix,
		Logger:   logger,
		elements: make(map[string]backend.VolumeRef),
	}
}

// VolumeName returns the backend name for a local volume name.
func (b *Builder) VolumeName(name string) string {
	if b.Prefix == "" {
		return name
	}
	return b.Prefix + "_" + name
}

// Row materializes a row plan. Element identifiers are drawn from seq, so
// rows sharing a Sequence continue each other's numbering. An empty plan
// returns an empty sub-assembly without touching the backend.
func (b *Builder) Row(p RowPlan, seq *ident.Sequence) (*SubAssembly, error) {
	s := p.Spec
	sa := &SubAssembly{Name: b.VolumeName(s.Name), Kind: s.Kind, Field: s.Field}
	if p.Empty() {
		b.Logger.Debug("empty sub-assembly", "name", sa.Name)
		return sa, nil
	}

	elem, err := b.element(s.Element, s.Tolerance)
	if err != nil {
		return nil, err
	}
	mod, err := b.Backend.Volume(sa.Name, s.Envelope, s.Material)
	if err != nil {
		return nil, err
	}
	if err := b.Backend.SetAttributes(mod, s.Attrs); err != nil {
		return nil, err
	}
	sa.Volume = mod
	sa.Envelope = s.Envelope

	for _, x := range p.Centers {
		id := seq.Next()
		t := geom.Transform{Rotation: s.ElementRotation, Position: geom.V(x, 0, 0)}
		pv, err := b.place(mod, elem, t, s.Field, id)
		if err != nil {
			return nil, err
		}
		sa.Elements = append(sa.Elements, Element{ID: id, Position: t.Position, Rotation: t.Rotation, Placement: pv})
	}
	b.Logger.Debug("built sub-assembly", "name", sa.Name, "kind", sa.Kind, "elements", len(sa.Elements))
	return sa, nil
}

// FibreModule materializes a fibre module plan: one full and one staggered
// row volume, placed alternately along z.
func (b *Builder) FibreModule(p FibreModulePlan) (*SubAssembly, error) {
	s := p.Spec
	sa := &SubAssembly{Name: b.VolumeName(s.Name), Kind: KindFibreModule, Field: s.RowField}
	if p.Empty() {
		b.Logger.Debug("empty sub-assembly", "name", sa.Name)
		return sa, nil
	}

	fullSeq := ident.NewSequence(0)
	full, err := b.fibreRow(p.Full, s, fullSeq)
	if err != nil {
		return nil, err
	}
	staggeredSeq := ident.NewSequence(0)
	if s.ContinueFibreIndex {
		staggeredSeq = fullSeq
	}
	staggered, err := b.fibreRow(p.Staggered, s, staggeredSeq)
	if err != nil {
		return nil, err
	}

	mod, err := b.Backend.Volume(sa.Name, s.Envelope, s.Material)
	if err != nil {
		return nil, err
	}
	if err := b.Backend.SetAttributes(mod, s.Attrs); err != nil {
		return nil, err
	}
	sa.Volume = mod
	sa.Envelope = s.Envelope
	sa.Children = []*SubAssembly{full, staggered}

	for iz, z := range p.RowZ {
		row := full
		if iz%2 == 1 {
			row = staggered
		}
		if row.Empty() {
			continue
		}
		t := geom.Translation(geom.V(0, 0, z))
		pv, err := b.place(mod, row.Volume, t, s.rowField(iz), iz)
		if err != nil {
			return nil, err
		}
		sa.Elements = append(sa.Elements, Element{ID: iz, Position: t.Position, Placement: pv})
	}
	b.Logger.Debug("built fibre module", "name", sa.Name,
		"rows", len(sa.Elements), "full", len(full.Elements), "staggered", len(staggered.Elements))
	return sa, nil
}

func (b *Builder) fibreRow(p RowPlan, s FibreModuleSpec, seq *ident.Sequence) (*SubAssembly, error) {
	sa, err := b.Row(p, seq)
	if err != nil || s.Core == nil || sa.Empty() {
		return sa, err
	}
	return sa, b.fillCore(s.Fibre, *s.Core, s.Tolerance)
}

// fillCore places the core inside the fibre cladding volume once.
func (b *Builder) fillCore(fibre, core ElementSpec, tol float64) error {
	clad, ok := b.elements[fibre.Name]
	if !ok {
		return nil
	}
	coreName := b.VolumeName(core.Name)
	if _, done := b.elements[core.Name]; done {
		return nil
	}
	cv, err := b.element(core, tol)
	if err != nil {
		return err
	}
	if _, err := b.Backend.Place(clad, cv, geom.Transform{}); err != nil {
		return errors.Wrap(errors.ErrCodeBackend, err, "place %s", coreName)
	}
	return nil
}

// Slab materializes a single-volume sub-assembly such as a passive plate or
// a mechanical split.
func (b *Builder) Slab(name string, kind Kind, e ElementSpec, tol float64) (*SubAssembly, error) {
	e.Name = name
	v, err := b.element(e, tol)
	if err != nil {
		return nil, err
	}
	return &SubAssembly{
		Name:     b.VolumeName(name),
		Kind:     kind,
		Volume:   v,
		Envelope: geom.Box{DX: e.HalfX, DY: e.HalfY, DZ: e.HalfZ},
	}, nil
}

// element returns the volume for e, creating it on first use.
func (b *Builder) element(e ElementSpec, tol float64) (backend.VolumeRef, error) {
	if v, ok := b.elements[e.Name]; ok {
		return v, nil
	}
	v, err := b.Backend.Volume(b.VolumeName(e.Name), e.Solid(tol), e.Material)
	if err != nil {
		return backend.VolumeRef{}, err
	}
	if err := b.Backend.SetAttributes(v, e.Attributes()); err != nil {
		return backend.VolumeRef{}, err
	}
	if e.Sensitive {
		sens := e.SensitiveType
		if sens == "" {
			sens = backend.SensitiveCalorimeter
		}
		if err := b.Backend.SetSensitive(v, sens); err != nil {
			return backend.VolumeRef{}, err
		}
	}
	b.elements[e.Name] = v
	return v, nil
}

// place puts child in parent, claims the identifier and records it.
func (b *Builder) place(parent, child backend.VolumeRef, t geom.Transform, field ident.Field, id int) (backend.PlacementRef, error) {
	if err := b.IDs.Claim(parent.Name, field, id); err != nil {
		return backend.PlacementRef{}, err
	}
	pv, err := b.Backend.Place(parent, child, t)
	if err != nil {
		return backend.PlacementRef{}, err
	}
	if err := b.Backend.AddPhysVolID(pv, string(field), id); err != nil {
		return backend.PlacementRef{}, err
	}
	return pv, nil
}

// Place puts a sub-assembly into parent at t with one identifier.
// Empty sub-assemblies are skipped and return a zero PlacementRef.
func (b *Builder) Place(parent backend.VolumeRef, sa *SubAssembly, t geom.Transform, field ident.Field, id int) (backend.PlacementRef, error) {
	if sa.Empty() {
		return backend.PlacementRef{}, nil
	}
	return b.place(parent, sa.Volume, t, field, id)
}
