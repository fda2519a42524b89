package assembly

import (
	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
)

// RowSpec describes a one-layer module: Row.Count copies of Element inside
// an Envelope box.
type RowSpec struct {
	Name     string
	Kind     Kind
	Element  ElementSpec
	Row      Row
	Envelope geom.Box
	Material string
	Attrs    backend.Attributes

	// ElementRotation is applied to every copy, e.g. to lay a tube along y.
	ElementRotation geom.Rotation
	// Field names the identifier stamped on each copy.
	Field ident.Field
	// Tolerance shrinks the element solid on every side.
	Tolerance float64
	// Attribute is the description attribute reported in errors.
	Attribute string
}

// RowPlan is a checked RowSpec with its element centres.
type RowPlan struct {
	Spec    RowSpec
	Centers []float64
}

// Empty reports whether the plan places nothing.
func (p RowPlan) Empty() bool { return len(p.Centers) == 0 }

// HalfThickness is the module half-thickness, zero for an empty plan.
func (p RowPlan) HalfThickness() float64 {
	if p.Empty() {
		return 0
	}
	return p.Spec.Envelope.DZ
}

// Plan checks the spec and computes element centres. It touches no backend.
//
// A zero count yields an empty plan. A negative count or a non-positive
// pitch is a CONFIGURATION error; an element that sticks out of the
// envelope is a GEOMETRY_OVERFLOW error.
func (s RowSpec) Plan(detector string) (RowPlan, error) {
	attr := s.Attribute
	if attr == "" {
		attr = s.Name
	}
	if err := errors.ValidateCount(detector, attr+".num_x", s.Row.Count); err != nil {
		return RowPlan{}, err
	}
	if s.Row.Count == 0 {
		return RowPlan{Spec: s}, nil
	}
	if !(s.Row.Pitch > 0) {
		return RowPlan{}, errors.Configuration(detector, attr, "pitch must be positive, got %g", s.Row.Pitch)
	}
	if err := s.Envelope.Validate(); err != nil {
		return RowPlan{}, errors.Configuration(detector, attr, "module envelope: %v", err)
	}

	half := rotatedHalf(s.ElementRotation, elementHalf(s.Element))
	if half.Z > s.Envelope.DZ+fitEps {
		return RowPlan{}, errors.Overflow(detector,
			"%s: element half-thickness %g exceeds module half-thickness %g", s.Name, half.Z, s.Envelope.DZ)
	}
	centers := make([]float64, s.Row.Count)
	for i := range centers {
		c := s.Row.Center(i)
		if c-half.X < -s.Envelope.DX-fitEps || c+half.X > s.Envelope.DX+fitEps {
			return RowPlan{}, errors.Overflow(detector,
				"%s: element %d spans [%g, %g], outside module half-width %g",
				s.Name, i, c-half.X, c+half.X, s.Envelope.DX)
		}
		centers[i] = c
	}
	return RowPlan{Spec: s, Centers: centers}, nil
}

// FibreModuleSpec describes a fibre module: Layers rows of fibres stacked
// along z inside Envelope.
type FibreModuleSpec struct {
	Name     string
	Fibre    ElementSpec
	Core     *ElementSpec
	Count    int
	Layers   int
	Envelope geom.Box
	Material string
	Attrs    backend.Attributes

	FibreRotation geom.Rotation
	Tolerance     float64

	// FibreField is stamped on fibres inside a row. RowField and
	// StaggeredRowField are stamped on the rows inside the module.
	FibreField        ident.Field
	RowField          ident.Field
	StaggeredRowField ident.Field

	// ContinueFibreIndex numbers the staggered row after the full row
	// instead of restarting at zero.
	ContinueFibreIndex bool

	Attribute string
}

// FibreModulePlan is a checked FibreModuleSpec.
type FibreModulePlan struct {
	Spec      FibreModuleSpec
	Full      RowPlan
	Staggered RowPlan
	RowZ      []float64
}

// Empty reports whether the module holds no rows.
func (p FibreModulePlan) Empty() bool { return len(p.RowZ) == 0 }

// HalfThickness is the module half-thickness, zero for an empty plan.
func (p FibreModulePlan) HalfThickness() float64 {
	if p.Empty() {
		return 0
	}
	return p.Spec.Envelope.DZ
}

// RowPitch is the distance between consecutive rows.
func (s FibreModuleSpec) RowPitch() float64 {
	return 2*s.Fibre.RMax + 2*s.Tolerance
}

// Plan checks the spec and computes row positions. It touches no backend.
func (s FibreModuleSpec) Plan(detector string) (FibreModulePlan, error) {
	attr := s.Attribute
	if attr == "" {
		attr = s.Name
	}
	if err := errors.ValidateCount(detector, attr+".n_fibre_layers", s.Layers); err != nil {
		return FibreModulePlan{}, err
	}
	if err := errors.ValidateCount(detector, attr+".num_x", s.Count); err != nil {
		return FibreModulePlan{}, err
	}
	if s.Layers == 0 || s.Count == 0 {
		return FibreModulePlan{Spec: s}, nil
	}
	pitch := s.RowPitch()
	if !(pitch > 0) {
		return FibreModulePlan{}, errors.Configuration(detector, attr+".rmax", "fibre pitch must be positive, got %g", pitch)
	}
	if need := float64(s.Layers) * pitch; need > 2*s.Envelope.DZ+fitEps {
		return FibreModulePlan{}, errors.Overflow(detector,
			"%s: %d fibre rows need %g, module thickness is %g", s.Name, s.Layers, need, 2*s.Envelope.DZ)
	}

	rowBox := geom.Box{DX: s.Envelope.DX, DY: s.Envelope.DY, DZ: pitch / 2}
	row := func(name string, staggered bool, field ident.Field) (RowPlan, error) {
		return RowSpec{
			Name:            name,
			Kind:            KindFibreRow,
			Element:         s.Fibre,
			Row:             FibreRow(s.Count, s.Envelope.DX, s.Fibre.RMax, s.Tolerance, staggered),
			Envelope:        rowBox,
			Material:        s.Material,
			ElementRotation: s.FibreRotation,
			Field:           field,
			Tolerance:       s.Tolerance,
			Attribute:       attr,
		}.Plan(detector)
	}
	full, err := row(s.Name+"_row_full", false, s.FibreField)
	if err != nil {
		return FibreModulePlan{}, err
	}
	staggered, err := row(s.Name+"_row_staggered", true, s.FibreField)
	if err != nil {
		return FibreModulePlan{}, err
	}

	rowZ := make([]float64, s.Layers)
	for iz := range rowZ {
		rowZ[iz] = -s.Envelope.DZ + (float64(iz)+0.5)*pitch
	}
	return FibreModulePlan{Spec: s, Full: full, Staggered: staggered, RowZ: rowZ}, nil
}

// rowField returns the identifier field of row iz.
func (s FibreModuleSpec) rowField(iz int) ident.Field {
	if iz%2 == 1 && s.StaggeredRowField != "" {
		return s.StaggeredRowField
	}
	return s.RowField
}
