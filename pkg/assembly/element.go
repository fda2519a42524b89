package assembly

import (
	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
)

// Shape is the primitive solid of an element.
type Shape string

// Element shapes.
const (
	ShapeBox  Shape = "box"
	ShapeTube Shape = "tube"
)

// ElementSpec describes one elementary shape type. It is created once from
// the detector description and never mutated.
//
// Boxes use HalfX, HalfY and HalfZ. Tubes use RMax, HalfLength and Thickness
// (the wall thickness of the cladding; zero for a solid rod). A tube lies
// along its local z axis before any element rotation.
type ElementSpec struct {
	Name  string `json:"name"`
	Shape Shape  `json:"shape"`

	HalfX float64 `json:"half_x,omitempty"`
	HalfY float64 `json:"half_y,omitempty"`
	HalfZ float64 `json:"half_z,omitempty"`

	RMax       float64 `json:"rmax,omitempty"`
	HalfLength float64 `json:"half_length,omitempty"`
	Thickness  float64 `json:"thickness,omitempty"`

	Material      string `json:"material"`
	Region        string `json:"region,omitempty"`
	Limits        string `json:"limits,omitempty"`
	Vis           string `json:"vis,omitempty"`
	Sensitive     bool   `json:"sensitive,omitempty"`
	SensitiveType string `json:"sensitive_type,omitempty"`
}

// Box returns a box element from full lengths.
func Box(name string, x, y, z float64, material string) ElementSpec {
	return ElementSpec{Name: name, Shape: ShapeBox, HalfX: x / 2, HalfY: y / 2, HalfZ: z / 2, Material: material}
}

// Tube returns a tube element with outer radius rmax and full length.
func Tube(name string, rmax, length, thickness float64, material string) ElementSpec {
	return ElementSpec{Name: name, Shape: ShapeTube, RMax: rmax, HalfLength: length / 2, Thickness: thickness, Material: material}
}

// HalfThickness is the half-extent along the stacking axis.
func (e ElementSpec) HalfThickness() float64 {
	if e.Shape == ShapeTube {
		return e.RMax
	}
	return e.HalfZ
}

// HalfWidth is the half-extent along the repetition axis.
func (e ElementSpec) HalfWidth() float64 {
	if e.Shape == ShapeTube {
		return e.RMax
	}
	return e.HalfX
}

// Solid returns the backend solid, shrunk by tol on every side.
func (e ElementSpec) Solid(tol float64) geom.Solid {
	if e.Shape == ShapeTube {
		return geom.Tube{RMin: 0, RMax: e.RMax - tol, DZ: e.HalfLength - tol}
	}
	return geom.Box{DX: e.HalfX - tol, DY: e.HalfY - tol, DZ: e.HalfZ - tol}
}

// Core returns the inner tube of a clad fibre: the bore left after removing
// the wall thickness. ok is false when the element has no wall.
func (e ElementSpec) Core(material string) (core ElementSpec, ok bool) {
	if e.Shape != ShapeTube || e.Thickness <= 0 {
		return ElementSpec{}, false
	}
	core = e
	core.Name = e.Name + "_core"
	core.RMax = e.RMax - e.Thickness
	core.Thickness = 0
	core.Material = material
	return core, true
}

// Attributes returns the backend attribute references.
func (e ElementSpec) Attributes() backend.Attributes {
	return backend.Attributes{Region: e.Region, Limits: e.Limits, Vis: e.Vis}
}

// Validate reports degenerate dimensions as configuration errors against
// the given detector and description attribute.
func (e ElementSpec) Validate(detector, attribute string) error {
	if e.Material == "" {
		return errors.Configuration(detector, attribute+".material", "material is required")
	}
	switch e.Shape {
	case ShapeBox:
		if err := errors.ValidatePositive(detector, attribute+".x", e.HalfX); err != nil {
			return err
		}
		if err := errors.ValidatePositive(detector, attribute+".y", e.HalfY); err != nil {
			return err
		}
		return errors.ValidatePositive(detector, attribute+".z", e.HalfZ)
	case ShapeTube:
		if err := errors.ValidatePositive(detector, attribute+".rmax", e.RMax); err != nil {
			return err
		}
		if err := errors.ValidatePositive(detector, attribute+".y", e.HalfLength); err != nil {
			return err
		}
		if err := errors.ValidateNonNegative(detector, attribute+".thickness", e.Thickness); err != nil {
			return err
		}
		if e.Thickness >= e.RMax {
			return errors.Configuration(detector, attribute+".thickness",
				"wall thickness %g leaves no core inside radius %g", e.Thickness, e.RMax)
		}
		return nil
	default:
		return errors.Configuration(detector, attribute, "unknown shape %q", e.Shape)
	}
}
