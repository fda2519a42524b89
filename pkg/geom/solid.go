package geom

import (
	"fmt"
	"math"
)

// SolidKind identifies the shape of a Solid.
type SolidKind string

// Solid kinds.
const (
	KindBox  SolidKind = "box"
	KindTube SolidKind = "tube"
)

// Solid is an elementary shape understood by the geometry backend.
type Solid interface {
	// Kind returns the shape kind.
	Kind() SolidKind
	// HalfExtents returns the half-size of the axis-aligned bounding box.
	HalfExtents() Vec3
	// Validate reports degenerate dimensions.
	Validate() error
}

// Box is an axis-aligned box given by its half-lengths.
type Box struct {
	DX, DY, DZ float64
}

// NewBox creates a box from full lengths.
func NewBox(x, y, z float64) Box { return Box{DX: x / 2, DY: y / 2, DZ: z / 2} }

// Kind implements Solid.
func (b Box) Kind() SolidKind { return KindBox }

// HalfExtents implements Solid.
func (b Box) HalfExtents() Vec3 { return Vec3{b.DX, b.DY, b.DZ} }

// Validate implements Solid.
func (b Box) Validate() error {
	for _, v := range []float64{b.DX, b.DY, b.DZ} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("degenerate box (%g, %g, %g)", b.DX, b.DY, b.DZ)
		}
	}
	return nil
}

// Grow returns the box enlarged by d on every side.
func (b Box) Grow(d float64) Box { return Box{b.DX + d, b.DY + d, b.DZ + d} }

// Tube is a cylindrical shell along its local z axis.
type Tube struct {
	RMin, RMax float64
	DZ         float64 // half-length
}

// Kind implements Solid.
func (t Tube) Kind() SolidKind { return KindTube }

// HalfExtents implements Solid.
func (t Tube) HalfExtents() Vec3 { return Vec3{t.RMax, t.RMax, t.DZ} }

// Validate implements Solid.
func (t Tube) Validate() error {
	if t.RMin < 0 || !(t.RMax > t.RMin) || !(t.DZ > 0) || math.IsInf(t.RMax, 0) || math.IsInf(t.DZ, 0) {
		return fmt.Errorf("degenerate tube (rmin=%g, rmax=%g, dz=%g)", t.RMin, t.RMax, t.DZ)
	}
	return nil
}
