package assembly

import (
	"math"

	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
)

// Kind identifies what a sub-assembly is made of.
type Kind string

// Sub-assembly kinds.
const (
	KindWideBar     Kind = "widebar"
	KindThinBar     Kind = "thinbar"
	KindBarLayer    Kind = "barlayer"
	KindFibreRow    Kind = "fibrerow"
	KindFibreModule Kind = "fibremodule"
	KindPassive     Kind = "passive"
	KindSplit       Kind = "split"
)

// SubAssembly is a built module volume. It is immutable once returned by a
// [Builder].
type SubAssembly struct {
	Name     string            `json:"name"`
	Kind     Kind              `json:"kind"`
	Volume   backend.VolumeRef `json:"-"`
	Envelope geom.Box          `json:"envelope"`
	Field    ident.Field       `json:"field,omitempty"`
	Elements []Element         `json:"elements,omitempty"`
	Children []*SubAssembly    `json:"children,omitempty"`
}

// Element is one placed copy inside a sub-assembly.
type Element struct {
	ID        int                  `json:"id"`
	Position  geom.Vec3            `json:"position"`
	Rotation  geom.Rotation        `json:"rotation"`
	Placement backend.PlacementRef `json:"-"`
}

// HalfThickness is the half-extent along the stacking axis. Empty
// sub-assemblies have zero thickness.
func (s *SubAssembly) HalfThickness() float64 { return s.Envelope.DZ }

// Thickness is twice the half-thickness.
func (s *SubAssembly) Thickness() float64 { return 2 * s.Envelope.DZ }

// HalfWidth is the transverse half-extent.
func (s *SubAssembly) HalfWidth() float64 { return s.Envelope.DX }

// Empty reports whether the sub-assembly has no backend volume.
func (s *SubAssembly) Empty() bool { return !s.Volume.Valid() }

// IDs returns the element identifiers in placement order.
func (s *SubAssembly) IDs() []int {
	ids := make([]int, len(s.Elements))
	for i, e := range s.Elements {
		ids[i] = e.ID
	}
	return ids
}

// Row is a one-dimensional repetition rule: element i is centred at
// Start + i*Pitch.
type Row struct {
	Count int     `json:"count"`
	Pitch float64 `json:"pitch"`
	Start float64 `json:"start"`
}

// Center returns the centre of element i.
func (r Row) Center(i int) float64 { return r.Start + float64(i)*r.Pitch }

// EdgeRow places count elements of the given half-width flush against the
// -x edge of an envelope, separated by extra.
func EdgeRow(count int, envelopeHalfX, halfWidth, extra float64) Row {
	return Row{Count: count, Pitch: 2*halfWidth + extra, Start: -envelopeHalfX + halfWidth}
}

// IncrementRow places count elements at halfWidth + i*spacing.
func IncrementRow(count int, halfWidth, spacing float64) Row {
	return Row{Count: count, Pitch: spacing, Start: halfWidth}
}

// FibreRow centres fibres of radius r in cells of width 2r+2tol starting
// at the -x edge. A staggered row holds one fibre fewer, shifted by r.
func FibreRow(count int, envelopeHalfX, r, tol float64, staggered bool) Row {
	pitch := 2*r + 2*tol
	row := Row{Count: count, Pitch: pitch, Start: -envelopeHalfX + 0.5*pitch}
	if staggered {
		row.Count = max(count-1, 0)
		row.Start += r
	}
	return row
}

// FibreCount is the number of fibre cells of radius r that fit across a
// width of 2*envelopeHalfX.
func FibreCount(envelopeHalfX, r, tol float64) int {
	pitch := 2*r + 2*tol
	if pitch <= 0 {
		return 0
	}
	return int(math.Floor(2*envelopeHalfX/pitch + fitEps))
}

// fitEps absorbs rounding when comparing extents, in mm.
const fitEps = 1e-7

// rotatedHalf returns the bounding half-extents of a box with half-extents h
// after rotation.
func rotatedHalf(rot geom.Rotation, h geom.Vec3) geom.Vec3 {
	if rot.IsIdentity() {
		return h
	}
	ax := rot.Apply(geom.V(h.X, 0, 0))
	ay := rot.Apply(geom.V(0, h.Y, 0))
	az := rot.Apply(geom.V(0, 0, h.Z))
	return geom.V(
		math.Abs(ax.X)+math.Abs(ay.X)+math.Abs(az.X),
		math.Abs(ax.Y)+math.Abs(ay.Y)+math.Abs(az.Y),
		math.Abs(ax.Z)+math.Abs(ay.Z)+math.Abs(az.Z),
	)
}

// elementHalf returns the unshrunk half-extents of e in its own frame.
func elementHalf(e ElementSpec) geom.Vec3 {
	if e.Shape == ShapeTube {
		return geom.V(e.RMax, e.RMax, e.HalfLength)
	}
	return geom.V(e.HalfX, e.HalfY, e.HalfZ)
}
