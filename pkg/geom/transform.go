package geom

import "math"

// Rotation is a ZYX Euler rotation: first Z about the z axis, then Y, then X,
// composed as Rz·Ry·Rx.
type Rotation struct {
	Z float64 `json:"z" bson:"z" toml:"z"`
	Y float64 `json:"y" bson:"y" toml:"y"`
	X float64 `json:"x" bson:"x" toml:"x"`
}

// Identity is the zero rotation.
var Identity = Rotation{}

// RotZ returns a rotation of angle radians about the beam axis.
func RotZ(angle float64) Rotation { return Rotation{Z: angle} }

// RotX returns a rotation of angle radians about the x axis.
func RotX(angle float64) Rotation { return Rotation{X: angle} }

// IsIdentity reports whether r is the zero rotation.
func (r Rotation) IsIdentity() bool { return r == Identity }

// Apply rotates v.
func (r Rotation) Apply(v Vec3) Vec3 {
	// Rx
	cx, sx := math.Cos(r.X), math.Sin(r.X)
	v = Vec3{v.X, cx*v.Y - sx*v.Z, sx*v.Y + cx*v.Z}
	// Ry
	cy, sy := math.Cos(r.Y), math.Sin(r.Y)
	v = Vec3{cy*v.X + sy*v.Z, v.Y, -sy*v.X + cy*v.Z}
	// Rz
	cz, sz := math.Cos(r.Z), math.Sin(r.Z)
	return Vec3{cz*v.X - sz*v.Y, sz*v.X + cz*v.Y, v.Z}
}

// Transform places a child frame inside a parent frame: the child is first
// rotated, then translated by Position.
type Transform struct {
	Rotation Rotation `json:"rotation" bson:"rotation"`
	Position Vec3     `json:"position" bson:"position"`
}

// Translation returns a pure translation.
func Translation(p Vec3) Transform { return Transform{Position: p} }

// Apply maps a point from the child frame into the parent frame.
func (t Transform) Apply(p Vec3) Vec3 {
	return t.Rotation.Apply(p).Add(t.Position)
}
