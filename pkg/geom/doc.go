// Package geom provides the small set of geometric value types the layout
// algorithm needs: vectors, ZYX Euler rotations, rigid transforms and the two
// elementary solids (boxes and tubes).
//
// All lengths are in millimetres and all angles in radians. The beam axis is
// z; "transverse" means x (and y for recentring shifts).
//
// The types are plain values. Nothing here talks to a geometry backend; the
// backend package consumes these values through its capability surface.
package geom
