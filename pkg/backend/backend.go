// Package backend defines the capability surface the layout algorithm needs
// from a solid-modelling and placement backend.
//
// The algorithm only ever asks for four things:
//   - construct a volume from a primitive solid and a material
//   - attach region, limits and visualisation attributes, or mark it sensitive
//   - place a child volume in a parent at a transform, getting a handle back
//   - record a physical-volume identifier field on that handle
//
// Implementations may wrap a full detector-description toolkit. The memory
// subpackage provides an in-process registry used by the CLI, the HTTP API
// and the tests.
package backend

import "github.com/matzehuels/calostack/pkg/geom"

// VolumeRef is an opaque handle to a volume created by a Backend.
// The zero value is not a valid volume.
type VolumeRef struct {
	ID   int
	Name string
}

// Valid reports whether v refers to a created volume.
func (v VolumeRef) Valid() bool { return v.ID > 0 }

// PlacementRef is an opaque handle to a placed volume.
type PlacementRef struct {
	ID int
}

// Attributes are the region, limit-set and visualisation references of a volume.
type Attributes struct {
	Region string `json:"region,omitempty" bson:"region,omitempty"`
	Limits string `json:"limits,omitempty" bson:"limits,omitempty"`
	Vis    string `json:"vis,omitempty" bson:"vis,omitempty"`
}

// Sensitive detector types.
const (
	SensitiveCalorimeter = "calorimeter"
	SensitiveTracker     = "tracker"
)

// Backend is the geometry construction capability surface.
// Calls are synchronous and side-effecting. A Backend deduplicates volumes by
// name, so callers must choose names unique within one geometry.
type Backend interface {
	// Volume constructs solid with material and returns a handle to the new volume.
	Volume(name string, solid geom.Solid, material string) (VolumeRef, error)
	// SetAttributes attaches region, limits and visualisation references.
	SetAttributes(v VolumeRef, attrs Attributes) error
	// SetSensitive marks v as sensitive with the given detector type.
	SetSensitive(v VolumeRef, sensType string) error
	// Place puts child into parent at t.
	Place(parent, child VolumeRef, t geom.Transform) (PlacementRef, error)
	// AddPhysVolID records an identifier field on a placement.
	AddPhysVolID(p PlacementRef, field string, value int) error
}

// Checkpointer is implemented by backends that can discard everything created
// after a checkpoint. Detector builders use it to remove a partially built
// detector without disturbing detectors built before it.
type Checkpointer interface {
	Checkpoint() int
	Rollback(checkpoint int) error
}
