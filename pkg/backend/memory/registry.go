// Package memory provides an in-process geometry backend.
//
// Registry keeps every created volume and placement in insertion order, which
// makes the hierarchy easy to walk for reports and renderers and makes
// rollback a simple truncation.
package memory

import (
	"sort"
	"sync"

	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
)

// Volume is a created volume.
type Volume struct {
	ID        int
	Name      string
	Solid     geom.Solid
	Material  string
	Attrs     backend.Attributes
	Sensitive string
}

// Placement is a placed child volume.
type Placement struct {
	ID        int
	Parent    int
	Child     int
	Transform geom.Transform
	IDs       []PhysVolID
}

// PhysVolID is an identifier field recorded on a placement.
type PhysVolID struct {
	Field string
	Value int
}

// Registry is a thread-safe in-memory Backend.
type Registry struct {
	mu         sync.Mutex
	volumes    []*Volume
	placements []*Placement
	byName     map[string]int
	materials  map[string]bool
}

// NewRegistry creates an empty registry. If materials is non-empty, only those
// material names are accepted.
func NewRegistry(materials ...string) *Registry {
	r := &Registry{byName: make(map[string]int)}
	if len(materials) > 0 {
		r.materials = make(map[string]bool, len(materials))
		for _, m := range materials {
			r.materials[m] = true
		}
	}
	return r
}

// Volume implements backend.Backend.
func (r *Registry) Volume(name string, solid geom.Solid, material string) (backend.VolumeRef, error) {
	if solid == nil {
		return backend.VolumeRef{}, errors.New(errors.ErrCodeBackend, "volume %s: no solid", name)
	}
	if err := solid.Validate(); err != nil {
		return backend.VolumeRef{}, errors.Wrap(errors.ErrCodeBackend, err, "volume %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[name]; dup {
		return backend.VolumeRef{}, errors.New(errors.ErrCodeBackend, "volume %s already exists", name)
	}
	if r.materials != nil && !r.materials[material] {
		return backend.VolumeRef{}, errors.New(errors.ErrCodeBackend, "volume %s: unknown material %q", name, material)
	}
	v := &Volume{ID: len(r.volumes) + 1, Name: name, Solid: solid, Material: material}
	r.volumes = append(r.volumes, v)
	r.byName[name] = v.ID
	return backend.VolumeRef{ID: v.ID, Name: name}, nil
}

// SetAttributes implements backend.Backend.
func (r *Registry) SetAttributes(ref backend.VolumeRef, attrs backend.Attributes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.volume(ref)
	if err != nil {
		return err
	}
	v.Attrs = attrs
	return nil
}

// SetSensitive implements backend.Backend.
func (r *Registry) SetSensitive(ref backend.VolumeRef, sensType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.volume(ref)
	if err != nil {
		return err
	}
	v.Sensitive = sensType
	return nil
}

// Place implements backend.Backend.
func (r *Registry) Place(parent, child backend.VolumeRef, t geom.Transform) (backend.PlacementRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.volume(parent); err != nil {
		return backend.PlacementRef{}, err
	}
	if _, err := r.volume(child); err != nil {
		return backend.PlacementRef{}, err
	}
	if parent.ID == child.ID {
		return backend.PlacementRef{}, errors.New(errors.ErrCodeBackend, "cannot place %s inside itself", parent.Name)
	}
	p := &Placement{ID: len(r.placements) + 1, Parent: parent.ID, Child: child.ID, Transform: t}
	r.placements = append(r.placements, p)
	return backend.PlacementRef{ID: p.ID}, nil
}

// AddPhysVolID implements backend.Backend.
func (r *Registry) AddPhysVolID(ref backend.PlacementRef, field string, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref.ID <= 0 || ref.ID > len(r.placements) {
		return errors.New(errors.ErrCodeBackend, "unknown placement %d", ref.ID)
	}
	p := r.placements[ref.ID-1]
	for _, id := range p.IDs {
		if id.Field == field {
			return errors.New(errors.ErrCodeBackend, "placement %d already carries field %s", ref.ID, field)
		}
	}
	p.IDs = append(p.IDs, PhysVolID{Field: field, Value: value})
	return nil
}

// Checkpoint implements backend.Checkpointer.
func (r *Registry) Checkpoint() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.volumes)<<32 | len(r.placements)
}

// Rollback implements backend.Checkpointer.
func (r *Registry) Rollback(checkpoint int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	nv, np := checkpoint>>32, checkpoint&(1<<32-1)
	if nv > len(r.volumes) || np > len(r.placements) {
		return errors.New(errors.ErrCodeBackend, "invalid checkpoint")
	}
	for _, v := range r.volumes[nv:] {
		delete(r.byName, v.Name)
	}
	r.volumes = r.volumes[:nv]
	r.placements = r.placements[:np]
	return nil
}

func (r *Registry) volume(ref backend.VolumeRef) (*Volume, error) {
	if ref.ID <= 0 || ref.ID > len(r.volumes) {
		return nil, errors.New(errors.ErrCodeBackend, "unknown volume %q", ref.Name)
	}
	return r.volumes[ref.ID-1], nil
}

// Lookup returns the volume with the given name.
func (r *Registry) Lookup(name string) (Volume, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	if !ok {
		return Volume{}, false
	}
	return *r.volumes[id-1], true
}

// VolumeByID returns the volume with the given ID.
func (r *Registry) VolumeByID(id int) (Volume, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id <= 0 || id > len(r.volumes) {
		return Volume{}, false
	}
	return *r.volumes[id-1], true
}

// Volumes returns a copy of all volumes in creation order.
func (r *Registry) Volumes() []Volume {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Volume, len(r.volumes))
	for i, v := range r.volumes {
		out[i] = *v
	}
	return out
}

// Children returns the placements inside the volume with the given ID, in
// placement order.
func (r *Registry) Children(parent int) []Placement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Placement
	for _, p := range r.placements {
		if p.Parent == parent {
			cp := *p
			cp.IDs = append([]PhysVolID(nil), p.IDs...)
			out = append(out, cp)
		}
	}
	return out
}

// Placements returns a copy of all placements in placement order.
func (r *Registry) Placements() []Placement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Placement, len(r.placements))
	for i, p := range r.placements {
		out[i] = *p
		out[i].IDs = append([]PhysVolID(nil), p.IDs...)
	}
	return out
}

// Materials returns the distinct materials used by created volumes, sorted.
func (r *Registry) Materials() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[string]bool)
	for _, v := range r.volumes {
		set[v.Material] = true
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Ensure Registry implements the backend interfaces.
var (
	_ backend.Backend      = (*Registry)(nil)
	_ backend.Checkpointer = (*Registry)(nil)
)
