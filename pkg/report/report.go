// Package report turns a built world into a serializable geometry report.
//
// The report has two views of the same build: the per-detector stack (layer
// codes, centres, orientations and identifiers, plus each sub-assembly's
// element identifiers), and the flat volume table with every placement and
// the identifier fields it carries. Ordering follows creation order, so two
// builds of the same description produce identical reports apart from ID
// and CreatedAt.
//
// Reports carry json and bson tags; the same struct is returned by the HTTP
// API, written by the CLI and archived by the mongo store.
package report

import (
	"encoding/json"
	"time"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/backend/memory"
	"github.com/matzehuels/calostack/pkg/detector"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/stack"
)

// Geometry is a complete build report.
type Geometry struct {
	ID              string     `json:"id" bson:"_id"`
	DescriptionHash string     `json:"description_hash" bson:"description_hash"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
	World           World      `json:"world" bson:"world"`
	Detectors       []Detector `json:"detectors" bson:"detectors"`
	Volumes         []Volume   `json:"volumes" bson:"volumes"`
	Stats           Stats      `json:"stats" bson:"stats"`
}

// World describes the mother volume.
type World struct {
	Name        string    `json:"name" bson:"name"`
	HalfExtents geom.Vec3 `json:"half_extents" bson:"half_extents"`
}

// Detector is the stack view of one detector.
type Detector struct {
	Name        string        `json:"name" bson:"name"`
	Type        string        `json:"type" bson:"type"`
	ID          int           `json:"id" bson:"id"`
	Position    geom.Vec3     `json:"position" bson:"position"`
	Rotation    geom.Rotation `json:"rotation" bson:"rotation"`
	HalfExtents geom.Vec3     `json:"half_extents" bson:"half_extents"`
	Start       float64       `json:"start" bson:"start"`
	End         float64       `json:"end" bson:"end"`
	Thickness   float64       `json:"thickness" bson:"thickness"`
	Layers      []stack.Layer `json:"layers" bson:"layers"`
	Assemblies  []Assembly    `json:"assemblies" bson:"assemblies"`
	Warnings    []string      `json:"warnings,omitempty" bson:"warnings,omitempty"`
	DurationMS  float64       `json:"duration_ms" bson:"duration_ms"`
}

// Assembly summarizes one sub-assembly.
type Assembly struct {
	Name          string        `json:"name" bson:"name"`
	Kind          assembly.Kind `json:"kind" bson:"kind"`
	Field         ident.Field   `json:"field,omitempty" bson:"field,omitempty"`
	HalfThickness float64       `json:"half_thickness" bson:"half_thickness"`
	IDs           []int         `json:"ids,omitempty" bson:"ids,omitempty"`
	Centers       []float64     `json:"centers,omitempty" bson:"centers,omitempty"`
	Children      []Assembly    `json:"children,omitempty" bson:"children,omitempty"`
}

// Volume is one backend volume with its placed children.
type Volume struct {
	Name        string      `json:"name" bson:"name"`
	Solid       string      `json:"solid" bson:"solid"`
	HalfExtents geom.Vec3   `json:"half_extents" bson:"half_extents"`
	Material    string      `json:"material" bson:"material"`
	Sensitive   string      `json:"sensitive,omitempty" bson:"sensitive,omitempty"`
	Vis         string      `json:"vis,omitempty" bson:"vis,omitempty"`
	Region      string      `json:"region,omitempty" bson:"region,omitempty"`
	Limits      string      `json:"limits,omitempty" bson:"limits,omitempty"`
	Daughters   []Placement `json:"daughters,omitempty" bson:"daughters,omitempty"`
}

// Placement is one placed daughter volume.
type Placement struct {
	Volume    string         `json:"volume" bson:"volume"`
	Transform geom.Transform `json:"transform" bson:"transform"`
	IDs       []ident.Value  `json:"ids,omitempty" bson:"ids,omitempty"`
}

// Stats counts what a build produced.
type Stats struct {
	Detectors  int      `json:"detectors" bson:"detectors"`
	Layers     int      `json:"layers" bson:"layers"`
	Volumes    int      `json:"volumes" bson:"volumes"`
	Placements int      `json:"placements" bson:"placements"`
	Sensitive  int      `json:"sensitive" bson:"sensitive"`
	Materials  []string `json:"materials" bson:"materials"`
}

// New builds a report of w from the registry it was built in.
func New(w *detector.World, reg *memory.Registry) *Geometry {
	g := &Geometry{
		World: World{Name: w.Name, HalfExtents: w.Box.HalfExtents()},
	}
	for _, d := range w.Detectors {
		g.Detectors = append(g.Detectors, newDetector(d))
		g.Stats.Layers += len(d.Plan.Layers)
	}
	g.Stats.Detectors = len(w.Detectors)

	byParent := make(map[int][]memory.Placement)
	placements := reg.Placements()
	for _, p := range placements {
		byParent[p.Parent] = append(byParent[p.Parent], p)
	}
	volumes := reg.Volumes()
	names := make(map[int]string, len(volumes))
	for _, v := range volumes {
		names[v.ID] = v.Name
	}
	for _, v := range volumes {
		rv := Volume{
			Name:        v.Name,
			Solid:       string(v.Solid.Kind()),
			HalfExtents: v.Solid.HalfExtents(),
			Material:    v.Material,
			Sensitive:   v.Sensitive,
			Vis:         v.Attrs.Vis,
			Region:      v.Attrs.Region,
			Limits:      v.Attrs.Limits,
		}
		for _, p := range byParent[v.ID] {
			rv.Daughters = append(rv.Daughters, Placement{
				Volume:    names[p.Child],
				Transform: p.Transform,
				IDs:       values(p.IDs),
			})
		}
		if v.Sensitive != "" {
			g.Stats.Sensitive++
		}
		g.Volumes = append(g.Volumes, rv)
	}
	g.Stats.Volumes = len(volumes)
	g.Stats.Placements = len(placements)
	g.Stats.Materials = reg.Materials()
	return g
}

func newDetector(d *detector.Detector) Detector {
	rd := Detector{
		Name:        d.Name,
		Type:        d.Type,
		ID:          d.ID,
		Position:    d.Transform.Position,
		Rotation:    d.Transform.Rotation,
		HalfExtents: d.EnvelopeBox.HalfExtents(),
		Start:       d.Plan.Start,
		End:         d.Plan.End,
		Thickness:   d.Plan.Thickness(),
		Layers:      d.Plan.Layers,
		Warnings:    d.Warnings,
		DurationMS:  float64(d.Duration.Microseconds()) / 1000,
	}
	if rd.Layers == nil {
		rd.Layers = []stack.Layer{}
	}
	for _, sa := range d.Assemblies {
		rd.Assemblies = append(rd.Assemblies, newAssembly(sa))
	}
	return rd
}

func newAssembly(sa *assembly.SubAssembly) Assembly {
	a := Assembly{
		Name:          sa.Name,
		Kind:          sa.Kind,
		Field:         sa.Field,
		HalfThickness: sa.HalfThickness(),
		IDs:           sa.IDs(),
	}
	for _, e := range sa.Elements {
		if sa.Kind == assembly.KindFibreModule {
			a.Centers = append(a.Centers, e.Position.Z)
		} else {
			a.Centers = append(a.Centers, e.Position.X)
		}
	}
	for _, c := range sa.Children {
		a.Children = append(a.Children, newAssembly(c))
	}
	return a
}

func values(ids []memory.PhysVolID) []ident.Value {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ident.Value, len(ids))
	for i, id := range ids {
		out[i] = ident.Value{Field: ident.Field(id.Field), Value: id.Value}
	}
	return out
}

// Detector returns the report of the named detector.
func (g *Geometry) Detector(name string) (*Detector, bool) {
	for i := range g.Detectors {
		if g.Detectors[i].Name == name {
			return &g.Detectors[i], true
		}
	}
	return nil, false
}

// Volume returns the named volume.
func (g *Geometry) Volume(name string) (*Volume, bool) {
	for i := range g.Volumes {
		if g.Volumes[i].Name == name {
			return &g.Volumes[i], true
		}
	}
	return nil, false
}

// Decoder returns an identifier decoder over the report's placements.
func (g *Geometry) Decoder() *ident.Decoder {
	d := ident.NewDecoder()
	for _, v := range g.Volumes {
		for _, p := range v.Daughters {
			d.Add(v.Name, p.Volume, p.IDs)
		}
	}
	return d
}

// ResolveKey resolves a packed layer/element key of the named detector, as
// produced by [ident.Identifier.Key], to its placement path below the world.
// The last node is the element placed in the layer with the key's local
// index.
func (g *Geometry) ResolveKey(detector string, key int64) ([]ident.Node, error) {
	d, ok := g.Detector(detector)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no detector %q in report", detector)
	}
	id := ident.Decode(key)
	var layer *stack.Layer
	for i := range d.Layers {
		if d.Layers[i].ID == id.Layer {
			layer = &d.Layers[i]
			break
		}
	}
	if layer == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "%s has no layer %d (key %s)", detector, id.Layer, id)
	}
	path, err := g.Decoder().Resolve(g.World.Name, [][]ident.Value{
		{{Field: ident.System, Value: d.ID}},
		{{Field: layer.Field, Value: layer.ID}},
	})
	if err != nil {
		return nil, err
	}
	v, _ := g.Volume(path[len(path)-1].Volume)
	if v != nil {
		for _, p := range v.Daughters {
			if len(p.IDs) > 0 && p.IDs[0].Value == id.Local {
				return append(path, ident.Node{Volume: p.Volume, Values: p.IDs}), nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "%s layer %d has no element %d (key %s)", detector, id.Layer, id.Local, id)
}

// PathKey packs a system/layer/element path, as returned by a three-step
// chain resolution or by [Geometry.ResolveKey], into its layer/element key.
// Other path shapes have no key.
func PathKey(path []ident.Node) (int64, bool) {
	if len(path) != 3 || len(path[1].Values) == 0 || len(path[2].Values) == 0 {
		return 0, false
	}
	return ident.Encode(path[1].Values[0].Value, path[2].Values[0].Value).Key(), true
}

// Marshal encodes g as indented JSON.
func Marshal(g *Geometry) ([]byte, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode report")
	}
	return data, nil
}

// Unmarshal decodes a JSON report.
func Unmarshal(data []byte) (*Geometry, error) {
	var g Geometry
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode report")
	}
	return &g, nil
}
