// Package config reads detector descriptions.
//
// A description is a TOML document with one [world] table and any number of
// [[detector]] tables. All lengths are full lengths in millimetres and all
// angles are radians:
//
//	[world]
//	name = "world"
//	material = "Air"
//	box = { x = 4000.0, y = 4000.0, z = 4000.0 }
//
//	[[detector]]
//	name = "SplitCal"
//	type = "DD4hep_SplitCal"
//	id = 9
//	layer_codes = "1212"
//	box = { x = 300.0, y = 200.0, z = 400.0, material = "Air" }
//	widebar = { x = 10.0, y = 200.0, z = 10.0, material = "Scintillator", num_x = 30, sensitive = true }
//
// Detector constructors decide which child tables they require; this package
// only checks what is common to every detector.
package config

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
)

// Start conventions for the running offset.
const (
	StartFront = "front" // minus the envelope half-length
	StartZero  = "zero"
)

// Description is a parsed detector description.
type Description struct {
	World     World      `toml:"world" json:"world"`
	Detectors []Detector `toml:"detector" json:"detectors"`
}

// World is the mother volume all detectors are placed in.
type World struct {
	Name     string   `toml:"name" json:"name"`
	Material string   `toml:"material" json:"material"`
	Box      *Element `toml:"box,omitempty" json:"box,omitempty"`
}

// Detector is one [[detector]] table.
type Detector struct {
	Name string `toml:"name" json:"name"`
	Type string `toml:"type" json:"type"`
	ID   int    `toml:"id" json:"id"`

	LayerCodes     string `toml:"layer_codes,omitempty" json:"layer_codes,omitempty"`
	HPLFibreLayers int    `toml:"hpl_fibre_layers,omitempty" json:"hpl_fibre_layers,omitempty"`
	NFibreLayers   int    `toml:"n_fibre_layers,omitempty" json:"n_fibre_layers,omitempty"`
	NumZ           int    `toml:"num_z,omitempty" json:"num_z,omitempty"`
	Start          string `toml:"start,omitempty" json:"start,omitempty"`

	Position geom.Vec3     `toml:"position" json:"position"`
	Rotation geom.Rotation `toml:"rotation" json:"rotation"`

	Box          *Element `toml:"box,omitempty" json:"box,omitempty"`
	WideBar      *Element `toml:"widebar,omitempty" json:"widebar,omitempty"`
	ThinBar      *Element `toml:"thinbar,omitempty" json:"thinbar,omitempty"`
	Bar          *Element `toml:"bar,omitempty" json:"bar,omitempty"`
	PassiveLayer *Element `toml:"passive_layer,omitempty" json:"passive_layer,omitempty"`
	Split        *Element `toml:"split,omitempty" json:"split,omitempty"`
	HPLBox       *Element `toml:"hplbox,omitempty" json:"hplbox,omitempty"`
	HPLFibre     *Element `toml:"hplfibre,omitempty" json:"hplfibre,omitempty"`
	HPLCore      *Element `toml:"hplcore,omitempty" json:"hplcore,omitempty"`
	Fibre        *Element `toml:"fibre,omitempty" json:"fibre,omitempty"`
	Core         *Element `toml:"core,omitempty" json:"core,omitempty"`
}

// Element is a child table describing one elementary shape and its
// repetition parameters.
type Element struct {
	X         float64 `toml:"x,omitempty" json:"x,omitempty"`
	Y         float64 `toml:"y,omitempty" json:"y,omitempty"`
	Z         float64 `toml:"z,omitempty" json:"z,omitempty"`
	RMax      float64 `toml:"rmax,omitempty" json:"rmax,omitempty"`
	Thickness float64 `toml:"thickness,omitempty" json:"thickness,omitempty"`

	Material  string `toml:"material,omitempty" json:"material,omitempty"`
	Vis       string `toml:"vis,omitempty" json:"vis,omitempty"`
	Region    string `toml:"region,omitempty" json:"region,omitempty"`
	Limits    string `toml:"limits,omitempty" json:"limits,omitempty"`
	// Sensitive opts passive plates, splits and tracker cores in; bars and
	// SplitCal fibre cores are always sensitive.
	Sensitive bool   `toml:"sensitive,omitempty" json:"sensitive,omitempty"`

	NumX          int     `toml:"num_x,omitempty" json:"num_x,omitempty"`
	XExtraSpacing float64 `toml:"x_extra_spacing,omitempty" json:"x_extra_spacing,omitempty"`
	XSpacing      float64 `toml:"x_spacing,omitempty" json:"x_spacing,omitempty"`
	ExtraZGap     float64 `toml:"extrazgap,omitempty" json:"extrazgap,omitempty"`
}

// Load reads and parses a description file.
func Load(path string) (*Description, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ReadFile reads a description file without parsing it.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "description %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return data, nil
}

// Parse decodes a TOML description and checks it. Unknown keys are rejected
// so a misspelt attribute cannot silently fall back to zero.
func Parse(data []byte) (*Description, error) {
	var d Description
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&d)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse description")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown attribute %q", undecoded[0].String())
	}
	if err := d.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Marshal encodes d back to TOML. Two descriptions that differ only in
// formatting, comments or key order marshal to the same bytes.
func Marshal(d *Description) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode description")
	}
	return buf.Bytes(), nil
}

// ValidateAndSetDefaults checks the attributes shared by every detector:
// names, types, identifiers and the start convention. It fills in the world
// name and material when they are missing.
func (d *Description) ValidateAndSetDefaults() error {
	if d.World.Name == "" {
		d.World.Name = "world"
	}
	if d.World.Material == "" {
		d.World.Material = "Air"
	}
	if d.World.Box != nil {
		if err := d.World.Box.RequireBox(d.World.Name, "box"); err != nil {
			return err
		}
	}

	names := make(map[string]bool, len(d.Detectors))
	ids := make(map[int]string, len(d.Detectors))
	for i := range d.Detectors {
		det := &d.Detectors[i]
		if err := errors.ValidateName(det.Name, "name", det.Name); err != nil {
			return err
		}
		if names[det.Name] {
			return errors.Configuration(det.Name, "name", "detector name used twice")
		}
		names[det.Name] = true
		if det.Type == "" {
			return errors.Configuration(det.Name, "type", "type is required")
		}
		if other, dup := ids[det.ID]; dup {
			return errors.Configuration(det.Name, "id", "id %d already used by %s", det.ID, other)
		}
		ids[det.ID] = det.Name
		switch det.Start {
		case "", StartFront, StartZero:
		default:
			return errors.Configuration(det.Name, "start", "must be %q or %q, got %q", StartFront, StartZero, det.Start)
		}
		if err := errors.ValidateLayerCodes(det.Name, det.LayerCodes); err != nil {
			return err
		}
		if det.Box == nil {
			return errors.Configuration(det.Name, "box", "envelope box is required")
		}
		if err := det.Box.RequireBox(det.Name, "box"); err != nil {
			return err
		}
	}
	return nil
}

// Detector returns the detector with the given name.
func (d *Description) Detector(name string) (*Detector, bool) {
	for i := range d.Detectors {
		if d.Detectors[i].Name == name {
			return &d.Detectors[i], true
		}
	}
	return nil, false
}

// Require returns e, or a CONFIGURATION error naming the missing child.
func (det *Detector) Require(attribute string, e *Element) (*Element, error) {
	if e == nil {
		return nil, errors.Configuration(det.Name, attribute, "required child element is missing")
	}
	return e, nil
}

// RequireBox checks that e has positive box extents.
func (e *Element) RequireBox(detector, attribute string) error {
	for _, a := range []struct {
		name string
		v    float64
	}{{"x", e.X}, {"y", e.Y}, {"z", e.Z}} {
		if err := errors.ValidatePositive(detector, attribute+"."+a.name, a.v); err != nil {
			return err
		}
	}
	return nil
}
