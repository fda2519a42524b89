package stack

import (
	"fmt"
	"math"
	"sort"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
)

// Code is one layer code, an ASCII digit '1'..'8'.
type Code byte

// SplitCal layer codes.
const (
	WideVertical    Code = '1'
	WideHorizontal  Code = '2'
	ThinVertical    Code = '3'
	ThinHorizontal  Code = '4'
	FibreVertical   Code = '5'
	FibreHorizontal Code = '6'
	Passive         Code = '7'
	Split           Code = '8'
)

func (c Code) String() string { return string(rune(c)) }

// Orientation is the rotation of a layer about the beam axis.
type Orientation int

// Orientations.
const (
	Horizontal Orientation = iota // 0°
	Vertical                      // 90°
)

// Degrees returns the rotation angle in degrees.
func (o Orientation) Degrees() int {
	if o == Vertical {
		return 90
	}
	return 0
}

// Rotation returns the rotation about z.
func (o Orientation) Rotation() geom.Rotation {
	if o == Vertical {
		return geom.RotZ(math.Pi / 2)
	}
	return geom.Identity
}

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Entry is one row of a dispatch table.
type Entry struct {
	Kind        assembly.Kind
	Orientation Orientation
	// Recentre applies the kind's transverse shift to the layer centre.
	Recentre bool
	Field    ident.Field
	Label    string
}

// Table maps layer codes to entries.
type Table map[Code]Entry

// Lookup returns the entry for c.
func (t Table) Lookup(c Code) (Entry, bool) {
	e, ok := t[c]
	return e, ok
}

// Codes returns the table's codes in ascending order.
func (t Table) Codes() []Code {
	codes := make([]Code, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// CodeInfo describes one table entry for listings.
type CodeInfo struct {
	Code        string        `json:"code"`
	Kind        assembly.Kind `json:"kind"`
	Orientation int           `json:"orientation_deg"`
	Recentre    bool          `json:"recentre,omitempty"`
	Field       ident.Field   `json:"field"`
	Label       string        `json:"label"`
}

// Describe lists the table's entries in code order.
func (t Table) Describe() []CodeInfo {
	codes := t.Codes()
	out := make([]CodeInfo, len(codes))
	for i, c := range codes {
		e := t[c]
		out[i] = CodeInfo{
			Code:        c.String(),
			Kind:        e.Kind,
			Orientation: e.Orientation.Degrees(),
			Recentre:    e.Recentre,
			Field:       e.Field,
			Label:       e.Label,
		}
	}
	return out
}

// SplitCalTable is the SplitCal dispatch table.
var SplitCalTable = Table{
	WideVertical:    {Kind: assembly.KindWideBar, Orientation: Vertical, Field: ident.SplitCalLayer, Label: "wide-bar layer"},
	WideHorizontal:  {Kind: assembly.KindWideBar, Orientation: Horizontal, Field: ident.SplitCalLayer, Label: "wide-bar layer"},
	ThinVertical:    {Kind: assembly.KindThinBar, Orientation: Vertical, Field: ident.SplitCalLayer, Label: "thin-bar layer"},
	ThinHorizontal:  {Kind: assembly.KindThinBar, Orientation: Horizontal, Field: ident.SplitCalLayer, Label: "thin-bar layer"},
	FibreVertical:   {Kind: assembly.KindFibreModule, Orientation: Vertical, Field: ident.SplitCalLayer, Label: "fibre module"},
	FibreHorizontal: {Kind: assembly.KindFibreModule, Orientation: Horizontal, Field: ident.SplitCalLayer, Label: "fibre module"},
	Passive:         {Kind: assembly.KindPassive, Field: ident.SplitCalPassiveLayer, Label: "passive plate"},
	Split:           {Kind: assembly.KindSplit, Field: ident.SplitCalSplitLayer, Label: "mechanical split"},
}

// SandwichTable is the sandwich calorimeter dispatch table. Vertical bar
// layers and passive plates are recentred; horizontal bar layers are not.
var SandwichTable = Table{
	WideVertical:   {Kind: assembly.KindBarLayer, Orientation: Vertical, Recentre: true, Field: ident.Layer, Label: "bar layer"},
	WideHorizontal: {Kind: assembly.KindBarLayer, Orientation: Horizontal, Field: ident.Layer, Label: "bar layer"},
	Passive:        {Kind: assembly.KindPassive, Recentre: true, Field: ident.PassiveLayer, Label: "passive plate"},
}

// Extent is what the composer needs to know about a sub-assembly.
type Extent struct {
	// Half is the half-thickness along z. Zero for empty sub-assemblies.
	Half float64
	// Shift is the transverse offset applied to recentred entries.
	Shift geom.Vec3
}

// Dimensions maps each available sub-assembly kind to its extent.
type Dimensions map[assembly.Kind]Extent

// State is the composer's carried state: the running offset and the index
// of the next code.
type State struct {
	Offset float64
	Index  int
}

// Layer is one planned layer placement.
type Layer struct {
	Index       int           `json:"index" bson:"index"`
	Code        string        `json:"code" bson:"code"`
	Kind        assembly.Kind `json:"kind" bson:"kind"`
	Orientation int           `json:"orientation_deg" bson:"orientation_deg"`
	Center      geom.Vec3     `json:"center" bson:"center"`
	Rotation    geom.Rotation `json:"rotation" bson:"rotation"`
	Half        float64       `json:"half_thickness" bson:"half_thickness"`
	Field       ident.Field   `json:"field" bson:"field"`
	ID          int           `json:"id" bson:"id"`
}

// Transform returns the placement transform of the layer in its envelope.
func (l Layer) Transform() geom.Transform {
	return geom.Transform{Rotation: l.Rotation, Position: l.Center}
}

// Options tune composition.
type Options struct {
	// Start is the initial offset: 0, or minus the envelope half-length.
	Start float64
	// GapAfter adds extra spacing after layers of the given code.
	GapAfter map[Code]float64
	// IndexStride and IndexOffset map the ordinal index iz to the identifier
	// iz*IndexStride + IndexOffset. A zero stride means 1.
	IndexStride int
	IndexOffset int
	// Detector names the detector in errors.
	Detector string
}

// Step performs one transition: it places a layer of extent d for entry e at
// the state's offset and returns the advanced state.
func Step(s State, c Code, e Entry, d Extent, opts Options) (State, Layer) {
	stride := opts.IndexStride
	if stride == 0 {
		stride = 1
	}

	offset := s.Offset + d.Half
	center := geom.V(0, 0, offset)
	if e.Recentre {
		center.X, center.Y = d.Shift.X, d.Shift.Y
	}
	layer := Layer{
		Index:       s.Index,
		Code:        c.String(),
		Kind:        e.Kind,
		Orientation: e.Orientation.Degrees(),
		Center:      center,
		Rotation:    e.Orientation.Rotation(),
		Half:        d.Half,
		Field:       e.Field,
		ID:          s.Index*stride + opts.IndexOffset,
	}
	offset += d.Half
	offset += opts.GapAfter[c]
	return State{Offset: offset, Index: s.Index + 1}, layer
}

// Plan is the result of composing a code string.
type Plan struct {
	Start  float64 `json:"start" bson:"start"`
	End    float64 `json:"end" bson:"end"`
	Layers []Layer `json:"layers" bson:"layers"`
}

// Thickness is the total stacked thickness including gaps.
func (p Plan) Thickness() float64 { return p.End - p.Start }

// Compose walks codes once and plans every layer.
//
// An unknown code is an UNKNOWN_LAYER_CODE error, and a code whose kind has
// no entry in dims is a CONFIGURATION error. In both cases no plan is
// returned; codes are never skipped.
func Compose(codes string, table Table, dims Dimensions, opts Options) (Plan, error) {
	if err := errors.ValidateLayerCodes(opts.Detector, codes); err != nil {
		return Plan{}, err
	}
	state := State{Offset: opts.Start}
	plan := Plan{Start: opts.Start, Layers: make([]Layer, 0, len(codes))}
	for i := 0; i < len(codes); i++ {
		c := Code(codes[i])
		e, ok := table.Lookup(c)
		if !ok {
			return Plan{}, &errors.Error{
				Code:      errors.ErrCodeUnknownLayerCode,
				Message:   fmt.Sprintf("layer code %q at position %d is not used by this detector", rune(c), i),
				Detector:  opts.Detector,
				Attribute: "layer_codes",
			}
		}
		d, ok := dims[e.Kind]
		if !ok {
			return Plan{}, errors.Configuration(opts.Detector, "layer_codes",
				"code %q at position %d needs a %s, none is configured", rune(c), i, e.Label)
		}
		var layer Layer
		state, layer = Step(state, c, e, d, opts)
		plan.Layers = append(plan.Layers, layer)
	}
	plan.End = state.Offset
	return plan, nil
}

// fitEps absorbs rounding in the envelope check, in mm.
const fitEps = 1e-7

// Validate checks that the stack lies inside an envelope of the given
// half-length centred on z=0. It returns a GEOMETRY_OVERFLOW error when the
// stack starts before the front face or ends past the back face.
func (p Plan) Validate(detector string, envelopeHalf float64) error {
	if p.Start < -envelopeHalf-fitEps {
		return errors.Overflow(detector,
			"stack starts at z=%g, before the envelope front face at %g", p.Start, -envelopeHalf)
	}
	if p.End > envelopeHalf+fitEps {
		return errors.Overflow(detector,
			"stack ends at z=%g, past the envelope back face at %g by %g", p.End, envelopeHalf, p.End-envelopeHalf)
	}
	return nil
}
