package detector

import (
	"math"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/stack"
)

// Tolerance shrinks elements and grows envelopes of the single bar layer and
// the fibre tracker, in mm.
const Tolerance = 1e-5

// LayerOfBarsTable places the single layer box of a LayerOfBars.
var LayerOfBarsTable = stack.Table{
	stack.WideHorizontal: {Kind: assembly.KindBarLayer, Orientation: stack.Horizontal, Field: ident.LayerBox, Label: "layer box"},
}

// BuildLayerOfBars builds one layer of bars lying along z, placed at
// bar half-width + i*x_spacing inside a layer box that fills the envelope.
func BuildLayerOfBars(c *Context, det *config.Detector) (*Detector, error) {
	inner, err := envelopeBox(det)
	if err != nil {
		return nil, err
	}
	d := &Detector{Name: det.Name, Type: det.Type, ID: det.ID, EnvelopeBox: inner.Grow(Tolerance)}

	bar, err := barElement(det, "bar", det.Bar)
	if err != nil {
		return nil, err
	}
	rowPlan, err := assembly.RowSpec{
		Name:            "layerbox",
		Kind:            assembly.KindBarLayer,
		Element:         bar,
		Row:             assembly.IncrementRow(det.Bar.NumX, bar.HalfWidth(), det.Bar.XSpacing),
		Envelope:        inner,
		Material:        materialOr(det.Box, "Air"),
		Attrs:           moduleAttrs(det.Box),
		ElementRotation: geom.RotX(math.Pi / 2),
		Field:           ident.Bar,
		Tolerance:       Tolerance,
		Attribute:       "bar",
	}.Plan(det.Name)
	if err != nil {
		return nil, err
	}

	plan, err := stack.Compose(string(stack.WideHorizontal), LayerOfBarsTable,
		stack.Dimensions{assembly.KindBarLayer: {Half: rowPlan.HalfThickness()}},
		stack.Options{Start: -rowPlan.HalfThickness(), Detector: det.Name})
	if err != nil {
		return nil, err
	}
	d.Plan = plan
	if err := c.checkPlan(d, plan); err != nil {
		return nil, err
	}

	if d.Envelope, err = c.envelope(det, d.EnvelopeBox); err != nil {
		return nil, err
	}
	b := assembly.NewBuilder(c.Backend, det.Name, c.Logger)
	layer, err := b.Row(rowPlan, ident.NewSequence(0))
	if err != nil {
		return nil, err
	}
	d.Assemblies = []*assembly.SubAssembly{layer}
	if err := placeLayers(b, d, map[assembly.Kind]*assembly.SubAssembly{assembly.KindBarLayer: layer}); err != nil {
		return nil, err
	}
	if err := c.placeInMother(d, det); err != nil {
		return nil, err
	}
	return d, nil
}
