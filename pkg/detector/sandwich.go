package detector

import (
	"strings"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/stack"
)

// SandwichCodes returns the layer codes of a sandwich calorimeter with numZ
// bar layers: horizontal and vertical layers alternate, starting
// horizontal, each followed by a passive plate when withPassive is set.
func SandwichCodes(numZ int, withPassive bool) string {
	var sb strings.Builder
	for iz := 0; iz < numZ; iz++ {
		if iz%2 == 0 {
			sb.WriteByte(byte(stack.WideHorizontal))
		} else {
			sb.WriteByte(byte(stack.WideVertical))
		}
		if withPassive {
			sb.WriteByte(byte(stack.Passive))
		}
	}
	return sb.String()
}

// BuildSandwich builds a sandwich calorimeter: num_z bar layers of
// alternating orientation interleaved with passive plates, stacked from
// z=0. With a passive plate after every layer, bar layers get even and plates
// odd identifiers.
//
// Vertical layers are shifted by one bar half-height (+y, -y) and passive
// plates by one plate half-width along x. layer_codes, when given, replaces
// the generated sequence.
func BuildSandwich(c *Context, det *config.Detector) (*Detector, error) {
	env, err := envelopeBox(det)
	if err != nil {
		return nil, err
	}
	d := &Detector{Name: det.Name, Type: det.Type, ID: det.ID, EnvelopeBox: env}

	bar, err := barElement(det, "bar", det.Bar)
	if err != nil {
		return nil, err
	}
	rowPlan, err := assembly.RowSpec{
		Name:      "bar_layer",
		Kind:      assembly.KindBarLayer,
		Element:   bar,
		Row:       assembly.IncrementRow(det.Bar.NumX, bar.HalfWidth(), det.Bar.XSpacing),
		Envelope:  geom.Box{DX: env.DX, DY: env.DY, DZ: bar.HalfZ},
		Material:  materialOr(det.Box, "Air"),
		Field:     ident.Bar,
		Attribute: "bar",
	}.Plan(det.Name)
	if err != nil {
		return nil, err
	}

	dims := stack.Dimensions{
		assembly.KindBarLayer: {Half: rowPlan.HalfThickness(), Shift: geom.V(bar.HalfY, -bar.HalfY, 0)},
	}
	gapAfter := map[stack.Code]float64{}
	var passive assembly.ElementSpec
	if det.PassiveLayer != nil {
		if passive, err = boxElement(det, "passive_layer", det.PassiveLayer); err != nil {
			return nil, err
		}
		dims[assembly.KindPassive] = stack.Extent{Half: passive.HalfZ, Shift: geom.V(passive.HalfX, 0, 0)}
		gapAfter[stack.Passive] = det.PassiveLayer.ExtraZGap
	}

	codes := det.LayerCodes
	if codes == "" {
		if err := errors.ValidateCount(det.Name, "num_z", det.NumZ); err != nil {
			return nil, err
		}
		codes = SandwichCodes(det.NumZ, det.PassiveLayer != nil)
	}
	plan, err := stack.Compose(codes, stack.SandwichTable, dims, stack.Options{
		Start:    startOffset(det, env.DZ, config.StartZero),
		GapAfter: gapAfter,
		Detector: det.Name,
	})
	if err != nil {
		return nil, err
	}
	d.Plan = plan
	if err := c.checkPlan(d, plan); err != nil {
		return nil, err
	}

	if d.Envelope, err = c.envelope(det, env); err != nil {
		return nil, err
	}
	b := assembly.NewBuilder(c.Backend, det.Name, c.Logger)
	layer, err := b.Row(rowPlan, ident.NewSequence(0))
	if err != nil {
		return nil, err
	}
	bykind := map[assembly.Kind]*assembly.SubAssembly{assembly.KindBarLayer: layer}
	d.Assemblies = append(d.Assemblies, layer)
	if det.PassiveLayer != nil {
		sa, err := b.Slab("passive_layer", assembly.KindPassive, passive, 0)
		if err != nil {
			return nil, err
		}
		bykind[assembly.KindPassive] = sa
		d.Assemblies = append(d.Assemblies, sa)
	}

	if err := placeLayers(b, d, bykind); err != nil {
		return nil, err
	}
	if err := c.placeInMother(d, det); err != nil {
		return nil, err
	}
	return d, nil
}
