package detector

import (
	"math"
	"strings"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/stack"
)

// uses reports whether codes contain any of the given codes.
func uses(codes string, cs ...stack.Code) bool {
	for _, c := range cs {
		if strings.IndexByte(codes, byte(c)) >= 0 {
			return true
		}
	}
	return false
}

// BuildSplitCal builds a SplitCal: wide-bar, thin-bar and HPL fibre layers,
// passive plates and mechanical splits stacked from the front face of the
// envelope according to layer_codes.
//
// Bar identifiers continue from the wide bars into the thin bars, and fibre
// identifiers from the full into the staggered fibre row.
func BuildSplitCal(c *Context, det *config.Detector) (*Detector, error) {
	env, err := envelopeBox(det)
	if err != nil {
		return nil, err
	}
	d := &Detector{Name: det.Name, Type: det.Type, ID: det.ID, EnvelopeBox: env}
	codes := det.LayerCodes

	// Plan.
	var (
		rows     = make(map[assembly.Kind]assembly.RowPlan)
		hpl      assembly.FibreModulePlan
		hasHPL   bool
		passive  assembly.ElementSpec
		split    assembly.ElementSpec
		dims     = stack.Dimensions{}
		gapAfter = map[stack.Code]float64{}
	)
	for _, bar := range []struct {
		kind  assembly.Kind
		attr  string
		elem  *config.Element
		codes []stack.Code
	}{
		{assembly.KindWideBar, "widebar", det.WideBar, []stack.Code{stack.WideVertical, stack.WideHorizontal}},
		{assembly.KindThinBar, "thinbar", det.ThinBar, []stack.Code{stack.ThinVertical, stack.ThinHorizontal}},
	} {
		if bar.elem == nil && !uses(codes, bar.codes...) {
			continue
		}
		spec, err := barElement(det, bar.attr, bar.elem)
		if err != nil {
			return nil, err
		}
		plan, err := assembly.RowSpec{
			Name:      bar.attr + "_layer",
			Kind:      bar.kind,
			Element:   spec,
			Row:       assembly.EdgeRow(bar.elem.NumX, env.DX, spec.HalfWidth(), bar.elem.XExtraSpacing),
			Envelope:  geom.Box{DX: env.DX, DY: spec.HalfY, DZ: spec.HalfZ},
			Material:  materialOr(det.Box, "Air"),
			Field:     ident.SplitCalBar,
			Attribute: bar.attr,
		}.Plan(det.Name)
		if err != nil {
			return nil, err
		}
		rows[bar.kind] = plan
		dims[bar.kind] = stack.Extent{Half: plan.HalfThickness()}
	}

	if det.HPLBox != nil || uses(codes, stack.FibreVertical, stack.FibreHorizontal) {
		spec, err := splitCalFibreModule(det)
		if err != nil {
			return nil, err
		}
		if hpl, err = spec.Plan(det.Name); err != nil {
			return nil, err
		}
		hasHPL = true
		dims[assembly.KindFibreModule] = stack.Extent{Half: hpl.HalfThickness()}
	}

	if det.PassiveLayer != nil || uses(codes, stack.Passive) {
		if passive, err = boxElement(det, "passive_layer", det.PassiveLayer); err != nil {
			return nil, err
		}
		dims[assembly.KindPassive] = stack.Extent{Half: passive.HalfZ}
		gapAfter[stack.Passive] = det.PassiveLayer.ExtraZGap
	}
	if det.Split != nil || uses(codes, stack.Split) {
		if split, err = boxElement(det, "split", det.Split); err != nil {
			return nil, err
		}
		dims[assembly.KindSplit] = stack.Extent{Half: split.HalfZ}
		gapAfter[stack.Split] = det.Split.ExtraZGap
	}

	plan, err := stack.Compose(codes, stack.SplitCalTable, dims, stack.Options{
		Start:    startOffset(det, env.DZ, config.StartFront),
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

	// Materialize.
	if d.Envelope, err = c.envelope(det, env); err != nil {
		return nil, err
	}
	b := assembly.NewBuilder(c.Backend, det.Name, c.Logger)
	bykind := make(map[assembly.Kind]*assembly.SubAssembly)
	bars := ident.NewSequence(0)
	for _, kind := range []assembly.Kind{assembly.KindWideBar, assembly.KindThinBar} {
		p, ok := rows[kind]
		if !ok {
			continue
		}
		sa, err := b.Row(p, bars)
		if err != nil {
			return nil, err
		}
		bykind[kind] = sa
	}
	if hasHPL {
		sa, err := b.FibreModule(hpl)
		if err != nil {
			return nil, err
		}
		bykind[assembly.KindFibreModule] = sa
	}
	if _, ok := dims[assembly.KindPassive]; ok {
		sa, err := b.Slab("passive_layer", assembly.KindPassive, passive, 0)
		if err != nil {
			return nil, err
		}
		bykind[assembly.KindPassive] = sa
	}
	if _, ok := dims[assembly.KindSplit]; ok {
		sa, err := b.Slab("split", assembly.KindSplit, split, 0)
		if err != nil {
			return nil, err
		}
		bykind[assembly.KindSplit] = sa
	}
	for _, kind := range []assembly.Kind{assembly.KindWideBar, assembly.KindThinBar, assembly.KindFibreModule, assembly.KindPassive, assembly.KindSplit} {
		if sa, ok := bykind[kind]; ok {
			d.Assemblies = append(d.Assemblies, sa)
		}
	}

	if err := placeLayers(b, d, bykind); err != nil {
		return nil, err
	}
	if err := c.placeInMother(d, det); err != nil {
		return nil, err
	}
	return d, nil
}

// splitCalFibreModule describes the HPL box: hpl_fibre_layers rows of clad
// fibres lying along y.
func splitCalFibreModule(det *config.Detector) (assembly.FibreModuleSpec, error) {
	if _, err := det.Require("hplbox", det.HPLBox); err != nil {
		return assembly.FibreModuleSpec{}, err
	}
	if err := det.HPLBox.RequireBox(det.Name, "hplbox"); err != nil {
		return assembly.FibreModuleSpec{}, err
	}
	box := geom.NewBox(det.HPLBox.X, det.HPLBox.Y, det.HPLBox.Z)
	fibre, err := tubeElement(det, "hplfibre", det.HPLFibre)
	if err != nil {
		return assembly.FibreModuleSpec{}, err
	}
	fibre.Sensitive, fibre.SensitiveType = false, ""
	core, err := coreElement(det, "hplcore", fibre, det.HPLCore, backend.SensitiveCalorimeter)
	if err != nil {
		return assembly.FibreModuleSpec{}, err
	}
	if core != nil {
		markSensitive(core, backend.SensitiveCalorimeter)
	}
	count := det.HPLFibre.NumX
	if count == 0 {
		count = assembly.FibreCount(box.DX, fibre.RMax, 0)
	}
	return assembly.FibreModuleSpec{
		Name:               "hplbox",
		Fibre:              fibre,
		Core:               core,
		Count:              count,
		Layers:             det.HPLFibreLayers,
		Envelope:           box,
		Material:           materialOr(det.HPLBox, materialOr(det.Box, "Air")),
		Attrs:              moduleAttrs(det.HPLBox),
		FibreRotation:      geom.RotX(math.Pi / 2),
		FibreField:         ident.SplitCalHPLFibre,
		RowField:           ident.SplitCalHPLLayer,
		ContinueFibreIndex: true,
		Attribute:          "hplfibre",
	}, nil
}
