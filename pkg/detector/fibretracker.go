package detector

import (
	"math"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
)

// BuildFibreTracker builds an HPL fibre tracker: n_fibre_layers rows of clad
// fibres filling the envelope. Full rows carry big_layer and staggered rows
// small_layer identifiers; fibre identifiers restart in every row. Fibre
// cores are sensitive tracker volumes. The fibre module is the envelope; an
// empty module leaves a bare envelope box.
func BuildFibreTracker(c *Context, det *config.Detector) (*Detector, error) {
	inner, err := envelopeBox(det)
	if err != nil {
		return nil, err
	}
	d := &Detector{Name: det.Name, Type: det.Type, ID: det.ID, EnvelopeBox: inner.Grow(Tolerance)}

	fibre, err := tubeElement(det, "fibre", det.Fibre)
	if err != nil {
		return nil, err
	}
	core, err := coreElement(det, "core", fibre, det.Core, backend.SensitiveTracker)
	if err != nil {
		return nil, err
	}
	if core != nil {
		fibre.Sensitive, fibre.SensitiveType = false, ""
	}
	count := det.Fibre.NumX
	if count == 0 {
		count = assembly.FibreCount(inner.DX, fibre.RMax, Tolerance)
	}
	mod, err := assembly.FibreModuleSpec{
		Name:              "fibres",
		Fibre:             fibre,
		Core:              core,
		Count:             count,
		Layers:            det.NFibreLayers,
		Envelope:          d.EnvelopeBox,
		Material:          materialOr(det.Box, "Air"),
		Attrs:             moduleAttrs(det.Box),
		FibreRotation:     geom.RotX(math.Pi / 2),
		Tolerance:         Tolerance,
		FibreField:        ident.Fibre,
		RowField:          ident.BigLayer,
		StaggeredRowField: ident.SmallLayer,
		Attribute:         "fibre",
	}.Plan(det.Name)
	if err != nil {
		return nil, err
	}

	b := assembly.NewBuilder(c.Backend, det.Name, c.Logger)
	sa, err := b.FibreModule(mod)
	if err != nil {
		return nil, err
	}
	d.Assemblies = []*assembly.SubAssembly{sa}
	d.Envelope = sa.Volume
	if sa.Empty() {
		if d.Envelope, err = c.envelope(det, d.EnvelopeBox); err != nil {
			return nil, err
		}
	}
	if err := c.placeInMother(d, det); err != nil {
		return nil, err
	}
	return d, nil
}
