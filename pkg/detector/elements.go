package detector

import (
	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/geom"
)

// boxElement converts a required box child table.
func boxElement(det *config.Detector, attribute string, e *config.Element) (assembly.ElementSpec, error) {
	if _, err := det.Require(attribute, e); err != nil {
		return assembly.ElementSpec{}, err
	}
	spec := assembly.Box(attribute, e.X, e.Y, e.Z, e.Material)
	decorate(&spec, e, backend.SensitiveCalorimeter)
	return spec, spec.Validate(det.Name, attribute)
}

// barElement converts a required bar child table. Bars are always
// calorimeter sensitive, whatever the description says.
func barElement(det *config.Detector, attribute string, e *config.Element) (assembly.ElementSpec, error) {
	spec, err := boxElement(det, attribute, e)
	markSensitive(&spec, backend.SensitiveCalorimeter)
	return spec, err
}

// tubeElement converts a required fibre child table. The fibre length is
// taken from y.
func tubeElement(det *config.Detector, attribute string, e *config.Element) (assembly.ElementSpec, error) {
	if _, err := det.Require(attribute, e); err != nil {
		return assembly.ElementSpec{}, err
	}
	spec := assembly.Tube(attribute, e.RMax, e.Y, e.Thickness, e.Material)
	decorate(&spec, e, backend.SensitiveTracker)
	return spec, spec.Validate(det.Name, attribute)
}

// coreElement derives the fibre core from the cladding and an optional core
// child table supplying material, attributes and sensitivity.
func coreElement(det *config.Detector, attribute string, fibre assembly.ElementSpec, e *config.Element, sensType string) (*assembly.ElementSpec, error) {
	material := fibre.Material
	if e != nil && e.Material != "" {
		material = e.Material
	}
	core, ok := fibre.Core(material)
	if !ok {
		return nil, nil
	}
	core.Sensitive, core.SensitiveType = false, ""
	core.Region, core.Limits, core.Vis = "", "", ""
	if e != nil {
		decorate(&core, e, sensType)
	}
	return &core, core.Validate(det.Name, attribute)
}

func decorate(spec *assembly.ElementSpec, e *config.Element, sensType string) {
	spec.Region, spec.Limits, spec.Vis = e.Region, e.Limits, e.Vis
	if e.Sensitive {
		markSensitive(spec, sensType)
	}
}

func markSensitive(spec *assembly.ElementSpec, sensType string) {
	spec.Sensitive = true
	spec.SensitiveType = sensType
}

// envelopeBox returns the half-extents of the required box child table.
func envelopeBox(det *config.Detector) (geom.Box, error) {
	if _, err := det.Require("box", det.Box); err != nil {
		return geom.Box{}, err
	}
	if err := det.Box.RequireBox(det.Name, "box"); err != nil {
		return geom.Box{}, err
	}
	return geom.NewBox(det.Box.X, det.Box.Y, det.Box.Z), nil
}

func moduleAttrs(e *config.Element) backend.Attributes {
	if e == nil {
		return backend.Attributes{}
	}
	return backend.Attributes{Region: e.Region, Limits: e.Limits, Vis: e.Vis}
}

func materialOr(e *config.Element, def string) string {
	if e != nil && e.Material != "" {
		return e.Material
	}
	return def
}
