package sink

import (
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/render"
	"github.com/matzehuels/calostack/pkg/report"
)

// DefaultRasterScale is the PNG resolution multiplier used when none is given.
const DefaultRasterScale = 2.0

// Export renders the side view of d in format: svg directly, png and pdf by
// converting the SVG. scale only affects png; zero means DefaultRasterScale.
func Export(d report.Detector, format string, scale float64, opts ...SVGOption) ([]byte, error) {
	svg := RenderSVG(d, opts...)
	switch format {
	case render.FormatSVG:
		return svg, nil
	case render.FormatPNG:
		if scale <= 0 {
			scale = DefaultRasterScale
		}
		return render.ToPNG(svg, scale)
	case render.FormatPDF:
		return render.ToPDF(svg)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unsupported side view format: %s", format)
}
