package sink

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/report"
	"github.com/matzehuels/calostack/pkg/stack"
)

// layerColors maps sub-assembly kinds to fill colours.
var layerColors = map[assembly.Kind]string{
	assembly.KindWideBar:     "#7fb3d5",
	assembly.KindThinBar:     "#a9cce3",
	assembly.KindBarLayer:    "#7fb3d5",
	assembly.KindFibreModule: "#f5cba7",
	assembly.KindPassive:     "#85929e",
	assembly.KindSplit:       "#d5d8dc",
}

const defaultFill = "#eeeeee"

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	scale    float64
	margin   float64
	labels   bool
	elements bool
	title    string
}

// WithScale sets the number of pixels per millimetre (default 1).
func WithScale(s float64) SVGOption { return func(r *svgRenderer) { r.scale = s } }

// WithMargin sets the canvas margin in pixels (default 20).
func WithMargin(m float64) SVGOption { return func(r *svgRenderer) { r.margin = m } }

// WithLabels writes each layer's code above its rectangle.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.labels = true } }

// WithElements marks element centres inside layers whose elements lie side
// by side in x.
func WithElements() SVGOption { return func(r *svgRenderer) { r.elements = true } }

// WithTitle sets the caption drawn under the stack.
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{scale: 1, margin: 20}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		r.scale = 1
	}
	return r
}

// RenderSVG renders the side view of d.
func RenderSVG(d report.Detector, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)
	ext := d.HalfExtents

	width := 2*ext.Z*r.scale + 2*r.margin
	height := 2*ext.X*r.scale + 2*r.margin
	if r.title != "" {
		height += 20
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, `  <rect class="envelope" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="white" stroke="#333" stroke-width="1"/>`+"\n",
		r.margin, r.margin, 2*ext.Z*r.scale, 2*ext.X*r.scale)

	centres := elementCentres(d)
	for _, l := range d.Layers {
		r.renderLayer(&buf, d, l)
		if r.elements && l.Orientation == 0 {
			r.renderElements(&buf, d, l, centres[l.Kind])
		}
	}
	if r.labels {
		for _, l := range d.Layers {
			r.renderLabel(&buf, d, l)
		}
	}
	if r.title != "" {
		fmt.Fprintf(&buf, `  <text x="%.2f" y="%.2f" font-family="sans-serif" font-size="12">%s</text>`+"\n",
			r.margin, height-r.margin/2, html.EscapeString(r.title))
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// zx maps detector-local (z, x) to canvas coordinates.
func (r *svgRenderer) zx(d report.Detector, z, x float64) (float64, float64) {
	return r.margin + (z+d.HalfExtents.Z)*r.scale, r.margin + (x+d.HalfExtents.X)*r.scale
}

func (r *svgRenderer) renderLayer(buf *bytes.Buffer, d report.Detector, l stack.Layer) {
	fill, ok := layerColors[l.Kind]
	if !ok {
		fill = defaultFill
	}
	x, y := r.zx(d, l.Center.Z-l.Half, l.Center.X-d.HalfExtents.X)
	fmt.Fprintf(buf, `  <rect class="layer" id="layer-%d" data-code="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="#333" stroke-width="0.5"><title>%s %s=%d</title></rect>`+"\n",
		l.Index, l.Code, x, y, 2*l.Half*r.scale, 2*d.HalfExtents.X*r.scale, fill, l.Kind, l.Field, l.ID)
}

func (r *svgRenderer) renderElements(buf *bytes.Buffer, d report.Detector, l stack.Layer, centres []float64) {
	for _, c := range centres {
		x1, y := r.zx(d, l.Center.Z-l.Half, l.Center.X+c)
		x2, _ := r.zx(d, l.Center.Z+l.Half, l.Center.X+c)
		fmt.Fprintf(buf, `  <line class="element" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#333" stroke-width="0.3"/>`+"\n",
			x1, y, x2, y)
	}
}

func (r *svgRenderer) renderLabel(buf *bytes.Buffer, d report.Detector, l stack.Layer) {
	x, _ := r.zx(d, l.Center.Z, 0)
	fmt.Fprintf(buf, `  <text class="label" x="%.2f" y="%.2f" font-family="sans-serif" font-size="10" text-anchor="middle">%s</text>`+"\n",
		x, r.margin-4, l.Code)
}

// elementCentres returns the x centres of each bar assembly's elements.
func elementCentres(d report.Detector) map[assembly.Kind][]float64 {
	out := make(map[assembly.Kind][]float64)
	for _, a := range d.Assemblies {
		switch a.Kind {
		case assembly.KindWideBar, assembly.KindThinBar, assembly.KindBarLayer:
			out[a.Kind] = a.Centers
		}
	}
	return out
}
