// Package render provides visual outputs for built geometries.
//
// # Overview
//
// Two views are produced from a [report.Geometry]:
//
//   - Stack side views (in [sink] subpackage): one x–z cross-section per
//     detector with a rectangle per planned layer
//   - Volume hierarchy graphs (in [hierarchy] subpackage): Graphviz DOT of
//     the volume tree with identifier fields on the edges
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := sink.RenderSVG(det, sink.WithLabels())
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [report.Geometry]: github.com/matzehuels/calostack/pkg/report
// [sink]: github.com/matzehuels/calostack/pkg/render/sink
// [hierarchy]: github.com/matzehuels/calostack/pkg/render/hierarchy
package render
