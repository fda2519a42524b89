// Package sink renders the layer stack of a detector as an SVG side view.
//
// The view is an x–z cross-section: the beam axis z runs left to right and
// x runs top to bottom. Every planned layer becomes one rectangle spanning
// its z extent, shifted in x when the layer was recentred. The envelope is
// drawn as a frame around the stack.
//
//	svg := sink.RenderSVG(det, sink.WithLabels(), sink.WithScale(4))
//	pdf, err := sink.Export(det, render.FormatPDF, 0, sink.WithLabels())
//
// Rendering is deterministic: the same report always yields the same bytes.
package sink
