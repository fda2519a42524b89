// Package hierarchy renders the volume tree of a built geometry as a
// Graphviz graph.
//
// # Overview
//
// Every backend volume becomes a node and every placement an edge from
// mother to daughter. Repeated placements of the same daughter (the bars of
// a layer, the fibres of a row) collapse into one edge labelled with the
// identifier field and the range of values it carries, so a SplitCal with
// thousands of bars still yields a readable graph.
//
// # Usage
//
//	dot := hierarchy.ToDOT(g, hierarchy.Options{Detailed: true})
//	svg, err := hierarchy.RenderSVG(ctx, dot)
//
// Sensitive volumes are filled; with Detailed set, node labels include the
// solid, material and half-extents.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package hierarchy
