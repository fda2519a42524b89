package hierarchy

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/report"
)

// Options configures hierarchy rendering.
type Options struct {
	// Detailed includes solid, material and half-extents in node labels.
	// When false, only the volume name is shown.
	Detailed bool
	// Detector limits the graph to the named detector's subtree.
	Detector string
}

// edge is a collapsed group of placements of one daughter in one mother.
type edge struct {
	from, to string
	count    int
	field    ident.Field
	min, max int
}

// ToDOT converts the volume tree of g to Graphviz DOT.
func ToDOT(g *report.Geometry, opts Options) string {
	byName := make(map[string]*report.Volume, len(g.Volumes))
	for i := range g.Volumes {
		byName[g.Volumes[i].Name] = &g.Volumes[i]
	}

	root := g.World.Name
	if opts.Detector != "" {
		root = opts.Detector
	}
	order, edges := walk(byName, root)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("\n")

	for _, name := range order {
		v := byName[name]
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(v, opts.Detailed))}
		if v.Sensitive != "" {
			attrs = append(attrs, "fillcolor=\"#f9e79f\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.from, e.to, edgeLabel(e))
	}
	buf.WriteString("}\n")
	return buf.String()
}

// walk lists the volumes reachable from root depth first, in placement
// order, together with the collapsed edges between them.
func walk(byName map[string]*report.Volume, root string) ([]string, []edge) {
	if _, ok := byName[root]; !ok {
		return nil, nil
	}
	var (
		order []string
		edges []edge
		seen  = map[string]bool{}
	)
	var visit func(name string)
	visit = func(name string) {
		seen[name] = true
		order = append(order, name)
		v := byName[name]

		var local []edge
		index := map[string]int{}
		for _, p := range v.Daughters {
			i, ok := index[p.Volume]
			if !ok {
				i = len(local)
				index[p.Volume] = i
				local = append(local, edge{from: name, to: p.Volume})
			}
			e := &local[i]
			if len(p.IDs) > 0 {
				id := p.IDs[0]
				if e.count == 0 || id.Value < e.min {
					e.min = id.Value
				}
				if e.count == 0 || id.Value > e.max {
					e.max = id.Value
				}
				e.field = id.Field
			}
			e.count++
		}
		edges = append(edges, local...)
		for _, e := range local {
			if !seen[e.to] {
				if _, ok := byName[e.to]; ok {
					visit(e.to)
				}
			}
		}
	}
	visit(root)
	return order, edges
}

func nodeLabel(v *report.Volume, detailed bool) string {
	if !detailed {
		return v.Name
	}
	parts := []string{
		fmt.Sprintf("%s %s", v.Solid, v.HalfExtents),
		"material: " + v.Material,
	}
	if v.Sensitive != "" {
		parts = append(parts, "sensitive: "+v.Sensitive)
	}
	return v.Name + "\n" + strings.Join(parts, "\n")
}

func edgeLabel(e edge) string {
	switch {
	case e.field == "":
		if e.count == 1 {
			return ""
		}
		return fmt.Sprintf("x%d", e.count)
	case e.count == 1:
		return fmt.Sprintf("%s=%d", e.field, e.min)
	default:
		return fmt.Sprintf("%s=%d..%d (x%d)", e.field, e.min, e.max, e.count)
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces graphviz's pt-sized root element with a plain
// pixel-sized one so the SVG scales like the side views.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
