package hierarchy

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
	"github.com/matzehuels/calostack/pkg/report"
)

func testGeometry() *report.Geometry {
	bars := make([]report.Placement, 3)
	for i := range bars {
		bars[i] = report.Placement{Volume: "SplitCal_widebar", IDs: []ident.Value{{Field: ident.SplitCalBar, Value: i}}}
	}
	return &report.Geometry{
		World: report.World{Name: "world"},
		Volumes: []report.Volume{
			{Name: "world", Solid: "box", Material: "Air", Daughters: []report.Placement{
				{Volume: "SplitCal", IDs: []ident.Value{{Field: ident.System, Value: 9}}},
			}},
			{Name: "SplitCal", Solid: "box", Material: "Air", Daughters: []report.Placement{
				{Volume: "SplitCal_widebar_layer", IDs: []ident.Value{{Field: ident.SplitCalLayer, Value: 0}}},
				{Volume: "SplitCal_passive_layer", IDs: []ident.Value{{Field: ident.SplitCalPassiveLayer, Value: 1}}},
				{Volume: "SplitCal_widebar_layer", IDs: []ident.Value{{Field: ident.SplitCalLayer, Value: 2}}},
			}},
			{Name: "SplitCal_widebar_layer", Solid: "box", Material: "Air", Daughters: bars},
			{Name: "SplitCal_widebar", Solid: "box", HalfExtents: geom.V(5, 100, 5), Material: "Scintillator", Sensitive: "calorimeter"},
			{Name: "SplitCal_passive_layer", Solid: "box", Material: "Lead"},
			{Name: "orphan", Solid: "box", Material: "Air"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGeometry(), Options{})

	tests := []struct {
		name string
		want string
	}{
		{"system edge", `"world" -> "SplitCal" [label="system=9"];`},
		{"collapsed layers", `"SplitCal" -> "SplitCal_widebar_layer" [label="splitcal_layer=0..2 (x2)"];`},
		{"collapsed bars", `"SplitCal_widebar_layer" -> "SplitCal_widebar" [label="splitcal_bar=0..2 (x3)"];`},
		{"sensitive fill", `"SplitCal_widebar" [label="SplitCal_widebar", fillcolor="#f9e79f"];`},
		{"plain node", `"SplitCal_passive_layer" [label="SplitCal_passive_layer"];`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(dot, tt.want) {
				t.Errorf("DOT missing %s\n%s", tt.want, dot)
			}
		})
	}
	if strings.Contains(dot, "orphan") {
		t.Error("unreachable volume included")
	}
	if n := strings.Count(dot, " -> "); n != 4 {
		t.Errorf("edges = %d, want 4", n)
	}
}

func TestToDOTDetector(t *testing.T) {
	dot := ToDOT(testGeometry(), Options{Detector: "SplitCal", Detailed: true})
	if strings.Contains(dot, `"world"`) {
		t.Error("world included in detector subtree")
	}
	if !strings.Contains(dot, `material: Scintillator\nsensitive: calorimeter`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
	if empty := ToDOT(testGeometry(), Options{Detector: "nope"}); strings.Contains(empty, "->") {
		t.Error("unknown detector produced edges")
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(testGeometry(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(svg)), "<") || !strings.Contains(string(svg), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("not an svg: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}
}
