package report

import (
	"context"
	"testing"

	"github.com/matzehuels/calostack/pkg/backend/memory"
	"github.com/matzehuels/calostack/pkg/config"
	"github.com/matzehuels/calostack/pkg/detector"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/ident"
)

const description = `
[world]
name = "world"
material = "Air"

[[detector]]
name = "SplitCal"
type = "DD4hep_SplitCal"
id = 9
layer_codes = "1272"
box = { x = 30.0, y = 200.0, z = 400.0, material = "Air" }
widebar = { x = 10.0, y = 200.0, z = 10.0, material = "Scintillator", num_x = 3, sensitive = true }
passive_layer = { x = 30.0, y = 200.0, z = 20.0, material = "Lead", extrazgap = 1.0 }
`

func buildReport(t *testing.T) *Geometry {
	t.Helper()
	desc, err := config.Parse([]byte(description))
	if err != nil {
		t.Fatal(err)
	}
	reg := memory.NewRegistry()
	w, err := detector.Build(context.Background(), reg, desc, detector.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return New(w, reg)
}

func TestNew(t *testing.T) {
	g := buildReport(t)

	if g.Stats.Detectors != 1 || g.Stats.Layers != 4 {
		t.Errorf("stats = %+v", g.Stats)
	}
	// world, envelope, wide layer, bar, passive
	if g.Stats.Volumes != 5 {
		t.Errorf("Volumes = %d, want 5", g.Stats.Volumes)
	}
	// 3 bars + 4 layers + 1 detector
	if g.Stats.Placements != 8 {
		t.Errorf("Placements = %d, want 8", g.Stats.Placements)
	}
	if g.Stats.Sensitive != 1 {
		t.Errorf("Sensitive = %d, want 1", g.Stats.Sensitive)
	}
	want := []string{"Air", "Lead", "Scintillator"}
	if len(g.Stats.Materials) != 3 || g.Stats.Materials[1] != want[1] {
		t.Errorf("Materials = %v, want %v", g.Stats.Materials, want)
	}

	d, ok := g.Detector("SplitCal")
	if !ok {
		t.Fatal("detector missing from report")
	}
	if d.Thickness != 51 || d.Start != -200 {
		t.Errorf("stack spans %g from %g", d.Thickness, d.Start)
	}
	if len(d.Assemblies) != 2 || d.Assemblies[0].IDs[2] != 2 {
		t.Errorf("assemblies = %+v", d.Assemblies)
	}

	env, _ := g.Volume("SplitCal")
	if len(env.Daughters) != 4 || env.Daughters[2].IDs[0] != (ident.Value{Field: ident.SplitCalPassiveLayer, Value: 2}) {
		t.Errorf("envelope daughters = %+v", env.Daughters)
	}
}

func TestDecoder(t *testing.T) {
	g := buildReport(t)
	path, err := g.Decoder().Resolve("world", [][]ident.Value{
		{{Field: ident.System, Value: 9}},
		{{Field: ident.SplitCalLayer, Value: 3}},
		{{Field: ident.SplitCalBar, Value: 1}},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if path[0].Volume != "SplitCal" || path[1].Volume != "SplitCal_widebar_layer" || path[2].Volume != "SplitCal_widebar" {
		t.Errorf("path = %+v", path)
	}

	_, err = g.Decoder().Resolve("world", [][]ident.Value{
		{{Field: ident.System, Value: 9}},
		{{Field: ident.SplitCalLayer, Value: 2}},
		{{Field: ident.SplitCalBar, Value: 0}},
	})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("bar inside passive plate resolved, error = %v", err)
	}
}

func TestResolveKey(t *testing.T) {
	g := buildReport(t)
	path, err := g.ResolveKey("SplitCal", ident.Encode(3, 1).Key())
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	if len(path) != 3 || path[1].Volume != "SplitCal_widebar_layer" || path[2].Volume != "SplitCal_widebar" {
		t.Fatalf("path = %+v", path)
	}
	if path[2].Values[0] != (ident.Value{Field: ident.SplitCalBar, Value: 1}) {
		t.Errorf("element ids = %v", path[2].Values)
	}
	if key, ok := PathKey(path); !ok || key != ident.Encode(3, 1).Key() {
		t.Errorf("PathKey() = %d, %v", key, ok)
	}
	if _, ok := PathKey(path[:2]); ok {
		t.Error("two-step path has a key")
	}

	for _, tt := range []struct {
		name     string
		detector string
		key      int64
	}{
		{"unknown detector", "Tracker", ident.Encode(0, 0).Key()},
		{"unknown layer", "SplitCal", ident.Encode(7, 0).Key()},
		{"element past the row", "SplitCal", ident.Encode(0, 3).Key()},
		{"passive plate holds no elements", "SplitCal", ident.Encode(2, 0).Key()},
	} {
		if _, err := g.ResolveKey(tt.detector, tt.key); !errors.Is(err, errors.ErrCodeNotFound) {
			t.Errorf("%s: ResolveKey() error = %v, want NOT_FOUND", tt.name, err)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	g := buildReport(t)
	g.ID = "build-1"
	data, err := Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != "build-1" || len(back.Volumes) != len(g.Volumes) || back.Detectors[0].Layers[3].Center.Z != g.Detectors[0].Layers[3].Center.Z {
		t.Errorf("round trip lost data: %+v", back.Stats)
	}
	if _, err := Unmarshal([]byte("{")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Unmarshal(garbage) error = %v", err)
	}
}
