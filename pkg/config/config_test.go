package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/calostack/pkg/errors"
)

const splitCal = `
[world]
name = "cave"
material = "Air"
box = { x = 4000.0, y = 4000.0, z = 4000.0 }

[[detector]]
name = "SplitCal"
type = "DD4hep_SplitCal"
id = 9
layer_codes = "1212"
start = "front"
position = { x = 0.0, y = 0.0, z = 1500.0 }

[detector.box]
x = 300.0
y = 200.0
z = 400.0
material = "Air"
vis = "InvisibleWithDaughters"

[detector.widebar]
x = 10.0
y = 200.0
z = 10.0
material = "Scintillator"
num_x = 30
sensitive = true
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(splitCal))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.World.Name != "cave" || d.World.Box.Z != 4000 {
		t.Errorf("world = %+v", d.World)
	}
	if len(d.Detectors) != 1 {
		t.Fatalf("got %d detectors", len(d.Detectors))
	}
	det := d.Detectors[0]
	if det.Name != "SplitCal" || det.ID != 9 || det.LayerCodes != "1212" || det.Start != StartFront {
		t.Errorf("detector = %+v", det)
	}
	if det.Position.Z != 1500 {
		t.Errorf("position = %v", det.Position)
	}
	if det.WideBar == nil || det.WideBar.NumX != 30 || !det.WideBar.Sensitive {
		t.Errorf("widebar = %+v", det.WideBar)
	}
	if det.ThinBar != nil {
		t.Errorf("thinbar should be absent, got %+v", det.ThinBar)
	}
	if _, ok := d.Detector("SplitCal"); !ok {
		t.Error("Detector(SplitCal) not found")
	}
}

func TestParseDefaults(t *testing.T) {
	d, err := Parse([]byte(`
[[detector]]
name = "Bars"
type = "DD4hep_LayerOfBars"
box = { x = 1.0, y = 1.0, z = 1.0 }
`))
	if err != nil {
		t.Fatal(err)
	}
	if d.World.Name != "world" || d.World.Material != "Air" {
		t.Errorf("world defaults = %+v", d.World)
	}
}

func TestParseErrors(t *testing.T) {
	base := "[[detector]]\nname = \"D\"\ntype = \"T\"\nbox = { x = 1.0, y = 1.0, z = 1.0 }\n"
	tests := []struct {
		name     string
		input    string
		wantCode errors.Code
		wantAttr string
	}{
		{"not toml", "[[detector", errors.ErrCodeInvalidFormat, ""},
		{"unknown key", base + "colour = \"red\"\n", errors.ErrCodeConfiguration, ""},
		{"missing name", "[[detector]]\ntype = \"T\"\n", errors.ErrCodeConfiguration, "name"},
		{"missing type", "[[detector]]\nname = \"D\"\n", errors.ErrCodeConfiguration, "type"},
		{"missing box", "[[detector]]\nname = \"D\"\ntype = \"T\"\n", errors.ErrCodeConfiguration, "box"},
		{"flat box", "[[detector]]\nname = \"D\"\ntype = \"T\"\nbox = { x = 1.0, y = 0.0, z = 1.0 }\n", errors.ErrCodeConfiguration, "box.y"},
		{"bad start", base + "start = \"middle\"\n", errors.ErrCodeConfiguration, "start"},
		{"bad layer code", base + "layer_codes = \"129\"\n", errors.ErrCodeUnknownLayerCode, "layer_codes"},
		{"duplicate name", base + base, errors.ErrCodeConfiguration, "name"},
		{"duplicate id", base + "[[detector]]\nname = \"E\"\ntype = \"T\"\nbox = { x = 1.0, y = 1.0, z = 1.0 }\n", errors.ErrCodeConfiguration, "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if !errors.Is(err, tt.wantCode) {
				t.Fatalf("Parse() error = %v, want code %s", err, tt.wantCode)
			}
			if tt.wantAttr == "" {
				return
			}
			e := err.(*errors.Error)
			if e.Attribute != tt.wantAttr {
				t.Errorf("Attribute = %q, want %q", e.Attribute, tt.wantAttr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "det.toml")
	if err := os.WriteFile(path, []byte(splitCal), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestMarshalCanonical(t *testing.T) {
	d, err := Parse([]byte(splitCal))
	if err != nil {
		t.Fatal(err)
	}
	data, err := Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v\n%s", err, data)
	}
	if !reflect.DeepEqual(d, again) {
		t.Errorf("round trip changed the description:\n%+v\n%+v", d, again)
	}
	data2, _ := Marshal(again)
	if string(data) != string(data2) {
		t.Error("Marshal is not stable")
	}
}

func TestRequire(t *testing.T) {
	det := &Detector{Name: "SplitCal"}
	_, err := det.Require("thinbar", det.ThinBar)
	if !errors.IsConfiguration(err) {
		t.Fatalf("Require() error = %v", err)
	}
	if got := errors.UserMessage(err); got != "SplitCal: required child element is missing" {
		t.Errorf("UserMessage() = %q", got)
	}
}
