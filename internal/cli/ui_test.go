package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/calostack/pkg/report"
)

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		noun string
		want string
	}{
		{1, "layer", "1 layer"},
		{0, "layer", "0 layers"},
		{3, "entry", "3 entries"},
		{2, "assembly", "2 assemblies"},
	}
	for _, tt := range tests {
		if got := plural(tt.n, tt.noun); got != tt.want {
			t.Errorf("plural(%d, %q) = %q, want %q", tt.n, tt.noun, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	con := newConsole(&buf)
	con.success("Built %s", "ship.toml")
	con.stats(report.Stats{Detectors: 2, Layers: 1, Sensitive: 4}, true)
	con.warnings(&report.Geometry{Detectors: []report.Detector{
		{Name: "SplitCal", Warnings: []string{"stack overflows envelope"}},
	}})
	con.files([]string{"out/SplitCal.svg"})

	out := buf.String()
	for _, want := range []string{"Built ship.toml", "2 detectors", "1 layer", "4 sensitive", "cached", "SplitCal: stack overflows envelope", "out/SplitCal.svg"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "volume") {
		t.Errorf("zero counts should be omitted:\n%s", out)
	}
}
