package stack

import (
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/ident"
)

const eps = 1e-9

var splitCalDims = Dimensions{
	assembly.KindWideBar:     {Half: 5},
	assembly.KindThinBar:     {Half: 2.5},
	assembly.KindFibreModule: {Half: 3},
	assembly.KindPassive:     {Half: 1},
	assembly.KindSplit:       {Half: 0.5},
}

func TestComposeAlternatingWideLayers(t *testing.T) {
	plan, err := Compose("1212", SplitCalTable, Dimensions{assembly.KindWideBar: {Half: 5}}, Options{})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	wantZ := []float64{5, 15, 25, 35}
	wantDeg := []int{90, 0, 90, 0}
	if len(plan.Layers) != len(wantZ) {
		t.Fatalf("got %d layers, want %d", len(plan.Layers), len(wantZ))
	}
	for i, l := range plan.Layers {
		if math.Abs(l.Center.Z-wantZ[i]) > eps {
			t.Errorf("layer %d centre z = %g, want %g", i, l.Center.Z, wantZ[i])
		}
		if l.Orientation != wantDeg[i] {
			t.Errorf("layer %d orientation = %d, want %d", i, l.Orientation, wantDeg[i])
		}
		if l.ID != i || l.Field != ident.SplitCalLayer {
			t.Errorf("layer %d identifier = %s=%d", i, l.Field, l.ID)
		}
		if l.Center.X != 0 || l.Center.Y != 0 {
			t.Errorf("layer %d shifted transversely to %v", i, l.Center)
		}
	}
	if plan.End != 40 {
		t.Errorf("End = %g, want 40", plan.End)
	}
}

func TestComposeBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		codes   string
		start   float64
		gap     float64
		wantN   int
		wantEnd float64
	}{
		{"empty from zero", "", 0, 0, 0, 0},
		{"empty from front", "", -50, 0, 0, -50},
		{"single passive", "7", 0, 0, 1, 2},
		{"single passive with gap", "7", 0, 3, 1, 5},
		{"single passive from front", "7", -50, 3, 1, -45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Start: tt.start, GapAfter: map[Code]float64{Passive: tt.gap}}
			plan, err := Compose(tt.codes, SplitCalTable, splitCalDims, opts)
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			if len(plan.Layers) != tt.wantN {
				t.Errorf("got %d layers, want %d", len(plan.Layers), tt.wantN)
			}
			if math.Abs(plan.End-tt.wantEnd) > eps {
				t.Errorf("End = %g, want %g", plan.End, tt.wantEnd)
			}
		})
	}
}

func TestComposeRunningSum(t *testing.T) {
	gaps := map[Code]float64{Passive: 0.75, Split: 0.25}
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		n := rng.IntN(20)
		codes := make([]byte, n)
		for i := range codes {
			codes[i] = byte('1' + rng.IntN(8))
		}
		plan, err := Compose(string(codes), SplitCalTable, splitCalDims, Options{GapAfter: gaps})
		if err != nil {
			t.Fatalf("Compose(%q) error = %v", codes, err)
		}

		// Literal running sum, in code order.
		offset := 0.0
		for i, c := range codes {
			half := splitCalDims[SplitCalTable[Code(c)].Kind].Half
			offset += half
			if math.Abs(plan.Layers[i].Center.Z-offset) > eps {
				t.Fatalf("Compose(%q) layer %d at %g, want %g", codes, i, plan.Layers[i].Center.Z, offset)
			}
			offset += half + gaps[Code(c)]
		}
		if math.Abs(plan.End-offset) > eps {
			t.Errorf("Compose(%q) End = %g, want %g", codes, plan.End, offset)
		}
	}
}

func TestComposeIsOrderSensitive(t *testing.T) {
	a, _ := Compose("173", SplitCalTable, splitCalDims, Options{})
	b, _ := Compose("371", SplitCalTable, splitCalDims, Options{})
	if a.End != b.End {
		t.Errorf("permutations without gaps end at %g and %g", a.End, b.End)
	}
	if a.Layers[1].Center.Z == b.Layers[1].Center.Z {
		t.Errorf("passive plates of %q and %q share centre %g", "173", "371", a.Layers[1].Center.Z)
	}
	if a.Layers[0].Center.Z == b.Layers[0].Center.Z {
		t.Errorf("first layers of %q and %q share centre %g", "173", "371", a.Layers[0].Center.Z)
	}
}

func TestComposeDeterministic(t *testing.T) {
	opts := Options{Start: -100, GapAfter: map[Code]float64{Passive: 1.5}}
	a, err := Compose("1234567812345678", SplitCalTable, splitCalDims, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compose("1234567812345678", SplitCalTable, splitCalDims, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two runs produced different plans")
	}
}

func TestComposeErrors(t *testing.T) {
	tests := []struct {
		name  string
		codes string
		table Table
		dims  Dimensions
		want  errors.Code
	}{
		{"non-digit", "12x", SplitCalTable, splitCalDims, errors.ErrCodeUnknownLayerCode},
		{"digit out of range", "129", SplitCalTable, splitCalDims, errors.ErrCodeUnknownLayerCode},
		{"zero", "0", SplitCalTable, splitCalDims, errors.ErrCodeUnknownLayerCode},
		{"code absent from table", "15", SandwichTable, Dimensions{assembly.KindBarLayer: {Half: 1}}, errors.ErrCodeUnknownLayerCode},
		{"kind not configured", "125", SplitCalTable, Dimensions{assembly.KindWideBar: {Half: 5}}, errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Compose(tt.codes, tt.table, tt.dims, Options{Detector: "Det"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Compose() error = %v, want %s", err, tt.want)
			}
			if !errors.IsConfiguration(err) {
				t.Errorf("IsConfiguration(%v) = false", err)
			}
			if len(plan.Layers) != 0 {
				t.Errorf("failed compose returned %d layers", len(plan.Layers))
			}
		})
	}
}

func TestSandwichRecentring(t *testing.T) {
	dims := Dimensions{
		assembly.KindBarLayer: {Half: 5, Shift: geom.V(2, -2, 0)},
		assembly.KindPassive:  {Half: 1, Shift: geom.V(30, 0, 0)},
	}
	plan, err := Compose("2717", SandwichTable, dims, Options{GapAfter: map[Code]float64{Passive: 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		center geom.Vec3
		field  ident.Field
		id     int
	}{
		{geom.V(0, 0, 5), ident.Layer, 0},
		{geom.V(30, 0, 11), ident.PassiveLayer, 1},
		{geom.V(2, -2, 17.5), ident.Layer, 2},
		{geom.V(30, 0, 23.5), ident.PassiveLayer, 3},
	}
	for i, w := range want {
		l := plan.Layers[i]
		if !l.Center.ApproxEqual(w.center, eps) {
			t.Errorf("layer %d centre = %v, want %v", i, l.Center, w.center)
		}
		if l.Field != w.field || l.ID != w.id {
			t.Errorf("layer %d identifier = %s=%d, want %s=%d", i, l.Field, l.ID, w.field, w.id)
		}
	}
}

func TestIndexStride(t *testing.T) {
	plan, err := Compose("111", SplitCalTable, splitCalDims, Options{IndexStride: 2, IndexOffset: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []int{1, 3, 5} {
		if plan.Layers[i].ID != want {
			t.Errorf("layer %d id = %d, want %d", i, plan.Layers[i].ID, want)
		}
	}
}

func TestIdentifiersUniquePerField(t *testing.T) {
	plan, err := Compose("12345678876543217777", SplitCalTable, splitCalDims, Options{})
	if err != nil {
		t.Fatal(err)
	}
	reg := ident.NewRegistry()
	for _, l := range plan.Layers {
		if err := reg.Claim("envelope", l.Field, l.ID); err != nil {
			t.Errorf("layer %d: %v", l.Index, err)
		}
	}
}

func TestStepIsPure(t *testing.T) {
	s := State{Offset: 10, Index: 3}
	e := SplitCalTable[WideVertical]
	d := Extent{Half: 2}
	next, layer := Step(s, WideVertical, e, d, Options{})
	if s.Offset != 10 || s.Index != 3 {
		t.Errorf("Step mutated its input: %+v", s)
	}
	if next.Offset != 14 || next.Index != 4 {
		t.Errorf("next state = %+v, want {14 4}", next)
	}
	if layer.Center.Z != 12 || layer.ID != 3 {
		t.Errorf("layer = %+v", layer)
	}
	if got := layer.Transform().Apply(geom.V(1, 0, 0)); !got.ApproxEqual(geom.V(0, 1, 12), eps) {
		t.Errorf("vertical layer maps x axis to %v", got)
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name     string
		codes    string
		start    float64
		half     float64
		wantFail bool
	}{
		{"fits from zero", "12", 0, 20, false},
		{"runs past back face from zero", "1212", 0, 20, true},
		{"exact fit from front", "1212", -20, 20, false},
		{"too thick", "12121", 0, 20, true},
		{"starts before front face", "1", -25, 20, true},
		{"too thick from front", "12121", -20, 20, true},
		{"empty", "", -20, 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Compose(tt.codes, SplitCalTable, splitCalDims, Options{Start: tt.start})
			if err != nil {
				t.Fatal(err)
			}
			err = plan.Validate("Det", tt.half)
			if tt.wantFail != (err != nil) {
				t.Fatalf("Validate() error = %v, wantFail %v", err, tt.wantFail)
			}
			if tt.wantFail && !errors.Is(err, errors.ErrCodeGeometryOverflow) {
				t.Errorf("Validate() error code = %s", errors.GetCode(err))
			}
		})
	}
}

func TestTableCodes(t *testing.T) {
	if got := string(codesString(SplitCalTable.Codes())); got != "12345678" {
		t.Errorf("SplitCalTable codes = %q", got)
	}
	if got := string(codesString(SandwichTable.Codes())); got != "127" {
		t.Errorf("SandwichTable codes = %q", got)
	}
}

func TestTableDescribe(t *testing.T) {
	got := SandwichTable.Describe()
	want := []CodeInfo{
		{Code: "1", Kind: assembly.KindBarLayer, Orientation: 90, Recentre: true, Field: ident.Layer, Label: "bar layer"},
		{Code: "2", Kind: assembly.KindBarLayer, Orientation: 0, Field: ident.Layer, Label: "bar layer"},
		{Code: "7", Kind: assembly.KindPassive, Orientation: 0, Recentre: true, Field: ident.PassiveLayer, Label: "passive plate"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Describe() = %+v, want %+v", got, want)
	}
}

func codesString(cs []Code) []byte {
	b := make([]byte, len(cs))
	for i, c := range cs {
		b[i] = byte(c)
	}
	return b
}
