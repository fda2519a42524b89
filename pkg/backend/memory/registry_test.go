package memory

import (
	"sync"
	"testing"

	"github.com/matzehuels/calostack/pkg/backend"
	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
)

func TestVolumeErrors(t *testing.T) {
	r := NewRegistry("Air", "Iron")
	if _, err := r.Volume("a", geom.NewBox(1, 1, 1), "Air"); err != nil {
		t.Fatalf("Volume() error = %v", err)
	}
	tests := []struct {
		name     string
		volume   string
		solid    geom.Solid
		material string
	}{
		{"duplicate name", "a", geom.NewBox(1, 1, 1), "Air"},
		{"degenerate box", "b", geom.NewBox(1, 0, 1), "Air"},
		{"degenerate tube", "c", geom.Tube{RMin: 2, RMax: 1, DZ: 1}, "Air"},
		{"no solid", "d", nil, "Air"},
		{"unknown material", "e", geom.NewBox(1, 1, 1), "Unobtainium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Volume(tt.volume, tt.solid, tt.material); !errors.Is(err, errors.ErrCodeBackend) {
				t.Errorf("Volume() error = %v, want BACKEND", err)
			}
		})
	}
	if n := len(r.Volumes()); n != 1 {
		t.Errorf("registry holds %d volumes, want 1", n)
	}
}

func TestPlaceAndIDs(t *testing.T) {
	r := NewRegistry()
	mother, _ := r.Volume("mother", geom.NewBox(10, 10, 10), "Air")
	child, _ := r.Volume("child", geom.NewBox(1, 1, 1), "Iron")

	pv, err := r.Place(mother, child, geom.Translation(geom.V(0, 0, 2)))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AddPhysVolID(pv, "layer", 3); err != nil {
		t.Fatal(err)
	}
	if err := r.AddPhysVolID(pv, "layer", 4); !errors.Is(err, errors.ErrCodeBackend) {
		t.Errorf("second layer id error = %v, want BACKEND", err)
	}
	if _, err := r.Place(mother, mother, geom.Transform{}); err == nil {
		t.Error("placing a volume inside itself should fail")
	}
	if _, err := r.Place(mother, backend.VolumeRef{ID: 99}, geom.Transform{}); err == nil {
		t.Error("placing an unknown volume should fail")
	}
	if err := r.AddPhysVolID(backend.PlacementRef{ID: 7}, "bar", 0); err == nil {
		t.Error("unknown placement should fail")
	}

	kids := r.Children(mother.ID)
	if len(kids) != 1 || kids[0].Child != child.ID || kids[0].IDs[0] != (PhysVolID{"layer", 3}) {
		t.Errorf("Children() = %+v", kids)
	}
	if got := r.Materials(); len(got) != 2 || got[0] != "Air" || got[1] != "Iron" {
		t.Errorf("Materials() = %v", got)
	}
}

func TestAttributes(t *testing.T) {
	r := NewRegistry()
	v, _ := r.Volume("bar", geom.NewBox(1, 1, 1), "Scintillator")
	if err := r.SetAttributes(v, backend.Attributes{Vis: "red"}); err != nil {
		t.Fatal(err)
	}
	if err := r.SetSensitive(v, backend.SensitiveCalorimeter); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Lookup("bar")
	if got.Attrs.Vis != "red" || got.Sensitive != backend.SensitiveCalorimeter {
		t.Errorf("volume = %+v", got)
	}
	if err := r.SetSensitive(backend.VolumeRef{}, "tracker"); err == nil {
		t.Error("zero VolumeRef should be rejected")
	}
}

func TestCheckpointRollback(t *testing.T) {
	r := NewRegistry()
	world, _ := r.Volume("world", geom.NewBox(100, 100, 100), "Air")
	mark := r.Checkpoint()

	det, _ := r.Volume("det", geom.NewBox(10, 10, 10), "Air")
	if _, err := r.Place(world, det, geom.Transform{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Rollback(mark); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Lookup("det"); ok {
		t.Error("rolled back volume still present")
	}
	if len(r.Placements()) != 0 {
		t.Error("rolled back placement still present")
	}
	// The name is free again.
	if _, err := r.Volume("det", geom.NewBox(10, 10, 10), "Air"); err != nil {
		t.Errorf("Volume() after rollback error = %v", err)
	}
	if err := r.Rollback(1<<40 | 5); err == nil {
		t.Error("rollback past the end should fail")
	}
}

func TestConcurrentVolumes(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Volume("shared", geom.NewBox(1, 1, 1), "Air")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("%d goroutines created the same name, want 1", ok)
	}
}
