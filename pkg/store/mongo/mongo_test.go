package mongo

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	cerrors "github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/geom"
	"github.com/matzehuels/calostack/pkg/report"
	"github.com/matzehuels/calostack/pkg/store"
)

func TestReportDocument(t *testing.T) {
	g := &report.Geometry{
		ID:              "b1",
		DescriptionHash: "h",
		CreatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		World:           report.World{Name: "world", HalfExtents: geom.V(1, 2, 3)},
		Detectors:       []report.Detector{{Name: "SplitCal", Position: geom.V(0, 0, 100)}},
	}
	raw, err := bson.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	doc := bson.Raw(raw)
	if id := doc.Lookup("_id").StringValue(); id != "b1" {
		t.Errorf("_id = %q", id)
	}
	if z := doc.Lookup("detectors", "0", "position", "z").Double(); z != 100 {
		t.Errorf("detectors.0.position.z = %g", z)
	}

	var sd summaryDoc
	if err := bson.Unmarshal(raw, &sd); err != nil {
		t.Fatal(err)
	}
	s := sd.summary()
	if s.ID != "b1" || len(s.Detectors) != 1 || s.Detectors[0] != "SplitCal" || !s.CreatedAt.Equal(g.CreatedAt) {
		t.Errorf("summary = %+v", s)
	}
}

func TestListQuery(t *testing.T) {
	filter, find := listQuery(store.ListOptions{})
	if len(filter) != 0 {
		t.Errorf("filter = %v, want empty", filter)
	}
	if find.Limit == nil || *find.Limit != store.DefaultListLimit {
		t.Errorf("limit = %v", find.Limit)
	}

	filter, find = listQuery(store.ListOptions{Limit: 3, DescriptionHash: "abc"})
	if filter["description_hash"] != "abc" {
		t.Errorf("filter = %v", filter)
	}
	if *find.Limit != 3 {
		t.Errorf("limit = %d", *find.Limit)
	}
}

func TestNewStoreBadURI(t *testing.T) {
	_, err := NewStore(context.Background(), Config{URI: "not-a-mongo-uri", Timeout: time.Second})
	if !cerrors.Is(err, cerrors.ErrCodeBackend) {
		t.Errorf("NewStore error = %v, want BACKEND", err)
	}
}
