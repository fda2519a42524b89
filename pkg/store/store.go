// Package store archives geometry reports.
//
// Implementations:
//   - [Memory]: in-process storage for tests and one-shot CLI runs
//   - [FileStore]: one JSON file per report, for the CLI
//   - mongo: MongoDB-backed storage for the HTTP server
//
// Reports are keyed by their build ID. Listing returns summaries newest
// first.
//
//	st := store.NewMemory()
//	if err := st.Save(ctx, g); err != nil {
//	    return err
//	}
//	g, err := st.Get(ctx, id)  // NOT_FOUND if absent
package store

import (
	"context"
	"sort"
	"time"

	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/report"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Store archives geometry reports.
type Store interface {
	// Save stores g under g.ID, replacing an existing report.
	Save(ctx context.Context, g *report.Geometry) error
	// Get returns the report with the given ID or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*report.Geometry, error)
	// List returns report summaries, newest first.
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	// Delete removes a report. Deleting a missing report is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// ListOptions filter List.
type ListOptions struct {
	// Limit caps the number of summaries (DefaultListLimit when zero).
	Limit int `json:"limit"`
	// DescriptionHash restricts the listing to builds of one description.
	DescriptionHash string `json:"description_hash,omitempty"`
}

// Summary is the list view of a report.
type Summary struct {
	ID              string       `json:"id" bson:"_id"`
	DescriptionHash string       `json:"description_hash" bson:"description_hash"`
	CreatedAt       time.Time    `json:"created_at" bson:"created_at"`
	Detectors       []string     `json:"detectors" bson:"detectors"`
	Stats           report.Stats `json:"stats" bson:"stats"`
}

// Summarize returns the list view of g.
func Summarize(g *report.Geometry) Summary {
	s := Summary{
		ID:              g.ID,
		DescriptionHash: g.DescriptionHash,
		CreatedAt:       g.CreatedAt,
		Stats:           g.Stats,
		Detectors:       make([]string, len(g.Detectors)),
	}
	for i, d := range g.Detectors {
		s.Detectors[i] = d.Name
	}
	return s
}

func validateID(id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "report id is required")
	}
	return nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "geometry %s not found", id)
}

// selectSummaries filters, sorts and truncates summaries in place.
func selectSummaries(all []Summary, opts ListOptions) []Summary {
	out := all[:0]
	for _, s := range all {
		if opts.DescriptionHash == "" || s.DescriptionHash == opts.DescriptionHash {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
