package store

import (
	"context"
	"sync"

	"github.com/matzehuels/calostack/pkg/report"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*report.Geometry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]*report.Geometry)}
}

func (m *Memory) Save(_ context.Context, g *report.Geometry) error {
	if err := validateID(g.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[g.ID] = g
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*report.Geometry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.reports[id]
	if !ok {
		return nil, notFound(id)
	}
	return g, nil
}

func (m *Memory) List(_ context.Context, opts ListOptions) ([]Summary, error) {
	m.mu.RLock()
	all := make([]Summary, 0, len(m.reports))
	for _, g := range m.reports {
		all = append(all, Summarize(g))
	}
	m.mu.RUnlock()
	return selectSummaries(all, opts), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reports, id)
	return nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
