package memory

import (
	"context"
	"strings"
	"sync"
)

// InMemoryFacts is a FactStore kept in process memory.
type InMemoryFacts struct {
	mu    sync.RWMutex
	facts []Fact
	seen  map[Fact]bool
}

// NewInMemoryFacts creates an empty fact store.
func NewInMemoryFacts() *InMemoryFacts {
	return &InMemoryFacts{seen: make(map[Fact]bool)}
}

// AddFacts stores facts, ignoring exact duplicates.
func (m *InMemoryFacts) AddFacts(_ context.Context, facts []Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range facts {
		if m.seen[f] {
			continue
		}
		m.seen[f] = true
		m.facts = append(m.facts, f)
	}
	return nil
}

// FactsAbout returns facts whose subject or object matches an entity,
// case-insensitively.
func (m *InMemoryFacts) FactsAbout(_ context.Context, entities []string, limit int) ([]Fact, error) {
	want := make(map[string]bool, len(entities))
	for _, e := range entities {
		want[strings.ToLower(e)] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Fact
	for _, f := range m.facts {
		if want[strings.ToLower(f.Subject)] || want[strings.ToLower(f.Object)] {
			out = append(out, f)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

var _ FactStore = (*InMemoryFacts)(nil)
