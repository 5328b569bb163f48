package history

import (
	"context"
	"sync"

	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/core"
)

// MemoryStore is an in-memory history store.
type MemoryStore struct {
	results []*backtest.Result
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryStore{
		results: make([]*backtest.Result, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save appends r, dropping the oldest result when over capacity.
func (m *MemoryStore) Save(ctx context.Context, r *backtest.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results = append(m.results, r)
	if len(m.results) > m.maxSize {
		m.results = m.results[len(m.results)-m.maxSize:]
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*backtest.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, core.Errorf(core.ErrNotFound, "backtest %s", id)
}

func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []Summary{}
	for i := len(m.results) - 1; i >= 0; i-- {
		if matches(m.results[i], filter) {
			result = append(result, Summarize(m.results[i]))
		}
	}

	if filter.Offset >= len(result) {
		return []Summary{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.results {
		if matches(r, filter) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Close() error { return nil }

func matches(r *backtest.Result, filter ListFilter) bool {
	if filter.Ticker != "" && r.Ticker != filter.Ticker {
		return false
	}
	if filter.Strategy != "" && r.Strategy != filter.Strategy {
		return false
	}
	if !filter.From.IsZero() && r.CreatedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && r.CreatedAt.After(filter.To) {
		return false
	}
	return true
}
