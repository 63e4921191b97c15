package score

import (
	"context"
	"slices"
	"sync"

	"github.com/victornm/tables/internal/domain"
)

// MemoryStore keeps records in process memory. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.ScoreRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadAll(_ context.Context) ([]domain.ScoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.records), nil
}

func (m *MemoryStore) Append(_ context.Context, r domain.ScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, r)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" {
		m.records = nil
		return nil
	}

	m.records = slices.DeleteFunc(m.records, func(r domain.ScoreRecord) bool {
		return r.Username == username
	})
	return nil
}
