package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/repo"
)

var _ repo.HistoryRepo = (*Store)(nil)

// Store keeps a deep copy of the last saved snapshot. Used by tests and dry runs.
type Store struct {
	mu      sync.RWMutex
	data    domain.HistoricalStore
	saves   int
	SaveErr error
}

func New() *Store {
	return &Store{data: domain.NewHistoricalStore()}
}

// Seed replaces the stored snapshot without counting as a save.
func (m *Store) Seed(store domain.HistoricalStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = store.Clone()
}

func (m *Store) Load(ctx context.Context) (domain.HistoricalStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Clone(), nil
}

func (m *Store) Save(ctx context.Context, store domain.HistoricalStore) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return 0, m.SaveErr
	}
	m.data = store.Clone()
	m.saves++
	return int64(store.NumChecks()), nil
}

// Saves reports how many successful Save calls happened.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *Store) Close() error { return nil }
