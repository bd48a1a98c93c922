package repo

import (
	"context"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// HistoryRepo persists the whole historical store. Load runs once at cycle start and
// Save once at cycle end; Save must be atomic (all targets or nothing).
type HistoryRepo interface {
	// Load returns an empty store when nothing was persisted yet.
	Load(ctx context.Context) (domain.HistoricalStore, error)
	// Save returns the amount written: bytes for file backends, rows for SQL backends.
	Save(ctx context.Context, store domain.HistoricalStore) (int64, error)
	Close() error
}
