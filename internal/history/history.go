// Package history holds the in-memory mutations of the historical store.
//
// Pruning happens at write time: every Record drops the target's checks that fell out
// of the retention window, so the persisted store stays bounded no matter how often
// cycles run. Targets that are not recorded in a cycle are left untouched, including
// their stale checks.
package history

import (
	"time"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// DefaultRetention is how long checks are kept per target.
const DefaultRetention = 7 * 24 * time.Hour

// Record appends result to the target's history, creating it on first sight, then prunes
// checks older than now-retention and re-sorts ascending by timestamp.
func Record(store domain.HistoricalStore, t domain.Target, result domain.CheckResult, now time.Time, retention time.Duration) *domain.TargetHistory {
	id := t.ID()
	h, ok := store[id]
	if !ok || h == nil {
		h = &domain.TargetHistory{URL: t.URL, Name: t.Name, Checks: []domain.CheckResult{}}
		store[id] = h
	}
	// the registry is the source of truth for display names
	if t.Name != "" {
		h.Name = t.Name
	}

	h.Checks = append(h.Checks, result)
	Prune(h, now, retention)
	h.SortChecks()
	return h
}

// Prune drops checks with timestamp < now-retention, keeping the order of the rest.
func Prune(h *domain.TargetHistory, now time.Time, retention time.Duration) int {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention).Unix()
	kept := h.Checks[:0]
	for _, c := range h.Checks {
		if c.Timestamp >= cutoff {
			kept = append(kept, c)
		}
	}
	dropped := len(h.Checks) - len(kept)
	// clear the tail so dropped results are not kept alive by the backing array
	for i := len(kept); i < len(h.Checks); i++ {
		h.Checks[i] = domain.CheckResult{}
	}
	h.Checks = kept
	return dropped
}
