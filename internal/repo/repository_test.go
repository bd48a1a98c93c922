package repo_test

import (
	"testing"

	"github.com/hamed0406/sitemonitor/internal/repo"
	"github.com/hamed0406/sitemonitor/internal/repo/file"
	"github.com/hamed0406/sitemonitor/internal/repo/memory"
	pg "github.com/hamed0406/sitemonitor/internal/repo/postgres"
	"github.com/hamed0406/sitemonitor/internal/repo/sqlite"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.HistoryRepo = memory.New()
	var _ repo.HistoryRepo = file.New("monitoring_data.json", nil)

	var _ repo.HistoryRepo = (*pg.Store)(nil)
	var _ repo.HistoryRepo = (*sqlite.Store)(nil)
}
