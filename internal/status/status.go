package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/hamed0406/sitemonitor/internal/aggregate"
	"github.com/hamed0406/sitemonitor/internal/domain"
)

// Compute builds the summary for one cycle. online counts targets whose check of this
// cycle succeeded.
func Compute(total, online int, now time.Time) domain.RunSummary {
	if online > total {
		online = total
	}
	s := domain.RunSummary{
		LastUpdate:   now.Unix(),
		TotalTargets: total,
		OnlineCount:  online,
		OfflineCount: total - online,
	}
	if total > 0 {
		s.OverallUptimePct = aggregate.Round2(100 * float64(online) / float64(total))
	}
	return s
}

type Publisher struct {
	Path string
}

func NewPublisher(path string) *Publisher {
	return &Publisher{Path: path}
}

// Publish atomically replaces the status file.
func (p *Publisher) Publish(s domain.RunSummary) error {
	b, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(p.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, dir, err)
		}
	}
	if err := renameio.WriteFile(p.Path, b, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, p.Path, err)
	}
	return nil
}

// Read returns the last published summary. A missing or corrupt file yields the zero
// summary with ok false; only other read errors are returned.
func Read(path string) (s domain.RunSummary, ok bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RunSummary{}, false, nil
		}
		return domain.RunSummary{}, false, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.RunSummary{}, false, nil
	}
	return s, true, nil
}
