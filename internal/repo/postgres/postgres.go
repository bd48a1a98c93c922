package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/repo"
)

var _ repo.HistoryRepo = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitor_targets (
  id    TEXT PRIMARY KEY,
  url   TEXT NOT NULL,
  name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS monitor_checks (
  target_id   TEXT             NOT NULL REFERENCES monitor_targets(id) ON DELETE CASCADE,
  seq         INTEGER          NOT NULL,
  ts          BIGINT           NOT NULL,
  status      INTEGER          NOT NULL,
  latency_ms  DOUBLE PRECISION NOT NULL,
  error       TEXT             NOT NULL,
  date        TEXT             NOT NULL,
  PRIMARY KEY (target_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_monitor_checks_ts ON monitor_checks (ts);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: pgxpool.New: %v", domain.ErrPersistence, err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrPersistence, err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", domain.ErrPersistence, err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.HistoricalStore, error) {
	store := domain.NewHistoricalStore()

	rows, err := s.pool.Query(ctx, `SELECT id, url, name FROM monitor_targets`)
	if err != nil {
		return nil, fmt.Errorf("%w: list targets: %v", domain.ErrPersistence, err)
	}
	for rows.Next() {
		var id, url, name string
		if err := rows.Scan(&id, &url, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan target: %v", domain.ErrPersistence, err)
		}
		store[domain.TargetID(id)] = &domain.TargetHistory{URL: url, Name: name, Checks: []domain.CheckResult{}}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list targets: %v", domain.ErrPersistence, err)
	}

	rows, err = s.pool.Query(ctx, `
SELECT target_id, ts, status, latency_ms, error, date
  FROM monitor_checks
 ORDER BY target_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: list checks: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     string
			status int32
			c      domain.CheckResult
		)
		if err := rows.Scan(&id, &c.Timestamp, &status, &c.LatencyMS, &c.Error, &c.Date); err != nil {
			return nil, fmt.Errorf("%w: scan check: %v", domain.ErrPersistence, err)
		}
		c.StatusCode = int(status)
		if h := store[domain.TargetID(id)]; h != nil {
			h.Checks = append(h.Checks, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list checks: %v", domain.ErrPersistence, err)
	}
	for _, h := range store {
		h.Normalize()
	}
	return store, nil
}

// Save swaps the whole snapshot inside one transaction using COPY for the check rows.
func (s *Store) Save(ctx context.Context, store domain.HistoricalStore) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM monitor_targets`); err != nil {
		return 0, fmt.Errorf("%w: clear targets: %v", domain.ErrPersistence, err)
	}

	ids := make([]domain.TargetID, 0, len(store))
	for id, h := range store {
		if h != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	targetRows := make([][]any, 0, len(ids))
	var checkRows [][]any
	for _, id := range ids {
		h := store[id]
		targetRows = append(targetRows, []any{string(id), h.URL, h.Name})
		for seq, c := range h.Checks {
			checkRows = append(checkRows, []any{string(id), int32(seq), c.Timestamp, int32(c.StatusCode), c.LatencyMS, c.Error, c.Date})
		}
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"monitor_targets"},
		[]string{"id", "url", "name"}, pgx.CopyFromRows(targetRows)); err != nil {
		return 0, fmt.Errorf("%w: copy targets: %v", domain.ErrPersistence, err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"monitor_checks"},
		[]string{"target_id", "seq", "ts", "status", "latency_ms", "error", "date"}, pgx.CopyFromRows(checkRows))
	if err != nil {
		return 0, fmt.Errorf("%w: copy checks: %v", domain.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	s.log.Debug("history_saved", zap.Int("targets", len(ids)), zap.Int64("checks", n))
	return n, nil
}
