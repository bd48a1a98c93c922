package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/repo"
)

var _ repo.HistoryRepo = (*Store)(nil)

// Store persists the historical store in a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens the database file and makes sure the schema exists.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", domain.ErrPersistence, err)
	}
	// one writer at a time; the cycle lock already serializes runs
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %v", domain.ErrPersistence, err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrPersistence, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS targets (
	id    TEXT PRIMARY KEY,
	url   TEXT NOT NULL,
	name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS checks (
	target_id   TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	ts          INTEGER NOT NULL,
	status      INTEGER NOT NULL,
	latency_ms  REAL    NOT NULL,
	error       TEXT    NOT NULL,
	date        TEXT    NOT NULL,
	PRIMARY KEY (target_id, seq),
	FOREIGN KEY (target_id) REFERENCES targets(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_checks_ts ON checks (ts);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Load(ctx context.Context) (domain.HistoricalStore, error) {
	store := domain.NewHistoricalStore()

	rows, err := s.db.QueryContext(ctx, `SELECT id, url, name FROM targets`)
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
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: list targets: %v", domain.ErrPersistence, err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
SELECT target_id, ts, status, latency_ms, error, date
  FROM checks
 ORDER BY target_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: list checks: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id string
			c  domain.CheckResult
		)
		if err := rows.Scan(&id, &c.Timestamp, &c.StatusCode, &c.LatencyMS, &c.Error, &c.Date); err != nil {
			return nil, fmt.Errorf("%w: scan check: %v", domain.ErrPersistence, err)
		}
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

// Save replaces the persisted snapshot in one transaction and returns the number of
// check rows written.
func (s *Store) Save(ctx context.Context, store domain.HistoricalStore) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checks`); err != nil {
		return 0, fmt.Errorf("%w: clear checks: %v", domain.ErrPersistence, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM targets`); err != nil {
		return 0, fmt.Errorf("%w: clear targets: %v", domain.ErrPersistence, err)
	}

	insTarget, err := tx.PrepareContext(ctx, `INSERT INTO targets (id, url, name) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %v", domain.ErrPersistence, err)
	}
	defer insTarget.Close()
	insCheck, err := tx.PrepareContext(ctx, `
INSERT INTO checks (target_id, seq, ts, status, latency_ms, error, date)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %v", domain.ErrPersistence, err)
	}
	defer insCheck.Close()

	var written int64
	for _, id := range sortedIDs(store) {
		h := store[id]
		if _, err := insTarget.ExecContext(ctx, string(id), h.URL, h.Name); err != nil {
			return 0, fmt.Errorf("%w: insert target %s: %v", domain.ErrPersistence, id, err)
		}
		for seq, c := range h.Checks {
			if _, err := insCheck.ExecContext(ctx, string(id), seq, c.Timestamp, c.StatusCode, c.LatencyMS, c.Error, c.Date); err != nil {
				return 0, fmt.Errorf("%w: insert check %s/%d: %v", domain.ErrPersistence, id, seq, err)
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return written, nil
}

func sortedIDs(store domain.HistoricalStore) []domain.TargetID {
	ids := make([]domain.TargetID, 0, len(store))
	for id, h := range store {
		if h != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
