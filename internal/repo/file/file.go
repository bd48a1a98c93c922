package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/repo"
)

var _ repo.HistoryRepo = (*Store)(nil)

// Store keeps the historical store as one pretty-printed JSON document.
type Store struct {
	path string
	log  *zap.Logger
}

func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

func (s *Store) Path() string { return s.path }

// Load never fails: a missing, unreadable or corrupt file yields an empty store.
func (s *Store) Load(ctx context.Context) (domain.HistoricalStore, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("store_unreadable", zap.String("path", s.path), zap.Error(err))
		}
		return domain.NewHistoricalStore(), nil
	}
	store, err := Decode(b)
	if err != nil {
		s.log.Warn("store_corrupt", zap.String("path", s.path), zap.Int("bytes", len(b)), zap.Error(err))
		return domain.NewHistoricalStore(), nil
	}
	return store, nil
}

// Save writes to a temp file in the same directory and renames it over the target.
func (s *Store) Save(ctx context.Context, store domain.HistoricalStore) (int64, error) {
	b, err := Encode(store)
	if err != nil {
		return 0, fmt.Errorf("%w: encode store: %v", domain.ErrPersistence, err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, dir, err)
		}
	}
	if err := renameio.WriteFile(s.path, b, 0o644); err != nil {
		return 0, fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, s.path, err)
	}
	return int64(len(b)), nil
}

func (s *Store) Close() error { return nil }

// Decode parses and normalizes a persisted store. Empty input is an empty store.
func Decode(b []byte) (domain.HistoricalStore, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return domain.NewHistoricalStore(), nil
	}
	raw := map[domain.TargetID]*domain.TargetHistory{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	store := domain.NewHistoricalStore()
	for id, h := range raw {
		if h == nil {
			continue
		}
		h.Normalize()
		store[id] = h
	}
	return store, nil
}

// Encode renders the store as indented JSON without HTML escaping, so URLs stay readable.
func Encode(store domain.HistoricalStore) ([]byte, error) {
	if store == nil {
		store = domain.NewHistoricalStore()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(store); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
