// Package backend opens the configured history repository.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/config"
	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/repo"
	"github.com/hamed0406/sitemonitor/internal/repo/file"
	"github.com/hamed0406/sitemonitor/internal/repo/memory"
	"github.com/hamed0406/sitemonitor/internal/repo/postgres"
	"github.com/hamed0406/sitemonitor/internal/repo/sqlite"
)

// Open returns the repository for cfg.Store.Driver. The file driver stores at cfg.Paths.Data.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.HistoryRepo, error) {
	switch cfg.Store.Driver {
	case "", "file":
		return file.New(cfg.Paths.Data, log), nil
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(ctx, cfg.Store.DatabaseURL)
	case "postgres":
		return postgres.New(ctx, cfg.Store.DatabaseURL, log)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrConfiguration, cfg.Store.Driver)
	}
}
