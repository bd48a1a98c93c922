package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/config"
	"github.com/hamed0406/sitemonitor/internal/httpapi"
	"github.com/hamed0406/sitemonitor/internal/logging"
	"github.com/hamed0406/sitemonitor/internal/repo/backend"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	defer store.Close()

	api := httpapi.NewServer(logger, store, cfg.Paths.Status, cfg.DashboardWindow)
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.Router(cfg.API.PublicRPM, cfg.API.PublicBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.API.Addr), zap.String("store", cfg.Store.Driver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_failed", zap.Error(err))
	}
	logger.Info("api_stopped")
}
