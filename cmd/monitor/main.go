package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/alert"
	"github.com/hamed0406/sitemonitor/internal/config"
	"github.com/hamed0406/sitemonitor/internal/logging"
	"github.com/hamed0406/sitemonitor/internal/monitor"
	"github.com/hamed0406/sitemonitor/internal/notify"
	"github.com/hamed0406/sitemonitor/internal/probe"
	"github.com/hamed0406/sitemonitor/internal/repo/backend"
	"github.com/hamed0406/sitemonitor/internal/scheduler"
	"github.com/hamed0406/sitemonitor/internal/status"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	schedule := flag.String("schedule", "", "cron spec; overrides SCHEDULE and keeps running")
	dryRun := flag.Bool("dry-run", false, "probe and alert but keep history in memory only")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
	if *schedule != "" {
		cfg.Schedule = *schedule
	}
	if *dryRun {
		cfg.Store.Driver = "memory"
	}

	logger, err := logging.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("monitor_failed", zap.Error(err))
		logger.Sync()
		fmt.Fprintln(os.Stderr, "monitor:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, closeNotifier, err := notify.FromConfig(ctx, cfg.Notify, logger)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeNotifier(cctx); err != nil {
			logger.Warn("notifier_close_failed", zap.Error(err))
		}
	}()

	policy, err := alert.ParsePolicy(cfg.Alerting.Policy)
	if err != nil {
		return err
	}

	cycle := monitor.New(monitor.Options{
		RegistryPath:     cfg.Paths.Registry,
		LockPath:         cfg.Paths.Lock,
		Retention:        cfg.Retention,
		MaxConcurrent:    cfg.Probe.MaxConcurrent,
		NotifyOnComplete: cfg.Alerting.NotifyOnComplete,
	}, monitor.Deps{
		Repo:      store,
		Prober:    probe.FromConfig(cfg.Probe),
		Alerter:   alert.NewAlerter(notifier, policy, logger),
		Notifier:  notifier,
		Publisher: status.NewPublisher(cfg.Paths.Status),
		Logger:    logger,
	})

	if cfg.Schedule == "" {
		rep, err := cycle.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Monitoring finished!\nSites checked: %d\nSites online: %d\nSites offline: %d\nData saved to: %s\n",
			rep.Summary.TotalTargets, rep.Summary.OnlineCount, rep.Summary.OfflineCount, cfg.Paths.Data)
		return nil
	}

	s := scheduler.New(logger, cfg.Schedule, func(ctx context.Context) error {
		_, err := cycle.Run(ctx)
		return err
	})
	return s.Run(ctx)
}
