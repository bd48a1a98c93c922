// Package monitor runs one probe-and-record cycle: lock, load the registry and the
// historical store, probe every target, record and alert, then save the store and publish
// the run summary.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hamed0406/sitemonitor/internal/alert"
	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/history"
	"github.com/hamed0406/sitemonitor/internal/registry"
	"github.com/hamed0406/sitemonitor/internal/repo"
	"github.com/hamed0406/sitemonitor/internal/status"
)

// CompletedTitle is sent after a successful cycle when completion notices are enabled.
const CompletedTitle = "✅ Data updated!"

// Prober checks a single target. *probe.Executor is the production implementation.
type Prober interface {
	Probe(ctx context.Context, t domain.Target, at time.Time) domain.CheckResult
	Pause(ctx context.Context) error
}

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

type Options struct {
	RegistryPath     string
	LockPath         string
	Retention        time.Duration
	MaxConcurrent    int
	NotifyOnComplete bool
}

type Cycle struct {
	opts      Options
	repo      repo.HistoryRepo
	prober    Prober
	alerter   *alert.Alerter
	notifier  Notifier
	publisher *status.Publisher
	log       *zap.Logger
	now       func() time.Time
}

type Deps struct {
	Repo      repo.HistoryRepo
	Prober    Prober
	Alerter   *alert.Alerter
	Notifier  Notifier          // completion notices; may be nil
	Publisher *status.Publisher // may be nil
	Logger    *zap.Logger
	Now       func() time.Time
}

func New(opts Options, d Deps) *Cycle {
	if opts.Retention <= 0 {
		opts.Retention = history.DefaultRetention
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Alerter == nil {
		d.Alerter = alert.NewAlerter(nil, alert.PolicyAlways, d.Logger)
	}
	return &Cycle{
		opts:      opts,
		repo:      d.Repo,
		prober:    d.Prober,
		alerter:   d.Alerter,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		log:       d.Logger,
		now:       d.Now,
	}
}

// Report describes a finished cycle.
type Report struct {
	RunID   string
	Summary domain.RunSummary
	Skipped int   // registry lines that were not targets
	Written int64 // bytes or rows, depending on the backend
	Alerts  int
}

// Run executes one cycle. Only registry, lock and save failures are returned; per-target
// problems end up in the history as status 0.
func (c *Cycle) Run(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.NewString()}
	log := c.log.With(zap.String("run_id", rep.RunID))

	lock, err := acquire(c.opts.LockPath)
	if err != nil {
		log.Warn("cycle_lock_failed", zap.String("path", c.opts.LockPath), zap.Error(err))
		return rep, err
	}
	if lock != nil {
		defer func() {
			if err := lock.Unlock(); err != nil {
				log.Warn("cycle_unlock_failed", zap.Error(err))
			}
		}()
	}

	reg, err := registry.Load(c.opts.RegistryPath)
	if err != nil {
		log.Error("registry_load_failed", zap.String("path", c.opts.RegistryPath), zap.Error(err))
		return rep, err
	}
	rep.Skipped = reg.Skipped
	if reg.Skipped > 0 {
		log.Warn("registry_lines_skipped", zap.Int("skipped", reg.Skipped))
	}

	store, err := c.repo.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		log.Warn("store_load_failed", zap.Error(err))
		store = domain.NewHistoricalStore()
	}
	if store == nil {
		store = domain.NewHistoricalStore()
	}

	now := c.now()
	log.Info("cycle_start",
		zap.Int("targets", len(reg.Targets)),
		zap.Int("stored_targets", len(store)),
		zap.Int("concurrency", c.opts.MaxConcurrent),
	)

	online, alerts, err := c.probeAll(ctx, log, reg.Targets, store, now)
	if err != nil {
		log.Warn("cycle_aborted", zap.Error(err))
		return rep, err
	}
	rep.Alerts = alerts

	written, err := c.repo.Save(ctx, store)
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		log.Error("store_save_failed", zap.Error(err))
		return rep, err
	}
	rep.Written = written
	log.Info("store_saved", zap.Int64("written", written), zap.Int("checks", store.NumChecks()))

	rep.Summary = status.Compute(len(reg.Targets), online, now)
	if c.publisher != nil {
		if err := c.publisher.Publish(rep.Summary); err != nil {
			log.Warn("status_publish_failed", zap.String("path", c.publisher.Path), zap.Error(err))
		}
	}

	log.Info("cycle_done",
		zap.Int("checked", rep.Summary.TotalTargets),
		zap.Int("online", rep.Summary.OnlineCount),
		zap.Int("offline", rep.Summary.OfflineCount),
		zap.Float64("uptime_pct", rep.Summary.OverallUptimePct),
		zap.Int("alerts", alerts),
	)

	if c.opts.NotifyOnComplete && c.notifier != nil {
		if err := c.notifier.Send(ctx, CompletedTitle, ""); err != nil {
			log.Warn("completion_notify_failed", zap.Error(err))
		}
	}
	return rep, nil
}

func (c *Cycle) probeAll(ctx context.Context, log *zap.Logger, targets []domain.Target, store domain.HistoricalStore, now time.Time) (online, alerts int, err error) {
	var mu sync.Mutex
	record := func(t domain.Target, r domain.CheckResult) (alert.Alert, bool) {
		mu.Lock()
		defer mu.Unlock()
		h := history.Record(store, t, r, now, c.opts.Retention)
		if r.Success() {
			online++
		}
		log.Info("probe_result",
			zap.String("name", t.Name),
			zap.String("url", t.URL),
			zap.Int("status", r.StatusCode),
			zap.Float64("latency_ms", r.LatencyMS),
			zap.String("error", r.Error),
		)
		pending, ok := c.alerter.Check(t, h, r)
		if ok {
			alerts++
		}
		return pending, ok
	}
	check := func(t domain.Target) {
		if pending, ok := record(t, c.prober.Probe(ctx, t, now)); ok {
			c.alerter.Deliver(ctx, pending)
		}
	}

	if c.opts.MaxConcurrent == 1 {
		for i, t := range targets {
			check(t)
			if i < len(targets)-1 {
				if err := c.prober.Pause(ctx); err != nil {
					return online, alerts, err
				}
			}
		}
		return online, alerts, nil
	}

	sem := semaphore.NewWeighted(int64(c.opts.MaxConcurrent))
	var wg sync.WaitGroup
	for _, t := range targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return online, alerts, err
		}
		wg.Add(1)
		go func(t domain.Target) {
			defer wg.Done()
			defer sem.Release(1)
			check(t)
			// pausing before the release paces each slot; a cancelled pause is
			// reported through ctx.Err() once every worker is done
			if err := c.prober.Pause(ctx); err != nil {
				log.Debug("pause_interrupted", zap.String("url", t.URL), zap.Error(err))
			}
		}(t)
	}
	wg.Wait()
	return online, alerts, ctx.Err()
}
