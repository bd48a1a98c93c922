package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// Job is one unit of scheduled work, typically a monitor cycle.
type Job func(ctx context.Context) error

type Scheduler struct {
	Logger    *zap.Logger
	Spec      string // standard 5-field cron spec or a descriptor such as "@every 5m"
	Job       Job
	Immediate bool // run once right away before the first tick
	Timeout   time.Duration

	mu   sync.Mutex
	runs int
}

func New(logger *zap.Logger, spec string, job Job) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{Logger: logger, Spec: spec, Job: job, Immediate: true}
}

// Validate checks the cron spec without starting anything.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", domain.ErrConfiguration, spec, err)
	}
	return nil
}

// Run blocks until ctx is cancelled. A tick that fires while the previous job is still
// running is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := Validate(s.Spec); err != nil {
		return err
	}
	logger := cronLogger{l: s.Logger.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.Spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", domain.ErrConfiguration, s.Spec, err)
	}

	s.Logger.Info("scheduler_started", zap.String("spec", s.Spec))
	if s.Immediate {
		s.runOnce(ctx)
	}
	c.Start()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	s.Logger.Info("scheduler_stopped")
	return nil
}

// Runs reports how many jobs finished.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	jctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		jctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.Job(jctx)
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	switch {
	case err == nil:
		s.Logger.Debug("scheduled_run_done", zap.Duration("took", time.Since(start)))
	case errors.Is(err, domain.ErrCycleLocked):
		s.Logger.Warn("scheduled_run_skipped_locked", zap.Error(err))
	default:
		s.Logger.Error("scheduled_run_failed", zap.Duration("took", time.Since(start)), zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw("cron_"+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw("cron_"+msg, append(keysAndValues, "error", err)...)
}
