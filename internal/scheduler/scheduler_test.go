package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

func TestValidate(t *testing.T) {
	for _, ok := range []string{"*/5 * * * *", "@every 1m", "@hourly"} {
		if err := Validate(ok); err != nil {
			t.Fatalf("%q: unexpected error %v", ok, err)
		}
	}
	if err := Validate("every five minutes"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("want configuration error, got %v", err)
	}
}

func TestScheduler_ImmediatePassThenStops(t *testing.T) {
	ran := make(chan struct{}, 4)
	s := New(zap.NewNop(), "@every 1h", func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the immediate pass to run")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if s.Runs() != 1 {
		t.Fatalf("want 1 run, got %d", s.Runs())
	}
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(nil, "nope", func(ctx context.Context) error { return nil })
	if err := s.Run(context.Background()); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("want configuration error, got %v", err)
	}
}

func TestScheduler_RunOnceLogsOutcome(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var next error
	s := New(zap.New(core), "@every 1h", func(ctx context.Context) error { return next })

	next = fmt.Errorf("%w: monitor.lock", domain.ErrCycleLocked)
	s.runOnce(context.Background())
	next = errors.New("disk full")
	s.runOnce(context.Background())
	next = nil
	s.runOnce(context.Background())

	if logs.FilterMessage("scheduled_run_skipped_locked").Len() != 1 {
		t.Fatalf("missing locked warning")
	}
	if logs.FilterMessage("scheduled_run_failed").Len() != 1 {
		t.Fatalf("missing failure log")
	}
	if logs.FilterMessage("scheduled_run_done").Len() != 1 {
		t.Fatalf("missing done log")
	}
	if s.Runs() != 3 {
		t.Fatalf("want 3 runs, got %d", s.Runs())
	}
}

func TestScheduler_TimeoutBoundsJob(t *testing.T) {
	s := New(nil, "@every 1h", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s.Timeout = 20 * time.Millisecond

	start := time.Now()
	s.runOnce(context.Background())
	if time.Since(start) > time.Second {
		t.Fatalf("job was not bounded by the timeout")
	}
}
