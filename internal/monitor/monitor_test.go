package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/sitemonitor/internal/alert"
	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/probe"
	"github.com/hamed0406/sitemonitor/internal/repo/memory"
	"github.com/hamed0406/sitemonitor/internal/status"
)

var now = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

type fakeProber struct {
	mu     sync.Mutex
	status map[string]int
	probed []string
	pauses int
}

func (f *fakeProber) Probe(ctx context.Context, t domain.Target, at time.Time) domain.CheckResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, t.URL)
	code := f.status[t.URL]
	errText := ""
	if code == 0 {
		errText = "connection refused"
	}
	return domain.NewCheckResult(at, code, 123.46, errText)
}

func (f *fakeProber) Pause(ctx context.Context) error {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
	return ctx.Err()
}

type memNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
	return nil
}

func writeRegistry(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "sites.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

type fixture struct {
	dir      string
	repo     *memory.Store
	prober   *fakeProber
	notifier *memNotifier
	opts     Options
}

func newFixture(t *testing.T, lines ...string) *fixture {
	dir := t.TempDir()
	return &fixture{
		dir:      dir,
		repo:     memory.New(),
		prober:   &fakeProber{status: map[string]int{}},
		notifier: &memNotifier{},
		opts: Options{
			RegistryPath: writeRegistry(t, dir, lines...),
			LockPath:     filepath.Join(dir, "monitor.lock"),
		},
	}
}

func (f *fixture) cycle(log *zap.Logger) *Cycle {
	return New(f.opts, Deps{
		Repo:      f.repo,
		Prober:    f.prober,
		Alerter:   alert.NewAlerter(f.notifier, alert.PolicyAlways, log),
		Notifier:  f.notifier,
		Publisher: status.NewPublisher(filepath.Join(f.dir, "status.json")),
		Logger:    log,
		Now:       func() time.Time { return now },
	})
}

func TestCycle_SingleHealthyTarget(t *testing.T) {
	f := newFixture(t, "example.com|Example")
	f.prober.status["example.com"] = 200

	rep, err := f.cycle(zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, domain.RunSummary{
		LastUpdate: now.Unix(), TotalTargets: 1, OnlineCount: 1, OfflineCount: 0, OverallUptimePct: 100,
	}, rep.Summary)
	assert.Zero(t, rep.Alerts)

	store, _ := f.repo.Load(context.Background())
	h := store[domain.IDFor("example.com")]
	require.NotNil(t, h)
	require.Len(t, h.Checks, 1)
	assert.Equal(t, domain.CheckResult{
		Timestamp: now.Unix(), StatusCode: 200, LatencyMS: 123.46, Error: "", Date: "2025-08-18 12:00:00",
	}, h.Checks[0])

	published, ok, err := status.Read(filepath.Join(f.dir, "status.json"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rep.Summary, published)
	assert.Empty(t, f.notifier.titles)
}

func TestCycle_RecordsPrunesAndAlerts(t *testing.T) {
	f := newFixture(t,
		"https://a.example.com|A",
		"not a target line",
		"",
		"https://b.example.com|B",
		"https://c.example.com|C",
	)
	f.opts.NotifyOnComplete = true
	f.prober.status["https://a.example.com"] = 200
	f.prober.status["https://b.example.com"] = 503
	// c stays at 0: unreachable

	a := domain.Target{URL: "https://a.example.com", Name: "A"}
	gone := domain.Target{URL: "https://gone.example.com", Name: "Gone"}
	seed := domain.NewHistoricalStore()
	seed[a.ID()] = &domain.TargetHistory{URL: a.URL, Name: "Old", Checks: []domain.CheckResult{
		domain.NewCheckResult(now.Add(-8*24*time.Hour), 200, 10, ""),
		domain.NewCheckResult(now.Add(-time.Hour), 500, 10, ""),
	}}
	seed[gone.ID()] = &domain.TargetHistory{URL: gone.URL, Name: gone.Name, Checks: []domain.CheckResult{
		domain.NewCheckResult(now.Add(-30*24*time.Hour), 200, 10, ""),
	}}
	f.repo.Seed(seed)

	rep, err := f.cycle(zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 3, rep.Summary.TotalTargets)
	assert.Equal(t, 1, rep.Summary.OnlineCount)
	assert.Equal(t, 2, rep.Summary.OfflineCount)
	assert.Equal(t, 33.33, rep.Summary.OverallUptimePct)
	assert.Equal(t, 1, rep.Alerts)
	assert.Equal(t, int64(5), rep.Written)

	store, _ := f.repo.Load(context.Background())
	ha := store[a.ID()]
	require.Len(t, ha.Checks, 2)
	assert.Equal(t, "A", ha.Name)
	assert.Equal(t, 200, ha.Checks[1].StatusCode)

	hc := store[domain.IDFor("https://c.example.com")]
	require.Len(t, hc.Checks, 1)
	assert.Equal(t, 0, hc.Checks[0].StatusCode)
	assert.NotEmpty(t, hc.Checks[0].Error)

	// not in the registry any more: kept as-is, stale check included
	require.Len(t, store[gone.ID()].Checks, 1)

	assert.Equal(t, []string{alert.Title, CompletedTitle}, f.notifier.titles)
	assert.Equal(t, 2, f.prober.pauses)
}

func TestCycle_RegistryMissingIsFatal(t *testing.T) {
	f := newFixture(t)
	f.opts.RegistryPath = filepath.Join(f.dir, "missing.txt")

	_, err := f.cycle(zap.NewNop()).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, f.repo.Saves())
	_, statErr := os.Stat(filepath.Join(f.dir, "status.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCycle_EmptyRegistryIsFatal(t *testing.T) {
	f := newFixture(t, "", "   ")
	_, err := f.cycle(zap.NewNop()).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, f.prober.probed)
}

func TestCycle_LockHeld(t *testing.T) {
	f := newFixture(t, "example.com|Example")
	held := flock.New(f.opts.LockPath)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	_, err = f.cycle(zap.NewNop()).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrCycleLocked)
	assert.Empty(t, f.prober.probed)
	assert.Zero(t, f.repo.Saves())
}

func TestCycle_LockReleasedAfterRun(t *testing.T) {
	f := newFixture(t, "example.com|Example")
	c := f.cycle(zap.NewNop())
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	_, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.Saves())
}

func TestCycle_SaveFailureIsFatalAndSkipsStatus(t *testing.T) {
	f := newFixture(t, "example.com|Example")
	f.repo.SaveErr = assert.AnError
	core, logs := observer.New(zap.ErrorLevel)

	_, err := f.cycle(zap.New(core)).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 1, logs.FilterMessage("store_save_failed").Len())
	_, statErr := os.Stat(filepath.Join(f.dir, "status.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCycle_StatusFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, "example.com|Example")
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	c := f.cycle(zap.NewNop())
	c.publisher = status.NewPublisher(filepath.Join(blocker, "status.json"))

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.Saves())
}

func TestCycle_ConcurrentProbesRecordEveryTarget(t *testing.T) {
	lines := []string{}
	for _, host := range []string{"a", "b", "c", "d", "e", "f"} {
		lines = append(lines, "https://"+host+".example.com|"+strings.ToUpper(host))
	}
	f := newFixture(t, lines...)
	f.opts.MaxConcurrent = 3
	for _, host := range []string{"a", "c", "e"} {
		f.prober.status["https://"+host+".example.com"] = 200
	}

	rep, err := f.cycle(zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, rep.Summary.TotalTargets)
	assert.Equal(t, 3, rep.Summary.OnlineCount)
	assert.Len(t, f.prober.probed, 6)

	store, _ := f.repo.Load(context.Background())
	assert.Len(t, store, 6)
	assert.Equal(t, 6, store.NumChecks())
}

func TestCycle_ProbesRealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL+"/|Up", srv.URL+"/down|Down")
	opts := probe.DefaultHTTPOptions()
	opts.Timeout = 2 * time.Second
	exec := probe.NewExecutor(probe.NewHTTPChecker(opts), 0)

	c := New(f.opts, Deps{
		Repo:     f.repo,
		Prober:   exec,
		Alerter:  alert.NewAlerter(f.notifier, alert.PolicyAlways, nil),
		Notifier: f.notifier,
		Now:      func() time.Time { return now },
	})
	rep, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.OnlineCount)
	assert.Equal(t, 1, rep.Alerts)

	store, _ := f.repo.Load(context.Background())
	up := store[domain.IDFor(srv.URL+"/")]
	require.NotNil(t, up)
	assert.Equal(t, 200, up.Checks[0].StatusCode)
	assert.GreaterOrEqual(t, up.Checks[0].LatencyMS, 0.0)
}

type unreadableRepo struct {
	*memory.Store
}

func (unreadableRepo) Load(ctx context.Context) (domain.HistoricalStore, error) {
	return nil, errors.New("scan check: corrupt row")
}

func TestCycle_UnreadableStoreStartsEmpty(t *testing.T) {
	f := newFixture(t, "example.com|Example")
	f.prober.status["example.com"] = 200
	backing := memory.New()
	core, logs := observer.New(zap.WarnLevel)

	c := New(f.opts, Deps{
		Repo:   unreadableRepo{Store: backing},
		Prober: f.prober,
		Logger: zap.New(core),
		Now:    func() time.Time { return now },
	})
	rep, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.OnlineCount)
	assert.Equal(t, []string{"example.com"}, f.prober.probed)
	assert.Equal(t, 1, logs.FilterMessage("store_load_failed").Len())

	assert.Equal(t, 1, backing.Saves())
	saved, err := backing.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Len(t, saved[domain.IDFor("example.com")].Checks, 1)
}

// gateNotifier blocks every Send until want sends are in flight at once.
type gateNotifier struct {
	mu       sync.Mutex
	want     int
	inFlight int
	all      chan struct{}
	timedOut bool
}

func (g *gateNotifier) Send(ctx context.Context, title, text string) error {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight == g.want {
		close(g.all)
	}
	g.mu.Unlock()

	select {
	case <-g.all:
		return nil
	case <-time.After(2 * time.Second):
		g.mu.Lock()
		g.timedOut = true
		g.mu.Unlock()
		return errors.New("sends were serialized")
	}
}

func TestCycle_ConcurrentAlertsAreSentInParallel(t *testing.T) {
	f := newFixture(t, "https://a.example.com|A", "https://b.example.com|B", "https://c.example.com|C")
	f.opts.MaxConcurrent = 3
	for _, host := range []string{"a", "b", "c"} {
		f.prober.status["https://"+host+".example.com"] = 503
	}
	gate := &gateNotifier{want: 3, all: make(chan struct{})}

	c := New(f.opts, Deps{
		Repo:    f.repo,
		Prober:  f.prober,
		Alerter: alert.NewAlerter(gate, alert.PolicyAlways, nil),
		Now:     func() time.Time { return now },
	})
	rep, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Alerts)
	assert.False(t, gate.timedOut)
	assert.Equal(t, 3, gate.inFlight)
}
