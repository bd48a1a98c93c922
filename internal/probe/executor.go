package probe

import (
	"context"
	"strings"
	"time"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// Executor turns a target into a timestamped CheckResult.
type Executor struct {
	Checker Checker
	Delay   time.Duration // pause after each probe to bound the outbound request rate
}

func NewExecutor(c Checker, delay time.Duration) *Executor {
	return &Executor{Checker: c, Delay: delay}
}

// Probe checks the target and stamps the result with at. Transport failures are
// returned as data (status 0), never as an error.
func (e *Executor) Probe(ctx context.Context, t domain.Target, at time.Time) domain.CheckResult {
	out := e.Checker.Check(ctx, Normalize(t.URL))
	if out.StatusCode == 0 && out.Error == "" {
		out.Error = domain.ErrProbe.Error()
	}
	return domain.NewCheckResult(at, out.StatusCode, out.LatencyMS, out.Error)
}

// Pause blocks for the configured delay or until ctx is done.
func (e *Executor) Pause(ctx context.Context) error {
	return sleep(ctx, e.Delay)
}

// Normalize prefixes https:// when the URL has no http(s) scheme.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}
