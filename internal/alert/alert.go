package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/domain"
	"github.com/hamed0406/sitemonitor/internal/probe"
)

const Title = "⚠️ ALERT!"

// Decision is the outcome of classifying one check.
type Decision struct {
	Trigger bool
	Label   string
}

// Decide triggers on server errors (>= 500) and on 429. Unreachable (0) does not trigger.
func Decide(r domain.CheckResult) Decision {
	if r.StatusCode >= 500 || r.StatusCode == 429 {
		return Decision{Trigger: true, Label: Label(r.StatusCode)}
	}
	return Decision{}
}

func Label(code int) string {
	switch code {
	case 429:
		return "Too Many Requests"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 502:
		return "Bad Gateway"
	case 503:
		return "Service Unavailable"
	case 504:
		return "Gateway Timeout"
	case 505:
		return "HTTP Version Not Supported"
	default:
		return fmt.Sprintf("Critical HTTP error: %d", code)
	}
}

// Format renders the notification title and body for a triggered decision.
func Format(url string, r domain.CheckResult, d Decision) (title, text string) {
	return Title, fmt.Sprintf("Site: %s\nHTTP code: %d → 🚨 %s", url, r.StatusCode, d.Label)
}

// Policy controls whether consecutive triggering checks re-alert.
type Policy string

const (
	// PolicyAlways alerts on every triggering check.
	PolicyAlways Policy = "always"
	// PolicyEdge alerts only when the previous check of the target did not trigger.
	PolicyEdge Policy = "edge"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyAlways:
		return PolicyAlways, nil
	case PolicyEdge:
		return PolicyEdge, nil
	default:
		return "", fmt.Errorf("%w: unknown alert policy %q", domain.ErrConfiguration, s)
	}
}

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

type Alerter struct {
	notifier Notifier
	policy   Policy
	log      *zap.Logger
}

func NewAlerter(n Notifier, policy Policy, log *zap.Logger) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == "" {
		policy = PolicyAlways
	}
	return &Alerter{notifier: n, policy: policy, log: log}
}

// Alert is a notification waiting to be delivered.
type Alert struct {
	URL    string
	Status int
	Label  string
	Title  string
	Text   string
}

// Check decides on result, which must already be recorded as the last check of h, and
// applies the policy. It does no I/O, so callers may hold locks around it.
func (a *Alerter) Check(t domain.Target, h *domain.TargetHistory, result domain.CheckResult) (Alert, bool) {
	d := Decide(result)
	if !d.Trigger {
		return Alert{}, false
	}
	url := probe.Normalize(t.URL)
	if a.policy == PolicyEdge && previousTriggered(h) {
		a.log.Debug("alert_suppressed", zap.String("url", url), zap.Int("status", result.StatusCode))
		return Alert{}, false
	}
	title, text := Format(url, result, d)
	return Alert{URL: url, Status: result.StatusCode, Label: d.Label, Title: title, Text: text}, true
}

// Deliver sends al. Delivery failures are logged and never returned.
func (a *Alerter) Deliver(ctx context.Context, al Alert) {
	if a.notifier == nil {
		a.log.Warn("alert_no_notifier", zap.String("url", al.URL), zap.Int("status", al.Status))
		return
	}
	if err := a.notifier.Send(ctx, al.Title, al.Text); err != nil {
		if !errors.Is(err, domain.ErrNotification) {
			err = fmt.Errorf("%w: %v", domain.ErrNotification, err)
		}
		a.log.Warn("alert_send_failed", zap.String("url", al.URL), zap.Int("status", al.Status), zap.Error(err))
		return
	}
	a.log.Info("alert_sent", zap.String("url", al.URL), zap.Int("status", al.Status), zap.String("label", al.Label))
}

// Evaluate is Check followed by Deliver. Reports whether an alert was emitted.
func (a *Alerter) Evaluate(ctx context.Context, t domain.Target, h *domain.TargetHistory, result domain.CheckResult) bool {
	al, ok := a.Check(t, h, result)
	if ok {
		a.Deliver(ctx, al)
	}
	return ok
}

func previousTriggered(h *domain.TargetHistory) bool {
	if h == nil || len(h.Checks) < 2 {
		return false
	}
	return Decide(h.Checks[len(h.Checks)-2]).Trigger
}
