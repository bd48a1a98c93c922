// Package aggregate derives read-side statistics from the historical store. Nothing here
// mutates the store; every function takes the reference time explicitly.
package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v5"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// DefaultWindow is the dashboard window.
const DefaultWindow = 24 * time.Hour

// HourlyPoints is the length of the latency series.
const HourlyPoints = 24

// Windowed computes uptime and mean latency over checks with timestamp >= now-window.
// LastCheck comes from the full history, not the window.
func Windowed(h *domain.TargetHistory, window time.Duration, now time.Time) domain.WindowedMetrics {
	var m domain.WindowedMetrics
	if h == nil {
		return m
	}
	m.LastCheck = h.Last()

	in := InWindow(h.Checks, window, now)
	m.ChecksInWindow = len(in)
	if len(in) == 0 {
		return m
	}
	var ok int
	var sum float64
	for _, c := range in {
		if c.Success() {
			ok++
		}
		sum += c.LatencyMS
	}
	m.UptimePct = Round2(100 * float64(ok) / float64(len(in)))
	m.AvgLatencyMS = math.Round(sum / float64(len(in)))
	return m
}

// InWindow returns the checks with timestamp >= now-window, preserving order.
func InWindow(checks []domain.CheckResult, window time.Duration, now time.Time) []domain.CheckResult {
	cutoff := now.Add(-window).Unix()
	out := make([]domain.CheckResult, 0, len(checks))
	for _, c := range checks {
		if c.Timestamp >= cutoff {
			out = append(out, c)
		}
	}
	return out
}

// SiteView is one dashboard row.
type SiteView struct {
	ID             domain.TargetID      `json:"id"`
	Name           string               `json:"name"`
	URL            string               `json:"url"`
	Status         int                  `json:"status"`
	Online         bool                 `json:"online"`
	ResponseTimeMS float64              `json:"response_time"`
	LastError      null.String          `json:"last_error"`
	Uptime         float64              `json:"uptime"`
	AvgResponseMS  float64              `json:"avg_response_time"`
	ChecksCount    int                  `json:"checks_count"`
	LastCheckTime  int64                `json:"last_check_time"`
	LastCheckDate  string               `json:"last_check_date"`
	Window         []domain.CheckResult `json:"window_checks,omitempty"`
}

// View builds the row for one target. ok is false for a target without checks.
func View(id domain.TargetID, h *domain.TargetHistory, window time.Duration, now time.Time) (SiteView, bool) {
	last := h.Last()
	if last == nil {
		return SiteView{}, false
	}
	m := Windowed(h, window, now)
	name := h.Name
	if name == "" {
		name = domain.UnknownSiteName
	}
	v := SiteView{
		ID:             id,
		Name:           name,
		URL:            h.URL,
		Status:         last.StatusCode,
		Online:         last.Success(),
		ResponseTimeMS: last.LatencyMS,
		LastError:      null.NewString(last.Error, last.Error != ""),
		Uptime:         m.UptimePct,
		AvgResponseMS:  m.AvgLatencyMS,
		ChecksCount:    m.ChecksInWindow,
		LastCheckTime:  last.Timestamp,
		LastCheckDate:  last.Date,
		Window:         InWindow(h.Checks, window, now),
	}
	return v, true
}

// Views returns one row per target that has at least one check, ordered by name
// (case-insensitive) and then URL.
func Views(store domain.HistoricalStore, window time.Duration, now time.Time) []SiteView {
	out := make([]SiteView, 0, len(store))
	for id, h := range store {
		if v, ok := View(id, h, window, now); ok {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// HourlyPoint is the mean latency of checks within one hour either side of At.
type HourlyPoint struct {
	Label     string     `json:"label"`
	At        int64      `json:"at"`
	LatencyMS null.Float `json:"latency_ms"`
}

// HourlyLatency returns HourlyPoints points, oldest first, ending at now. Labels use the
// hour of day in loc (UTC when nil).
func HourlyLatency(checks []domain.CheckResult, now time.Time, loc *time.Location) []HourlyPoint {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]HourlyPoint, 0, HourlyPoints)
	for i := HourlyPoints - 1; i >= 0; i-- {
		at := now.Add(-time.Duration(i) * time.Hour)
		p := HourlyPoint{Label: at.In(loc).Format("15") + "h", At: at.Unix()}
		var n int
		var sum float64
		for _, c := range checks {
			d := c.Time().Sub(at)
			if d < 0 {
				d = -d
			}
			if d <= time.Hour {
				n++
				sum += c.LatencyMS
			}
		}
		if n > 0 {
			p.LatencyMS = null.FloatFrom(math.Round(sum / float64(n)))
		}
		out = append(out, p)
	}
	return out
}

// Overall summarizes the latest check of every target: how many are online and the
// mean window uptime across them.
func Overall(store domain.HistoricalStore, window time.Duration, now time.Time) (total, online int, meanUptime float64) {
	var sum float64
	for _, h := range store {
		last := h.Last()
		if last == nil {
			continue
		}
		total++
		if last.Success() {
			online++
		}
		sum += Windowed(h, window, now).UptimePct
	}
	if total > 0 {
		meanUptime = Round2(sum / float64(total))
	}
	return total, online, meanUptime
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
