package domain

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"time"
)

// UnknownSiteName is used when a registry line or a persisted history has no display name.
const UnknownSiteName = "Unknown Site"

// DateLayout is the human-readable timestamp stored next to every check.
const DateLayout = "2006-01-02 15:04:05"

type TargetID string

type Target struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// ID derives the store key from the raw URL. Identical URLs always map to the same ID.
func (t Target) ID() TargetID {
	return IDFor(t.URL)
}

func IDFor(url string) TargetID {
	sum := md5.Sum([]byte(url))
	return TargetID(hex.EncodeToString(sum[:]))
}

// CheckResult is one probe outcome. StatusCode 0 means the endpoint was unreachable.
type CheckResult struct {
	Timestamp  int64   `json:"timestamp"`
	StatusCode int     `json:"status"`
	LatencyMS  float64 `json:"response_time"`
	Error      string  `json:"error"`
	Date       string  `json:"date"`
}

func NewCheckResult(at time.Time, status int, latencyMS float64, errText string) CheckResult {
	if latencyMS < 0 {
		latencyMS = 0
	}
	return CheckResult{
		Timestamp:  at.Unix(),
		StatusCode: status,
		LatencyMS:  latencyMS,
		Error:      errText,
		Date:       at.UTC().Format(DateLayout),
	}
}

// Success reports whether the status code is in [200,400).
func (c CheckResult) Success() bool {
	return IsSuccess(c.StatusCode)
}

func IsSuccess(status int) bool {
	return status >= 200 && status < 400
}

func (c CheckResult) Time() time.Time {
	return time.Unix(c.Timestamp, 0).UTC()
}

type TargetHistory struct {
	URL    string        `json:"url"`
	Name   string        `json:"name"`
	Checks []CheckResult `json:"checks"`
}

// Normalize applies the defaults a persisted history may be missing and restores the
// ascending timestamp order.
func (h *TargetHistory) Normalize() {
	if h.Name == "" {
		h.Name = UnknownSiteName
	}
	if h.Checks == nil {
		h.Checks = []CheckResult{}
	}
	for i := range h.Checks {
		if h.Checks[i].LatencyMS < 0 {
			h.Checks[i].LatencyMS = 0
		}
	}
	h.SortChecks()
}

// SortChecks orders checks ascending by timestamp; equal timestamps keep insertion order.
func (h *TargetHistory) SortChecks() {
	sort.SliceStable(h.Checks, func(i, j int) bool {
		return h.Checks[i].Timestamp < h.Checks[j].Timestamp
	})
}

// Last returns the most recent check, or nil when the history is empty.
func (h *TargetHistory) Last() *CheckResult {
	if h == nil || len(h.Checks) == 0 {
		return nil
	}
	c := h.Checks[len(h.Checks)-1]
	return &c
}

// HistoricalStore maps target IDs to their check history.
type HistoricalStore map[TargetID]*TargetHistory

func NewHistoricalStore() HistoricalStore {
	return make(HistoricalStore)
}

// Clone returns a deep copy.
func (s HistoricalStore) Clone() HistoricalStore {
	out := make(HistoricalStore, len(s))
	for id, h := range s {
		if h == nil {
			continue
		}
		cp := &TargetHistory{URL: h.URL, Name: h.Name, Checks: make([]CheckResult, len(h.Checks))}
		copy(cp.Checks, h.Checks)
		out[id] = cp
	}
	return out
}

// NumChecks counts checks across all targets.
func (s HistoricalStore) NumChecks() int {
	n := 0
	for _, h := range s {
		if h != nil {
			n += len(h.Checks)
		}
	}
	return n
}

type RunSummary struct {
	LastUpdate       int64   `json:"last_update"`
	TotalTargets     int     `json:"total_sites"`
	OnlineCount      int     `json:"sites_online"`
	OfflineCount     int     `json:"sites_offline"`
	OverallUptimePct float64 `json:"uptime_percentage"`
}

type WindowedMetrics struct {
	UptimePct      float64      `json:"uptime"`
	AvgLatencyMS   float64      `json:"avg_response_time"`
	ChecksInWindow int          `json:"checks_count"`
	LastCheck      *CheckResult `json:"last_check,omitempty"`
}
