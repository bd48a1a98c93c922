package probe

import "context"

// Result is the outcome of a single HTTP check.
//
// StatusCode is 0 for transport failures (DNS, connect, TLS, timeout, too many redirects);
// Error then carries the diagnostic.
type Result struct {
	StatusCode int
	LatencyMS  float64
	Error      string
}

// Success reports whether the status code is in [200,400).
func (r Result) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, url string) Result
}
