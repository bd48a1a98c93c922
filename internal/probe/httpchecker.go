package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"
)

const DefaultUserAgent = "Site Monitor/1.0"

type HTTPOptions struct {
	ConnectTimeout time.Duration // dial + TLS handshake
	Timeout        time.Duration // whole request, redirects included
	MaxRedirects   int
	UserAgent      string
}

func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		ConnectTimeout: 10 * time.Second,
		Timeout:        15 * time.Second,
		MaxRedirects:   3,
		UserAgent:      DefaultUserAgent,
	}
}

// HTTPChecker issues HEAD requests. Certificates are not verified: only reachability matters.
type HTTPChecker struct {
	Client    *http.Client
	UserAgent string
}

func NewHTTPChecker(opts HTTPOptions) *HTTPChecker {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	maxRedirects := opts.MaxRedirects
	return &HTTPChecker{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   opts.ConnectTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: opts.ConnectTimeout,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
				DisableKeepAlives:   true,
			},
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		UserAgent: opts.UserAgent,
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) Result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("User-Agent", h.UserAgent)

	resp, err := h.Client.Do(req)
	latency := elapsedMS(start)
	if err != nil {
		return Result{LatencyMS: latency, Error: err.Error()}
	}
	defer resp.Body.Close()

	return Result{StatusCode: resp.StatusCode, LatencyMS: latency}
}

// elapsedMS returns milliseconds since start rounded to two decimals.
func elapsedMS(start time.Time) float64 {
	ms := float64(time.Since(start)) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
