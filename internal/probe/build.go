package probe

import (
	"net"

	"github.com/hamed0406/sitemonitor/internal/config"
)

// FromConfig assembles the checker chain: HTTP HEAD, then retries, then DNS diagnosis.
func FromConfig(c config.Probe) *Executor {
	var chk Checker = NewHTTPChecker(HTTPOptions{
		ConnectTimeout: c.ConnectTimeout,
		Timeout:        c.RequestTimeout,
		MaxRedirects:   c.MaxRedirects,
		UserAgent:      c.UserAgent,
	})
	if c.RetryAttempts > 1 {
		chk = &RetryChecker{Inner: chk, Attempts: c.RetryAttempts, Backoff: c.RetryBackoff}
	}
	if c.DNSDiagnose {
		chk = &DNSDiagnosingChecker{Inner: chk, Resolver: net.DefaultResolver}
	}
	return NewExecutor(chk, c.Delay)
}
