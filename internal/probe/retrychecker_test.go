package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// fake checker you can control
type fakeChecker struct {
	results []Result
	i       int
	urls    []string
}

func (f *fakeChecker) Check(ctx context.Context, target string) Result {
	f.urls = append(f.urls, target)
	if f.i >= len(f.results) {
		return Result{Error: "no more"}
	}
	r := f.results[f.i]
	f.i++
	return r
}

func TestRetryChecker_SucceedsAfterRetry(t *testing.T) {
	f := &fakeChecker{
		results: []Result{
			{Error: "first fail"},
			{StatusCode: 200, LatencyMS: 3},
		},
	}
	rc := &RetryChecker{Inner: f, Attempts: 3, Backoff: 10 * time.Millisecond}
	out := rc.Check(context.Background(), "https://example.com")
	if !out.Success() {
		t.Fatalf("expected success after retry, got %+v", out)
	}
	if f.i != 2 {
		t.Fatalf("expected 2 attempts, got %d", f.i)
	}
}

func TestRetryChecker_AllFailAnnotates(t *testing.T) {
	f := &fakeChecker{
		results: []Result{
			{Error: "fail1"},
			{Error: "fail2"},
		},
	}
	rc := &RetryChecker{Inner: f, Attempts: 2}
	out := rc.Check(context.Background(), "https://example.com")
	if out.Success() {
		t.Fatalf("expected failure, got success")
	}
	if out.Error != "fail2 (after retries)" {
		t.Fatalf("unexpected annotation: %q", out.Error)
	}
}

func TestRetryChecker_SingleAttemptIsPassThrough(t *testing.T) {
	f := &fakeChecker{results: []Result{{StatusCode: 503}}}
	out := (&RetryChecker{Inner: f}).Check(context.Background(), "https://example.com")
	if out.StatusCode != 503 || out.Error != "" || f.i != 1 {
		t.Fatalf("unexpected: %+v after %d attempts", out, f.i)
	}
}

type fakeResolver struct {
	ipErr error
	ns    []*net.NS
}

func (r fakeResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	if r.ipErr != nil {
		return nil, r.ipErr
	}
	return []net.IP{net.ParseIP("192.0.2.1")}, nil
}

func (r fakeResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	return host + ".", nil
}

func (r fakeResolver) LookupNS(ctx context.Context, name string) ([]*net.NS, error) {
	if len(r.ns) == 0 {
		return nil, errors.New("no ns")
	}
	return r.ns, nil
}

func TestCheckDNS_Classes(t *testing.T) {
	ctx := context.Background()
	notFound := &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}

	if got := CheckDNS(ctx, fakeResolver{}, "example.com").Class; got != DNSResolves {
		t.Fatalf("want RESOLVES, got %s", got)
	}
	if got := CheckDNS(ctx, fakeResolver{ipErr: notFound}, "example.com").Class; got != DNSNXDomain {
		t.Fatalf("want NXDOMAIN, got %s", got)
	}
	withNS := fakeResolver{ipErr: notFound, ns: []*net.NS{{Host: "ns1.example.com."}}}
	st := CheckDNS(ctx, withNS, "example.com")
	if st.Class != DNSNoARecord || len(st.Nameservers) != 1 || st.Nameservers[0] != "ns1.example.com" {
		t.Fatalf("want NO_A_RECORD with ns, got %+v", st)
	}
	if got := CheckDNS(ctx, fakeResolver{}, "").Class; got != DNSInvalidName {
		t.Fatalf("want INVALID_NAME, got %s", got)
	}
}

func TestDNSDiagnosingChecker_AnnotatesTransportFailures(t *testing.T) {
	notFound := &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}
	inner := &fakeChecker{results: []Result{{Error: "dial tcp: lookup nowhere.invalid"}, {StatusCode: 500}}}
	d := &DNSDiagnosingChecker{Inner: inner, Resolver: fakeResolver{ipErr: notFound}}

	out := d.Check(context.Background(), "https://nowhere.invalid/x")
	if !strings.HasSuffix(out.Error, "dns=NXDOMAIN") {
		t.Fatalf("expected dns class suffix, got %q", out.Error)
	}

	out = d.Check(context.Background(), "https://nowhere.invalid/x")
	if out.StatusCode != 500 || out.Error != "" {
		t.Fatalf("HTTP responses must pass through untouched, got %+v", out)
	}
}

func TestExecutor_ProbeNormalizesAndStamps(t *testing.T) {
	f := &fakeChecker{results: []Result{{StatusCode: 200, LatencyMS: 120}, {}}}
	ex := NewExecutor(f, 0)
	at := time.Unix(1_700_000_000, 0)

	got := ex.Probe(context.Background(), domain.Target{URL: "example.com", Name: "Example"}, at)
	if f.urls[0] != "https://example.com" {
		t.Fatalf("url not normalized: %q", f.urls[0])
	}
	if got.Timestamp != at.Unix() || got.StatusCode != 200 || got.LatencyMS != 120 || got.Date == "" {
		t.Fatalf("unexpected result %+v", got)
	}

	// a failure without diagnostic still gets a non-empty error text
	got = ex.Probe(context.Background(), domain.Target{URL: "http://down"}, at)
	if got.StatusCode != 0 || got.Error == "" {
		t.Fatalf("unexpected failure result %+v", got)
	}
}

func TestExecutor_PauseHonoursContext(t *testing.T) {
	ex := NewExecutor(&fakeChecker{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ex.Pause(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
