package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSResolves    = "RESOLVES"
	DNSServFail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

const defaultDNSTimeout = 3 * time.Second

type DNSStatus struct {
	Domain        string
	HasAOrAAAA    bool
	IPs           []net.IP
	CNAME         string
	HasNS         bool
	Nameservers   []string
	Class         string
	ResolverError string
}

// DNSResolver is the subset of *net.Resolver the diagnosis needs.
type DNSResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// CheckDNS classifies how domain resolves.
func CheckDNS(ctx context.Context, r DNSResolver, domain string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(domain)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ips, err := r.LookupIP(ctx, "ip", s.Domain)
	if err == nil && len(ips) > 0 {
		s.HasAOrAAAA = true
		s.IPs = ips
		s.Class = DNSResolves
	} else if err != nil {
		var de *net.DNSError
		s.ResolverError = err.Error()
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSServFail
			}
		}
	}
	if s.HasAOrAAAA {
		// an IP literal or resolving host needs no further digging
		return s
	}

	if cname, err := r.LookupCNAME(ctx, s.Domain); err == nil && !strings.EqualFold(cname, s.Domain+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}

	if ns, err := r.LookupNS(ctx, s.Domain); err == nil && len(ns) > 0 {
		s.HasNS = true
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if s.Class == DNSNXDomain {
			s.Class = DNSNoARecord
		}
	}

	if s.Class == "" {
		switch {
		case s.HasNS:
			s.Class = DNSNoARecord
		case s.ResolverError != "":
			s.Class = DNSServFail
		default:
			s.Class = DNSNXDomain
		}
	}
	return s
}

// DNSDiagnosingChecker appends a DNS classification to transport failures.
type DNSDiagnosingChecker struct {
	Inner    Checker
	Resolver DNSResolver
	Timeout  time.Duration
}

func (d *DNSDiagnosingChecker) Check(ctx context.Context, target string) Result {
	out := d.Inner.Check(ctx, target)
	if out.StatusCode != 0 {
		return out
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dns := CheckDNS(dctx, d.Resolver, extractHost(target))
	out.Error = strings.TrimSpace(fmt.Sprintf("%s dns=%s", out.Error, dns.Class))
	return out
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
