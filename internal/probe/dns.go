package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNSClass buckets the resolution state of a hostname.
type DNSClass string

const (
	DNSResolves  DNSClass = "RESOLVES"
	DNSNXDomain  DNSClass = "NXDOMAIN"
	DNSNoARecord DNSClass = "NO_A_RECORD"
	DNSServFail  DNSClass = "SERVFAIL_OR_TIMEOUT"
	DNSInvalid   DNSClass = "INVALID_NAME"
)

// DNSDiag is a resolution snapshot attached to down alerts. It tells apart
// a host that stopped answering from a name that stopped existing.
type DNSDiag struct {
	Host          string
	Class         DNSClass
	IPs           []net.IP
	CNAME         string
	Nameservers   []string
	ResolverError string
}

const dnsDiagTimeout = 3 * time.Second

// DiagnoseDNS classifies how host resolves using the OS resolver. It is
// diagnostic only and never consulted on the probe request path.
func DiagnoseDNS(ctx context.Context, host string) DNSDiag {
	d := DNSDiag{Host: strings.TrimSpace(host)}
	if d.Host == "" || strings.Contains(d.Host, "://") {
		d.Class = DNSInvalid
		return d
	}

	ctx, cancel := context.WithTimeout(ctx, dnsDiagTimeout)
	defer cancel()
	resolver := &net.Resolver{}

	ips, err := resolver.LookupIP(ctx, "ip", d.Host)
	switch {
	case err == nil && len(ips) > 0:
		d.IPs = ips
		d.Class = DNSResolves
	case err != nil:
		d.ResolverError = err.Error()
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			if dnsErr.IsNotFound {
				d.Class = DNSNXDomain
			} else if dnsErr.IsTemporary || dnsErr.Timeout() {
				d.Class = DNSServFail
			}
		}
	}

	if cname, err := resolver.LookupCNAME(ctx, d.Host); err == nil && !strings.EqualFold(cname, d.Host+".") {
		d.CNAME = strings.TrimSuffix(cname, ".")
	}

	if ns, err := resolver.LookupNS(ctx, d.Host); err == nil && len(ns) > 0 {
		for _, n := range ns {
			d.Nameservers = append(d.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		// The zone exists even though nothing resolves.
		if d.Class == DNSNXDomain {
			d.Class = DNSNoARecord
		}
	}

	if d.Class == "" {
		switch {
		case len(d.Nameservers) > 0:
			d.Class = DNSNoARecord
		case d.ResolverError != "":
			d.Class = DNSServFail
		default:
			d.Class = DNSNXDomain
		}
	}
	return d
}
