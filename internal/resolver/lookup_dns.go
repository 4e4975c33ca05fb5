package resolver

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DNSLookup queries one configured DNS server directly, A records first, then AAAA.
type DNSLookup struct {
	client *dns.Client
	server string
}

func NewDNSLookup(server string, timeout time.Duration) *DNSLookup {
	return &DNSLookup{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
	}
}

func (l *DNSLookup) LookupHost(ctx context.Context, name string) (string, []netip.Addr, error) {
	fqdn := dns.Fqdn(name)

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		resp, _, err := l.client.ExchangeContext(ctx, msg, l.server)
		if err != nil {
			return "", nil, fmt.Errorf("dns exchange with %s: %w", l.server, err)
		}

		if resp.Rcode == dns.RcodeNameError {
			return "", nil, fmt.Errorf("%s: %w", name, ErrNoAddress)
		}
		if resp.Rcode != dns.RcodeSuccess {
			continue
		}

		canonical := name
		var addrs []netip.Addr

		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.CNAME:
				canonical = strings.TrimSuffix(rec.Target, ".")
			case *dns.A:
				if a, ok := netip.AddrFromSlice(rec.A); ok {
					addrs = append(addrs, a.Unmap())
				}
			case *dns.AAAA:
				if a, ok := netip.AddrFromSlice(rec.AAAA); ok {
					addrs = append(addrs, a)
				}
			}
		}

		if len(addrs) > 0 {
			return canonical, addrs, nil
		}
	}

	return "", nil, fmt.Errorf("%s: %w", name, ErrNoAddress)
}
