package resolver

import (
	"context"
	"net"
	"net/netip"
	"strings"
)

// NetLookup resolves through the system resolver.
type NetLookup struct {
	resolver *net.Resolver
}

func NewNetLookup() *NetLookup {
	return &NetLookup{resolver: net.DefaultResolver}
}

func (l *NetLookup) LookupHost(ctx context.Context, name string) (string, []netip.Addr, error) {
	addrs, err := l.resolver.LookupNetIP(ctx, "ip", name)
	if err != nil {
		return "", nil, err
	}

	canonical, err := l.resolver.LookupCNAME(ctx, name)
	if err != nil || canonical == "" {
		canonical = name
	}

	return strings.TrimSuffix(canonical, "."), addrs, nil
}
