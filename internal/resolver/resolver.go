package resolver

import (
	"context"
	"net/netip"
)

type Family int

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

// CachedHost is an immutable snapshot of a resolved name. Safe for concurrent readers.
type CachedHost struct {
	Name          string
	CanonicalName string
	Family        Family
	Addr          netip.Addr
}

// AddrBytes returns a fresh copy of the address bytes.
func (h *CachedHost) AddrBytes() []byte {
	return h.Addr.AsSlice()
}

// Lookup is the blocking network resolution primitive behind the cache.
type Lookup interface {
	LookupHost(ctx context.Context, name string) (canonical string, addrs []netip.Addr, err error)
}

type Resolver interface {
	Resolve(ctx context.Context, name string) (*CachedHost, error)
}

func familyOf(addr netip.Addr) Family {
	if addr.Is4() {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// preferredAddr picks the first IPv4 address, falling back to the first address of any family.
func preferredAddr(addrs []netip.Addr) (netip.Addr, bool) {
	for _, a := range addrs {
		if a.Unmap().Is4() {
			return a.Unmap(), true
		}
	}
	if len(addrs) > 0 {
		return addrs[0], true
	}
	return netip.Addr{}, false
}
