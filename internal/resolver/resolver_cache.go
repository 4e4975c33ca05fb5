package resolver

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"unicode/utf8"

	"content-fetch/internal/fetcherr"

	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

// Cache resolves host names once and keeps the result for the lifetime of the process.
type Cache struct {
	logger *zap.SugaredLogger
	lookup Lookup

	mu    sync.Mutex
	hosts map[string]*CachedHost
}

func NewCache(logger *zap.SugaredLogger, lookup Lookup) *Cache {
	return &Cache{
		logger: logger,
		lookup: lookup,
		hosts:  make(map[string]*CachedHost),
	}
}

// Resolve returns the cached host for name, resolving it on a miss. The lookup runs outside the lock,
// so two concurrent misses may both resolve; the later insert wins.
func (c *Cache) Resolve(ctx context.Context, name string) (*CachedHost, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: %w", fetcherr.ErrNotFound, ErrEmptyName)
	}

	key := strings.ToLower(name)

	if host, ok := c.get(key); ok {
		return host, nil
	}

	if addr, err := netip.ParseAddr(strings.Trim(name, "[]")); err == nil {
		host := &CachedHost{Name: name, CanonicalName: addr.String(), Family: familyOf(addr), Addr: addr}
		c.set(key, host)
		return host, nil
	}

	// the lookup primitive is not guaranteed to honour cancellation once started
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", fetcherr.ErrNotFound, err)
	}

	lookupName, err := toASCII(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", fetcherr.ErrNotFound, name, err)
	}

	canonical, addrs, err := c.lookup.LookupHost(ctx, lookupName)
	if err != nil {
		c.logger.Debugw("Name resolution failed", "name", name, "err", err)
		return nil, fmt.Errorf("%w: %s: %w", fetcherr.ErrNotFound, name, err)
	}

	addr, ok := preferredAddr(addrs)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", fetcherr.ErrNotFound, name, ErrNoAddress)
	}

	if canonical == "" {
		canonical = lookupName
	}

	host := &CachedHost{
		Name:          name,
		CanonicalName: strings.TrimSuffix(canonical, "."),
		Family:        familyOf(addr),
		Addr:          addr,
	}
	c.set(key, host)

	c.logger.Debugw("Resolved host", "name", name, "canonical", host.CanonicalName, "addr", host.Addr.String())
	return host, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.hosts)
}

func (c *Cache) get(key string) (*CachedHost, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	host, ok := c.hosts[key]
	return host, ok
}

func (c *Cache) set(key string, host *CachedHost) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hosts[key] = host
}

func toASCII(name string) (string, error) {
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			return idna.Lookup.ToASCII(name)
		}
	}
	return name, nil
}
