package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// dnsTTL bounds how long resolved addresses are reused before the
// resolver is consulted again.
const dnsTTL = 5 * time.Minute

// resolverCache memoizes host lookups so repeated fetches against the
// same site skip the resolver round trip. Entries are refreshed lazily
// once their TTL lapses.
type resolverCache struct {
	mu      sync.Mutex
	entries map[string]dnsEntry
	ttl     time.Duration

	lookup func(ctx context.Context, host string) ([]string, error)
	now    func() time.Time
}

type dnsEntry struct {
	addrs   []string
	expires time.Time
}

func newResolverCache(ttl time.Duration) *resolverCache {
	return &resolverCache{
		entries: make(map[string]dnsEntry),
		ttl:     ttl,
		lookup:  net.DefaultResolver.LookupHost,
		now:     time.Now,
	}
}

// lookupHost resolves host, serving from cache while the entry is live.
func (r *resolverCache) lookupHost(ctx context.Context, host string) ([]string, error) {
	r.mu.Lock()
	entry, ok := r.entries[host]
	if ok && r.now().Before(entry.expires) {
		addrs := entry.addrs
		r.mu.Unlock()
		return addrs, nil
	}
	r.mu.Unlock()

	addrs, err := r.lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	r.mu.Lock()
	r.entries[host] = dnsEntry{addrs: addrs, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return addrs, nil
}

// dialContext wraps dialer with the resolver cache. IP literals bypass
// the cache entirely.
func (r *resolverCache) dialContext(dialer *net.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, fmt.Errorf("split address %s: %w", address, err)
		}
		if net.ParseIP(host) != nil {
			return dialer.DialContext(ctx, network, address)
		}

		addrs, err := r.lookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		var lastErr error
		for _, addr := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(addr, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no addresses for %s", host)
		}
		return nil, fmt.Errorf("dial %s: %w", host, lastErr)
	}
}
