// Package discovery maintains the time-boxed cache of which tools are
// available per routing context, avoiding re-enumeration of remote tool
// servers on every request.
package discovery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/toolgate/toolgate/internal/domain"
	"github.com/toolgate/toolgate/internal/provider"
)

// DefaultTTL is how long a discovery snapshot is served without a remote
// call.
const DefaultTTL = 15 * time.Minute

// perServerTimeout bounds one server's enumeration so a hung server cannot
// stall discovery of the others.
const perServerTimeout = 10 * time.Second

type entry struct {
	snapshot domain.DiscoverySnapshot
}

// Cache is the injected discovery service. Entries are created lazily per
// routing key and invalidated by TTL expiry only.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]chan struct{}

	providers []provider.Provider
	ttl       time.Duration
	now       func() time.Time
}

// New creates a cache over the configured providers.
func New(providers []provider.Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:   make(map[string]*entry),
		inflight:  make(map[string]chan struct{}),
		providers: providers,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GetTools returns the tools and server health for the routing key. A fresh
// cache entry is served with zero remote calls; a stale or missing entry
// triggers exactly one re-enumeration of every configured server, performed
// outside the cache lock so hits on other routing keys are never stalled
// behind a slow server. Concurrent misses on the same key share one
// enumeration.
func (c *Cache) GetTools(ctx context.Context, routingKey string) (domain.DiscoverySnapshot, error) {
	for {
		c.mu.Lock()
		if e, ok := c.entries[routingKey]; ok {
			if c.now().Sub(e.snapshot.FetchedAt) < c.ttl {
				snapshot := e.snapshot
				c.mu.Unlock()
				return snapshot, nil
			}
		}
		if done, ok := c.inflight[routingKey]; ok {
			c.mu.Unlock()
			select {
			case <-done:
				// The winner cached its snapshot; re-check it.
				continue
			case <-ctx.Done():
				return domain.DiscoverySnapshot{}, ctx.Err()
			}
		}
		done := make(chan struct{})
		c.inflight[routingKey] = done
		c.mu.Unlock()

		snapshot := c.enumerate(ctx)

		c.mu.Lock()
		c.entries[routingKey] = &entry{snapshot: snapshot}
		delete(c.inflight, routingKey)
		close(done)
		c.mu.Unlock()
		return snapshot, nil
	}
}

// enumerate aggregates every provider's tool list into one namespace.
// Tool names are globally unique; collisions favor the first server
// enumerated. One failing server never aborts discovery of the others.
func (c *Cache) enumerate(ctx context.Context) domain.DiscoverySnapshot {
	snapshot := domain.DiscoverySnapshot{FetchedAt: c.now()}
	seen := make(map[string]string)

	for _, p := range c.providers {
		pctx, cancel := context.WithTimeout(ctx, perServerTimeout)
		start := time.Now()
		tools, err := p.ListTools(pctx)
		latency := time.Since(start).Milliseconds()
		cancel()

		health := domain.ServerHealth{
			Server:    p.Name(),
			LatencyMs: latency,
		}
		if err != nil {
			health.Error = err.Error()
			log.Printf("WARN: tool discovery failed for server %s: %v", p.Name(), err)
			snapshot.Health = append(snapshot.Health, health)
			continue
		}

		health.Healthy = true
		health.ToolCount = len(tools)
		snapshot.Health = append(snapshot.Health, health)

		for _, t := range tools {
			if prev, ok := seen[t.Name]; ok {
				log.Printf("WARN: tool %s from server %s shadowed by server %s", t.Name, p.Name(), prev)
				continue
			}
			seen[t.Name] = p.Name()
			snapshot.Tools = append(snapshot.Tools, t)
		}
	}
	return snapshot
}

// Resolve finds the provider and descriptor for a tool in the current
// discovery snapshot for the routing key.
func (c *Cache) Resolve(ctx context.Context, routingKey, toolName string) (provider.Provider, *domain.ToolDescriptor, error) {
	snapshot, err := c.GetTools(ctx, routingKey)
	if err != nil {
		return nil, nil, err
	}

	desc := snapshot.Tool(toolName)
	if desc == nil {
		return nil, nil, domain.NewError(domain.ErrCodeToolNotAvailable,
			"tool %s is not available in the current discovery snapshot", toolName)
	}
	for _, p := range c.providers {
		if p.Name() == desc.Server {
			return p, desc, nil
		}
	}
	return nil, nil, domain.NewError(domain.ErrCodeToolNotAvailable,
		"server %s for tool %s is no longer configured", desc.Server, toolName)
}

// Invalidate drops the cached entry for the routing key.
func (c *Cache) Invalidate(routingKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, routingKey)
}
