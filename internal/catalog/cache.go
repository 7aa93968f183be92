package catalog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/domain"
)

// ProductCache is an in-memory TTL cache of resolved products keyed by ref.
type ProductCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type cacheEntry struct {
	product   domain.ProductDetails
	expiresAt time.Time
}

func NewProductCache(ttl time.Duration, clock clockwork.Clock) *ProductCache {
	return &ProductCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached product unless it is missing or expired. Expired
// entries stay until the next eviction pass.
func (c *ProductCache) Get(ref string) (domain.ProductDetails, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[ref]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return domain.ProductDetails{}, false
	}
	return entry.product, true
}

func (c *ProductCache) Set(ref string, product domain.ProductDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[ref] = cacheEntry{
		product:   product,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

func (c *ProductCache) Invalidate(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ref)
}

// Size counts entries, expired ones included.
func (c *ProductCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// EvictExpired drops expired entries and returns how many were removed.
func (c *ProductCache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for ref, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, ref)
			evicted++
		}
	}
	return evicted
}

// StartEvictionTimer runs EvictExpired every interval until the returned stop
// function is called.
func (c *ProductCache) StartEvictionTimer(interval time.Duration) (stop func()) {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.EvictExpired(); evicted > 0 {
					slog.Debug("Evicted expired product cache entries", "count", evicted, "remaining", c.Size())
				}
			case <-done:
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
