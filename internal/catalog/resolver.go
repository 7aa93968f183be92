package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

const (
	breakerName             = "product_lookup"
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second

	// sharedFetchTimeout bounds a coalesced fetch, which outlives any single
	// caller's context.
	sharedFetchTimeout = 10 * time.Second
)

// Resolver fronts a ProductLookup with a TTL cache, per-ref request
// coalescing and a circuit breaker. It is itself a ProductLookup.
type Resolver struct {
	lookup  domain.ProductLookup
	cache   *ProductCache
	clock   clockwork.Clock
	metrics *metrics.LookupMetrics
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker
}

var _ domain.ProductLookup = (*Resolver)(nil)

func NewResolver(lookup domain.ProductLookup, cache *ProductCache, clock clockwork.Clock, m *metrics.LookupMetrics) *Resolver {
	r := &Resolver{
		lookup:  lookup,
		cache:   cache,
		clock:   clock,
		metrics: m,
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		// An unknown product is an answer, not an outage. Neither is a caller
		// walking away.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			m.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.BreakerState.WithLabelValues(breakerName).Set(float64(gobreaker.StateClosed))

	return r
}

// GetProduct resolves ref. A caller whose ctx ends first gets ctx.Err().
// Other errors wrap domain.ErrProductNotFound or
// domain.ErrLookupUnavailable when the backend is known to be down.
func (r *Resolver) GetProduct(ctx context.Context, ref string) (domain.ProductDetails, error) {
	if product, ok := r.cache.Get(ref); ok {
		r.metrics.CacheHits.WithLabelValues("memory").Inc()
		r.metrics.Lookups.WithLabelValues("ok").Inc()
		return product, nil
	}
	r.metrics.CacheMisses.WithLabelValues("memory").Inc()

	ch := r.group.DoChan(ref, func() (any, error) {
		if product, ok := r.cache.Get(ref); ok {
			return product, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return r.fetch(fetchCtx, ref)
	})

	select {
	case res := <-ch:
		if res.Shared {
			slog.DebugContext(ctx, "Product lookup coalesced", "ref", ref)
		}
		if res.Err != nil {
			r.metrics.Lookups.WithLabelValues(lookupResult(res.Err)).Inc()
			return domain.ProductDetails{}, res.Err
		}
		r.metrics.Lookups.WithLabelValues("ok").Inc()
		return res.Val.(domain.ProductDetails), nil
	case <-ctx.Done():
		// The shared fetch keeps running and still fills the cache.
		r.metrics.Lookups.WithLabelValues("canceled").Inc()
		return domain.ProductDetails{}, ctx.Err()
	}
}

func (r *Resolver) fetch(ctx context.Context, ref string) (domain.ProductDetails, error) {
	start := r.clock.Now()
	v, err := r.breaker.Execute(func() (interface{}, error) {
		return r.lookup.GetProduct(ctx, ref)
	})
	r.metrics.Duration.Observe(r.clock.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.ProductDetails{}, fmt.Errorf("%w: %w", domain.ErrLookupUnavailable, err)
	}
	if err != nil {
		return domain.ProductDetails{}, fmt.Errorf("lookup product %s: %w", ref, err)
	}

	product := v.(domain.ProductDetails)
	r.cache.Set(ref, product)
	return product, nil
}

// BreakerState exposes the breaker state for health reporting.
func (r *Resolver) BreakerState() gobreaker.State {
	return r.breaker.State()
}

func lookupResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	default:
		return "error"
	}
}
