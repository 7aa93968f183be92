package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/observe"
)

const DefaultLookupTimeout = 3 * time.Second

// Spotlight tracks the product spotlight on screen. It shows the event's own
// display payload right away and upgrades it once the product reference
// resolves. A result only lands if the same event is still in the spotlight.
type Spotlight struct {
	lookup  domain.ProductLookup
	timeout time.Duration

	mu         sync.Mutex
	event      *domain.ProductSpotlightEvent
	view       domain.SpotlightView
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	wg         sync.WaitGroup

	subs observe.Subscribers[domain.SpotlightView]
}

func NewSpotlight(lookup domain.ProductLookup, timeout time.Duration) *Spotlight {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Spotlight{lookup: lookup, timeout: timeout}
}

// Show puts e in the spotlight and starts resolving its product. Showing the
// event that is already in the spotlight does nothing.
func (s *Spotlight) Show(e domain.ProductSpotlightEvent) {
	s.mu.Lock()
	if s.closed || (s.event != nil && s.event.ID == e.ID) {
		s.mu.Unlock()
		return
	}

	s.reset()
	s.event = &e
	s.view = domain.SpotlightView{
		EventID: e.ID,
		Status:  domain.SpotlightResolving,
		Product: domain.FallbackProduct(e),
	}
	s.startResolve()
	view := s.view
	s.mu.Unlock()

	s.subs.Notify(view)
}

// Retry resolves a spotlight whose lookup failed again.
func (s *Spotlight) Retry() error {
	s.mu.Lock()
	switch {
	case s.closed || s.event == nil:
		s.mu.Unlock()
		return domain.ErrNoSpotlight
	case s.view.Status == domain.SpotlightResolving:
		s.mu.Unlock()
		return domain.ErrLookupInProgress
	case s.view.Status == domain.SpotlightResolved:
		s.mu.Unlock()
		return nil
	}

	s.view.Status = domain.SpotlightResolving
	s.startResolve()
	view := s.view
	s.mu.Unlock()

	slog.Info("Retrying product lookup", "event_id", view.EventID, "ref", view.Product.Ref)
	s.subs.Notify(view)
	return nil
}

// Clear drops the spotlight and abandons any lookup in flight.
func (s *Spotlight) Clear() {
	s.mu.Lock()
	if s.event == nil {
		s.mu.Unlock()
		return
	}
	s.reset()
	s.mu.Unlock()

	s.subs.Notify(domain.SpotlightView{})
}

func (s *Spotlight) Current() (domain.SpotlightView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.event != nil
}

// Subscribe registers fn for view changes. A cleared spotlight is reported as
// the zero view.
func (s *Spotlight) Subscribe(fn func(domain.SpotlightView)) (unsubscribe func()) {
	return s.subs.Subscribe(fn)
}

// Close abandons in-flight lookups and waits for them to return.
func (s *Spotlight) Close() {
	s.mu.Lock()
	s.closed = true
	s.reset()
	s.mu.Unlock()

	s.wg.Wait()
}

// reset cancels the in-flight lookup and empties the spotlight. Callers hold mu.
func (s *Spotlight) reset() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.event = nil
	s.view = domain.SpotlightView{}
}

// startResolve launches a lookup for the current event. Callers hold mu.
func (s *Spotlight) startResolve() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.cancel = cancel
	gen, event := s.generation, *s.event

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		product, err := s.lookup.GetProduct(ctx, event.ProductRef)
		s.apply(gen, event, product, err)
	}()
}

func (s *Spotlight) apply(gen uint64, event domain.ProductSpotlightEvent, product domain.ProductDetails, err error) {
	s.mu.Lock()
	if gen != s.generation || s.event == nil || s.event.ID != event.ID {
		s.mu.Unlock()
		return
	}
	s.cancel = nil

	if err != nil {
		s.view.Status = domain.SpotlightFallback
		s.view.Product = domain.FallbackProduct(event)
		s.view.CartEnabled = false
		s.view.LastError = err.Error()
		slog.Warn("Product lookup failed, showing fallback", "event_id", event.ID, "ref", event.ProductRef, "error", err)
	} else {
		s.view.Status = domain.SpotlightResolved
		s.view.Product = withFallback(product, event)
		s.view.CartEnabled = product.InStock
		s.view.LastError = ""
	}
	view := s.view
	s.mu.Unlock()

	s.subs.Notify(view)
}

// withFallback fills fields the catalog left empty from the event payload.
func withFallback(p domain.ProductDetails, e domain.ProductSpotlightEvent) domain.ProductDetails {
	fb := domain.FallbackProduct(e)
	if p.Ref == "" {
		p.Ref = fb.Ref
	}
	if p.Name == "" {
		p.Name = fb.Name
	}
	if p.Description == "" {
		p.Description = fb.Description
	}
	if p.Price == "" {
		p.Price = fb.Price
	}
	if p.ImageURL == "" {
		p.ImageURL = fb.ImageURL
	}
	return p
}
