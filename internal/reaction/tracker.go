// Package reaction tracks the short-lived tokens behind floating "like"
// animations.
package reaction

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/pscheid92/liveshop/internal/observe"
)

const (
	Lifetime         = 2500 * time.Millisecond
	DefaultMaxActive = 50
	MaxOffset        = 40.0
)

type Option func(*Tracker)

func WithRand(rng *rand.Rand) Option {
	return func(t *Tracker) { t.rng = rng }
}

// WithMaxActive caps the number of concurrently animating tokens.
func WithMaxActive(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxActive = n
		}
	}
}

type entry struct {
	token domain.ReactionToken
	timer clockwork.Timer
}

type Tracker struct {
	clock     clockwork.Clock
	metrics   *metrics.ReactionMetrics
	rng       *rand.Rand
	maxActive int

	mu     sync.Mutex
	active []entry
	closed bool

	subs observe.Subscribers[[]domain.ReactionToken]
}

func NewTracker(clock clockwork.Clock, m *metrics.ReactionMetrics, opts ...Option) *Tracker {
	t := &Tracker{
		clock:     clock,
		metrics:   m,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		maxActive: DefaultMaxActive,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// React creates a token that removes itself after Lifetime. It returns false
// when the active set is full.
func (t *Tracker) React() (domain.ReactionToken, bool) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.ReactionToken{}, false
	}
	if len(t.active) >= t.maxActive {
		t.mu.Unlock()
		t.metrics.Dropped.Inc()
		slog.Debug("Reaction dropped, active set full", "max_active", t.maxActive)
		return domain.ReactionToken{}, false
	}

	token := domain.ReactionToken{
		ID:               uuid.NewString(),
		HorizontalOffset: (t.rng.Float64()*2 - 1) * MaxOffset,
		CreatedAt:        t.clock.Now(),
	}
	id := token.ID
	timer := t.clock.AfterFunc(Lifetime, func() { t.expire(id) })
	t.active = append(t.active, entry{token: token, timer: timer})
	snapshot := t.tokensLocked()
	t.mu.Unlock()

	t.metrics.Created.Inc()
	t.metrics.Active.Set(float64(len(snapshot)))
	t.subs.Notify(snapshot)
	return token, true
}

func (t *Tracker) expire(id string) {
	t.mu.Lock()
	i := slices.IndexFunc(t.active, func(e entry) bool { return e.token.ID == id })
	if t.closed || i < 0 {
		t.mu.Unlock()
		return
	}
	t.active = slices.Delete(t.active, i, i+1)
	snapshot := t.tokensLocked()
	t.mu.Unlock()

	t.metrics.Active.Set(float64(len(snapshot)))
	t.subs.Notify(snapshot)
}

// Active returns the tokens currently animating, oldest first.
func (t *Tracker) Active() []domain.ReactionToken {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokensLocked()
}

func (t *Tracker) tokensLocked() []domain.ReactionToken {
	tokens := make([]domain.ReactionToken, len(t.active))
	for i, e := range t.active {
		tokens[i] = e.token
	}
	return tokens
}

func (t *Tracker) Subscribe(fn func([]domain.ReactionToken)) (unsubscribe func()) {
	return t.subs.Subscribe(fn)
}

// Close cancels all pending removals and rejects further reactions.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for _, e := range t.active {
		e.timer.Stop()
	}
	t.active = nil
	t.metrics.Active.Set(0)
}
