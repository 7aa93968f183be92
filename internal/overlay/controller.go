package overlay

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/pscheid92/liveshop/internal/observe"
)

const (
	ProductDisplayDuration = 30 * time.Second
	ContestDisplayDuration = 45 * time.Second
)

const (
	outcomeShown     = "shown"
	outcomeReplaced  = "replaced"
	outcomeIgnored   = "ignored"
	outcomeExpired   = "expired"
	outcomeDismissed = "dismissed"
)

type Option func(*Controller)

// WithRand sets the random source used for contest prize draws.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

func WithPrizes(prizes PrizeTable) Option {
	return func(c *Controller) { c.prizes = prizes }
}

// Controller holds the single active overlay slot. All state changes happen
// under mu; every timer callback re-checks the generation it was scheduled
// for before touching the slot.
type Controller struct {
	clock   clockwork.Clock
	casting domain.CastingReader
	metrics *metrics.OverlayMetrics
	prizes  PrizeTable
	rng     *rand.Rand

	mu         sync.Mutex
	active     domain.LiveEvent
	shownAt    time.Time
	expiresAt  time.Time
	generation uint64
	expiry     clockwork.Timer
	contest    *contestRound
	recent     *recentEvents
	closed     bool

	subs observe.Subscribers[domain.OverlayState]
}

// NewController creates an empty controller. casting may be nil, in which case
// the full variant is always used.
func NewController(clock clockwork.Clock, casting domain.CastingReader, m *metrics.OverlayMetrics, opts ...Option) *Controller {
	c := &Controller{
		clock:   clock,
		casting: casting,
		metrics: m,
		prizes:  DefaultPrizes,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		recent:  newRecentEvents(recentCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnEvent applies an incoming live event. It reports whether the event is now
// on screen.
//
// An event is shown when the slot is empty, or when it outranks the active
// event's kind. Events of the same kind as the active one, lower-priority
// events and redeliveries of recently cleared events are ignored.
func (c *Controller) OnEvent(e domain.LiveEvent) bool {
	if e == nil || !e.Kind().Valid() {
		return false
	}
	duration := displayDuration(e)
	if duration <= 0 {
		slog.Warn("Ignoring event without a usable display duration", "kind", e.Kind(), "event_id", e.EventID())
		c.record(e.Kind(), "invalid")
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}

	outcome := c.admit(e)
	if outcome == outcomeIgnored {
		c.mu.Unlock()
		c.record(e.Kind(), outcomeIgnored)
		slog.Debug("Overlay event ignored", "kind", e.Kind(), "event_id", e.EventID())
		return false
	}

	if c.active != nil {
		c.recent.add(c.active)
	}
	c.install(e, duration)
	state := c.stateLocked()
	c.mu.Unlock()

	c.record(e.Kind(), outcome)
	slog.Info("Overlay shown", "kind", e.Kind(), "event_id", e.EventID(), "outcome", outcome, "expires_at", state.ExpiresAt)
	c.subs.Notify(state)
	return true
}

func (c *Controller) admit(e domain.LiveEvent) string {
	switch {
	case c.recent.contains(e):
		return outcomeIgnored
	case c.active == nil:
		return outcomeShown
	case c.active.Kind() == e.Kind():
		return outcomeIgnored
	case e.Kind().Priority() < c.active.Kind().Priority():
		return outcomeIgnored
	default:
		return outcomeReplaced
	}
}

// install replaces the slot in one step: stop the old timers, set the new
// event, schedule its expiry.
func (c *Controller) install(e domain.LiveEvent, duration time.Duration) {
	c.stopTimers()
	c.generation++

	now := c.clock.Now()
	c.active = e
	c.shownAt = now
	c.expiresAt = now.Add(duration)
	c.contest = nil
	if e.Kind() == domain.KindContest {
		c.contest = newContestRound()
	}

	c.scheduleExpiry(duration)
}

func (c *Controller) scheduleExpiry(d time.Duration) {
	gen, id := c.generation, c.active.EventID()
	c.expiry = c.clock.AfterFunc(d, func() { c.expire(gen, id) })
}

func (c *Controller) expire(gen uint64, id string) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.active == nil || c.active.EventID() != id {
		c.mu.Unlock()
		return
	}
	kind := c.active.Kind()
	c.clear()
	state := c.stateLocked()
	c.mu.Unlock()

	c.record(kind, outcomeExpired)
	slog.Info("Overlay expired", "kind", kind, "event_id", id)
	c.subs.Notify(state)
}

// Dismiss clears the active overlay. It reports false when nothing was showing.
func (c *Controller) Dismiss() bool {
	c.mu.Lock()
	if c.closed || c.active == nil {
		c.mu.Unlock()
		return false
	}
	kind, id := c.active.Kind(), c.active.EventID()
	c.clear()
	state := c.stateLocked()
	c.mu.Unlock()

	c.record(kind, outcomeDismissed)
	slog.Info("Overlay dismissed", "kind", kind, "event_id", id)
	c.subs.Notify(state)
	return true
}

func (c *Controller) clear() {
	c.stopTimers()
	c.recent.add(c.active)
	c.generation++
	c.active = nil
	c.shownAt = time.Time{}
	c.expiresAt = time.Time{}
	c.contest = nil
}

func (c *Controller) stopTimers() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	if c.contest != nil {
		c.contest.discard()
	}
}

// JoinContest moves the showing contest from Offered to Joined and starts the
// countdown. When the countdown ends a prize is drawn and the wheel spins
// before the prize is revealed.
func (c *Controller) JoinContest() (domain.ContestView, error) {
	c.mu.Lock()
	if c.closed || c.contest == nil {
		c.mu.Unlock()
		return domain.ContestView{}, domain.ErrNoContest
	}
	if c.contest.phase != domain.ContestOffered {
		c.mu.Unlock()
		return domain.ContestView{}, domain.ErrContestAlreadyJoined
	}

	now := c.clock.Now()
	gen := c.generation
	c.contest.join(now)
	c.contest.timer = c.clock.AfterFunc(JoinCountdown, func() { c.finishCountdown(gen) })

	// Keep the overlay up until the revealed prize has been on screen for a while.
	if needed := now.Add(JoinCountdown + SpinDuration + RevealHold); c.expiresAt.Before(needed) {
		c.expiry.Stop()
		c.expiresAt = needed
		c.scheduleExpiry(needed.Sub(now))
	}

	view := c.contest.view(now)
	id := c.active.EventID()
	state := c.stateLocked()
	c.mu.Unlock()

	slog.Info("Contest joined", "event_id", id)
	c.subs.Notify(state)
	return view, nil
}

func (c *Controller) finishCountdown(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.contest == nil || c.contest.phase != domain.ContestJoined {
		c.mu.Unlock()
		return
	}
	prize := c.prizes.Draw(c.rng)
	c.contest.spin(prize)
	c.contest.timer = c.clock.AfterFunc(SpinDuration, func() { c.reveal(gen) })
	state := c.stateLocked()
	c.mu.Unlock()

	c.metrics.ContestDraws.WithLabelValues(prize).Inc()
	c.subs.Notify(state)
}

func (c *Controller) reveal(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.contest == nil || c.contest.phase != domain.ContestSpinning {
		c.mu.Unlock()
		return
	}
	c.contest.reveal()
	prize := c.contest.prize
	state := c.stateLocked()
	c.mu.Unlock()

	slog.Info("Contest prize revealed", "prize", prize)
	c.subs.Notify(state)
}

// CurrentOverlay returns the active event, if any.
func (c *Controller) CurrentOverlay() (domain.LiveEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.active != nil
}

func (c *Controller) State() domain.OverlayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() domain.OverlayState {
	state := domain.OverlayState{
		Status:  domain.OverlayEmpty,
		Variant: c.variant(),
	}
	if c.active == nil {
		return state
	}

	state.Status = domain.StatusFor(c.active.Kind())
	state.Active = c.active
	state.ShownAt = c.shownAt
	state.ExpiresAt = c.expiresAt
	if c.contest != nil {
		view := c.contest.view(c.clock.Now())
		state.Contest = &view
	}
	return state
}

func (c *Controller) variant() domain.OverlayVariant {
	if c.casting != nil && c.casting.Snapshot().Active {
		return domain.VariantCompact
	}
	return domain.VariantFull
}

// Subscribe registers fn for every overlay state change.
func (c *Controller) Subscribe(fn func(domain.OverlayState)) (unsubscribe func()) {
	return c.subs.Subscribe(fn)
}

// Close cancels all pending timers. Later events and user actions are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimers()
}

func (c *Controller) record(kind domain.EventKind, outcome string) {
	c.metrics.Transitions.WithLabelValues(string(kind), outcome).Inc()
}

func displayDuration(e domain.LiveEvent) time.Duration {
	switch ev := e.(type) {
	case domain.PollEvent:
		return ev.Duration()
	case domain.ProductSpotlightEvent:
		return ProductDisplayDuration
	case domain.ContestEvent:
		return ContestDisplayDuration
	default:
		return 0
	}
}
