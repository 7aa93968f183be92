package overlay

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeCasting struct {
	mu      sync.Mutex
	session domain.CastingSession
}

func (f *fakeCasting) Snapshot() domain.CastingSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeCasting) set(active bool) {
	f.mu.Lock()
	f.session.Active = active
	f.mu.Unlock()
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *clockwork.FakeClock, *metrics.OverlayMetrics) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	m := metrics.NewOverlayMetrics(prometheus.NewRegistry())
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	c := NewController(clock, nil, m, opts...)
	t.Cleanup(c.Close)
	return c, clock, m
}

func poll(id string, seconds int) domain.PollEvent {
	return domain.PollEvent{
		ID:              id,
		Question:        "Which one?",
		Options:         []domain.PollOption{{Label: "A"}, {Label: "B"}},
		DurationSeconds: seconds,
	}
}

func product(id string) domain.ProductSpotlightEvent {
	return domain.ProductSpotlightEvent{ID: id, ProductRef: "sku-" + id, DisplayName: "Lamp"}
}

func contest(id string) domain.ContestEvent {
	return domain.ContestEvent{ID: id, Name: "Spin to win"}
}

func statusOf(c *Controller) func() domain.OverlayStatus {
	return func() domain.OverlayStatus { return c.State().Status }
}

func eventuallyStatus(t *testing.T, c *Controller, want domain.OverlayStatus) {
	t.Helper()
	assert.Eventually(t, func() bool { return c.State().Status == want }, waitFor, tick, "want status %s", want)
}

func TestOnEvent_PollExpiresAfterItsDuration(t *testing.T) {
	c, clock, m := newTestController(t)

	require.True(t, c.OnEvent(poll("p1", 5)))
	state := c.State()
	assert.Equal(t, domain.OverlayShowingPoll, state.Status)
	assert.Equal(t, clock.Now(), state.ShownAt)
	assert.Equal(t, clock.Now().Add(5*time.Second), state.ExpiresAt)

	clock.Advance(5*time.Second - time.Millisecond)
	assert.Equal(t, domain.OverlayShowingPoll, statusOf(c)())

	clock.Advance(time.Millisecond)
	eventuallyStatus(t, c, domain.OverlayEmpty)

	_, ok := c.CurrentOverlay()
	assert.False(t, ok)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Transitions.WithLabelValues("poll", "expired")) == 1
	}, waitFor, tick)
}

func TestOnEvent_FixedDurationsForProductAndContest(t *testing.T) {
	tests := []struct {
		name  string
		event domain.LiveEvent
		want  time.Duration
	}{
		{"product", product("x1"), ProductDisplayDuration},
		{"contest", contest("c1"), ContestDisplayDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock, _ := newTestController(t)
			require.True(t, c.OnEvent(tt.event))
			assert.Equal(t, clock.Now().Add(tt.want), c.State().ExpiresAt)

			clock.Advance(tt.want)
			eventuallyStatus(t, c, domain.OverlayEmpty)
		})
	}
}

func TestOnEvent_RedeliveryDoesNotRestartTimer(t *testing.T) {
	c, clock, _ := newTestController(t)
	shownAt := clock.Now()

	require.True(t, c.OnEvent(poll("p1", 5)))
	clock.Advance(3 * time.Second)

	assert.False(t, c.OnEvent(poll("p1", 5)))
	assert.Equal(t, shownAt, c.State().ShownAt)

	clock.Advance(2 * time.Second)
	eventuallyStatus(t, c, domain.OverlayEmpty)
}

func TestOnEvent_SameKindIsIgnored(t *testing.T) {
	c, _, m := newTestController(t)

	require.True(t, c.OnEvent(poll("p1", 5)))
	assert.False(t, c.OnEvent(poll("p2", 5)))

	active, ok := c.CurrentOverlay()
	require.True(t, ok)
	assert.Equal(t, "p1", active.EventID())
	assert.InDelta(t, 1, testutil.ToFloat64(m.Transitions.WithLabelValues("poll", "ignored")), 0)
}

func TestOnEvent_ContestReplacesPoll(t *testing.T) {
	c, clock, m := newTestController(t)

	require.True(t, c.OnEvent(poll("p1", 5)))
	require.True(t, c.OnEvent(contest("c1")))

	state := c.State()
	assert.Equal(t, domain.OverlayShowingContest, state.Status)
	assert.Equal(t, "c1", state.Active.EventID())
	require.NotNil(t, state.Contest)
	assert.Equal(t, domain.ContestOffered, state.Contest.Phase)

	// The poll's timer must not clear the contest.
	clock.Advance(5 * time.Second)
	assert.Equal(t, domain.OverlayShowingContest, statusOf(c)())

	clock.Advance(ContestDisplayDuration - 5*time.Second)
	eventuallyStatus(t, c, domain.OverlayEmpty)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Transitions.WithLabelValues("contest", "replaced")), 0)
}

func TestOnEvent_PriorityOrdering(t *testing.T) {
	c, _, _ := newTestController(t)

	require.True(t, c.OnEvent(poll("p1", 30)))
	require.True(t, c.OnEvent(product("x1")), "product outranks poll")
	assert.False(t, c.OnEvent(poll("p2", 30)), "poll never displaces product")
	require.True(t, c.OnEvent(contest("c1")), "contest outranks product")
	assert.False(t, c.OnEvent(product("x2")), "product never displaces contest")

	active, _ := c.CurrentOverlay()
	assert.Equal(t, "c1", active.EventID())
}

func TestOnEvent_RejectsUnusableEvents(t *testing.T) {
	c, _, _ := newTestController(t)

	assert.False(t, c.OnEvent(nil))
	assert.False(t, c.OnEvent(poll("p1", 0)))
	assert.Equal(t, domain.OverlayEmpty, c.State().Status)
}

func TestOnEvent_ClearedEventIsNotShownAgain(t *testing.T) {
	c, _, _ := newTestController(t)

	require.True(t, c.OnEvent(poll("p1", 5)))
	require.True(t, c.Dismiss())

	assert.False(t, c.OnEvent(poll("p1", 5)), "redelivered after dismiss")
	assert.True(t, c.OnEvent(poll("p2", 5)))
}

func TestOnEvent_ReplacedEventIsNotShownAgain(t *testing.T) {
	c, clock, _ := newTestController(t)

	require.True(t, c.OnEvent(poll("p1", 5)))
	require.True(t, c.OnEvent(product("x1")))
	clock.Advance(ProductDisplayDuration)
	eventuallyStatus(t, c, domain.OverlayEmpty)

	assert.False(t, c.OnEvent(poll("p1", 5)))
}

func TestRecentEvents_ForgetsOldest(t *testing.T) {
	r := newRecentEvents(2)
	r.add(poll("a", 1))
	r.add(poll("b", 1))
	r.add(poll("c", 1))

	assert.False(t, r.contains(poll("a", 1)))
	assert.True(t, r.contains(poll("b", 1)))
	assert.True(t, r.contains(poll("c", 1)))
	assert.False(t, r.contains(product("b")), "identity includes the kind")
}

func TestDismiss(t *testing.T) {
	c, clock, _ := newTestController(t)

	assert.False(t, c.Dismiss(), "nothing showing")

	require.True(t, c.OnEvent(poll("p1", 5)))
	require.True(t, c.Dismiss())
	assert.Equal(t, domain.OverlayEmpty, c.State().Status)

	// A new poll after dismissal runs its own full duration.
	require.True(t, c.OnEvent(poll("p2", 5)))
	clock.Advance(4 * time.Second)
	assert.Equal(t, domain.OverlayShowingPoll, statusOf(c)())
	clock.Advance(time.Second)
	eventuallyStatus(t, c, domain.OverlayEmpty)
}

func TestState_VariantFollowsCasting(t *testing.T) {
	casting := &fakeCasting{}
	c := NewController(clockwork.NewFakeClock(), casting, metrics.NewOverlayMetrics(prometheus.NewRegistry()))
	t.Cleanup(c.Close)

	assert.Equal(t, domain.VariantFull, c.State().Variant)
	casting.set(true)
	assert.Equal(t, domain.VariantCompact, c.State().Variant)
}

func TestSubscribe_ReceivesEveryTransition(t *testing.T) {
	c, clock, _ := newTestController(t)

	var mu sync.Mutex
	var seen []domain.OverlayStatus
	c.Subscribe(func(s domain.OverlayState) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})

	c.OnEvent(poll("p1", 5))
	c.OnEvent(poll("p2", 5)) // ignored, no notification
	c.OnEvent(product("x1"))
	c.Dismiss()
	c.OnEvent(poll("p3", 1))
	clock.Advance(time.Second)

	want := []domain.OverlayStatus{
		domain.OverlayShowingPoll,
		domain.OverlayShowingProduct,
		domain.OverlayEmpty,
		domain.OverlayShowingPoll,
		domain.OverlayEmpty,
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == len(want)
	}, waitFor, tick)
	mu.Lock()
	assert.Equal(t, want, seen)
	mu.Unlock()
}

func TestClose_StopsTimersAndIgnoresEvents(t *testing.T) {
	c, clock, _ := newTestController(t)

	require.True(t, c.OnEvent(poll("p1", 5)))
	c.Close()

	assert.False(t, c.OnEvent(contest("c1")))
	assert.False(t, c.Dismiss())

	clock.Advance(5 * time.Second)
	active, ok := c.CurrentOverlay()
	require.True(t, ok, "timers are cancelled, the slot is left as is")
	assert.Equal(t, "p1", active.EventID())
}

func TestOnEvent_AtMostOneActiveUnderRandomSequences(t *testing.T) {
	c, clock, _ := newTestController(t)
	rng := rand.New(rand.NewPCG(7, 7))

	for i := range 200 {
		id := string(rune('a' + i%26))
		switch rng.IntN(5) {
		case 0:
			c.OnEvent(poll(id, 1+rng.IntN(10)))
		case 1:
			c.OnEvent(product(id))
		case 2:
			c.OnEvent(contest(id))
		case 3:
			c.Dismiss()
		case 4:
			clock.Advance(time.Duration(rng.IntN(5000)) * time.Millisecond)
		}

		state := c.State()
		if state.Active == nil {
			assert.Equal(t, domain.OverlayEmpty, state.Status)
			assert.Nil(t, state.Contest)
		} else {
			assert.Equal(t, domain.StatusFor(state.Active.Kind()), state.Status)
			assert.Equal(t, state.Status == domain.OverlayShowingContest, state.Contest != nil)
		}
	}
}

func TestOnEvent_CountsUnusableDuration(t *testing.T) {
	c, _, m := newTestController(t)

	assert.False(t, c.OnEvent(poll("p0", 0)))
	assert.False(t, c.OnEvent(poll("p1", -5)))

	assert.Equal(t, domain.OverlayEmpty, c.State().Status)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Transitions.WithLabelValues("poll", "invalid")), 0)
}

func TestOnEvent_LongestPollKeepsFullDuration(t *testing.T) {
	c, clock, _ := newTestController(t)
	shownAt := clock.Now()

	require.True(t, c.OnEvent(poll("p1", int(domain.MaxPollDuration/time.Second))))
	assert.Equal(t, shownAt.Add(domain.MaxPollDuration), c.State().ExpiresAt)

	clock.Advance(time.Hour)
	assert.Equal(t, domain.OverlayShowingPoll, c.State().Status)
}
