// Package chat simulates the chat feed and viewer counter of a live show and
// accepts messages typed by the viewer.
package chat

import (
	"crypto/rand"
	"io"
	"log/slog"
	mrand "math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/pscheid92/liveshop/internal/observe"
)

const (
	FeedCap             = 100
	ViewerDriftInterval = 8 * time.Second
	MaxMessageRunes     = 200

	ViewerUsername = "You"
	viewerColor    = "#ffd400"

	minSeedBurst = 4
)

// Profile tunes cadence and audience size for a presentation context.
type Profile struct {
	MinInterval    time.Duration
	MaxInterval    time.Duration
	ViewerFloor    int
	InitialViewers int
	MaxViewerDelta int
}

var (
	VerticalProfile = Profile{
		MinInterval:    1500 * time.Millisecond,
		MaxInterval:    4 * time.Second,
		ViewerFloor:    20,
		InitialViewers: 120,
		MaxViewerDelta: 12,
	}
	FullscreenProfile = Profile{
		MinInterval:    3 * time.Second,
		MaxInterval:    6 * time.Second,
		ViewerFloor:    250,
		InitialViewers: 1200,
		MaxViewerDelta: 60,
	}
)

// Update is sent to subscribers after every change. Message is nil for
// viewer count changes.
type Update struct {
	Message *domain.ChatMessage
	Viewers int
}

type Option func(*Engine)

func WithRand(rng *mrand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

type Engine struct {
	clock   clockwork.Clock
	profile Profile
	metrics *metrics.ChatMetrics
	rng     *mrand.Rand
	entropy io.Reader

	mu         sync.Mutex
	running    bool
	generation uint64
	emitTimer  clockwork.Timer
	driftTimer clockwork.Timer
	feed       []domain.ChatMessage
	viewers    int

	subs observe.Subscribers[Update]
}

func NewEngine(clock clockwork.Clock, profile Profile, m *metrics.ChatMetrics, opts ...Option) *Engine {
	if profile.MaxInterval < profile.MinInterval {
		profile.MaxInterval = profile.MinInterval
	}

	e := &Engine{
		clock:   clock,
		profile: profile,
		metrics: m,
		rng:     mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64())),
		entropy: ulid.Monotonic(rand.Reader, 0),
		feed:    make([]domain.ChatMessage, 0, FeedCap),
		viewers: max(profile.InitialViewers, profile.ViewerFloor),
	}
	for _, opt := range opts {
		opt(e)
	}

	m.Viewers.Set(float64(e.viewers))
	return e
}

// Start seeds a short burst of messages and begins the emission and viewer
// drift processes. Calling Start on a running engine does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.generation++
	gen := e.generation

	burst := minSeedBurst + e.rng.IntN(2)
	for range burst {
		e.append(e.simulatedMessage())
	}
	e.scheduleEmit(gen)
	e.scheduleDrift(gen)
	viewers := e.viewers
	e.mu.Unlock()

	e.metrics.Messages.WithLabelValues("simulated").Add(float64(burst))
	slog.Info("Chat simulation started", "seed_messages", burst, "viewers", viewers)
	e.subs.Notify(Update{Viewers: viewers})
}

// Stop cancels both periodic processes. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	e.generation++
	stopTimer(&e.emitTimer)
	stopTimer(&e.driftTimer)
	slog.Info("Chat simulation stopped")
}

func stopTimer(t *clockwork.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// Submit appends a message typed by the viewer. Blank text is ignored and
// long text is cut to MaxMessageRunes.
func (e *Engine) Submit(text string) (domain.ChatMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, false
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		text = string([]rune(text)[:MaxMessageRunes])
	}

	e.mu.Lock()
	msg := e.append(domain.ChatMessage{
		ID:         e.newID(),
		Username:   ViewerUsername,
		Text:       text,
		ColorTag:   viewerColor,
		Timestamp:  e.clock.Now(),
		FromViewer: true,
	})
	viewers := e.viewers
	e.mu.Unlock()

	e.metrics.Messages.WithLabelValues("viewer").Inc()
	e.subs.Notify(Update{Message: &msg, Viewers: viewers})
	return msg, true
}

// Feed returns a copy of the current feed, oldest first.
func (e *Engine) Feed() []domain.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.feed)
}

func (e *Engine) Viewers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewers
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) Subscribe(fn func(Update)) (unsubscribe func()) {
	return e.subs.Subscribe(fn)
}

func (e *Engine) scheduleEmit(gen uint64) {
	e.emitTimer = e.clock.AfterFunc(e.nextInterval(), func() { e.emit(gen) })
}

func (e *Engine) scheduleDrift(gen uint64) {
	e.driftTimer = e.clock.AfterFunc(ViewerDriftInterval, func() { e.drift(gen) })
}

// nextInterval draws uniformly from [MinInterval, MaxInterval].
func (e *Engine) nextInterval() time.Duration {
	spread := e.profile.MaxInterval - e.profile.MinInterval
	if spread <= 0 {
		return e.profile.MinInterval
	}
	return e.profile.MinInterval + time.Duration(e.rng.Int64N(int64(spread)+1))
}

func (e *Engine) emit(gen uint64) {
	e.mu.Lock()
	if !e.running || gen != e.generation {
		e.mu.Unlock()
		return
	}
	msg := e.append(e.simulatedMessage())
	e.scheduleEmit(gen)
	viewers := e.viewers
	e.mu.Unlock()

	e.metrics.Messages.WithLabelValues("simulated").Inc()
	e.subs.Notify(Update{Message: &msg, Viewers: viewers})
}

func (e *Engine) drift(gen uint64) {
	e.mu.Lock()
	if !e.running || gen != e.generation {
		e.mu.Unlock()
		return
	}
	delta := e.rng.IntN(2*e.profile.MaxViewerDelta+1) - e.profile.MaxViewerDelta
	e.viewers = max(e.viewers+delta, e.profile.ViewerFloor)
	e.scheduleDrift(gen)
	viewers := e.viewers
	e.mu.Unlock()

	e.metrics.Viewers.Set(float64(viewers))
	e.subs.Notify(Update{Viewers: viewers})
}

func (e *Engine) simulatedMessage() domain.ChatMessage {
	p := personas[e.rng.IntN(len(personas))]
	return domain.ChatMessage{
		ID:        e.newID(),
		Username:  p.username,
		Text:      phrases[e.rng.IntN(len(phrases))],
		ColorTag:  p.color,
		Timestamp: e.clock.Now(),
	}
}

func (e *Engine) newID() string {
	return ulid.MustNew(ulid.Timestamp(e.clock.Now()), e.entropy).String()
}

// append adds msg to the feed, keeping it ascending by timestamp and at most
// FeedCap long. Callers hold mu.
func (e *Engine) append(msg domain.ChatMessage) domain.ChatMessage {
	if n := len(e.feed); n > 0 && msg.Timestamp.Before(e.feed[n-1].Timestamp) {
		msg.Timestamp = e.feed[n-1].Timestamp
	}
	e.feed = append(e.feed, msg)

	if over := len(e.feed) - FeedCap; over > 0 {
		e.feed = append(e.feed[:0], e.feed[over:]...)
		e.metrics.Evicted.Add(float64(over))
	}
	return msg
}
