package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/casting"
	"github.com/pscheid92/liveshop/internal/catalog"
	"github.com/pscheid92/liveshop/internal/chat"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/observe"
	"github.com/pscheid92/liveshop/internal/overlay"
	"github.com/pscheid92/liveshop/internal/reaction"
)

// EventSource is the inbound live event relay.
type EventSource interface {
	Connect(ctx context.Context)
	Disconnect()
	Connected() bool
	Subscribe(fn domain.EventSubscriber) (unsubscribe func())
}

type Components struct {
	Events    EventSource
	Overlay   *overlay.Controller
	Chat      *chat.Engine
	Reactions *reaction.Tracker
	Casting   *casting.Session
	Spotlight *catalog.Spotlight
}

type Show struct {
	id    string
	clock clockwork.Clock
	c     Components

	mu      sync.Mutex
	started bool
	unsubs  []func()

	// syncMu serializes spotlight syncs so the last one always sees the
	// latest overlay.
	syncMu sync.Mutex

	changes observe.Subscribers[struct{}]
}

func NewShow(id string, clock clockwork.Clock, c Components) *Show {
	return &Show{id: id, clock: clock, c: c}
}

func (s *Show) ID() string { return s.id }

// Start links the components and begins the chat simulation and the event
// feed. Calling it twice is a no-op.
func (s *Show) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	changed := func() { s.changes.Notify(struct{}{}) }
	s.unsubs = append(s.unsubs,
		s.c.Events.Subscribe(func(e domain.LiveEvent) { s.c.Overlay.OnEvent(e) }),
		s.c.Overlay.Subscribe(func(domain.OverlayState) {
			s.syncSpotlight()
			changed()
		}),
		s.c.Spotlight.Subscribe(func(domain.SpotlightView) { changed() }),
		s.c.Chat.Subscribe(func(chat.Update) { changed() }),
		s.c.Reactions.Subscribe(func([]domain.ReactionToken) { changed() }),
		s.c.Casting.Subscribe(func(domain.CastingSession) { changed() }),
	)

	s.c.Chat.Start()
	s.c.Events.Connect(ctx)
	slog.Info("Show started", "show_id", s.id)
}

// Stop tears the show down in reverse order of Start.
func (s *Show) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false

	s.c.Events.Disconnect()
	s.c.Chat.Stop()
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.c.Overlay.Close()
	s.c.Reactions.Close()
	s.c.Spotlight.Close()
	slog.Info("Show stopped", "show_id", s.id)
}

// syncSpotlight shows the active product overlay in the spotlight, or clears
// the spotlight when something else is up.
func (s *Show) syncSpotlight() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if active, ok := s.c.Overlay.CurrentOverlay(); ok {
		if product, ok := active.(domain.ProductSpotlightEvent); ok {
			s.c.Spotlight.Show(product)
			return
		}
	}
	s.c.Spotlight.Clear()
}

// Subscribe registers fn for any change anywhere in the show.
func (s *Show) Subscribe(fn func()) (unsubscribe func()) {
	return s.changes.Subscribe(func(struct{}) { fn() })
}

func (s *Show) Snapshot() domain.ShowSnapshot {
	snap := domain.ShowSnapshot{
		ShowID:      s.id,
		Overlay:     s.c.Overlay.State(),
		Chat:        s.c.Chat.Feed(),
		Viewers:     s.c.Chat.Viewers(),
		Reactions:   s.c.Reactions.Active(),
		Casting:     s.c.Casting.Snapshot(),
		GeneratedAt: s.clock.Now(),
	}
	if view, ok := s.c.Spotlight.Current(); ok {
		snap.Spotlight = &view
	}
	return snap
}

func (s *Show) Overlay() domain.OverlayState {
	return s.c.Overlay.State()
}

func (s *Show) Dismiss() bool {
	return s.c.Overlay.Dismiss()
}

func (s *Show) JoinContest() (domain.ContestView, error) {
	return s.c.Overlay.JoinContest()
}

func (s *Show) Chat() ([]domain.ChatMessage, int) {
	return s.c.Chat.Feed(), s.c.Chat.Viewers()
}

func (s *Show) SubmitChat(text string) (domain.ChatMessage, bool) {
	return s.c.Chat.Submit(text)
}

func (s *Show) Reactions() []domain.ReactionToken {
	return s.c.Reactions.Active()
}

func (s *Show) React() (domain.ReactionToken, bool) {
	return s.c.Reactions.React()
}

func (s *Show) Casting() domain.CastingSession {
	return s.c.Casting.Snapshot()
}

func (s *Show) StartCasting(device domain.DeviceRef) domain.CastingSession {
	s.c.Casting.StartCasting(device)
	return s.c.Casting.Snapshot()
}

func (s *Show) StopCasting() domain.CastingSession {
	s.c.Casting.StopCasting()
	return s.c.Casting.Snapshot()
}

func (s *Show) SetPlaying(playing bool) domain.CastingSession {
	s.c.Casting.SetPlaying(playing)
	return s.c.Casting.Snapshot()
}

func (s *Show) RetryLookup() error {
	return s.c.Spotlight.Retry()
}

func (s *Show) Spotlight() (domain.SpotlightView, bool) {
	return s.c.Spotlight.Current()
}

// EventsConnected reports whether the inbound event stream is up.
func (s *Show) EventsConnected() bool {
	return s.c.Events.Connected()
}
