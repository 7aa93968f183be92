// Package casting holds the state of the external playback (cast) session.
package casting

import (
	"log/slog"
	"sync"

	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/observe"
)

// Session is the single writer of domain.CastingSession.
type Session struct {
	mu    sync.Mutex
	state domain.CastingSession

	subs observe.Subscribers[domain.CastingSession]
}

func NewSession() *Session {
	return &Session{}
}

// StartCasting targets device. Switching devices while casting just retargets.
func (s *Session) StartCasting(device domain.DeviceRef) {
	s.update(func(st *domain.CastingSession) {
		st.Active = true
		st.TargetDevice = &device
	})
	slog.Info("Casting started", "device_id", device.ID, "device_name", device.Name)
}

func (s *Session) StopCasting() {
	if s.update(func(st *domain.CastingSession) { *st = domain.CastingSession{} }) {
		slog.Info("Casting stopped")
	}
}

// SetPlaying records the player's playing/paused signal.
func (s *Session) SetPlaying(playing bool) {
	s.update(func(st *domain.CastingSession) { st.Playing = playing })
}

func (s *Session) Snapshot() domain.CastingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.state)
}

func (s *Session) Subscribe(fn func(domain.CastingSession)) (unsubscribe func()) {
	return s.subs.Subscribe(fn)
}

// update applies fn and notifies subscribers when the state actually changed.
func (s *Session) update(fn func(*domain.CastingSession)) bool {
	s.mu.Lock()
	before := clone(s.state)
	fn(&s.state)
	after := clone(s.state)
	s.mu.Unlock()

	if equal(before, after) {
		return false
	}
	s.subs.Notify(after)
	return true
}

func clone(st domain.CastingSession) domain.CastingSession {
	if st.TargetDevice != nil {
		d := *st.TargetDevice
		st.TargetDevice = &d
	}
	return st
}

func equal(a, b domain.CastingSession) bool {
	if a.Active != b.Active || a.Playing != b.Playing {
		return false
	}
	if (a.TargetDevice == nil) != (b.TargetDevice == nil) {
		return false
	}
	return a.TargetDevice == nil || *a.TargetDevice == *b.TargetDevice
}
