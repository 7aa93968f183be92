// Package observe is a small callback registry that components use to announce
// state changes without knowing who listens.
package observe

import (
	"log/slog"
	"sync"
)

// Subscribers holds callbacks keyed by registration. The zero value is ready to use.
type Subscribers[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(T)
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (s *Subscribers[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

// Notify calls every subscriber with v. Callers must not hold their own state
// lock, since subscribers may call back into the notifying component.
// A panicking subscriber is logged and does not affect the others.
func (s *Subscribers[T]) Notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		call(fn, v)
	}
}

func (s *Subscribers[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func call[T any](fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Subscriber panicked", "panic", r)
		}
	}()
	fn(v)
}
