package overlay

import "github.com/pscheid92/liveshop/internal/domain"

const recentCapacity = 64

// recentEvents remembers the identities of the last cleared overlays so that a
// redelivered event does not pop up a second time.
type recentEvents struct {
	keys  []string
	index map[string]struct{}
	next  int
}

func newRecentEvents(capacity int) *recentEvents {
	return &recentEvents{
		keys:  make([]string, 0, capacity),
		index: make(map[string]struct{}, capacity),
	}
}

func eventKey(e domain.LiveEvent) string {
	return string(e.Kind()) + ":" + e.EventID()
}

func (r *recentEvents) add(e domain.LiveEvent) {
	key := eventKey(e)
	if _, ok := r.index[key]; ok {
		return
	}

	if len(r.keys) < cap(r.keys) {
		r.keys = append(r.keys, key)
	} else {
		delete(r.index, r.keys[r.next])
		r.keys[r.next] = key
		r.next = (r.next + 1) % len(r.keys)
	}
	r.index[key] = struct{}{}
}

func (r *recentEvents) contains(e domain.LiveEvent) bool {
	_, ok := r.index[eventKey(e)]
	return ok
}
