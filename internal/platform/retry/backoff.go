package retry

import "time"

// Backoff yields exponentially growing delays starting at initial and doubling
// up to ceiling. It is not safe for concurrent use.
type Backoff struct {
	initial time.Duration
	ceiling time.Duration
	next    time.Duration
}

func NewBackoff(initial, ceiling time.Duration) *Backoff {
	return &Backoff{initial: initial, ceiling: ceiling, next: initial}
}

// Next returns the current delay and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.next
	if b.ceiling > 0 && d > b.ceiling {
		d = b.ceiling
	}
	b.next = d * 2
	if b.ceiling > 0 && b.next > b.ceiling {
		b.next = b.ceiling
	}
	return d
}

// Reset restarts the schedule from the initial delay, e.g. after a connection
// was established again.
func (b *Backoff) Reset() {
	b.next = b.initial
}
