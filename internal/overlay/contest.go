package overlay

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/domain"
)

const (
	JoinCountdown = 10 * time.Second
	SpinDuration  = 3 * time.Second
	// RevealHold is how long a revealed prize stays up before the contest
	// overlay may expire.
	RevealHold = 5 * time.Second
)

type Prize struct {
	Name   string
	Weight int
}

// PrizeTable is a fixed weighted prize list. Non-positive weights never win.
type PrizeTable []Prize

var DefaultPrizes = PrizeTable{
	{Name: "10% off your next order", Weight: 40},
	{Name: "Free shipping", Weight: 30},
	{Name: "$25 gift card", Weight: 15},
	{Name: "Signed merch bundle", Weight: 10},
	{Name: "VIP early access pass", Weight: 5},
}

// Draw picks a prize with probability proportional to its weight.
func (t PrizeTable) Draw(rng *rand.Rand) string {
	total := 0
	for _, p := range t {
		if p.Weight > 0 {
			total += p.Weight
		}
	}
	if total == 0 {
		return ""
	}

	n := rng.IntN(total)
	for _, p := range t {
		if p.Weight <= 0 {
			continue
		}
		if n < p.Weight {
			return p.Name
		}
		n -= p.Weight
	}
	return ""
}

// contestRound is the Offered → Joined → Spinning → Revealed sub-state of a
// contest overlay. It lives and dies with the overlay that hosts it.
type contestRound struct {
	phase         domain.ContestPhase
	countdownEnds time.Time
	prize         string
	timer         clockwork.Timer
}

func newContestRound() *contestRound {
	return &contestRound{phase: domain.ContestOffered}
}

func (r *contestRound) join(now time.Time) {
	r.phase = domain.ContestJoined
	r.countdownEnds = now.Add(JoinCountdown)
}

func (r *contestRound) spin(prize string) {
	r.phase = domain.ContestSpinning
	r.prize = prize
}

func (r *contestRound) reveal() {
	r.phase = domain.ContestRevealed
	r.timer = nil
}

// discard stops any pending countdown or spin timer.
func (r *contestRound) discard() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// view hides the prize until it is revealed.
func (r *contestRound) view(now time.Time) domain.ContestView {
	v := domain.ContestView{Phase: r.phase}
	switch r.phase {
	case domain.ContestJoined:
		remaining := max(r.countdownEnds.Sub(now), 0)
		v.CountdownSeconds = int(math.Ceil(remaining.Seconds()))
	case domain.ContestRevealed:
		v.Prize = r.prize
	}
	return v
}
