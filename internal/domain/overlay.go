package domain

import "time"

// OverlayStatus is the outer overlay state machine.
type OverlayStatus string

const (
	OverlayEmpty          OverlayStatus = "empty"
	OverlayShowingPoll    OverlayStatus = "poll"
	OverlayShowingProduct OverlayStatus = "product"
	OverlayShowingContest OverlayStatus = "contest"
)

// StatusFor maps an event kind to the overlay status that displays it.
func StatusFor(kind EventKind) OverlayStatus {
	switch kind {
	case KindPoll:
		return OverlayShowingPoll
	case KindProduct:
		return OverlayShowingProduct
	case KindContest:
		return OverlayShowingContest
	default:
		return OverlayEmpty
	}
}

// OverlayVariant selects the overlay sizing. Compact is used while casting.
type OverlayVariant string

const (
	VariantFull    OverlayVariant = "full"
	VariantCompact OverlayVariant = "compact"
)

type ContestPhase string

const (
	ContestOffered  ContestPhase = "offered"
	ContestJoined   ContestPhase = "joined"
	ContestSpinning ContestPhase = "spinning"
	ContestRevealed ContestPhase = "revealed"
)

type ContestView struct {
	Phase            ContestPhase `json:"phase"`
	CountdownSeconds int          `json:"countdownSeconds,omitempty"`
	Prize            string       `json:"prize,omitempty"`
}

// OverlayState is a read-only snapshot of the overlay controller.
type OverlayState struct {
	Status    OverlayStatus  `json:"status"`
	Active    LiveEvent      `json:"active,omitempty"`
	ShownAt   time.Time      `json:"shownAt,omitzero"`
	ExpiresAt time.Time      `json:"expiresAt,omitzero"`
	Variant   OverlayVariant `json:"variant"`
	Contest   *ContestView   `json:"contest,omitempty"`
}
