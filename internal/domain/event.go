package domain

import "time"

// EventKind discriminates the three live event variants.
type EventKind string

const (
	KindPoll    EventKind = "poll"
	KindProduct EventKind = "product"
	KindContest EventKind = "contest"
)

// AllKinds lists every event kind in ascending priority.
var AllKinds = []EventKind{KindPoll, KindProduct, KindContest}

// Priority orders kinds for overlay replacement. Higher wins.
func (k EventKind) Priority() int {
	switch k {
	case KindContest:
		return 3
	case KindProduct:
		return 2
	case KindPoll:
		return 1
	default:
		return 0
	}
}

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	return k.Priority() > 0
}

// LiveEvent is a sealed union of PollEvent, ProductSpotlightEvent and ContestEvent.
type LiveEvent interface {
	EventID() string
	Kind() EventKind
	isLiveEvent()
}

type PollOption struct {
	Label     string `json:"label"`
	AvatarRef string `json:"avatarRef,omitempty"`
}

type PollEvent struct {
	ID              string       `json:"id"`
	Question        string       `json:"question"`
	Options         []PollOption `json:"options"`
	DurationSeconds int          `json:"durationSeconds"`
	SponsorLogoRef  string       `json:"sponsorLogoRef,omitempty"`
}

func (e PollEvent) EventID() string { return e.ID }
func (e PollEvent) Kind() EventKind { return KindPoll }
func (PollEvent) isLiveEvent()      {}

// MaxPollDuration caps how long a poll may ask to stay on screen.
const MaxPollDuration = 24 * time.Hour

// Duration is how long the poll stays on screen.
func (e PollEvent) Duration() time.Duration {
	return time.Duration(e.DurationSeconds) * time.Second
}

// ProductSpotlightEvent promotes a single product. The display fields are the
// fallback payload shown when the product reference cannot be resolved.
type ProductSpotlightEvent struct {
	ID                 string `json:"id"`
	ProductRef         string `json:"productRef"`
	DisplayName        string `json:"displayName"`
	DisplayDescription string `json:"displayDescription"`
	DisplayPrice       string `json:"displayPrice"`
	ImageRef           string `json:"imageRef"`
	SponsorLogoRef     string `json:"sponsorLogoRef,omitempty"`
}

func (e ProductSpotlightEvent) EventID() string { return e.ID }
func (e ProductSpotlightEvent) Kind() EventKind { return KindProduct }
func (ProductSpotlightEvent) isLiveEvent()      {}

type ContestEvent struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	PrizeDescription string    `json:"prizeDescription"`
	Deadline         time.Time `json:"deadline"`
	MaxParticipants  int       `json:"maxParticipants"`
	SponsorLogoRef   string    `json:"sponsorLogoRef,omitempty"`
}

func (e ContestEvent) EventID() string { return e.ID }
func (e ContestEvent) Kind() EventKind { return KindContest }
func (ContestEvent) isLiveEvent()      {}

// EventSubscriber receives decoded live events.
type EventSubscriber func(LiveEvent)
