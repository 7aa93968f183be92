package eventchannel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/tidwall/gjson"
)

const (
	typeField = "type"
	dataField = "data"
)

// Decode turns an inbound payload of the form {"type": "...", "data": {...}}
// into a LiveEvent. Errors wrap domain.ErrMalformedEvent,
// domain.ErrUnknownEventKind or domain.ErrInvalidEvent.
func Decode(payload []byte) (domain.LiveEvent, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: not valid JSON", domain.ErrMalformedEvent)
	}

	kind := domain.EventKind(gjson.GetBytes(payload, typeField).String())
	data := gjson.GetBytes(payload, dataField)
	if !data.IsObject() {
		return nil, fmt.Errorf("%w: %q must be an object", domain.ErrMalformedEvent, dataField)
	}

	switch kind {
	case domain.KindPoll:
		return decodePoll(data)
	case domain.KindProduct:
		return decodeProduct(data)
	case domain.KindContest:
		return decodeContest(data)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEventKind, kind)
	}
}

func decodePoll(data gjson.Result) (domain.LiveEvent, error) {
	var e domain.PollEvent
	if err := json.Unmarshal([]byte(data.Raw), &e); err != nil {
		return nil, fmt.Errorf("%w: poll: %w", domain.ErrMalformedEvent, err)
	}
	if err := requireID(e.ID); err != nil {
		return nil, err
	}
	if len(e.Options) == 0 {
		return nil, fmt.Errorf("%w: poll %s has no options", domain.ErrInvalidEvent, e.ID)
	}
	if e.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: poll %s duration must be positive", domain.ErrInvalidEvent, e.ID)
	}
	if e.DurationSeconds > int(domain.MaxPollDuration/time.Second) {
		return nil, fmt.Errorf("%w: poll %s duration exceeds %s", domain.ErrInvalidEvent, e.ID, domain.MaxPollDuration)
	}
	return e, nil
}

// productWire mirrors domain.ProductSpotlightEvent minus productRef, which may
// arrive as a string or an integer and is read separately.
type productWire struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"displayName"`
	DisplayDescription string `json:"displayDescription"`
	DisplayPrice       string `json:"displayPrice"`
	ImageRef           string `json:"imageRef"`
	SponsorLogoRef     string `json:"sponsorLogoRef"`
}

func decodeProduct(data gjson.Result) (domain.LiveEvent, error) {
	var w productWire
	if err := json.Unmarshal([]byte(data.Raw), &w); err != nil {
		return nil, fmt.Errorf("%w: product: %w", domain.ErrMalformedEvent, err)
	}
	if err := requireID(w.ID); err != nil {
		return nil, err
	}

	ref := data.Get("productRef")
	if ref.Type != gjson.String && ref.Type != gjson.Number {
		return nil, fmt.Errorf("%w: product %s needs a string or integer productRef", domain.ErrInvalidEvent, w.ID)
	}
	refStr := strings.TrimSpace(ref.String())
	if refStr == "" {
		return nil, fmt.Errorf("%w: product %s has an empty productRef", domain.ErrInvalidEvent, w.ID)
	}

	return domain.ProductSpotlightEvent{
		ID:                 w.ID,
		ProductRef:         refStr,
		DisplayName:        w.DisplayName,
		DisplayDescription: w.DisplayDescription,
		DisplayPrice:       w.DisplayPrice,
		ImageRef:           w.ImageRef,
		SponsorLogoRef:     w.SponsorLogoRef,
	}, nil
}

func decodeContest(data gjson.Result) (domain.LiveEvent, error) {
	var e domain.ContestEvent
	if err := json.Unmarshal([]byte(data.Raw), &e); err != nil {
		return nil, fmt.Errorf("%w: contest: %w", domain.ErrMalformedEvent, err)
	}
	if err := requireID(e.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.Name) == "" {
		return nil, fmt.Errorf("%w: contest %s has no name", domain.ErrInvalidEvent, e.ID)
	}
	if e.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: contest %s has negative maxParticipants", domain.ErrInvalidEvent, e.ID)
	}
	return e, nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing id", domain.ErrInvalidEvent)
	}
	return nil
}

type envelope struct {
	Type domain.EventKind `json:"type"`
	Data domain.LiveEvent `json:"data"`
}

// Encode produces the wire form accepted by Decode.
func Encode(e domain.LiveEvent) ([]byte, error) {
	if e == nil {
		return nil, errors.New("encode: nil event")
	}
	data, err := json.Marshal(envelope{Type: e.Kind(), Data: e})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Kind(), err)
	}
	return data, nil
}

// dropReason labels a decode failure for metrics.
func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownEventKind):
		return "unknown_kind"
	case errors.Is(err, domain.ErrInvalidEvent):
		return "invalid"
	default:
		return "malformed"
	}
}
