package eventchannel

import (
	"testing"
	"time"

	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Poll(t *testing.T) {
	payload := `{"type":"poll","data":{"id":"p1","question":"Which color?","durationSeconds":20,
		"options":[{"label":"Red","avatarRef":"red.png"},{"label":"Blue"}],"sponsorLogoRef":"acme.png"}}`

	event, err := Decode([]byte(payload))
	require.NoError(t, err)

	poll, ok := event.(domain.PollEvent)
	require.True(t, ok)
	assert.Equal(t, "p1", poll.ID)
	assert.Equal(t, "Which color?", poll.Question)
	assert.Equal(t, []domain.PollOption{{Label: "Red", AvatarRef: "red.png"}, {Label: "Blue"}}, poll.Options)
	assert.Equal(t, 20*time.Second, poll.Duration())
	assert.Equal(t, "acme.png", poll.SponsorLogoRef)
}

func TestDecode_ProductRefStringOrInteger(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		wantRef string
	}{
		{"string ref", `"sku-42"`, "sku-42"},
		{"integer ref", `1234567`, "1234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"type":"product","data":{"id":"x1","productRef":` + tt.ref + `,
				"displayName":"Sneaker","displayPrice":"$89","imageRef":"sneaker.jpg"}}`

			event, err := Decode([]byte(payload))
			require.NoError(t, err)

			product := event.(domain.ProductSpotlightEvent)
			assert.Equal(t, tt.wantRef, product.ProductRef)
			assert.Equal(t, "Sneaker", product.DisplayName)
			assert.Equal(t, "$89", product.DisplayPrice)
			assert.Equal(t, domain.KindProduct, product.Kind())
		})
	}
}

func TestDecode_Contest(t *testing.T) {
	payload := `{"type":"contest","data":{"id":"c1","name":"Spin to win","prizeDescription":"Gift card",
		"deadline":"2026-10-15T20:00:00Z","maxParticipants":500}}`

	event, err := Decode([]byte(payload))
	require.NoError(t, err)

	contest := event.(domain.ContestEvent)
	assert.Equal(t, "Spin to win", contest.Name)
	assert.Equal(t, 500, contest.MaxParticipants)
	assert.True(t, contest.Deadline.Equal(time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)))
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"not json", `{"type":`, domain.ErrMalformedEvent},
		{"missing data", `{"type":"poll"}`, domain.ErrMalformedEvent},
		{"data not object", `{"type":"poll","data":[1,2]}`, domain.ErrMalformedEvent},
		{"unknown type", `{"type":"quiz","data":{"id":"q1"}}`, domain.ErrUnknownEventKind},
		{"missing type", `{"data":{"id":"q1"}}`, domain.ErrUnknownEventKind},
		{"poll without id", `{"type":"poll","data":{"options":[{"label":"a"}],"durationSeconds":5}}`, domain.ErrInvalidEvent},
		{"poll without options", `{"type":"poll","data":{"id":"p1","options":[],"durationSeconds":5}}`, domain.ErrInvalidEvent},
		{"poll zero duration", `{"type":"poll","data":{"id":"p1","options":[{"label":"a"}],"durationSeconds":0}}`, domain.ErrInvalidEvent},
		{"poll duration past a day", `{"type":"poll","data":{"id":"p1","options":[{"label":"a"}],"durationSeconds":86401}}`, domain.ErrInvalidEvent},
		{"poll duration wrapping to short", `{"type":"poll","data":{"id":"p1","options":[{"label":"a"}],"durationSeconds":18446744074}}`, domain.ErrInvalidEvent},
		{"poll duration wrapping negative", `{"type":"poll","data":{"id":"p1","options":[{"label":"a"}],"durationSeconds":10000000000}}`, domain.ErrInvalidEvent},
		{"poll wrong field type", `{"type":"poll","data":{"id":"p1","options":"a","durationSeconds":5}}`, domain.ErrMalformedEvent},
		{"product without ref", `{"type":"product","data":{"id":"x1"}}`, domain.ErrInvalidEvent},
		{"product with object ref", `{"type":"product","data":{"id":"x1","productRef":{"sku":1}}}`, domain.ErrInvalidEvent},
		{"product with blank ref", `{"type":"product","data":{"id":"x1","productRef":"  "}}`, domain.ErrInvalidEvent},
		{"contest without name", `{"type":"contest","data":{"id":"c1"}}`, domain.ErrInvalidEvent},
		{"contest bad deadline", `{"type":"contest","data":{"id":"c1","name":"n","deadline":"tomorrow"}}`, domain.ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := Decode([]byte(tt.payload))
			assert.Nil(t, event)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEncode_DecodesBack(t *testing.T) {
	original := domain.ProductSpotlightEvent{
		ID:           "x9",
		ProductRef:   "sku-9",
		DisplayName:  "Lamp",
		DisplayPrice: "$40",
	}

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestDropReason(t *testing.T) {
	_, unknown := Decode([]byte(`{"type":"quiz","data":{}}`))
	_, invalid := Decode([]byte(`{"type":"poll","data":{}}`))
	_, malformed := Decode([]byte(`nope`))

	assert.Equal(t, "unknown_kind", dropReason(unknown))
	assert.Equal(t, "invalid", dropReason(invalid))
	assert.Equal(t, "malformed", dropReason(malformed))
}
