package domain

import (
	"context"
	"time"
)

// ShowSnapshot aggregates every component's state for presentation clients.
type ShowSnapshot struct {
	ShowID      string          `json:"showId"`
	Overlay     OverlayState    `json:"overlay"`
	Spotlight   *SpotlightView  `json:"spotlight,omitempty"`
	Chat        []ChatMessage   `json:"chat"`
	Viewers     int             `json:"viewers"`
	Reactions   []ReactionToken `json:"reactions"`
	Casting     CastingSession  `json:"casting"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// SnapshotPublisher pushes show snapshots to connected presentation clients.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snapshot ShowSnapshot) error
}
