package domain

import "time"

// ReactionToken backs one floating "like" animation.
type ReactionToken struct {
	ID               string    `json:"id"`
	HorizontalOffset float64   `json:"horizontalOffset"`
	CreatedAt        time.Time `json:"createdAt"`
}
