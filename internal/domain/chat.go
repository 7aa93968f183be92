package domain

import "time"

type ChatMessage struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Text       string    `json:"text"`
	ColorTag   string    `json:"colorTag"`
	Timestamp  time.Time `json:"timestamp"`
	FromViewer bool      `json:"fromViewer"`
}
