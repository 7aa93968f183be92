package domain

type DeviceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CastingSession describes the external playback session. Playing mirrors the
// player's playing/paused signal.
type CastingSession struct {
	Active       bool       `json:"active"`
	TargetDevice *DeviceRef `json:"targetDevice,omitempty"`
	Playing      bool       `json:"playing"`
}

// CastingReader gives read-only access to the casting session.
type CastingReader interface {
	Snapshot() CastingSession
}
