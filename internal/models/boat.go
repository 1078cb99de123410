package models

// SessionStatus is the live tracking connection state reported through the
// status callback. A session is transient and rebuilt per connection attempt.
type SessionStatus string

const (
	SessionConnecting   SessionStatus = "connecting"
	SessionConnected    SessionStatus = "connected"
	SessionDisconnected SessionStatus = "disconnected"
	SessionError        SessionStatus = "error"
)

// TrailPoint is one entry in a boat's bounded recent-position history.
type TrailPoint struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TimestampMS int64   `json:"timestamp"`
}

// LiveBoat is the current known state of one boat in a live race. Instances
// are created and mutated only by the live client; callers receive copies and
// must treat them as read-only snapshots.
type LiveBoat struct {
	ID           string       `json:"id"`
	SailNumber   string       `json:"sailNumber,omitempty"`
	Name         string       `json:"name,omitempty"`
	Lat          float64      `json:"lat"`
	Lng          float64      `json:"lng"`
	SpeedKn      float64      `json:"speed"`
	HeadingDeg   float64      `json:"heading"`
	Active       bool         `json:"isActive"`
	Color        string       `json:"color"`
	Trail        []TrailPoint `json:"trail"`
	LastUpdateMS int64        `json:"lastUpdate"`
}
