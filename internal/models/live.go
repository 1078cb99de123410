package models

// REST lookup shapes for the live race feed. Field names follow the feed's
// JSON contract; times are millisecond epochs like everywhere else in the
// model.

// RaceEvent describes one regatta on the live feed.
type RaceEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Venue     string `json:"venue,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	RaceCount int    `json:"raceCount,omitempty"`
}

// Race is a single start within an event.
type Race struct {
	ID          string `json:"id"`
	EventID     string `json:"eventId"`
	Name        string `json:"name"`
	Status      string `json:"status,omitempty"`
	StartTimeMS int64  `json:"startTime,omitempty"`
}

// BoatEntry is a boat snapshot from the REST boat-list lookup. It carries the
// boat's last reported position so the polling fallback can synthesize
// position updates from it.
type BoatEntry struct {
	ID          string  `json:"id"`
	SailNumber  string  `json:"sailNumber,omitempty"`
	Name        string  `json:"boatName,omitempty"`
	Class       string  `json:"class,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	SpeedKn     float64 `json:"speed"`
	HeadingDeg  float64 `json:"heading"`
	Active      bool    `json:"isActive"`
	TimestampMS int64   `json:"timestamp"`
}

// TrackHistoryPoint is one sample of a boat's recorded feed history.
type TrackHistoryPoint struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TimestampMS int64   `json:"timestamp"`
	SpeedKn     float64 `json:"speed,omitempty"`
	HeadingDeg  float64 `json:"heading,omitempty"`
}

// TrackHistory is the feed-recorded trace for one boat in one race.
type TrackHistory struct {
	BoatID string              `json:"boatId"`
	RaceID string              `json:"raceId,omitempty"`
	Points []TrackHistoryPoint `json:"points"`
}
