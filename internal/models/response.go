package models

import "time"

// APIResponse is the uniform HTTP response wrapper.
type APIResponse[T any] struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Data      *T        `json:"data,omitempty"`
}

// HealthCheckResponse reports service liveness for the health endpoint.
type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Uptime   string                   `json:"uptime"`
	Services map[string]ServiceStatus `json:"services"`
}

// ServiceStatus is one subsystem's entry in the health response.
type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// LiveStatusResponse describes the live tracking session for API consumers.
type LiveStatusResponse struct {
	Status  SessionStatus `json:"status"`
	EventID string        `json:"eventId,omitempty"`
	RaceID  string        `json:"raceId,omitempty"`
	Active  bool          `json:"active"`
	Boats   int           `json:"boats"`
}

// ConnectRequest is the POST body for starting a live session.
type ConnectRequest struct {
	EventID string `json:"eventId"`
	RaceID  string `json:"raceId,omitempty"`
}
