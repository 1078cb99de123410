package models

// DecodeResult is the uniform envelope every decoder returns. Success is true
// when at least one usable track was produced; row- and point-level problems
// accumulate in Warnings without failing the import, while Errors is populated
// only when the input as a whole was rejected.
type DecodeResult struct {
	Success      bool         `json:"success"`
	Tracks       []Track      `json:"tracks"`
	Errors       []string     `json:"errors,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	SourceFormat SourceFormat `json:"sourceFormat"`
	DeviceType   DeviceType   `json:"deviceType,omitempty"`
}
