package geo

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		expected               float64
		tolerance              float64
	}{
		{
			name: "zero distance",
			lat1: 37.0, lng1: -122.0, lat2: 37.0, lng2: -122.0,
			expected:  0,
			tolerance: 1e-9,
		},
		{
			name: "one degree of latitude",
			lat1: 0, lng1: 0, lat2: 1, lng2: 0,
			// 1 deg of arc on a 6371 km sphere
			expected:  6371000 * math.Pi / 180,
			tolerance: 1e-6,
		},
		{
			name: "short harbor leg",
			lat1: 37.8044, lng1: -122.2712, lat2: 37.8144, lng2: -122.2712,
			expected:  1111.95,
			tolerance: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("expected %v (±%v), got %v", tt.expected, tt.tolerance, got)
			}
		})
	}
}

func TestBearingDegrees(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		expected               float64
	}{
		{name: "due north", lat1: 0, lng1: 0, lat2: 1, lng2: 0, expected: 0},
		{name: "due east", lat1: 0, lng1: 0, lat2: 0, lng2: 1, expected: 90},
		{name: "due south", lat1: 1, lng1: 0, lat2: 0, lng2: 0, expected: 180},
		{name: "due west", lat1: 0, lng1: 1, lat2: 0, lng2: 0, expected: 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDegrees(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestBearingDegreesRange(t *testing.T) {
	// A north-west bearing must come back normalized, not negative.
	got := BearingDegrees(0, 0, 1, -1)
	if got < 0 || got >= 360 {
		t.Fatalf("bearing %v outside [0,360)", got)
	}
	if got < 270 || got > 360 {
		t.Errorf("expected a north-westerly bearing, got %v", got)
	}
}

func TestKnotsFromMetersPerSecond(t *testing.T) {
	// 1 m/s is 3600/1852 knots.
	got := KnotsFromMetersPerSecond(1)
	if math.Abs(got-1.9438444924406046) > 1e-12 {
		t.Errorf("expected ~1.94384 kn, got %v", got)
	}
	if KnotsFromMetersPerSecond(0) != 0 {
		t.Errorf("zero speed must convert to zero")
	}
}

func TestNaNPropagation(t *testing.T) {
	if !math.IsNaN(HaversineMeters(math.NaN(), 0, 1, 1)) {
		t.Errorf("NaN latitude should propagate through HaversineMeters")
	}
	if !math.IsNaN(BearingDegrees(0, math.NaN(), 1, 1)) {
		t.Errorf("NaN longitude should propagate through BearingDegrees")
	}
}
