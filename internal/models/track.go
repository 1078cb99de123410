package models

// DeviceType tags a track with the hardware or software that produced it.
type DeviceType string

const (
	DeviceMeridian      DeviceType = "meridian"
	DeviceMeridianMini  DeviceType = "meridian-mini"
	DeviceMeridianSport DeviceType = "meridian-sport"
	DeviceMeridianPro   DeviceType = "meridian-pro"
	DeviceVelocitek     DeviceType = "velocitek"
	DeviceVakaros       DeviceType = "vakaros"
	DeviceGarmin        DeviceType = "garmin"
	DeviceRaceQs        DeviceType = "raceqs"
	DeviceGPXGeneric    DeviceType = "gpx-generic"
	DeviceUnknown       DeviceType = "unknown"
)

// SourceFormat identifies the declared or detected input format of an import.
type SourceFormat string

const (
	// FormatMeridian is the Meridian logger binary format, with automatic
	// fallback to the CSV export when the binary magic is absent.
	FormatMeridian    SourceFormat = "meridian"
	FormatMeridianCSV SourceFormat = "meridian-csv"
	FormatGPX         SourceFormat = "gpx"
	FormatNMEA        SourceFormat = "nmea"
	FormatAuto        SourceFormat = "auto"
)

// TrackPoint is a single normalized GPS sample. Optional fields are nil when
// the source format did not carry them and no derivation was possible.
type TrackPoint struct {
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	TimestampMS int64    `json:"timestamp"`
	AltitudeM   *float64 `json:"altitude,omitempty"`
	SpeedKn     *float64 `json:"speed,omitempty"`
	HeadingDeg  *float64 `json:"heading,omitempty"`
	COGDeg      *float64 `json:"cog,omitempty"`
	SOGKn       *float64 `json:"sog,omitempty"`
	TWADeg      *float64 `json:"twa,omitempty"`
	TWSKn       *float64 `json:"tws,omitempty"`
	HeelDeg     *float64 `json:"heel,omitempty"`
	PitchDeg    *float64 `json:"pitch,omitempty"`
	HDOP        *float64 `json:"hdop,omitempty"`
	Satellites  *int     `json:"satellites,omitempty"`
	BatteryV    *float64 `json:"battery,omitempty"`
}

// Track is an ordered sequence of points from one device session. Timestamps
// within Points are non-decreasing for any well-formed export; decoders
// preserve source order and never reorder. A Track is immutable once a decoder
// has returned it.
type Track struct {
	ID          string       `json:"id"`
	DeviceType  DeviceType   `json:"deviceType"`
	Points      []TrackPoint `json:"points"`
	StartTimeMS int64        `json:"startTime"`
	EndTimeMS   int64        `json:"endTime"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Creator     string       `json:"creator,omitempty"`
}

// Float64Ptr returns a pointer to v, for populating optional point fields.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
