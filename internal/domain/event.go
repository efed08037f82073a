package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Coordinate and time provenance values.
const (
	SourceAPI       = "api"
	SourceGeocoded  = "geocoded"
	SourceSynthetic = "synthetic"
)

// FlexString decodes a JSON string, number, or null into a string. The upstream
// API is not consistent about quoting numeric fields.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("unsupported scalar %s", b)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the trimmed value.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// RawQuake is one element of the JSON array served by the sismos API.
// Coordinates are optional and appear under either lowercase or Spanish keys.
type RawQuake struct {
	Fecha         FlexString `json:"Fecha"`
	Profundidad   FlexString `json:"Profundidad"`
	Magnitud      FlexString `json:"Magnitud"`
	RefGeografica FlexString `json:"RefGeografica"`
	FechaUpdate   FlexString `json:"FechaUpdate"`
	Lat           FlexString `json:"lat,omitempty"`
	Lon           FlexString `json:"lon,omitempty"`
	Latitud       FlexString `json:"Latitud,omitempty"`
	Longitud      FlexString `json:"Longitud,omitempty"`

	Payload []byte `json:"-"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location holds the raw geographic reference and its parsed components.
type Location struct {
	Raw        string   `json:"raw,omitempty"`
	Town       string   `json:"town,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Direction  string   `json:"direction,omitempty"`
}

// Quake is a cleaned seismic event. Magnitude and depth are nil when the source
// value was missing or not numeric.
type Quake struct {
	ID        string    `json:"id"`
	Magnitude *float64  `json:"magnitude"`
	Scale     string    `json:"scale,omitempty"`
	DepthKm   *float64  `json:"depth_km,omitempty"`
	Geo       Geo       `json:"geo"`
	Location  Location  `json:"location"`
	Time      time.Time `json:"time"`
	Updated   time.Time `json:"updated,omitzero"`

	CoordSource string `json:"coord_source"`
	TimeSource  string `json:"time_source"`

	Severity  string  `json:"severity,omitempty"`
	Color     [3]int  `json:"color"`
	Elevation float64 `json:"elevation"`

	FormattedAddress string  `json:"formatted_address,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`

	RawPayload  []byte    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
}

// HasMagnitude reports whether the quake carries a numeric magnitude.
func (q Quake) HasMagnitude() bool {
	return q.Magnitude != nil
}

// CleanReport counts the fallbacks applied while cleaning one API response.
type CleanReport struct {
	Total             int `json:"total"`
	GeocodedCoords    int `json:"geocoded_coords"`
	SyntheticCoords   int `json:"synthetic_coords"`
	SyntheticTimes    int `json:"synthetic_times"`
	MissingMagnitudes int `json:"missing_magnitudes"`
}

// Warnings renders the report as user-facing notices, one per fallback kind.
func (r CleanReport) Warnings() []string {
	var out []string
	if r.SyntheticCoords > 0 {
		out = append(out, fmt.Sprintf(
			"%d of %d events had no latitude/longitude; random locations inside Chile were generated.",
			r.SyntheticCoords, r.Total))
	}
	if r.GeocodedCoords > 0 {
		out = append(out, fmt.Sprintf(
			"%d of %d events were located by geocoding their geographic reference.",
			r.GeocodedCoords, r.Total))
	}
	if r.SyntheticTimes > 0 {
		out = append(out, fmt.Sprintf(
			"%d of %d events had no usable date; random dates within the last 30 days were generated.",
			r.SyntheticTimes, r.Total))
	}
	if r.MissingMagnitudes > 0 {
		out = append(out, fmt.Sprintf(
			"%d of %d events have no numeric magnitude and are excluded from magnitude charts.",
			r.MissingMagnitudes, r.Total))
	}
	return out
}
