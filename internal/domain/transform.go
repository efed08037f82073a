package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Display and parsing layout used by the API and the dashboard tooltips.
const TimeLayout = "2006-01-02 15:04:05"

var (
	// magnitudeRe matches a leading numeric token and an optional scale,
	// e.g. "3.2 Ml" -> 3.2, Ml.
	magnitudeRe = regexp.MustCompile(`^([-+]?\d+(?:[.,]\d+)?)\s*([A-Za-z]{1,3})?$`)

	// depthRe matches "35 km", "35km" or "35".
	depthRe = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(?:km)?$`)

	// referenceRe parses "<distance> km al <direction> de <town>".
	referenceRe = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*km\.?\s+al\s+([NSEO]{1,3})\s+de\s+(.+)$`)

	// timeLayouts are tried in order; zoneless layouts are read as Chile local time.
	timeLayouts = []string{
		TimeLayout,
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02",
	}

	santiago = loadSantiago()
)

func loadSantiago() *time.Location {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		return time.FixedZone("CLT", -4*60*60)
	}
	return loc
}

// Santiago returns the time zone API timestamps are expressed in.
func Santiago() *time.Location {
	return santiago
}

// ParseRawQuake converts an API record into a Quake. Coordinates and time are
// left unset (empty CoordSource / TimeSource) when the record does not carry
// usable values; CleanQuakes fills them in.
func ParseRawQuake(raw RawQuake) Quake {
	magnitude, scale := parseMagnitude(raw.Magnitud.String())
	ref := raw.RefGeografica.String()

	q := Quake{
		ID: generateID(
			raw.Fecha.String(), ref, raw.Magnitud.String(), raw.Profundidad.String(),
			raw.FechaUpdate.String(), raw.Lat.String(), raw.Lon.String(),
			raw.Latitud.String(), raw.Longitud.String(),
		),
		Magnitude:  magnitude,
		Scale:      scale,
		DepthKm:    parseDepth(raw.Profundidad.String()),
		Location:   ParseReference(ref),
		RawPayload: raw.Payload,
	}

	if geo, ok := parseCoordinates(raw); ok {
		q.Geo = geo
		q.CoordSource = SourceAPI
	}
	if t, ok := parseTimestamp(raw.Fecha.String()); ok {
		q.Time = t
		q.TimeSource = SourceAPI
	}
	if t, ok := parseTimestamp(raw.FechaUpdate.String()); ok {
		q.Updated = t
	}
	return q
}

// parseMagnitude coerces the magnitude field to a number. Non-numeric values
// yield nil, never zero.
func parseMagnitude(s string) (*float64, string) {
	m := magnitudeRe.FindStringSubmatch(s)
	if m == nil {
		return nil, ""
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ""
	}
	return &v, m[2]
}

func parseDepth(s string) *float64 {
	m := depthRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseCoordinates reads the lowercase lat/lon pair, falling back to the
// Latitud/Longitud pair when the first does not parse.
func parseCoordinates(raw RawQuake) (Geo, bool) {
	if geo, ok := parseLatLon(raw.Lat.String(), raw.Lon.String()); ok {
		return geo, true
	}
	return parseLatLon(raw.Latitud.String(), raw.Longitud.String())
}

func parseLatLon(latStr, lonStr string) (Geo, bool) {
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		return Geo{}, false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Geo{}, false
	}
	return Geo{Lat: lat, Lon: lon}, true
}

// parseTimestamp parses an API date. Zoneless values are read as Chile local
// time; the result is always UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, santiago)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseReference splits a CSN geographic reference such as
// "45 km al N de Calama" into town, distance and direction. Unparseable input
// is kept as Raw with Town set to the whole string.
func ParseReference(ref string) Location {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Location{}
	}

	m := referenceRe.FindStringSubmatch(ref)
	if m == nil {
		return Location{Raw: ref, Town: ref}
	}
	distance, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return Location{Raw: ref, Town: ref}
	}
	return Location{
		Raw:        ref,
		Town:       strings.TrimSpace(m[3]),
		DistanceKm: &distance,
		Direction:  strings.ToUpper(m[2]),
	}
}

// generateID produces a stable ID from the fields the API reports verbatim.
// Records identical in every field still collide; CleanQuakes suffixes those.
func generateID(fields ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return "quake-" + hex.EncodeToString(hash[:8])
}

// EnrichQuake derives the severity label and the map column style, and stamps
// ProcessedAt.
func EnrichQuake(q Quake) Quake {
	q.Severity = ""
	q.Color = ColumnColor(q.Magnitude)
	q.Elevation = ColumnElevation(q.Magnitude)
	if q.Magnitude != nil {
		q.Severity = deriveSeverity(*q.Magnitude)
	}
	q.ProcessedAt = clock.Now()
	return q
}

// deriveSeverity maps magnitude to the descriptive class commonly used for local
// magnitude reports.
func deriveSeverity(magnitude float64) string {
	switch {
	case magnitude < 3:
		return "micro"
	case magnitude < 4:
		return "minor"
	case magnitude < 5:
		return "light"
	case magnitude < 6:
		return "moderate"
	case magnitude < 7:
		return "strong"
	case magnitude < 8:
		return "major"
	default:
		return "great"
	}
}

// ColumnColor returns the map column RGB: red fading to yellow as magnitude
// drops, [255, (1 - m/10) * 255, 0]. Missing magnitudes render grey.
func ColumnColor(magnitude *float64) [3]int {
	if magnitude == nil {
		return [3]int{160, 160, 160}
	}
	g := (1 - *magnitude/10) * 255
	g = math.Max(0, math.Min(255, g))
	return [3]int{255, int(math.Round(g)), 0}
}

// ColumnElevation returns the map column height, magnitude * 5000.
func ColumnElevation(magnitude *float64) float64 {
	if magnitude == nil || *magnitude < 0 {
		return 0
	}
	return *magnitude * 5000
}
