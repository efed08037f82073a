package domain

import (
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// Chile's approximate bounding box, used for synthetic coordinates.
const (
	ChileLatMin = -55.0
	ChileLatMax = -17.5
	ChileLonMin = -75.0
	ChileLonMax = -66.0
)

// RecentWindowDays is how far back synthetic timestamps may fall.
const RecentWindowDays = 30

// Imputer generates replacement values for missing coordinates and dates.
// It is not safe for concurrent use.
type Imputer struct {
	rng   *rand.Rand
	clock clockwork.Clock
}

// NewImputer creates an Imputer. A zero seed derives one from the clock.
func NewImputer(seed int64, c clockwork.Clock) *Imputer {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if seed == 0 {
		seed = c.Now().UnixNano()
	}
	return &Imputer{
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec // synthetic placeholders, not security sensitive
		clock: c,
	}
}

// Coordinates returns a uniform random point inside Chile's bounding box.
func (i *Imputer) Coordinates() Geo {
	return Geo{
		Lat: ChileLatMin + i.rng.Float64()*(ChileLatMax-ChileLatMin),
		Lon: ChileLonMin + i.rng.Float64()*(ChileLonMax-ChileLonMin),
	}
}

// RecentTime returns now minus 30 days plus a random whole number of days in
// [0, 30).
func (i *Imputer) RecentTime() time.Time {
	start := i.clock.Now().UTC().AddDate(0, 0, -RecentWindowDays)
	return start.AddDate(0, 0, i.rng.Intn(RecentWindowDays))
}

// bearings maps Spanish compass points to degrees clockwise from north.
var bearings = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSO": 202.5, "SO": 225, "OSO": 247.5,
	"O": 270, "ONO": 292.5, "NO": 315, "NNO": 337.5,
}

const earthRadiusKm = 6371.0

// Offset projects origin by distanceKm along a compass direction. It returns
// false for unknown directions.
func Offset(origin Geo, distanceKm float64, direction string) (Geo, bool) {
	deg, ok := bearings[direction]
	if !ok {
		return Geo{}, false
	}
	if distanceKm == 0 {
		return origin, true
	}

	brng := deg * math.Pi / 180
	lat1 := origin.Lat * math.Pi / 180
	lon1 := origin.Lon * math.Pi / 180
	d := distanceKm / earthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	return Geo{Lat: lat2 * 180 / math.Pi, Lon: lon2 * 180 / math.Pi}, true
}
