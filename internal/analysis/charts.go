package analysis

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/sismos-dashboard/internal/domain"
)

// MapColumn is one extruded column of the 3D map.
type MapColumn struct {
	ID        string     `json:"id"`
	Position  [2]float64 `json:"position"` // [lon, lat]
	Color     [3]int     `json:"color"`
	Elevation float64    `json:"elevation"`
	Magnitude *float64   `json:"magnitude"`
	Place     string     `json:"place"`
	Date      string     `json:"date"`
	Source    string     `json:"coord_source"`
}

// FrequencyBin counts quakes with one distinct magnitude.
type FrequencyBin struct {
	Magnitude float64 `json:"magnitude"`
	Count     int     `json:"count"`
}

// TimePoint is the mean magnitude of all quakes sharing one timestamp.
type TimePoint struct {
	Time          string  `json:"time"`
	MeanMagnitude float64 `json:"mean_magnitude"`
}

// ScatterPoint places a quake by coordinates, sized by magnitude * 10.
type ScatterPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Size      float64 `json:"size"`
}

// Charts bundles every chart series for one threshold.
type Charts struct {
	MinMagnitude float64        `json:"min_magnitude"`
	Count        int            `json:"count"`
	Columns      []MapColumn    `json:"columns"`
	Frequency    []FrequencyBin `json:"frequency"`
	Timeline     []TimePoint    `json:"timeline"`
	Scatter      []ScatterPoint `json:"scatter"`
}

// BuildCharts filters the table by threshold and derives all four series from
// the filtered rows.
func BuildCharts(t *Table, minMagnitude float64) (Charts, error) {
	filtered, err := t.FilterMinMagnitude(minMagnitude)
	if err != nil {
		return Charts{}, err
	}
	return Charts{
		MinMagnitude: minMagnitude,
		Count:        filtered.Len(),
		Columns:      filtered.MapColumns(),
		Frequency:    filtered.MagnitudeFrequency(),
		Timeline:     filtered.MagnitudeOverTime(),
		Scatter:      filtered.ScatterPoints(),
	}, nil
}

// MapColumns returns the 3D column layer data.
func (t *Table) MapColumns() []MapColumn {
	quakes := t.Quakes()
	out := make([]MapColumn, 0, len(quakes))
	for _, q := range quakes {
		if q.CoordSource == "" {
			continue
		}
		out = append(out, MapColumn{
			ID:        q.ID,
			Position:  [2]float64{q.Geo.Lon, q.Geo.Lat},
			Color:     domain.ColumnColor(q.Magnitude),
			Elevation: domain.ColumnElevation(q.Magnitude),
			Magnitude: q.Magnitude,
			Place:     q.Location.Raw,
			Date:      FormatTime(q),
			Source:    q.CoordSource,
		})
	}
	return out
}

// MagnitudeFrequency counts quakes per distinct magnitude, ascending. Values
// are compared at one decimal, the precision the API reports.
func (t *Table) MagnitudeFrequency() []FrequencyBin {
	if t.df.Nrow() == 0 {
		return []FrequencyBin{}
	}
	counts := make(map[float64]int)
	for _, v := range finite(t.df.Col(colMagnitude).Float()) {
		counts[math.Round(v*10)/10]++
	}

	out := make([]FrequencyBin, 0, len(counts))
	for m, c := range counts {
		out = append(out, FrequencyBin{Magnitude: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Magnitude < out[j].Magnitude })
	return out
}

// MagnitudeOverTime sorts rows by time and averages magnitudes that share a
// timestamp. Timestamps with no magnitude are omitted.
func (t *Table) MagnitudeOverTime() []TimePoint {
	if t.df.Nrow() == 0 {
		return []TimePoint{}
	}
	sorted := t.df.Arrange(dataframe.Sort(colTime))
	if sorted.Err != nil {
		return []TimePoint{}
	}
	times := sorted.Col(colTime).Records()
	mags := sorted.Col(colMagnitude).Float()

	out := make([]TimePoint, 0, len(times))
	for i := 0; i < len(times); {
		j := i
		var sum float64
		var n int
		for ; j < len(times) && times[j] == times[i]; j++ {
			if !math.IsNaN(mags[j]) {
				sum += mags[j]
				n++
			}
		}
		if n > 0 && times[i] != "" {
			out = append(out, TimePoint{Time: times[i], MeanMagnitude: sum / float64(n)})
		}
		i = j
	}
	return out
}

// ScatterPoints returns coordinates sized by magnitude. Quakes without a
// magnitude are skipped.
func (t *Table) ScatterPoints() []ScatterPoint {
	quakes := t.Quakes()
	out := make([]ScatterPoint, 0, len(quakes))
	for _, q := range quakes {
		if q.Magnitude == nil {
			continue
		}
		out = append(out, ScatterPoint{
			Longitude: q.Geo.Lon,
			Latitude:  q.Geo.Lat,
			Size:      *q.Magnitude * 10,
		})
	}
	return out
}
