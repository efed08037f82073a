// Package analysis holds the in-memory event table behind the dashboard:
// threshold filtering, summary statistics and chart series.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/sismos-dashboard/internal/domain"
)

// Threshold bounds and default for the magnitude slider.
const (
	MinThreshold     = 0.0
	MaxThreshold     = 10.0
	DefaultThreshold = 4.0
)

const (
	colRow       = "row"
	colID        = "id"
	colMagnitude = "magnitude"
	colDepth     = "depth_km"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colPlace     = "place"
	colTime      = "time"
	colSeverity  = "severity"
)

// numericColumns are summarized by Describe, in display order.
var numericColumns = []string{colMagnitude, colDepth, colLatitude, colLongitude}

// ErrThresholdRange is returned for magnitude thresholds outside [0, 10].
var ErrThresholdRange = errors.New("min magnitude must be between 0 and 10")

// ValidateThreshold checks a user supplied magnitude threshold.
func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || v < MinThreshold || v > MaxThreshold {
		return fmt.Errorf("%w: got %v", ErrThresholdRange, v)
	}
	return nil
}

// Table is an immutable tabular view over cleaned quakes. Missing magnitudes
// and depths are stored as NaN so they drop out of comparisons and statistics.
type Table struct {
	df     dataframe.DataFrame
	quakes []domain.Quake
}

// NewTable builds a table from cleaned quakes. The slice is retained.
func NewTable(quakes []domain.Quake) (*Table, error) {
	n := len(quakes)
	rows := make([]int, n)
	ids := make([]string, n)
	mags := make([]float64, n)
	depths := make([]float64, n)
	lats := make([]float64, n)
	lons := make([]float64, n)
	places := make([]string, n)
	times := make([]string, n)
	severities := make([]string, n)

	for i, q := range quakes {
		rows[i] = i
		ids[i] = q.ID
		mags[i] = floatOrNaN(q.Magnitude)
		depths[i] = floatOrNaN(q.DepthKm)
		lats[i] = q.Geo.Lat
		lons[i] = q.Geo.Lon
		places[i] = q.Location.Raw
		times[i] = FormatTime(q)
		severities[i] = q.Severity
	}

	df := dataframe.New(
		series.New(rows, series.Int, colRow),
		series.New(ids, series.String, colID),
		series.New(mags, series.Float, colMagnitude),
		series.New(depths, series.Float, colDepth),
		series.New(lats, series.Float, colLatitude),
		series.New(lons, series.Float, colLongitude),
		series.New(places, series.String, colPlace),
		series.New(times, series.String, colTime),
		series.New(severities, series.String, colSeverity),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("build table: %w", df.Err)
	}
	return &Table{df: df, quakes: quakes}, nil
}

// FormatTime renders a quake timestamp in Chile local time, the way the
// dashboard tooltips and the timeline show it.
func FormatTime(q domain.Quake) string {
	if q.Time.IsZero() {
		return ""
	}
	return q.Time.In(domain.Santiago()).Format(domain.TimeLayout)
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.df.Nrow()
}

// Quakes returns the source quakes for the rows of this table, in row order.
func (t *Table) Quakes() []domain.Quake {
	if t.df.Nrow() == 0 {
		return nil
	}
	idx, err := t.df.Col(colRow).Int()
	if err != nil {
		return nil
	}
	out := make([]domain.Quake, len(idx))
	for i, j := range idx {
		out[i] = t.quakes[j]
	}
	return out
}

// Head returns the first n quakes.
func (t *Table) Head(n int) []domain.Quake {
	all := t.Quakes()
	if n < 0 || n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// FilterMinMagnitude keeps rows with magnitude >= minMagnitude. Rows without a
// magnitude never pass.
func (t *Table) FilterMinMagnitude(minMagnitude float64) (*Table, error) {
	if err := ValidateThreshold(minMagnitude); err != nil {
		return nil, err
	}
	if t.df.Nrow() == 0 {
		return t, nil
	}

	filtered := t.df.Filter(dataframe.F{
		Colname:    colMagnitude,
		Comparator: series.GreaterEq,
		Comparando: minMagnitude,
	})
	if filtered.Err != nil {
		return nil, fmt.Errorf("filter magnitude: %w", filtered.Err)
	}
	return &Table{df: filtered, quakes: t.quakes}, nil
}
