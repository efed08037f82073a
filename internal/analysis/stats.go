package analysis

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/series"
)

// Number is a float that encodes NaN and infinities as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// String formats the number for text output; NaN prints as NaN.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', 3, 64)
}

// ColumnStats summarizes one numeric column: count, mean, spread and quartiles.
type ColumnStats struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Number `json:"mean"`
	Std    Number `json:"std"`
	Min    Number `json:"min"`
	P25    Number `json:"p25"`
	P50    Number `json:"p50"`
	P75    Number `json:"p75"`
	Max    Number `json:"max"`
}

// Describe summarizes the numeric columns. Missing values are excluded from
// every statistic; a column with no values reports count 0 and NaN elsewhere.
func (t *Table) Describe() []ColumnStats {
	out := make([]ColumnStats, 0, len(numericColumns))
	for _, name := range numericColumns {
		var values []float64
		if t.df.Nrow() > 0 {
			values = finite(t.df.Col(name).Float())
		}
		out = append(out, describeValues(name, values))
	}
	return out
}

func describeValues(name string, values []float64) ColumnStats {
	st := ColumnStats{Column: name, Count: len(values)}
	if len(values) == 0 {
		nan := Number(math.NaN())
		st.Mean, st.Std, st.Min, st.P25, st.P50, st.P75, st.Max = nan, nan, nan, nan, nan, nan, nan
		return st
	}

	s := series.Floats(values)
	st.Mean = Number(s.Mean())
	st.Min = Number(s.Min())
	st.Max = Number(s.Max())
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	st.P25 = Number(quantile(sorted, 0.25))
	st.P50 = Number(quantile(sorted, 0.5))
	st.P75 = Number(quantile(sorted, 0.75))
	if len(values) > 1 {
		st.Std = Number(s.StdDev())
	} else {
		st.Std = Number(math.NaN())
	}
	return st
}

// quantile interpolates linearly between the two closest ranks of sorted.
// series.Quantile uses the empirical CDF, which never interpolates.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
