package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// CleanQuakes parses and normalizes one API response. After cleaning every
// quake has a coordinate pair and a timestamp; magnitude stays nil when the
// source value was not numeric. Repeated records get a -2, -3... suffix so
// IDs stay unique within one response.
func CleanQuakes(ctx context.Context, raws []RawQuake, imputer *Imputer, geocoder Geocoder, logger *slog.Logger) ([]Quake, CleanReport) {
	report := CleanReport{Total: len(raws)}
	quakes := make([]Quake, 0, len(raws))
	seen := make(map[string]int, len(raws))

	for _, raw := range raws {
		q := ParseRawQuake(raw)
		seen[q.ID]++
		if n := seen[q.ID]; n > 1 {
			q.ID = fmt.Sprintf("%s-%d", q.ID, n)
		}
		q = LocateQuake(ctx, q, geocoder, logger)

		switch q.CoordSource {
		case SourceGeocoded:
			report.GeocodedCoords++
		case "":
			q.Geo = imputer.Coordinates()
			q.CoordSource = SourceSynthetic
			report.SyntheticCoords++
		}

		if q.TimeSource == "" {
			q.Time = imputer.RecentTime()
			q.TimeSource = SourceSynthetic
			report.SyntheticTimes++
		}
		if !q.HasMagnitude() {
			report.MissingMagnitudes++
		}

		quakes = append(quakes, EnrichQuake(q))
	}

	if report.SyntheticCoords > 0 || report.SyntheticTimes > 0 {
		logger.Info("imputed missing fields",
			"total", report.Total,
			"synthetic_coords", report.SyntheticCoords,
			"synthetic_times", report.SyntheticTimes,
		)
	}
	return quakes, report
}
