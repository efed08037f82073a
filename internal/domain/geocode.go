package domain

import (
	"context"
	"log/slog"
)

// LocateQuake fills coordinates or place details through the geocoder.
// A quake without coordinates is located from its reference town, projected by
// the reported distance and direction. A quake with coordinates but no
// reference gets a place name by reverse lookup. Failures leave the quake
// unchanged so the caller can fall back to synthetic values.
func LocateQuake(ctx context.Context, q Quake, geocoder Geocoder, logger *slog.Logger) Quake {
	if geocoder == nil {
		return q
	}

	switch {
	case q.CoordSource == "" && q.Location.Town != "":
		result, err := geocoder.ForwardGeocode(ctx, q.Location.Town)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"quake_id", q.ID,
				"town", q.Location.Town,
				"error", err,
			)
			return q
		}
		if result.Lat == 0 && result.Lon == 0 {
			return q
		}

		geo := Geo{Lat: result.Lat, Lon: result.Lon}
		if q.Location.DistanceKm != nil {
			if projected, ok := Offset(geo, *q.Location.DistanceKm, q.Location.Direction); ok {
				geo = projected
			}
		}
		q.Geo = geo
		q.CoordSource = SourceGeocoded
		q.FormattedAddress = result.FormattedAddress
		q.GeoConfidence = result.Confidence

	case q.CoordSource == SourceAPI && q.Location.Raw == "":
		result, err := geocoder.ReverseGeocode(ctx, q.Geo.Lat, q.Geo.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"quake_id", q.ID,
				"lat", q.Geo.Lat,
				"lon", q.Geo.Lon,
				"error", err,
			)
			return q
		}
		if result.FormattedAddress == "" {
			return q
		}
		q.Location.Raw = result.FormattedAddress
		q.Location.Town = result.PlaceName
		q.FormattedAddress = result.FormattedAddress
		q.GeoConfidence = result.Confidence
	}
	return q
}
