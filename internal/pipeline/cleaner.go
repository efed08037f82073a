package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/sismos-dashboard/internal/domain"
)

// QuakeCleaner implements Cleaner using the domain cleaning functions with
// optional geocoding.
type QuakeCleaner struct {
	imputer  *domain.Imputer
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewCleaner creates a QuakeCleaner. Pass a nil geocoder to skip geocoding and
// fall back straight to synthetic coordinates.
func NewCleaner(imputer *domain.Imputer, geocoder domain.Geocoder, logger *slog.Logger) *QuakeCleaner {
	return &QuakeCleaner{
		imputer:  imputer,
		geocoder: geocoder,
		logger:   logger,
	}
}

func (c *QuakeCleaner) Clean(ctx context.Context, raws []domain.RawQuake) ([]domain.Quake, domain.CleanReport) {
	return domain.CleanQuakes(ctx, raws, c.imputer, c.geocoder, c.logger)
}
