//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sismos-dashboard/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ForwardGeocode(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ForwardGeocode(context.Background(), "Calama")
	require.NoError(t, err)

	assert.InDelta(t, -22.45, result.Lat, 0.2, "lat should be near Calama")
	assert.InDelta(t, -68.93, result.Lon, 0.2, "lon should be near Calama")
	assert.Contains(t, result.FormattedAddress, "Calama")
}

func TestSmoke_ReverseGeocode(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ReverseGeocode(context.Background(), -33.46, -70.65)
	require.NoError(t, err)

	assert.NotEmpty(t, result.FormattedAddress)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	cached := NewCachedGeocoder(smokeClient(t), 10, observability.NewMetricsForTesting())

	r1, err := cached.ForwardGeocode(context.Background(), "Ovalle")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "Ovalle")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
