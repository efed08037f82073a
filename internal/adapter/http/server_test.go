package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/sismos-dashboard/internal/adapter/http"
	"github.com/couchcryptid/sismos-dashboard/internal/analysis"
	"github.com/couchcryptid/sismos-dashboard/internal/domain"
	"github.com/couchcryptid/sismos-dashboard/internal/pipeline"
)

type mockSource struct {
	snap *pipeline.Snapshot
}

func (m *mockSource) Snapshot() *pipeline.Snapshot { return m.snap }

func (m *mockSource) CheckReadiness(_ context.Context) error {
	if m.snap == nil {
		return errors.New("no quake data loaded yet")
	}
	return nil
}

func mag(v float64) *float64 { return &v }

func testSnapshot(t *testing.T) *pipeline.Snapshot {
	t.Helper()
	base := time.Date(2024, time.March, 9, 13, 0, 0, 0, time.UTC)
	quakes := []domain.Quake{
		{ID: "quake-a", Magnitude: mag(5.1), Scale: "Ml", Geo: domain.Geo{Lat: -22.05, Lon: -68.93}, Location: domain.Location{Raw: "45 km al N de Calama"}, Time: base, CoordSource: domain.SourceAPI, TimeSource: domain.SourceAPI},
		{ID: "quake-b", Magnitude: mag(3.4), Scale: "Ml", Geo: domain.Geo{Lat: -30.7, Lon: -71.3}, Location: domain.Location{Raw: "12 km al SO de Ovalle"}, Time: base.Add(time.Hour), CoordSource: domain.SourceSynthetic, TimeSource: domain.SourceAPI},
		{ID: "quake-c", Geo: domain.Geo{Lat: -33.0, Lon: -71.9}, Location: domain.Location{Raw: "30 km al O de Valparaíso"}, Time: base.Add(2 * time.Hour), CoordSource: domain.SourceSynthetic, TimeSource: domain.SourceSynthetic},
	}
	for i := range quakes {
		quakes[i] = domain.EnrichQuake(quakes[i])
	}
	table, err := analysis.NewTable(quakes)
	require.NoError(t, err)
	return &pipeline.Snapshot{
		Quakes:    quakes,
		Report:    domain.CleanReport{Total: 3, SyntheticCoords: 2, SyntheticTimes: 1, MissingMagnitudes: 1},
		Table:     table,
		FetchedAt: base.Add(3 * time.Hour),
	}
}

func newTestServer(snap *pipeline.Snapshot) *httpadapter.Server {
	return httpadapter.NewServer(httpadapter.Options{
		Addr:                ":0",
		SourceURL:           "https://api.gael.cloud/general/public/sismos",
		DefaultMinMagnitude: 4.0,
		Live: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}, &mockSource{snap: snap}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, get(newTestServer(nil), "/readyz").Code)
	assert.Equal(t, http.StatusOK, get(newTestServer(testSnapshot(t)), "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLiveRoute(t *testing.T) {
	assert.Equal(t, http.StatusTeapot, get(newTestServer(nil), "/ws").Code)
}

func TestDashboard_Loaded(t *testing.T) {
	rec := get(newTestServer(testSnapshot(t)), "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Aplicación Sismos")
	assert.Contains(t, body, "https://api.gael.cloud/general/public/sismos")
	assert.Contains(t, body, "Conexión exitosa con la API")
	assert.Contains(t, body, "45 km al N de Calama")
	assert.Contains(t, body, "random locations inside Chile")
	assert.Contains(t, body, `step="0.1"`)
	assert.Contains(t, body, `value="4"`)
	assert.Contains(t, body, "ColumnLayer")
	assert.NotContains(t, body, "Error al conectar con la API")
}

func TestDashboard_NotLoaded(t *testing.T) {
	rec := get(newTestServer(nil), "/")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error al conectar con la API")
	assert.NotContains(t, rec.Body.String(), "ColumnLayer")
	assert.Contains(t, rec.Body.String(), `fetch("/api/summary")`, "error page polls until data arrives")
	assert.Contains(t, rec.Body.String(), "location.reload()")
}

func TestDashboard_UnknownPath(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(newTestServer(nil), "/nope").Code)
}

type quakesBody struct {
	MinMagnitude float64 `json:"min_magnitude"`
	Count        int     `json:"count"`
	Quakes       []struct {
		ID string `json:"id"`
	} `json:"quakes"`
}

func TestQuakes_DefaultThreshold(t *testing.T) {
	rec := get(newTestServer(testSnapshot(t)), "/api/quakes")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[quakesBody](t, rec)
	assert.InDelta(t, 4.0, body.MinMagnitude, 0)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "quake-a", body.Quakes[0].ID)
}

func TestQuakes_ZeroThresholdSkipsMissingMagnitude(t *testing.T) {
	rec := get(newTestServer(testSnapshot(t)), "/api/quakes?min_magnitude=0")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[quakesBody](t, rec)
	assert.Equal(t, 2, body.Count)
}

func TestQuakes_InvalidThreshold(t *testing.T) {
	srv := newTestServer(testSnapshot(t))

	for _, q := range []string{"abc", "-1", "10.5", "NaN"} {
		rec := get(srv, "/api/quakes?min_magnitude="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"], q)
	}
}

func TestAPI_NotLoaded(t *testing.T) {
	srv := newTestServer(nil)
	for _, path := range []string{"/api/quakes", "/api/summary", "/api/charts"} {
		assert.Equal(t, http.StatusServiceUnavailable, get(srv, path).Code, path)
	}
}

func TestSummary(t *testing.T) {
	rec := get(newTestServer(testSnapshot(t)), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int      `json:"count"`
		Warnings []string `json:"warnings"`
		Stats    []struct {
			Column string   `json:"column"`
			Count  int      `json:"count"`
			Mean   *float64 `json:"mean"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Warnings, 3)
	require.NotEmpty(t, body.Stats)
	assert.Equal(t, "magnitude", body.Stats[0].Column)
	assert.Equal(t, 2, body.Stats[0].Count)
	require.NotNil(t, body.Stats[0].Mean)
	assert.InDelta(t, 4.25, *body.Stats[0].Mean, 1e-9)
}

func TestCharts(t *testing.T) {
	rec := get(newTestServer(testSnapshot(t)), "/api/charts?min_magnitude=3")
	require.Equal(t, http.StatusOK, rec.Code)

	charts := decode[analysis.Charts](t, rec)
	assert.InDelta(t, 3.0, charts.MinMagnitude, 0)
	assert.Equal(t, 2, charts.Count)
	assert.Len(t, charts.Columns, 2)
	assert.Len(t, charts.Frequency, 2)
	assert.Len(t, charts.Timeline, 2)
	assert.Len(t, charts.Scatter, 2)
}
