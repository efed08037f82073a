package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sismos-dashboard/internal/domain"
)

const apiResponse = `[
  {"Fecha":"2024-03-09 10:15:00","Profundidad":"35 km","Magnitud":"4.6 Ml","RefGeografica":"45 km al N de Calama","FechaUpdate":"2024-03-09 10:40:00","lat":"-22.05","lon":"-68.93"},
  {"Fecha":"2024-03-09 11:00:00","Profundidad":"10 km","Magnitud":"3.1 Ml","RefGeografica":"12 km al SO de Ovalle","FechaUpdate":"2024-03-09 11:20:00"},
  {"Fecha":"2024-03-09 12:30:00","Profundidad":"62 km","Magnitud":"5.2 Mw","RefGeografica":"80 km al O de Valparaíso","FechaUpdate":"2024-03-09 12:50:00"},
  {"Fecha":null,"Profundidad":"8 km","Magnitud":"sin dato","RefGeografica":"20 km al E de Arica","FechaUpdate":null}
]`

func apiServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(apiResponse))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--mapbox-token", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestFetch_PrintsSummary(t *testing.T) {
	srv := apiServer(t)

	out, err := execute(t, "fetch", "--api-url", srv.URL, "--head", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Fetched: 4 quakes")
	assert.Contains(t, out, "random locations inside Chile")
	assert.Contains(t, out, "45 km al N de Calama")
	assert.NotContains(t, out, "80 km al O de Valparaíso", "--head 2 lists two quakes")
	assert.Contains(t, out, "magnitude")
	assert.Contains(t, out, "Magnitude >= 4.0: 2 quakes")
}

func TestFetch_JSON(t *testing.T) {
	srv := apiServer(t)

	out, err := execute(t, "fetch", "--api-url", srv.URL, "--min-magnitude", "5", "--json")
	require.NoError(t, err)

	var charts struct {
		Count   int `json:"count"`
		Columns []struct {
			Place string `json:"place"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &charts))
	assert.Equal(t, 1, charts.Count)
	require.Len(t, charts.Columns, 1)
	assert.Equal(t, "80 km al O de Valparaíso", charts.Columns[0].Place)
}

func TestFetch_RejectsThreshold(t *testing.T) {
	_, err := execute(t, "fetch", "--api-url", "http://127.0.0.1:1", "--min-magnitude", "11")
	require.Error(t, err)
}

func TestFetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := execute(t, "fetch", "--api-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSnapshot_Reproducible(t *testing.T) {
	srv := apiServer(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")

	_, err := execute(t, "snapshot", "--api-url", srv.URL, "--seed", "42", "--at", "2024-03-10T12:00:00Z", "--out", first)
	require.NoError(t, err)
	_, err = execute(t, "snapshot", "--api-url", srv.URL, "--seed", "42", "--at", "2024-03-10T12:00:00Z", "--out", second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	file, err := loadSnapshot(first)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), file.FetchedAt)
	assert.Equal(t, int64(42), file.Seed)
	require.Len(t, file.Quakes, 4)
	assert.Equal(t, domain.CleanReport{Total: 4, SyntheticCoords: 3, SyntheticTimes: 1, MissingMagnitudes: 1}, file.Report)
}

func TestSnapshot_ThenValidate(t *testing.T) {
	srv := apiServer(t)
	path := filepath.Join(t.TempDir(), "snapshot.json")

	_, err := execute(t, "snapshot", "--api-url", srv.URL, "--at", "2024-03-10T12:00:00Z", "-o", path)
	require.NoError(t, err)

	out, err := execute(t, "validate", "--in", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "All validations passed.")
}

func TestSnapshot_RepeatedRecordsValidate(t *testing.T) {
	const record = `{"Magnitud":"3.1 Ml","RefGeografica":"20 km al O de Ovalle"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[" + record + "," + record + "]"))
	}))
	t.Cleanup(srv.Close)
	path := filepath.Join(t.TempDir(), "snapshot.json")

	_, err := execute(t, "snapshot", "--api-url", srv.URL, "--at", "2024-03-10T12:00:00Z", "-o", path)
	require.NoError(t, err)

	out, err := execute(t, "validate", "--in", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "All validations passed.")
}

func TestValidate_ReportsFailures(t *testing.T) {
	m := 12.0
	file := snapshotFile{
		FetchedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Report:    domain.CleanReport{Total: 2},
		Quakes: []domain.Quake{
			{ID: "quake-dup", Magnitude: &m, Geo: domain.Geo{Lat: 10, Lon: -70}, CoordSource: domain.SourceSynthetic, Time: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), TimeSource: domain.SourceSynthetic},
			{ID: "quake-dup", CoordSource: "guessed"},
		},
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, writeSnapshot(f, file))
	require.NoError(t, f.Close())

	out, err := execute(t, "validate", "--in", path)
	require.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "Validation FAILED.")
	assert.Contains(t, out, "synthetic coordinates outside Chile")
	assert.Contains(t, out, "outside the last 30 days")
	assert.Contains(t, out, "magnitude 12.0 outside [0, 10]")
	assert.Contains(t, out, "duplicate id")
	assert.Contains(t, out, `unknown coord_source "guessed"`)
	assert.Contains(t, out, "missing time")
}

func TestValidate_RequiresInput(t *testing.T) {
	_, err := execute(t, "validate")
	require.Error(t, err)
}
