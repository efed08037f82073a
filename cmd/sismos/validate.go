package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/sismos-dashboard/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var errValidationFailed = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	var inPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a snapshot file against the cleaning invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := loadSnapshot(inPath)
			if err != nil {
				return err
			}
			if !report(cmd.OutOrStdout(), file, validateSnapshot(file)) {
				return errValidationFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "snapshot file to validate")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func validateSnapshot(file snapshotFile) []*phase {
	return []*phase{
		validateCoordinates(file.Quakes),
		validateTimes(file),
		validateMagnitudes(file.Quakes),
		validateIDs(file.Quakes),
		validateReport(file),
	}
}

func report(w io.Writer, file snapshotFile, phases []*phase) bool {
	fmt.Fprintln(w, "=== Snapshot Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-36s %s\n", p.name, status)
	}

	fmt.Fprintf(w, "\nQuakes: %d (seed %d, fetched %s)\n", len(file.Quakes), file.Seed, file.FetchedAt.Format(domain.TimeLayout))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}

func validateCoordinates(quakes []domain.Quake) *phase {
	p := &phase{name: "Coordinates present and in range"}
	for _, q := range quakes {
		switch q.CoordSource {
		case domain.SourceAPI, domain.SourceGeocoded:
			if q.Geo.Lat < -90 || q.Geo.Lat > 90 || q.Geo.Lon < -180 || q.Geo.Lon > 180 {
				p.errorf("%s: coordinates out of range (%.4f, %.4f)", q.ID, q.Geo.Lat, q.Geo.Lon)
			}
		case domain.SourceSynthetic:
			if q.Geo.Lat < domain.ChileLatMin || q.Geo.Lat > domain.ChileLatMax ||
				q.Geo.Lon < domain.ChileLonMin || q.Geo.Lon > domain.ChileLonMax {
				p.errorf("%s: synthetic coordinates outside Chile (%.4f, %.4f)", q.ID, q.Geo.Lat, q.Geo.Lon)
			}
		default:
			p.errorf("%s: unknown coord_source %q", q.ID, q.CoordSource)
		}
	}
	return p
}

func validateTimes(file snapshotFile) *phase {
	p := &phase{name: "Timestamps present"}
	earliest := file.FetchedAt.AddDate(0, 0, -domain.RecentWindowDays)
	for _, q := range file.Quakes {
		if q.Time.IsZero() {
			p.errorf("%s: missing time", q.ID)
			continue
		}
		switch q.TimeSource {
		case domain.SourceAPI:
		case domain.SourceSynthetic:
			if q.Time.Before(earliest) || q.Time.After(file.FetchedAt) {
				p.errorf("%s: synthetic time %s outside the last %d days", q.ID, q.Time.Format(domain.TimeLayout), domain.RecentWindowDays)
			}
		default:
			p.errorf("%s: unknown time_source %q", q.ID, q.TimeSource)
		}
	}
	return p
}

func validateMagnitudes(quakes []domain.Quake) *phase {
	p := &phase{name: "Magnitude and derived fields"}
	for _, q := range quakes {
		want := domain.EnrichQuake(q)
		if q.Magnitude != nil && (*q.Magnitude < 0 || *q.Magnitude > 10) {
			p.errorf("%s: magnitude %.1f outside [0, 10]", q.ID, *q.Magnitude)
		}
		if q.Severity != want.Severity {
			p.errorf("%s: severity %q, want %q", q.ID, q.Severity, want.Severity)
		}
		if q.Color != want.Color {
			p.errorf("%s: color %v, want %v", q.ID, q.Color, want.Color)
		}
		if q.Elevation != want.Elevation {
			p.errorf("%s: elevation %.0f, want %.0f", q.ID, q.Elevation, want.Elevation)
		}
	}
	return p
}

func validateIDs(quakes []domain.Quake) *phase {
	p := &phase{name: "Unique IDs"}
	seen := make(map[string]bool, len(quakes))
	for i, q := range quakes {
		if q.ID == "" {
			p.errorf("row %d: empty id", i)
			continue
		}
		if seen[q.ID] {
			p.errorf("%s: duplicate id", q.ID)
		}
		seen[q.ID] = true
	}
	return p
}

func validateReport(file snapshotFile) *phase {
	p := &phase{name: "Report matches quakes"}
	var got domain.CleanReport
	got.Total = len(file.Quakes)
	for _, q := range file.Quakes {
		switch q.CoordSource {
		case domain.SourceGeocoded:
			got.GeocodedCoords++
		case domain.SourceSynthetic:
			got.SyntheticCoords++
		}
		if q.TimeSource == domain.SourceSynthetic {
			got.SyntheticTimes++
		}
		if q.Magnitude == nil {
			got.MissingMagnitudes++
		}
	}
	if got != file.Report {
		p.errorf("report %+v, quakes imply %+v", file.Report, got)
	}
	return p
}
