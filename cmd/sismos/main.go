// Command sismos fetches the latest Chilean seismic reports from the command
// line, writes reproducible JSON snapshots of the cleaned data, and validates
// snapshots against the cleaning invariants.
//
// Usage:
//
//	sismos fetch --min-magnitude 4.5 --head 10
//	sismos snapshot --seed 42 --at 2024-03-10T12:00:00Z --out testdata/snapshot.json
//	sismos validate --in testdata/snapshot.json
package main

import (
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/sismos-dashboard/internal/adapter/gael"
	"github.com/couchcryptid/sismos-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/sismos-dashboard/internal/domain"
	"github.com/couchcryptid/sismos-dashboard/internal/observability"
	"github.com/couchcryptid/sismos-dashboard/internal/pipeline"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	apiURL      string
	timeout     time.Duration
	logLevel    string
	mapboxToken string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "sismos <command>",
		Short:        "Fetch, snapshot and validate Chilean seismic reports",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", sharedcfg.EnvOrDefault("SISMOS_API_URL", gael.DefaultURL), "sismos API endpoint")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP timeout for API and geocoding requests")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", sharedcfg.EnvOrDefault("LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.mapboxToken, "mapbox-token", os.Getenv("MAPBOX_TOKEN"), "Mapbox token; enables geocoding of reports without coordinates")

	cobra.EnableCommandSorting = false
	cmd.AddCommand(newFetchCmd(opts))
	cmd.AddCommand(newSnapshotCmd(opts))
	cmd.AddCommand(newValidateCmd())

	return cmd
}

// newRefresher wires a one-shot refresher for CLI use. Metrics go to a private
// registry.
func (o *rootOptions) newRefresher(cmd *cobra.Command, seed int64, clock clockwork.Clock) *pipeline.Refresher {
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), o.logLevel, "text")
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	var geocoder domain.Geocoder
	if o.mapboxToken != "" {
		client := mapbox.NewClient(o.mapboxToken, o.timeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, 1000, metrics)
	}

	fetcher := gael.NewClient(o.apiURL, o.timeout, metrics, logger)
	cleaner := pipeline.NewCleaner(domain.NewImputer(seed, clock), geocoder, logger)
	return pipeline.New(fetcher, cleaner, nil, 0, logger, metrics)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
