package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/sismos-dashboard/internal/analysis"
	"github.com/couchcryptid/sismos-dashboard/internal/domain"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		minMagnitude float64
		head         int
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and clean the latest reports and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := analysis.ValidateThreshold(minMagnitude); err != nil {
				return err
			}

			snap, err := opts.newRefresher(cmd, 0, nil).Refresh(cmd.Context())
			if err != nil {
				return err
			}

			charts, err := analysis.BuildCharts(snap.Table, minMagnitude)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(charts)
			}

			fmt.Fprintf(out, "Source:  %s\n", opts.apiURL)
			fmt.Fprintf(out, "Fetched: %d quakes at %s\n", len(snap.Quakes), snap.FetchedAt.In(domain.Santiago()).Format(domain.TimeLayout))
			for _, w := range snap.Report.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", w)
			}

			fmt.Fprintln(out, "\nLatest quakes:")
			printQuakes(out, snap.Table.Head(head))

			fmt.Fprintln(out, "\nStatistics:")
			printStats(out, snap.Table.Describe())

			fmt.Fprintf(out, "\nMagnitude >= %.1f: %d quakes\n", minMagnitude, charts.Count)
			printFrequency(out, charts.Frequency)
			return nil
		},
	}

	cmd.Flags().Float64Var(&minMagnitude, "min-magnitude", analysis.DefaultThreshold, "minimum magnitude for the filtered summary (0-10)")
	cmd.Flags().IntVar(&head, "head", 5, "number of quakes to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the chart series as JSON")

	return cmd
}

func printQuakes(w io.Writer, quakes []domain.Quake) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"TIME", "MAGNITUDE", "DEPTH_KM", "REFERENCE", "LAT", "LON", "COORDS"}, "\t"))
	for _, q := range quakes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			analysis.FormatTime(q),
			strings.TrimSpace(optFloat(q.Magnitude)+" "+q.Scale),
			optFloat(q.DepthKm),
			q.Location.Raw,
			q.Geo.Lat, q.Geo.Lon,
			q.CoordSource,
		)
	}
	_ = tw.Flush()
}

func printStats(w io.Writer, stats []analysis.ColumnStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "COLUMN\tCOUNT\tMEAN\tSTD\tMIN\t25%\t50%\t75%\tMAX\t")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Column, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max)
	}
	_ = tw.Flush()
}

func printFrequency(w io.Writer, bins []analysis.FrequencyBin) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MAGNITUDE\tCOUNT")
	for _, b := range bins {
		fmt.Fprintf(tw, "%.1f\t%d\n", b.Magnitude, b.Count)
	}
	_ = tw.Flush()
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
