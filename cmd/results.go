package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ratings-cli/internal/store"
)

var resultsOut string

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show ledger results from previous runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ledger, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return eris.Wrap(err, "results: open ledger")
		}
		defer ledger.Close() //nolint:errcheck
		if err := ledger.Migrate(ctx); err != nil {
			return err
		}

		recs, err := ledger.Results(ctx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "Ledger is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tRATING\tREVIEWS\tSTATUS\tDURATION")
		for _, rec := range recs {
			r := rec.Result
			duration := "unknown"
			if rec.DurationKnown {
				duration = fmt.Sprintf("%.2fs", rec.Duration.Seconds())
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%s\t%s\n",
				r.HotelID, r.Name, r.Rating, r.ReviewCount, r.Status, duration)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "results: flush table")
		}

		if resultsOut != "" {
			if err := store.ExportCSV(resultsOut, recs); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(recs), resultsOut)
		}

		return nil
	},
}

func init() {
	resultsCmd.Flags().StringVar(&resultsOut, "out", "", "also export the results as CSV to this file")
	rootCmd.AddCommand(resultsCmd)
}
