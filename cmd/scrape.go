package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ratings-cli/internal/extract"
	"github.com/sells-group/ratings-cli/internal/input"
	"github.com/sells-group/ratings-cli/internal/pipeline"
	"github.com/sells-group/ratings-cli/internal/probe"
	"github.com/sells-group/ratings-cli/internal/query"
	"github.com/sells-group/ratings-cli/internal/render"
	"github.com/sells-group/ratings-cli/internal/store"
)

var (
	scrapeCSV         string
	scrapeLimit       int
	scrapeConcurrency int
	scrapeOffline     bool
	scrapeOfflineDir  string
	scrapeReport      string
	scrapeOut         string
	scrapeDebugDir    string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape ratings for the hotels in a CSV roster",
	Long: `Reads a hotel roster CSV and probes the maps source for each hotel's
star rating and review count. Hotels already present in the ledger are
skipped, so an interrupted run resumes where it left off.

Examples:
  # Live run, resuming against the configured ledger
  ratings-cli scrape --csv hotels.csv

  # Offline run against saved pages (no browser needed)
  ratings-cli scrape --csv hotels.csv --offline --offline-dir pages/

  # Bounded trial with exports
  ratings-cli scrape --csv hotels.csv --limit 5 --out ratings.csv --report ratings.txt`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hotels, err := input.Load(scrapeCSV)
		if err != nil {
			return eris.Wrap(err, "scrape: load roster")
		}
		if scrapeLimit > 0 && len(hotels) > scrapeLimit {
			hotels = hotels[:scrapeLimit]
		}
		zap.L().Info("loaded roster", zap.Int("hotels", len(hotels)))

		selectors, err := extract.DefaultSelectors()
		if err != nil {
			return err
		}

		var renderer render.Renderer
		if scrapeOffline {
			renderer = render.NewFileRenderer(scrapeOfflineDir)
		} else {
			browser := render.NewBrowser(cfg.Browser)
			defer browser.Close()
			renderer = browser
		}

		ledger, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return eris.Wrap(err, "scrape: open ledger")
		}
		defer ledger.Close() //nolint:errcheck
		if err := ledger.Migrate(ctx); err != nil {
			return err
		}

		runner := probe.NewRunner(
			renderer,
			extract.New(selectors),
			query.NewBuilder(cfg.Query),
			selectors,
			probe.Config{
				ReadyTimeout: cfg.Scrape.ReadyTimeout(),
				MaxReveal:    cfg.Scrape.MaxRevealClicks,
				DebugDir:     scrapeDebugDir,
			},
		)

		concurrency := cfg.Scrape.Concurrency
		if scrapeConcurrency > 0 {
			concurrency = scrapeConcurrency
		}

		orch := pipeline.NewOrchestrator(runner, ledger, pipeline.Config{
			Concurrency: concurrency,
			TaskTimeout: cfg.Scrape.TaskTimeout(),
			RunDeadline: cfg.Scrape.RunDeadline(),
		})

		results, summary, err := orch.Run(ctx, hotels)
		if err != nil {
			return err
		}

		reporter := pipeline.NewReporter()
		if err := reporter.WriteText(os.Stdout, results, summary); err != nil {
			return err
		}
		if scrapeReport != "" {
			f, err := os.OpenFile(scrapeReport, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return eris.Wrapf(err, "scrape: open report %s", scrapeReport)
			}
			defer f.Close()
			if err := reporter.WriteText(f, results, summary); err != nil {
				return err
			}
		}

		if scrapeOut != "" {
			recs, err := ledger.Results(ctx)
			if err != nil {
				return err
			}
			if err := store.ExportCSV(scrapeOut, recs); err != nil {
				return err
			}
			zap.L().Info("wrote csv export", zap.String("path", scrapeOut), zap.Int("rows", len(recs)))
		}

		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeCSV, "csv", "hotels.csv", "hotel roster CSV path")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "max hotels to process (0 = all)")
	scrapeCmd.Flags().IntVar(&scrapeConcurrency, "concurrency", 0, "override configured concurrency")
	scrapeCmd.Flags().BoolVar(&scrapeOffline, "offline", false, "run against saved pages instead of a browser")
	scrapeCmd.Flags().StringVar(&scrapeOfflineDir, "offline-dir", "pages", "directory of saved pages for --offline")
	scrapeCmd.Flags().StringVar(&scrapeReport, "report", "", "append a text report to this file")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "write the full ledger as CSV to this file")
	scrapeCmd.Flags().StringVar(&scrapeDebugDir, "debug-html", "", "dump HTML snapshots of empty pages to this directory")
	rootCmd.AddCommand(scrapeCmd)
}
