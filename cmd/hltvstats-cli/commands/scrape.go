package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

var scrapeMaxMatches int

func init() {
	scrapeCmd.Flags().IntVar(&scrapeMaxMatches, "max-matches", 0, "Overrides scraping.max_matches.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--max-matches <n>]",
	Short: "Scrapes the result listing and every match page into the database.",
	Run: func(cmd *cobra.Command, args []string) {
		if scrapeMaxMatches > 0 {
			settings.Set("scraping.max_matches", float64(scrapeMaxMatches))
		}

		svc, closeStore := openService(cmd.Context())
		defer closeStore()

		t1 := time.Now()
		stats, err := svc.Scrape(cmd.Context())
		if err != nil {
			slog.Warn("scrape interrupted", "err", err)
		}
		slog.Info(
			"scrape done",
			"seconds", time.Since(t1).Seconds(),
			"listing_pages", stats.ListingPages,
			"listing_failures", stats.ListingFailures,
			"matches_saved", stats.MatchesSaved,
			"matches_skipped", stats.MatchesSkipped,
			"details_saved", stats.DetailsSaved,
			"details_skipped", stats.DetailsSkipped,
		)
	},
}
