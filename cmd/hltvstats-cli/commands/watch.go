package commands

import (
	"hltvstats-backend/internal/components/chrono"
	"hltvstats-backend/internal/components/telemetry"
	oteltelemetry "hltvstats-backend/lib/telemetry"
	"hltvstats-backend/lib/util/serviceutil"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

var watchNow bool

func init() {
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "Run a scrape immediately instead of waiting for the first tick.")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--now]",
	Short: "Scrapes on the scraping.schedule cron until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc, closeStore := openService(ctx)
		defer closeStore()

		oteltelemetry.InstrumentPerfStats(ctx, time.Second*30)

		scrape := func() {
			stats, err := svc.Scrape(ctx)
			if err != nil {
				slog.Warn("scrape interrupted", "err", err)
				return
			}
			slog.Info("scheduled scrape done", "matches_saved", stats.MatchesSaved, "details_saved", stats.DetailsSaved)
		}

		schedule := settings.String("scraping.schedule", "0 */6 * * *")
		cron := chrono.NewStandardCron(svc.Clock(), telemetry.SlogAPI{})
		err := cron.Cron(schedule, scrape)
		if err != nil {
			serviceutil.Fatal("invalid scraping.schedule", err)
		}
		slog.Info("watching", "schedule", schedule, "zone", svc.Clock().Location().String())

		if watchNow {
			scrape()
		}

		<-ctx.Done()
		cron.Stop()
	},
}
