package commands

import (
	"hltvstats-backend/internal/export"
	"hltvstats-backend/internal/store"
	"hltvstats-backend/lib/util/serviceutil"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportOut    string
	exportFilter store.MatchFilter
)

func init() {
	flags := exportCmd.Flags()
	flags.StringVarP(&exportOut, "out", "o", "matches_single_row.csv", "Output file, - writes to stdout.")
	flags.StringVar(&exportFilter.DateAfter, "after", "", "Only matches played on or after this day.")
	flags.StringVar(&exportFilter.DateBefore, "before", "", "Only matches played on or before this day.")
	flags.StringVar(&exportFilter.EventContains, "event-contains", "", "Part of the event name.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [-o <file.csv>]",
	Short: "Writes one csv row per stored match.",
	Run: func(cmd *cobra.Command, args []string) {
		svc, closeStore := openService(cmd.Context())
		defer closeStore()

		matches, err := svc.ListMatches(cmd.Context(), exportFilter)
		if err != nil {
			serviceutil.Fatal("failed to list matches", err)
		}

		var out io.Writer = os.Stdout
		if exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				serviceutil.Fatal("failed to create output", err)
			}
			defer f.Close()
			out = f
		}

		err = export.WriteMatchesCSV(out, matches)
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}
		slog.Info("exported matches", "count", len(matches), "out", exportOut)
	},
}
