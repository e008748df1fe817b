package commands

import (
	"fmt"
	"hltvstats-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var playersMonths int

func init() {
	playersCmd.Flags().IntVar(&playersMonths, "months", 1, "Size of the window in 30 day months, 0 covers everything.")
	rootCmd.AddCommand(playersCmd)
}

var playersCmd = &cobra.Command{
	Use:   "players [--months <n>]",
	Short: "Shows per player averages over the recent matches.",
	Run: func(cmd *cobra.Command, args []string) {
		svc, closeStore := openService(cmd.Context())
		defer closeStore()

		averages, err := svc.PlayerAverages(cmd.Context(), playersMonths)
		if err != nil {
			serviceutil.Fatal("failed to compute player averages", err)
		}
		if len(averages) == 0 {
			fmt.Println("No player stats in this window")
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Player", "Team", "Matches", "Rating", "Kills", "Deaths", "ADR", "KAST"})
		for _, avg := range averages {
			t.AppendRow(table.Row{
				avg.Nickname, avg.Team, avg.Matches,
				avg.Rating, avg.Kills, avg.Deaths, avg.ADR, avg.KAST,
			})
		}
		t.Render()
	},
}
