package commands

import (
	"fmt"
	"hltvstats-backend/internal/store"
	"hltvstats-backend/lib/util/serviceutil"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var matchFilter store.MatchFilter

func init() {
	flags := matchesCmd.Flags()
	flags.StringVar(&matchFilter.Date, "date", "", "Only matches played on this day (2006-01-02).")
	flags.StringVar(&matchFilter.DateAfter, "after", "", "Only matches played on or after this day.")
	flags.StringVar(&matchFilter.DateBefore, "before", "", "Only matches played on or before this day.")
	flags.StringVar(&matchFilter.TeamWon, "team-won", "", "Exact name of the winning team.")
	flags.StringVar(&matchFilter.TeamWonContains, "team-won-contains", "", "Part of the winning team's name.")
	flags.StringVar(&matchFilter.TeamLost, "team-lost", "", "Exact name of the losing team.")
	flags.StringVar(&matchFilter.TeamLostContains, "team-lost-contains", "", "Part of the losing team's name.")
	flags.StringVar(&matchFilter.Event, "event", "", "Exact event name.")
	flags.StringVar(&matchFilter.EventContains, "event-contains", "", "Part of the event name.")
	flags.Int64Var(&matchFilter.HltvID, "id", 0, "HLTV match id.")
	flags.IntVar(&matchFilter.Limit, "limit", 50, "Page size, 0 lists everything.")
	flags.IntVar(&matchFilter.Offset, "offset", 0, "Rows skipped before the page.")
	rootCmd.AddCommand(matchesCmd)
}

var matchesCmd = &cobra.Command{
	Use:   "matches [filters]",
	Short: "Lists stored matches, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		svc, closeStore := openService(cmd.Context())
		defer closeStore()

		matches, err := svc.ListMatches(cmd.Context(), matchFilter)
		if err != nil {
			serviceutil.Fatal("failed to list matches", err)
		}
		if len(matches) == 0 {
			fmt.Println("No matches found with these filters")
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"HLTV id", "Date", "Winner", "Score", "Loser", "Bo", "Event", "Maps"})
		for _, m := range matches {
			maps := make([]string, len(m.Maps))
			for i, mm := range m.Maps {
				maps[i] = fmt.Sprintf("%s %d-%d", mm.Name, mm.ScoreTeam1, mm.ScoreTeam2)
			}
			t.AppendRow(table.Row{
				deref(m.HltvID),
				deref(m.Date),
				m.TeamWon,
				fmt.Sprintf("%d-%d", m.ScoreWon, m.ScoreLost),
				m.TeamLost,
				m.Format,
				deref(m.Event),
				strings.Join(maps, ", "),
			})
		}
		t.Render()
	},
}
