package export

import (
	"encoding/csv"
	"fmt"
	"hltvstats-backend/internal/store"
	"io"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

const maxMaps = 5

var Header = []string{
	"team1", "team1_roster", "team2", "team2_roster",
	"bo", "match_score",
	"map1", "map1_score", "map2", "map2_score",
	"map3", "map3_score", "map4", "map4_score",
	"map5", "map5_score", "winner", "hltv_id",
}

type side int

const (
	sideTeam1 side = iota
	sideTeam2
)

// attribute decides which of the two listing names a name from the detail
// page refers to. Detail pages sometimes use a different spelling than the
// listing, so an inexact name goes to the more similar side.
func attribute(name, team1, team2 string) side {
	name = strings.ToLower(strings.TrimSpace(name))
	team1 = strings.ToLower(team1)
	team2 = strings.ToLower(team2)

	switch name {
	case team1:
		return sideTeam1
	case team2:
		return sideTeam2
	}
	if matchr.JaroWinkler(name, team1, false) > matchr.JaroWinkler(name, team2, false) {
		return sideTeam1
	}
	return sideTeam2
}

// Row flattens a match into a single csv record, team1 is always the winner
// of the match.
func Row(m store.Match) []string {
	team1 := m.TeamWon
	team2 := m.TeamLost

	var roster1, roster2 []string
	for _, p := range m.Players {
		if attribute(p.Team, team1, team2) == sideTeam1 {
			roster1 = append(roster1, p.Nickname)
			continue
		}
		roster2 = append(roster2, p.Nickname)
	}

	wins1, wins2 := 0, 0
	mapFields := make([]string, 0, maxMaps*2)
	for i := 0; i < maxMaps; i++ {
		if i >= len(m.Maps) {
			mapFields = append(mapFields, "", "")
			continue
		}
		mm := m.Maps[i]
		var score string
		if attribute(mm.Winner, team1, team2) == sideTeam1 {
			wins1++
			score = fmt.Sprintf("%d-%d", mm.ScoreTeam1, mm.ScoreTeam2)
		} else {
			wins2++
			score = fmt.Sprintf("%d-%d", mm.ScoreTeam2, mm.ScoreTeam1)
		}
		mapFields = append(mapFields, mm.Name, score)
	}

	hltvId := ""
	if m.HltvID != nil {
		hltvId = strconv.FormatInt(*m.HltvID, 10)
	}

	row := []string{
		team1,
		strings.Join(roster1, ", "),
		team2,
		strings.Join(roster2, ", "),
		strconv.Itoa(m.Format),
		fmt.Sprintf("%d-%d", wins1, wins2),
	}
	row = append(row, mapFields...)
	row = append(row, team1, hltvId)
	return row
}

// WriteMatchesCSV writes the header followed by one row per match.
func WriteMatchesCSV(w io.Writer, matches []store.Match) error {
	writer := csv.NewWriter(w)
	err := writer.Write(Header)
	if err != nil {
		return err
	}
	for _, m := range matches {
		err = writer.Write(Row(m))
		if err != nil {
			return fmt.Errorf("match %d: %w", m.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
