package export

import (
	"bytes"
	"hltvstats-backend/internal/store"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestRow(t *testing.T) {
	match := store.Match{
		ID:        1,
		HltvID:    ptr[int64](2367500),
		TeamWon:   "G2",
		TeamLost:  "Natus Vincere",
		ScoreWon:  3,
		ScoreLost: 2,
		Format:    5,
		Maps: []store.MatchMap{
			{Ordinal: 1, Name: "Mirage", ScoreTeam1: 13, ScoreTeam2: 9, Winner: "G2"},
			{Ordinal: 2, Name: "Inferno", ScoreTeam1: 10, ScoreTeam2: 13, Winner: "Natus Vincere"},
			{Ordinal: 3, Name: "Nuke", ScoreTeam1: 13, ScoreTeam2: 11, Winner: "G2"},
			{Ordinal: 4, Name: "Ancient", ScoreTeam1: 8, ScoreTeam2: 13, Winner: "Natus Vincere"},
			{Ordinal: 5, Name: "Anubis", ScoreTeam1: 13, ScoreTeam2: 6, Winner: "g2"},
		},
		Players: []store.PlayerStat{
			{Nickname: "m0NESY", Team: "G2"},
			{Nickname: "s1mple", Team: "Natus Vincere"},
			{Nickname: "NiKo", Team: "G2 Esports"},
			{Nickname: "b1t", Team: "Natus Vincere."},
		},
	}

	expected := []string{
		"G2", "m0NESY, NiKo", "Natus Vincere", "s1mple, b1t",
		"5", "3-2",
		"Mirage", "13-9",
		"Inferno", "13-10",
		"Nuke", "13-11",
		"Ancient", "13-8",
		"Anubis", "13-6",
		"G2", "2367500",
	}
	diff := cmp.Diff(expected, Row(match))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestRowWithoutDetail(t *testing.T) {
	row := Row(store.Match{
		TeamWon:  "Spirit",
		TeamLost: "Cloud9",
		Format:   1,
	})
	require.Len(t, row, len(Header))

	expected := []string{
		"Spirit", "", "Cloud9", "",
		"1", "0-0",
		"", "", "", "", "", "", "", "", "", "",
		"Spirit", "",
	}
	diff := cmp.Diff(expected, row)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestWriteMatchesCSV(t *testing.T) {
	matches := []store.Match{
		{
			HltvID:   ptr[int64](2367432),
			TeamWon:  "Vitality",
			TeamLost: "FaZe",
			Format:   3,
			Maps: []store.MatchMap{
				{Ordinal: 1, Name: "Mirage", ScoreTeam1: 13, ScoreTeam2: 7, Winner: "Vitality"},
			},
			Players: []store.PlayerStat{
				{Nickname: "apEX", Team: "Vitality"},
				{Nickname: "ZywOo", Team: "Vitality"},
			},
		},
	}

	var buf bytes.Buffer
	err := WriteMatchesCSV(&buf, matches)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, strings.Join(Header, ","), lines[0])
	require.Equal(t, `Vitality,"apEX, ZywOo",FaZe,,3,1-0,Mirage,13-7,,,,,,,,,Vitality,2367432`, lines[1])
}

func TestAttribute(t *testing.T) {
	cases := []struct {
		name     string
		expected side
	}{
		{name: "Vitality", expected: sideTeam1},
		{name: " vitality ", expected: sideTeam1},
		{name: "Team Vitality", expected: sideTeam1},
		{name: "FaZe", expected: sideTeam2},
		{name: "FaZe Clan", expected: sideTeam2},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, attribute(c.name, "Vitality", "FaZe"), c.name)
	}
}
