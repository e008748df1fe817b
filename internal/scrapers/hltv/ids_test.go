package hltv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIds(t *testing.T) {
	id, ok := MatchID("/matches/2367432/vitality-vs-faze")
	require.True(t, ok)
	require.Equal(t, int64(2367432), id)

	_, ok = MatchID("/events/1234/iem")
	require.False(t, ok)

	id, ok = CanonicalMatchID("https://www.hltv.org/matches/2367432/vitality-vs-faze")
	require.True(t, ok)
	require.Equal(t, int64(2367432), id)

	id, ok = CanonicalMatchID("https://www.hltv.org/matches/2367432")
	require.True(t, ok)
	require.Equal(t, int64(2367432), id)

	id, ok = CanonicalMatchID("https://www.hltv.org/matches/2367432?lang=en")
	require.True(t, ok)
	require.Equal(t, int64(2367432), id)

	_, ok = CanonicalMatchID("https://www.hltv.org/matches/")
	require.False(t, ok)

	_, ok = CanonicalMatchID("https://www.hltv.org/matches/2367432abc")
	require.False(t, ok)

	id, ok = PlayerID("/player/11893/zywoo")
	require.True(t, ok)
	require.Equal(t, int64(11893), id)
}

func TestBestOf(t *testing.T) {
	testCases := []struct {
		label    string
		expected *int
	}{
		{label: "bo3", expected: ptr(3)},
		{label: "BO5", expected: ptr(5)},
		{label: "nuke", expected: ptr(1)},
		{label: "bo7", expected: ptr(1)},
		{label: "", expected: nil},
		{label: "   ", expected: nil},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, BestOf(test.label), test.label)
	}
}

func TestSplitTimestamp(t *testing.T) {
	date, clock := splitTimestamp("1700000000000", time.UTC)
	require.Equal(t, "2023-11-14", *date)
	require.Equal(t, "22:13:20", *clock)

	date, clock = splitTimestamp("", time.UTC)
	require.Nil(t, date)
	require.Nil(t, clock)
}
