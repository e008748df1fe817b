package service

import (
	"context"
	"errors"
	"hltvstats-backend/internal/components/chrono"
	"hltvstats-backend/internal/pipeline"
	"hltvstats-backend/internal/store"
	"hltvstats-backend/lib/configutil"
	"hltvstats-backend/lib/testutil"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type pagesBrowser struct {
	pages  map[string]string
	closed bool
}

func (b *pagesBrowser) Fetch(ctx context.Context, link string) (string, error) {
	page, ok := b.pages[link]
	if !ok {
		return "", errors.New("not found")
	}
	return page, nil
}

func (b *pagesBrowser) Close() error {
	b.closed = true
	return nil
}

func readFixture(t testing.TB, name string) string {
	t.Helper()
	buff, err := os.ReadFile("../scrapers/hltv/testdata/" + name)
	require.NoError(t, err)
	return string(buff)
}

func testSettings(t testing.TB) *configutil.Settings {
	settings := configutil.Defaults()
	err := settings.Update(map[string]any{
		"scraping": map[string]any{
			"base_url":               "https://hltv.test",
			"max_matches":            100.0,
			"delay":                  0.0,
			"delay_between_attempts": []any{0.0, 0.0},
		},
	})
	require.NoError(t, err)
	return settings
}

func TestScrape(t *testing.T) {
	ctx := context.Background()
	tel := testutil.NewTelemetry(t)

	st, err := store.OpenStore(ctx, ":memory:", tel)
	require.NoError(t, err)
	defer st.Close()

	browser := &pagesBrowser{pages: map[string]string{
		"https://hltv.test/results?offset=0":                                  readFixture(t, "results.html"),
		"https://hltv.test/matches/2367432/vitality-vs-faze-iem-cologne-2023": readFixture(t, "match.html"),
	}}
	clock := chrono.FixedImpl{At: time.Date(2023, 12, 1, 12, 0, 0, 0, time.UTC)}

	svc, err := NewService(
		testSettings(t), st, tel,
		WithClock(clock),
		WithBrowserFactory(func(ctx context.Context) (pipeline.Browser, error) {
			return browser, nil
		}),
	)
	require.NoError(t, err)

	stats, err := svc.Scrape(ctx)
	require.NoError(t, err)
	require.True(t, browser.closed)

	expected := pipeline.Stats{
		ListingPages:   1,
		MatchesSaved:   4,
		DetailsSaved:   1,
		DetailsSkipped: 2,
	}
	diff := cmp.Diff(expected, stats)
	if diff != "" {
		t.Fatal(diff)
	}

	matches, err := svc.ListMatches(ctx, store.MatchFilter{HltvID: 2367432})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Maps, 3)
	require.NotEmpty(t, matches[0].Players)

	averages, err := svc.PlayerAverages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, averages, len(matches[0].Players))
}

func TestScrapeSessionFailure(t *testing.T) {
	ctx := context.Background()
	tel := testutil.NewTelemetry(t)

	st, err := store.OpenStore(ctx, ":memory:", tel)
	require.NoError(t, err)
	defer st.Close()

	svc, err := NewService(
		testSettings(t), st, tel,
		WithBrowserFactory(func(ctx context.Context) (pipeline.Browser, error) {
			return nil, errors.New("proxy unreachable")
		}),
	)
	require.NoError(t, err)

	_, err = svc.Scrape(ctx)
	require.Error(t, err)
	require.Len(t, tel.Reports("broken", "scrape"), 1)
}

func TestNewServiceInvalidTimezone(t *testing.T) {
	ctx := context.Background()
	tel := testutil.NewTelemetry(t)
	st, err := store.OpenStore(ctx, ":memory:", tel)
	require.NoError(t, err)
	defer st.Close()

	settings := testSettings(t)
	settings.Set("scraping.timezone", "Mars/Olympus")
	_, err = NewService(settings, st, tel)
	require.Error(t, err)
}

func TestSince(t *testing.T) {
	now := time.Date(2023, 12, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "2023-11-01", Since(now, 1))
	require.Equal(t, "2023-06-04", Since(now, 6))
	require.Equal(t, "", Since(now, 0))
}
