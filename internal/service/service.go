package service

import (
	"context"
	"fmt"
	"hltvstats-backend/internal/components/assert"
	"hltvstats-backend/internal/components/chrono"
	"hltvstats-backend/internal/components/telemetry"
	"hltvstats-backend/internal/pipeline"
	"hltvstats-backend/internal/scrapers/hltv"
	"hltvstats-backend/internal/store"
	"hltvstats-backend/lib/configutil"
	"time"
)

const (
	report_scrape         = "scrape"
	report_scrape_skipped = "scrape.skipped"
)

// ScrapingAPI is the "write" side, one call is one full listing + detail pass.
//
// note: there should not be any cron jobs running in here, schedules live in
// whatever uses Service
type ScrapingAPI interface {
	Scrape(ctx context.Context) (pipeline.Stats, error)
}

// QueryAPI is the "read" side over everything Scrape stored.
type QueryAPI interface {
	ListMatches(ctx context.Context, filter store.MatchFilter) ([]store.Match, error)
	// PlayerAverages aggregates the last `months` months, 30 days each.
	PlayerAverages(ctx context.Context, months int) ([]store.PlayerAverage, error)
}

// BrowserFactory opens a new browsing session for a single run.
//
// note: fault injection point
type BrowserFactory = func(ctx context.Context) (pipeline.Browser, error)

type Service struct {
	settings   *configutil.Settings
	store      *store.Store
	clock      chrono.API
	newBrowser BrowserFactory
	tel        telemetry.API
}

type Option func(s *Service)

func WithBrowserFactory(factory BrowserFactory) Option {
	return func(s *Service) {
		s.newBrowser = factory
	}
}

func WithClock(clock chrono.API) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func NewService(settings *configutil.Settings, st *store.Store, tel telemetry.API, options ...Option) (Service, error) {
	assert.NotNil(settings)
	assert.NotNil(st)
	assert.NotNil(tel)

	s := Service{
		settings: settings,
		store:    st,
		tel:      telemetry.NewScopedAPI("service", tel),
	}
	for _, opt := range options {
		opt(&s)
	}

	if s.clock == nil {
		clock, err := chrono.NewStandardImpl(settings.String("scraping.timezone", "UTC"))
		if err != nil {
			return Service{}, fmt.Errorf("scraping.timezone: %w", err)
		}
		s.clock = clock
	}
	if s.newBrowser == nil {
		s.newBrowser = func(ctx context.Context) (pipeline.Browser, error) {
			opts, err := hltv.SessionOptionsFromSettings(settings, tel)
			if err != nil {
				return nil, err
			}
			return hltv.NewSession(opts, tel)
		}
	}
	return s, nil
}

func (s Service) Clock() chrono.API {
	return s.clock
}

func (s Service) Scrape(ctx context.Context) (pipeline.Stats, error) {
	opts := pipeline.OptionsFromSettings(s.settings)

	extractor, err := hltv.NewExtractor(opts.BaseUrl, s.clock, s.tel)
	if err != nil {
		s.tel.ReportBroken(report_scrape, err)
		return pipeline.Stats{}, err
	}
	browser, err := s.newBrowser(ctx)
	if err != nil {
		s.tel.ReportBroken(report_scrape, fmt.Errorf("open session: %w", err))
		return pipeline.Stats{}, err
	}

	start := s.clock.Now()
	stats, err := pipeline.New(browser, extractor, s.store, s.tel, opts).Run(ctx)
	s.tel.ReportDebug(
		fmt.Sprintf("scrape finished in %.1fs", s.clock.Now().Sub(start).Seconds()),
		stats,
	)
	s.tel.ReportCount(report_scrape_skipped, int64(stats.MatchesSkipped+stats.DetailsSkipped+stats.ListingFailures))
	return stats, err
}

func (s Service) ListMatches(ctx context.Context, filter store.MatchFilter) ([]store.Match, error) {
	return s.store.ListMatches(ctx, filter)
}

// Since is the first day of a window of `months` 30 day months ending now.
func Since(now time.Time, months int) string {
	if months <= 0 {
		return ""
	}
	return now.AddDate(0, 0, -30*months).Format(time.DateOnly)
}

func (s Service) PlayerAverages(ctx context.Context, months int) ([]store.PlayerAverage, error) {
	return s.store.PlayerAverages(ctx, Since(s.clock.Now(), months))
}
