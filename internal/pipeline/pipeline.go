package pipeline

import (
	"context"
	"fmt"
	"hltvstats-backend/internal/components/assert"
	"hltvstats-backend/internal/components/telemetry"
	"hltvstats-backend/internal/scrapers/hltv"
	"hltvstats-backend/lib/configutil"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("hltvstats.internal.pipeline")

const (
	report_pipeline_listing = "pipeline.listing"
	report_pipeline_detail  = "pipeline.detail"
	report_pipeline_close   = "pipeline.close"
	report_pipeline_pages   = "pipeline.pages"
	report_pipeline_matches = "pipeline.matches"
	report_pipeline_details = "pipeline.details"
)

// Browser fetches page sources, an error means the page is absent.
//
// note: fault injection point
type Browser interface {
	Fetch(ctx context.Context, link string) (string, error)
	Close() error
}

// Sink persists extracted records, every call is its own unit of work.
type Sink interface {
	SaveMatch(ctx context.Context, summary hltv.MatchSummary) error
	SaveDetail(ctx context.Context, detail hltv.MatchDetail) error
}

type Options struct {
	BaseUrl     string
	ResultsPath string
	// MaxMatches bounds the listing offsets, PageSize is the offset step.
	MaxMatches int
	PageSize   int
	// Delay is the minimum spacing between two requests, a random jitter
	// within [JitterMin, JitterMax) is added on top of it.
	Delay     time.Duration
	JitterMin time.Duration
	JitterMax time.Duration
}

func OptionsFromSettings(settings *configutil.Settings) Options {
	lo, hi := settings.FloatRange("scraping.delay_between_attempts", 0, 0)
	return Options{
		BaseUrl:     settings.String("scraping.base_url", "https://www.hltv.org"),
		ResultsPath: settings.String("scraping.results_path", "/results"),
		MaxMatches:  settings.Int("scraping.max_matches", 1000),
		PageSize:    settings.Int("scraping.matches_per_page", hltv.MaxBlocksPerPage),
		Delay:       settings.Seconds("scraping.delay", time.Second),
		JitterMin:   time.Duration(lo * float64(time.Second)),
		JitterMax:   time.Duration(hi * float64(time.Second)),
	}
}

// Stats summarizes a single run.
type Stats struct {
	ListingPages    int
	ListingFailures int
	MatchesSaved    int
	MatchesSkipped  int
	DetailsSaved    int
	DetailsSkipped  int
}

// Pipeline drives a scrape: every listing page first, then every queued match page.
// It owns the browser and closes it when Run returns, panics included.
type Pipeline struct {
	browser   Browser
	extractor *hltv.Extractor
	sink      Sink
	opts      Options
	limiter   *rate.Limiter
	tel       telemetry.API
}

func New(browser Browser, extractor *hltv.Extractor, sink Sink, tel telemetry.API, opts Options) *Pipeline {
	assert.NotNil(browser)
	assert.NotNil(extractor)
	assert.NotNil(sink)
	assert.NotNil(tel)
	assert.Positive(opts.PageSize)

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Pipeline{
		browser:   browser,
		extractor: extractor,
		sink:      sink,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		tel:       telemetry.NewScopedAPI("pipeline", tel),
	}
}

func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	defer func() {
		err := p.browser.Close()
		if err != nil {
			p.tel.ReportWarning(report_pipeline_close, err)
		}
	}()

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	stats := Stats{}
	queue := p.listing(ctx, &stats)
	if ctx.Err() == nil {
		p.details(ctx, queue, &stats)
	}

	p.tel.ReportCount(report_pipeline_pages, int64(stats.ListingPages))
	p.tel.ReportCount(report_pipeline_matches, int64(stats.MatchesSaved))
	p.tel.ReportCount(report_pipeline_details, int64(stats.DetailsSaved))
	span.SetAttributes(
		attribute.Int("matches_saved", stats.MatchesSaved),
		attribute.Int("details_saved", stats.DetailsSaved),
	)

	return stats, ctx.Err()
}

// ListingUrl is the results page starting at offset.
func (p *Pipeline) ListingUrl(offset int) string {
	return fmt.Sprintf(
		"%s%s?offset=%d",
		strings.TrimSuffix(p.opts.BaseUrl, "/"),
		p.opts.ResultsPath,
		offset,
	)
}

func (p *Pipeline) listing(ctx context.Context, stats *Stats) []string {
	ctx, span := tracer.Start(ctx, "listing")
	defer span.End()

	var queue []string
	queued := map[string]struct{}{}

	for offset := 0; offset < p.opts.MaxMatches; offset += p.opts.PageSize {
		if ctx.Err() != nil {
			return queue
		}
		link := p.ListingUrl(offset)

		doc, err := p.fetch(ctx, link)
		if err != nil {
			stats.ListingFailures++
			p.tel.ReportWarning(report_pipeline_listing, link, err)
			continue
		}
		stats.ListingPages++

		summaries := p.extractor.Listing(ctx, doc)
		p.tel.ReportDebug("listing page", link, len(summaries))

		for _, summary := range summaries {
			err := p.sink.SaveMatch(ctx, summary)
			if err != nil {
				stats.MatchesSkipped++
				p.tel.ReportWarning(report_pipeline_listing, fmt.Errorf("save match %s vs %s: %w", summary.TeamWon, summary.TeamLost, err))
			} else {
				stats.MatchesSaved++
			}

			if summary.URL == nil {
				continue
			}
			_, seen := queued[*summary.URL]
			if seen {
				continue
			}
			queued[*summary.URL] = struct{}{}
			queue = append(queue, *summary.URL)
		}
	}

	return queue
}

func (p *Pipeline) details(ctx context.Context, queue []string, stats *Stats) {
	ctx, span := tracer.Start(ctx, "details")
	defer span.End()

	for _, link := range queue {
		if ctx.Err() != nil {
			return
		}

		doc, err := p.fetch(ctx, link)
		if err != nil {
			stats.DetailsSkipped++
			p.tel.ReportWarning(report_pipeline_detail, link, err)
			continue
		}

		detail := p.extractor.Detail(ctx, doc)
		err = p.sink.SaveDetail(ctx, detail)
		if err != nil {
			stats.DetailsSkipped++
			p.tel.ReportWarning(report_pipeline_detail, link, err)
			continue
		}
		stats.DetailsSaved++
	}
}

func (p *Pipeline) fetch(ctx context.Context, link string) (*goquery.Document, error) {
	err := p.throttle(ctx)
	if err != nil {
		return nil, err
	}
	source, err := p.browser.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func (p *Pipeline) throttle(ctx context.Context) error {
	err := p.limiter.Wait(ctx)
	if err != nil {
		return err
	}
	if p.opts.JitterMax <= p.opts.JitterMin {
		return nil
	}

	jitter := p.opts.JitterMin + rand.N(p.opts.JitterMax-p.opts.JitterMin)
	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
