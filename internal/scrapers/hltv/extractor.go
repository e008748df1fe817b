package hltv

import (
	"errors"
	"hltvstats-backend/internal/components/assert"
	"hltvstats-backend/internal/components/chrono"
	"hltvstats-backend/internal/components/telemetry"
	"net/url"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hltvstats.internal.scrapers.hltv")

const (
	report_extractor_listing = "extractor.listing"
	report_extractor_detail  = "extractor.detail"
)

// MaxBlocksPerPage is the most result blocks a single listing page can hold.
const MaxBlocksPerPage = 100

// ErrIncomplete marks a unit (block, map or row) that is missing a required
// field. It is an expected outcome of schema drift and is skipped quietly.
var ErrIncomplete = errors.New("incomplete")

// errNotPlayed marks a map that shows the not-played sentinel.
var errNotPlayed = errors.New("map not played")

// Extractor turns listing and detail documents into typed records. It never
// fails a whole page, units that cannot be parsed are reported and skipped.
type Extractor struct {
	baseUrl *url.URL
	time    chrono.API
	tel     telemetry.API
}

func NewExtractor(baseUrl string, time chrono.API, tel telemetry.API) (*Extractor, error) {
	assert.NotNil(time)
	assert.NotNil(tel)

	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		baseUrl: parsed,
		time:    time,
		tel:     telemetry.NewScopedAPI("hltv", tel),
	}, nil
}
