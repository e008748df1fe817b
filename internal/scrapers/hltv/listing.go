package hltv

import (
	"context"
	"errors"
	"fmt"
	"hltvstats-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Listing extracts at most MaxBlocksPerPage match summaries from a results page,
// in document order.
func (e *Extractor) Listing(ctx context.Context, doc *goquery.Document) []MatchSummary {
	ctx, span := tracer.Start(ctx, "Listing")
	defer span.End()

	if doc == nil {
		return nil
	}

	var out []MatchSummary
	doc.Find("div.result-con").EachWithBreak(func(i int, block *goquery.Selection) bool {
		if i >= MaxBlocksPerPage {
			return false
		}

		summary, err := e.parseBlock(ctx, block)
		if errors.Is(err, ErrIncomplete) {
			e.tel.ReportDebug("listing: skipped block", i, err)
			return true
		}
		if err != nil {
			span.RecordError(err)
			e.tel.ReportWarning(report_extractor_listing, fmt.Errorf("block %d: %w", i, err))
			return true
		}

		out = append(out, summary)
		return true
	})

	return out
}

func (e *Extractor) parseBlock(ctx context.Context, block *goquery.Selection) (MatchSummary, error) {
	team1, ok1 := htmlutil.First(block, "div.team1 div.team")
	team2, ok2 := htmlutil.First(block, "div.team2 div.team")
	if !ok1 || !ok2 {
		return MatchSummary{}, fmt.Errorf("teams: %w", ErrIncomplete)
	}
	name1, ok1 := htmlutil.Text(team1)
	name2, ok2 := htmlutil.Text(team2)
	if !ok1 || !ok2 {
		return MatchSummary{}, fmt.Errorf("team names: %w", ErrIncomplete)
	}

	// without a winner marker the first team is taken as the winner
	winner, loser := name1, name2
	if !team1.HasClass("team-won") && team2.HasClass("team-won") {
		winner, loser = name2, name1
	}

	scoreWon, okWon := htmlutil.FirstText(block, "span.score-won")
	scoreLost, okLost := htmlutil.FirstText(block, "span.score-lost")
	if !okWon || !okLost {
		return MatchSummary{}, fmt.Errorf("scores: %w", ErrIncomplete)
	}

	summary := MatchSummary{
		TeamWon:   winner,
		TeamLost:  loser,
		ScoreWon:  scoreWon,
		ScoreLost: scoreLost,
	}

	stamp, ok := htmlutil.Attr(block, "data-zonedgrouping-entry-unix")
	if ok {
		summary.Date, summary.Time = splitTimestamp(stamp, e.time.Location())
	}

	for _, anchor := range htmlutil.GetAnchors(ctx, block.Find("a[href]")) {
		id, ok := MatchID(anchor.Href)
		if !ok {
			continue
		}
		link, ok := resolve(e.baseUrl, anchor.Href)
		if !ok {
			continue
		}
		summary.ExternalID = &id
		summary.URL = &link
		break
	}

	label, _ := htmlutil.FirstText(block, "div.map-text")
	summary.Format = BestOf(label)

	event, ok := htmlutil.FirstText(block, ".event-name")
	if ok {
		summary.Event = &event
	}

	return summary, nil
}
