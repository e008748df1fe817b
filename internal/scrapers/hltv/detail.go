package hltv

import (
	"context"
	"errors"
	"fmt"
	"hltvstats-backend/lib/htmlutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Detail extracts the maps and aggregate player statistics of a match page.
// A page without a canonical match link still yields its maps and players.
func (e *Extractor) Detail(ctx context.Context, doc *goquery.Document) MatchDetail {
	ctx, span := tracer.Start(ctx, "Detail")
	defer span.End()

	detail := MatchDetail{}
	if doc == nil {
		return detail
	}

	canonical, ok := htmlutil.Attr(doc.Find("link[rel='canonical']"), "href")
	if ok {
		id, ok := CanonicalMatchID(canonical)
		if ok {
			detail.ExternalID = &id
		}
	}

	doc.Find("div.mapholder").Each(func(i int, holder *goquery.Selection) {
		result, err := parseMap(holder)
		if errors.Is(err, errNotPlayed) || errors.Is(err, ErrIncomplete) {
			e.tel.ReportDebug("detail: skipped map", i, err)
			return
		}
		if err != nil {
			span.RecordError(err)
			e.tel.ReportWarning(report_extractor_detail, fmt.Errorf("map %d: %w", i, err))
			return
		}
		detail.Maps = append(detail.Maps, result)
	})

	detail.Players = e.players(ctx, doc)
	return detail
}

func parseMap(holder *goquery.Selection) (MapResult, error) {
	left, okLeft := htmlutil.First(holder, "div.results-left")
	right, okRight := htmlutil.First(holder, "div.results-right")
	if !okLeft || !okRight {
		return MapResult{}, fmt.Errorf("sides: %w", ErrIncomplete)
	}

	leftScore, okLeft := htmlutil.FirstText(left, ".results-team-score")
	rightScore, okRight := htmlutil.FirstText(right, ".results-team-score")
	if leftScore == "-" || rightScore == "-" {
		return MapResult{}, errNotPlayed
	}
	if !okLeft || !okRight {
		return MapResult{}, fmt.Errorf("scores: %w", ErrIncomplete)
	}

	name, ok := htmlutil.FirstText(holder, "div.mapname")
	if !ok {
		return MapResult{}, fmt.Errorf("map name: %w", ErrIncomplete)
	}

	score1, err := parseCount(leftScore)
	if err != nil {
		return MapResult{}, fmt.Errorf("%s: left score: %w", name, err)
	}
	score2, err := parseCount(rightScore)
	if err != nil {
		return MapResult{}, fmt.Errorf("%s: right score: %w", name, err)
	}

	var winnerSide *goquery.Selection
	switch {
	case left.HasClass("won"):
		winnerSide = left
	case right.HasClass("won"):
		winnerSide = right
	default:
		return MapResult{}, fmt.Errorf("%s: winner: %w", name, ErrIncomplete)
	}
	winner, ok := htmlutil.FirstText(winnerSide, ".results-teamname")
	if !ok {
		return MapResult{}, fmt.Errorf("%s: winner name: %w", name, ErrIncomplete)
	}

	return MapResult{
		Name:       name,
		ScoreTeam1: score1,
		ScoreTeam2: score2,
		Winner:     winner,
	}, nil
}

// players reads only the aggregate "all maps" tables, each table's team comes
// from its own header row so rows are never attributed to the other roster.
func (e *Extractor) players(ctx context.Context, doc *goquery.Document) []PlayerStatRow {
	_, span := tracer.Start(ctx, "players")
	defer span.End()

	pageTeam, _ := htmlutil.FirstText(doc.Selection, "div.teamName")

	var out []PlayerStatRow
	doc.Find("#all-content table.totalstats").Each(func(ti int, table *goquery.Selection) {
		team, ok := htmlutil.FirstText(table, "tr.header-row .teamName")
		if !ok {
			team = pageTeam
		}

		table.Find("tr").Each(func(ri int, row *goquery.Selection) {
			if row.HasClass("header-row") || row.HasClass("hidden") {
				return
			}
			stat, err := parsePlayerRow(ctx, row, team)
			if errors.Is(err, ErrIncomplete) {
				e.tel.ReportDebug("detail: skipped player row", ti, ri, err)
				return
			}
			if err != nil {
				span.RecordError(err)
				e.tel.ReportWarning(report_extractor_detail, fmt.Errorf("table %d row %d: %w", ti, ri, err))
				return
			}
			out = append(out, stat)
		})
	})

	return out
}

func parsePlayerRow(ctx context.Context, row *goquery.Selection, team string) (PlayerStatRow, error) {
	nickname, ok := htmlutil.FirstText(row, ".player-nick")
	if !ok {
		nickname, ok = htmlutil.FirstText(row, ".smartphone-only.statsPlayerName")
	}
	if !ok {
		return PlayerStatRow{}, fmt.Errorf("nickname: %w", ErrIncomplete)
	}
	if team == "" {
		return PlayerStatRow{}, fmt.Errorf("%s: team: %w", nickname, ErrIncomplete)
	}

	kd, ok := htmlutil.FirstText(row, "td.kd")
	if !ok {
		return PlayerStatRow{}, fmt.Errorf("%s: kills-deaths: %w", nickname, ErrIncomplete)
	}
	kills, deaths, err := splitKillsDeaths(kd)
	if err != nil {
		return PlayerStatRow{}, fmt.Errorf("%s: %w", nickname, err)
	}

	adr, err := statFloat(row, "td.adr")
	if err != nil {
		return PlayerStatRow{}, fmt.Errorf("%s: adr: %w", nickname, err)
	}
	kast, err := statFloat(row, "td.kast")
	if err != nil {
		return PlayerStatRow{}, fmt.Errorf("%s: kast: %w", nickname, err)
	}
	rating, err := statFloat(row, "td.rating")
	if err != nil {
		return PlayerStatRow{}, fmt.Errorf("%s: rating: %w", nickname, err)
	}

	stat := PlayerStatRow{
		Nickname: nickname,
		Kills:    kills,
		Deaths:   deaths,
		ADR:      adr,
		KAST:     kast,
		Rating:   rating,
		Team:     team,
	}

	flag, ok := htmlutil.First(row, "img.flag")
	if ok {
		stat.Country, _ = htmlutil.Attr(flag, "title")
	}
	fullName, ok := htmlutil.FirstText(row, ".gtSmartphone-only.statsPlayerName")
	if ok {
		stat.FullName = &fullName
	}
	for _, anchor := range htmlutil.GetAnchors(ctx, row.Find("a[href]")) {
		id, ok := PlayerID(anchor.Href)
		if ok {
			stat.ExternalID = &id
			break
		}
	}

	return stat, nil
}

// splitKillsDeaths splits the "K-D" cell on its literal hyphen.
func splitKillsDeaths(text string) (int, int, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("kills-deaths %q: expected exactly one hyphen", text)
	}
	kills, err := parseCount(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("kills: %w", err)
	}
	deaths, err := parseCount(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("deaths: %w", err)
	}
	return kills, deaths, nil
}

func statFloat(row *goquery.Selection, selector string) (float64, error) {
	text, ok := htmlutil.FirstText(row, selector)
	if !ok {
		return 0, ErrIncomplete
	}
	text = strings.TrimSpace(strings.TrimSuffix(text, "%"))
	return strconv.ParseFloat(text, 64)
}

func parseCount(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
