package store

import (
	"context"
	"fmt"
	"math"
	"strings"
)

type Match struct {
	ID        int64
	HltvID    *int64
	TeamWon   string
	TeamLost  string
	ScoreWon  int
	ScoreLost int
	Date      *string
	Time      *string
	Format    int
	Event     *string
	URL       *string

	Maps    []MatchMap
	Players []PlayerStat
}

type MatchMap struct {
	Ordinal    int
	Name       string
	ScoreTeam1 int
	ScoreTeam2 int
	Winner     string
}

type PlayerStat struct {
	Nickname string
	FullName *string
	Country  string
	Team     string
	Kills    int
	Deaths   int
	ADR      float64
	KAST     float64
	Rating   float64
}

// MatchFilter narrows ListMatches, zero values are ignored. The *Contains
// fields match case-insensitively on a substring.
type MatchFilter struct {
	Date       string
	DateAfter  string
	DateBefore string

	TeamWon          string
	TeamWonContains  string
	TeamLost         string
	TeamLostContains string
	Event            string
	EventContains    string

	HltvID int64

	Limit  int
	Offset int
}

func (f MatchFilter) where() (string, []any) {
	var conds []string
	var args []any
	eq := func(column, value string) {
		if value == "" {
			return
		}
		conds = append(conds, column+" = ?")
		args = append(args, value)
	}
	contains := func(column, value string) {
		if value == "" {
			return
		}
		conds = append(conds, "LOWER("+column+") LIKE ?")
		args = append(args, "%"+strings.ToLower(value)+"%")
	}

	eq("date", f.Date)
	if f.DateAfter != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.DateAfter)
	}
	if f.DateBefore != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.DateBefore)
	}
	eq("team_won", f.TeamWon)
	contains("team_won", f.TeamWonContains)
	eq("team_lost", f.TeamLost)
	contains("team_lost", f.TeamLostContains)
	eq("event", f.Event)
	contains("event", f.EventContains)
	if f.HltvID != 0 {
		conds = append(conds, "hltv_id = ?")
		args = append(args, f.HltvID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListMatches returns the newest matches first along with their maps and
// player stats.
func (s *Store) ListMatches(ctx context.Context, filter MatchFilter) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "ListMatches")
	defer span.End()

	where, args := filter.where()
	query := `SELECT id, hltv_id, team_won, team_lost, score_won, score_lost, date, time, match_format, event, url
	FROM matches` + where + `
	ORDER BY COALESCE(date, '') DESC, COALESCE(time, '') DESC, id DESC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.qry.query(ctx, query, args...)
	if err != nil {
		s.tel.ReportBroken(report_store_query, err, "ListMatches")
		return nil, err
	}
	var matches []Match
	for rows.Next() {
		var m Match
		err = rows.Scan(
			&m.ID, &m.HltvID, &m.TeamWon, &m.TeamLost, &m.ScoreWon, &m.ScoreLost,
			&m.Date, &m.Time, &m.Format, &m.Event, &m.URL,
		)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, m)
	}
	// sqlite runs on a single connection, the cursor must be released before
	// the per-match lookups below
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range matches {
		matches[i].Maps, err = s.matchMaps(ctx, matches[i].ID)
		if err != nil {
			s.tel.ReportBroken(report_store_query, err, "matchMaps")
			return nil, err
		}
		matches[i].Players, err = s.playerStats(ctx, matches[i].ID)
		if err != nil {
			s.tel.ReportBroken(report_store_query, err, "playerStats")
			return nil, err
		}
	}
	return matches, nil
}

func (s *Store) matchMaps(ctx context.Context, matchId int64) ([]MatchMap, error) {
	rows, err := s.qry.query(
		ctx,
		`SELECT mm.ordinal, m.name, mm.score_team1, mm.score_team2, t.name
		FROM match_maps mm
		JOIN maps m ON m.id = mm.map_id
		JOIN teams t ON t.id = mm.winner_id
		WHERE mm.match_id = ?
		ORDER BY mm.ordinal`,
		matchId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchMap
	for rows.Next() {
		var mm MatchMap
		err = rows.Scan(&mm.Ordinal, &mm.Name, &mm.ScoreTeam1, &mm.ScoreTeam2, &mm.Winner)
		if err != nil {
			return nil, err
		}
		out = append(out, mm)
	}
	return out, rows.Err()
}

func (s *Store) playerStats(ctx context.Context, matchId int64) ([]PlayerStat, error) {
	rows, err := s.qry.query(
		ctx,
		`SELECT p.nickname, p.full_name, p.country, t.name, ps.kills, ps.deaths, ps.adr, ps.kast, ps.rating
		FROM player_stats ps
		JOIN players p ON p.id = ps.player_id
		JOIN teams t ON t.id = ps.team_id
		WHERE ps.match_id = ?
		ORDER BY ps.id`,
		matchId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStat
	for rows.Next() {
		var ps PlayerStat
		err = rows.Scan(
			&ps.Nickname, &ps.FullName, &ps.Country, &ps.Team,
			&ps.Kills, &ps.Deaths, &ps.ADR, &ps.KAST, &ps.Rating,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

type PlayerAverage struct {
	Nickname string
	Team     string
	Matches  int
	Rating   float64
	Kills    float64
	Deaths   float64
	ADR      float64
	KAST     float64
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PlayerAverages aggregates the stats of every player and team pair over the
// matches played on or after since (2006-01-02), an empty since covers
// everything. The best rated players come first.
func (s *Store) PlayerAverages(ctx context.Context, since string) ([]PlayerAverage, error) {
	ctx, span := tracer.Start(ctx, "PlayerAverages")
	defer span.End()

	query := `SELECT p.nickname, t.name,
		COUNT(DISTINCT ps.match_id),
		CAST(AVG(ps.rating) AS DOUBLE PRECISION),
		CAST(AVG(ps.kills) AS DOUBLE PRECISION),
		CAST(AVG(ps.deaths) AS DOUBLE PRECISION),
		CAST(AVG(ps.adr) AS DOUBLE PRECISION),
		CAST(AVG(ps.kast) AS DOUBLE PRECISION)
	FROM player_stats ps
	JOIN players p ON p.id = ps.player_id
	JOIN teams t ON t.id = ps.team_id
	JOIN matches m ON m.id = ps.match_id`
	var args []any
	if since != "" {
		query += " WHERE m.date >= ?"
		args = append(args, since)
	}
	query += `
	GROUP BY p.nickname, t.name
	ORDER BY 4 DESC, p.nickname`

	rows, err := s.qry.query(ctx, query, args...)
	if err != nil {
		s.tel.ReportBroken(report_store_query, err, "PlayerAverages")
		return nil, err
	}
	defer rows.Close()

	var out []PlayerAverage
	for rows.Next() {
		var avg PlayerAverage
		err = rows.Scan(
			&avg.Nickname, &avg.Team, &avg.Matches,
			&avg.Rating, &avg.Kills, &avg.Deaths, &avg.ADR, &avg.KAST,
		)
		if err != nil {
			return nil, fmt.Errorf("scan player average: %w", err)
		}
		avg.Rating = round2(avg.Rating)
		avg.Kills = round2(avg.Kills)
		avg.Deaths = round2(avg.Deaths)
		avg.ADR = round2(avg.ADR)
		avg.KAST = round2(avg.KAST)
		out = append(out, avg)
	}
	return out, rows.Err()
}
