package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Queries holds the statements shared by every dialect, placeholders are
// written as `?` and rebound for postgres.
type Queries struct {
	db      querier
	dialect Dialect
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, rebind(q.dialect, query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, rebind(q.dialect, query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, rebind(q.dialect, query), args...)
}

type upsertMatchParams struct {
	HltvID    *int64
	TeamWon   string
	TeamLost  string
	ScoreWon  int
	ScoreLost int
	Date      *string
	Time      *string
	Format    int
	Event     *string
	Url       *string
}

func (p upsertMatchParams) args() []any {
	return []any{
		p.HltvID, p.TeamWon, p.TeamLost, p.ScoreWon, p.ScoreLost,
		p.Date, p.Time, p.Format, p.Event, p.Url,
	}
}

const insertMatch = `
INSERT INTO matches
  (hltv_id, team_won, team_lost, score_won, score_lost, date, time, match_format, event, url)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertMatch = insertMatch + `
ON CONFLICT (hltv_id) DO UPDATE SET
  team_won     = excluded.team_won,
  team_lost    = excluded.team_lost,
  score_won    = excluded.score_won,
  score_lost   = excluded.score_lost,
  date         = excluded.date,
  time         = excluded.time,
  match_format = excluded.match_format,
  event        = excluded.event,
  url          = excluded.url`

// Blocks without a match link have no hltv id, they are keyed by teams and
// start time instead so a re-scrape updates them in place.
const findUnlinkedMatch = `
SELECT id FROM matches
WHERE hltv_id IS NULL
  AND team_won = ? AND team_lost = ?
  AND COALESCE(date, '') = ? AND COALESCE(time, '') = ?`

const updateUnlinkedMatch = `
UPDATE matches SET
  score_won = ?, score_lost = ?, match_format = ?, event = ?, url = ?
WHERE id = ?`

func (q *Queries) UpsertMatch(ctx context.Context, p upsertMatchParams) error {
	if p.HltvID == nil {
		return q.upsertUnlinkedMatch(ctx, p)
	}
	_, err := q.exec(ctx, upsertMatch, p.args()...)
	return err
}

func (q *Queries) upsertUnlinkedMatch(ctx context.Context, p upsertMatchParams) error {
	var id int64
	err := q.queryRow(ctx, findUnlinkedMatch, p.TeamWon, p.TeamLost, deref(p.Date), deref(p.Time)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = q.exec(ctx, insertMatch, p.args()...)
		return err
	}
	if err != nil {
		return err
	}
	_, err = q.exec(ctx, updateUnlinkedMatch, p.ScoreWon, p.ScoreLost, p.Format, p.Event, p.Url, id)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (q *Queries) MatchIdByHltvId(ctx context.Context, hltvId int64) (int64, error) {
	var id int64
	err := q.queryRow(ctx, `SELECT id FROM matches WHERE hltv_id = ?`, hltvId).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMatchNotFound
	}
	return id, err
}

func (q *Queries) ClearMatchDetail(ctx context.Context, matchId int64) error {
	_, err := q.exec(ctx, `DELETE FROM player_stats WHERE match_id = ?`, matchId)
	if err != nil {
		return err
	}
	_, err = q.exec(ctx, `DELETE FROM match_maps WHERE match_id = ?`, matchId)
	return err
}

// getOrCreateByName is used for the small lookup tables keyed by a unique name.
func (q *Queries) getOrCreateByName(ctx context.Context, table, name string) (int64, error) {
	_, err := q.exec(ctx, fmt.Sprintf(`INSERT INTO %s (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, table), name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = q.queryRow(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, table), name).Scan(&id)
	return id, err
}

func (q *Queries) GetOrCreateTeam(ctx context.Context, name string) (int64, error) {
	return q.getOrCreateByName(ctx, "teams", name)
}

func (q *Queries) GetOrCreateMap(ctx context.Context, name string) (int64, error) {
	return q.getOrCreateByName(ctx, "maps", name)
}

type createPlayerParams struct {
	Nickname string
	FullName *string
	Country  string
	HltvID   *int64
}

// GetOrCreatePlayer only uses the params on creation, existing players keep their data.
func (q *Queries) GetOrCreatePlayer(ctx context.Context, p createPlayerParams) (int64, error) {
	_, err := q.exec(
		ctx,
		`INSERT INTO players (nickname, full_name, country, hltv_id) VALUES (?, ?, ?, ?) ON CONFLICT (nickname) DO NOTHING`,
		p.Nickname, p.FullName, p.Country, p.HltvID,
	)
	if err != nil {
		return 0, err
	}
	var id int64
	err = q.queryRow(ctx, `SELECT id FROM players WHERE nickname = ?`, p.Nickname).Scan(&id)
	return id, err
}

type createMatchMapParams struct {
	MatchID    int64
	MapID      int64
	Ordinal    int
	ScoreTeam1 int
	ScoreTeam2 int
	WinnerID   int64
}

func (q *Queries) CreateMatchMap(ctx context.Context, p createMatchMapParams) (int64, error) {
	var id int64
	err := q.queryRow(
		ctx,
		`INSERT INTO match_maps (match_id, map_id, ordinal, score_team1, score_team2, winner_id)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		p.MatchID, p.MapID, p.Ordinal, p.ScoreTeam1, p.ScoreTeam2, p.WinnerID,
	).Scan(&id)
	return id, err
}

type createPlayerStatsParams struct {
	MatchID    int64
	MatchMapID *int64
	PlayerID   int64
	TeamID     int64
	Kills      int
	Deaths     int
	ADR        float64
	KAST       float64
	Rating     float64
}

func (q *Queries) CreatePlayerStats(ctx context.Context, p createPlayerStatsParams) error {
	_, err := q.exec(
		ctx,
		`INSERT INTO player_stats (match_id, match_map_id, player_id, team_id, kills, deaths, adr, kast, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.MatchID, p.MatchMapID, p.PlayerID, p.TeamID, p.Kills, p.Deaths, p.ADR, p.KAST, p.Rating,
	)
	return err
}
