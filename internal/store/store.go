package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hltvstats-backend/internal/components/assert"
	"hltvstats-backend/internal/components/telemetry"
	"hltvstats-backend/internal/scrapers/hltv"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("hltvstats.internal.store")

const (
	report_store_match  = "store.save-match"
	report_store_detail = "store.save-detail"
	report_store_query  = "store.query"
)

var (
	// ErrMatchNotFound is returned when a detail references a match that was
	// never saved from a listing page.
	ErrMatchNotFound = errors.New("match not found")
	ErrInvalidScore  = errors.New("invalid score")
)

const unknownCountry = "Unknown"

type Store struct {
	db      *sql.DB
	dialect Dialect
	qry     *Queries
	makeTx  MakeTx
	tel     telemetry.API
}

func New(db *sql.DB, dialect Dialect, tel telemetry.API) *Store {
	assert.NotNil(db)
	assert.NotNil(tel)

	return &Store{
		db:      db,
		dialect: dialect,
		qry:     &Queries{db: db, dialect: dialect},
		makeTx:  NewMakeTx(db, dialect),
		tel:     telemetry.NewScopedAPI("store", tel),
	}
}

// OpenStore opens the database behind dsn and brings its schema up to date.
func OpenStore(ctx context.Context, dsn string, tel telemetry.API) (*Store, error) {
	db, dialect, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	err = Migrate(db, dialect, tel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return New(db, dialect, tel), nil
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func parseScore(text string) (int, error) {
	score, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, text)
	}
	if score < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidScore, score)
	}
	return score, nil
}

// SaveMatch upserts a listing record keyed by its external id. Scores are
// validated before anything is written.
func (s *Store) SaveMatch(ctx context.Context, summary hltv.MatchSummary) error {
	ctx, span := tracer.Start(ctx, "SaveMatch")
	defer span.End()

	scoreWon, err := parseScore(summary.ScoreWon)
	if err != nil {
		return err
	}
	scoreLost, err := parseScore(summary.ScoreLost)
	if err != nil {
		return err
	}
	format := 1
	if summary.Format != nil {
		format = *summary.Format
	}
	if summary.ExternalID != nil {
		span.SetAttributes(attribute.Int64("hltv_id", *summary.ExternalID))
	}

	err = s.qry.UpsertMatch(ctx, upsertMatchParams{
		HltvID:    summary.ExternalID,
		TeamWon:   summary.TeamWon,
		TeamLost:  summary.TeamLost,
		ScoreWon:  scoreWon,
		ScoreLost: scoreLost,
		Date:      summary.Date,
		Time:      summary.Time,
		Format:    format,
		Event:     summary.Event,
		Url:       summary.URL,
	})
	if err != nil {
		s.tel.ReportBroken(report_store_match, err)
		return err
	}
	return nil
}

// SaveDetail replaces the maps and player stats of an already saved match
// within a single transaction.
func (s *Store) SaveDetail(ctx context.Context, detail hltv.MatchDetail) error {
	ctx, span := tracer.Start(ctx, "SaveDetail")
	defer span.End()

	if detail.ExternalID == nil {
		return fmt.Errorf("%w: detail has no external id", ErrMatchNotFound)
	}
	span.SetAttributes(attribute.Int64("hltv_id", *detail.ExternalID))

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_store_detail, err, "begin")
		return err
	}
	defer discard()

	matchId, err := tx.MatchIdByHltvId(ctx, *detail.ExternalID)
	if err != nil {
		return fmt.Errorf("hltv id %d: %w", *detail.ExternalID, err)
	}
	err = tx.ClearMatchDetail(ctx, matchId)
	if err != nil {
		s.tel.ReportBroken(report_store_detail, err, "ClearMatchDetail")
		return err
	}

	for i, m := range detail.Maps {
		err = saveMap(ctx, tx, matchId, i+1, m)
		if err != nil {
			s.tel.ReportBroken(report_store_detail, err, m.Name)
			return err
		}
	}
	for _, p := range detail.Players {
		err = savePlayer(ctx, tx, matchId, p)
		if err != nil {
			s.tel.ReportBroken(report_store_detail, err, p.Nickname)
			return err
		}
	}

	return commit()
}

func saveMap(ctx context.Context, tx *Queries, matchId int64, ordinal int, m hltv.MapResult) error {
	mapId, err := tx.GetOrCreateMap(ctx, m.Name)
	if err != nil {
		return fmt.Errorf("map %q: %w", m.Name, err)
	}
	winnerId, err := tx.GetOrCreateTeam(ctx, m.Winner)
	if err != nil {
		return fmt.Errorf("team %q: %w", m.Winner, err)
	}
	_, err = tx.CreateMatchMap(ctx, createMatchMapParams{
		MatchID:    matchId,
		MapID:      mapId,
		Ordinal:    ordinal,
		ScoreTeam1: m.ScoreTeam1,
		ScoreTeam2: m.ScoreTeam2,
		WinnerID:   winnerId,
	})
	return err
}

func savePlayer(ctx context.Context, tx *Queries, matchId int64, p hltv.PlayerStatRow) error {
	country := p.Country
	if country == "" {
		country = unknownCountry
	}
	playerId, err := tx.GetOrCreatePlayer(ctx, createPlayerParams{
		Nickname: p.Nickname,
		FullName: p.FullName,
		Country:  country,
		HltvID:   p.ExternalID,
	})
	if err != nil {
		return fmt.Errorf("player %q: %w", p.Nickname, err)
	}
	teamId, err := tx.GetOrCreateTeam(ctx, p.Team)
	if err != nil {
		return fmt.Errorf("team %q: %w", p.Team, err)
	}
	return tx.CreatePlayerStats(ctx, createPlayerStatsParams{
		MatchID:  matchId,
		PlayerID: playerId,
		TeamID:   teamId,
		Kills:    p.Kills,
		Deaths:   p.Deaths,
		ADR:      p.ADR,
		KAST:     p.KAST,
		Rating:   p.Rating,
	})
}
