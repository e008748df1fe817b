package hltv

// MatchSummary is one result block of a listing page.
type MatchSummary struct {
	TeamWon  string
	TeamLost string
	// scores are kept as text, they are validated by the store
	ScoreWon  string
	ScoreLost string

	// Date is formatted as 2006-01-02, Time as 15:04:05, both in the extractor's zone.
	Date *string
	Time *string

	ExternalID *int64
	URL        *string
	// Format is the best-of count (1, 3 or 5), nil when the page shows no label.
	Format *int
	Event  *string
}

// MapResult is one played map of a match. Maps that were not played never
// become a MapResult.
type MapResult struct {
	Name       string
	ScoreTeam1 int
	ScoreTeam2 int
	Winner     string
}

// PlayerStatRow is one player's line of the aggregate stats table.
type PlayerStatRow struct {
	Nickname string
	FullName *string
	Country  string
	Kills    int
	Deaths   int
	ADR      float64
	KAST     float64
	Rating   float64
	Team     string

	ExternalID *int64
}

// MatchDetail is everything extracted from a single match page.
type MatchDetail struct {
	ExternalID *int64
	Maps       []MapResult
	Players    []PlayerStatRow
}
