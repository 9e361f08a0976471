package models

import "time"

// MatchStatus matches the match_status enum in the database.
type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in-progress"
	MatchCompleted  MatchStatus = "completed"
	MatchPostponed  MatchStatus = "postponed"
	MatchCancelled  MatchStatus = "cancelled"
	MatchWalkover   MatchStatus = "walkover"
)

// Round identifies the stage a match belongs to. Group fixtures use
// RoundGroup; elimination matches carry the bracket round name.
type Round string

const (
	RoundGroup        Round = "group"
	RoundOf32         Round = "round-of-32"
	RoundOf16         Round = "round-of-16"
	RoundQuarterFinal Round = "quarter-finals"
	RoundSemiFinal    Round = "semi-finals"
	RoundFinal        Round = "final"
	RoundThirdPlace   Round = "third-place"
	RoundQualifying   Round = "qualifying-round"
)

// SeriesGame is one played game inside a best-of series. The slice of
// games is persisted as a JSON document on the match row.
type SeriesGame struct {
	ScoreTeam1 int       `json:"score_team1"`
	ScoreTeam2 int       `json:"score_team2"`
	Date       time.Time `json:"date"`
	WinnerID   *int      `json:"winner_id,omitempty"`
}

// Match is the central mutable entity. Group fixtures always carry a group
// label and matchday; elimination matches always carry a bracket ID and,
// except for the final, a forward link to the match the winner advances
// into. Team slots are nullable because elimination matches may wait on a
// feeder result.
type Match struct {
	ID                 int          `json:"id" db:"id"`
	TournamentID       int          `json:"tournament_id" db:"tournament_id"`
	Group              *string      `json:"group,omitempty" db:"group_label"`
	Round              Round        `json:"round" db:"round"`
	Matchday           *int         `json:"matchday,omitempty" db:"matchday"`
	Team1ID            *int         `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID            *int         `json:"team2_id,omitempty" db:"team2_id"`
	ScoreTeam1         *int         `json:"score_team1,omitempty" db:"score_team1"`
	ScoreTeam2         *int         `json:"score_team2,omitempty" db:"score_team2"`
	WinnerID           *int         `json:"winner_id,omitempty" db:"winner_id"`
	Status             MatchStatus  `json:"status" db:"status"`
	BracketID          *string      `json:"bracket_id,omitempty" db:"bracket_id"`
	NextMatchBracketID *string      `json:"next_match_bracket_id,omitempty" db:"next_match_bracket_id"`
	IsBestOfSeries     bool         `json:"is_best_of_series" db:"is_best_of_series"`
	SeriesGames        []SeriesGame `json:"series_games,omitempty" db:"-"`
	SeriesScore        *string      `json:"series_score,omitempty" db:"series_score"`
	SeriesWinnerID     *int         `json:"series_winner_id,omitempty" db:"series_winner_id"`
	MatchTime          *time.Time   `json:"match_time,omitempty" db:"match_time"`
	Location           *string      `json:"location,omitempty" db:"location"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
}

// Decided reports whether the match has reached a terminal result and must
// not accept further score submissions.
func (m *Match) Decided() bool {
	return m.Status == MatchCompleted || m.Status == MatchWalkover
}

// HasTeam reports whether teamID occupies either slot of the match.
func (m *Match) HasTeam(teamID int) bool {
	return (m.Team1ID != nil && *m.Team1ID == teamID) ||
		(m.Team2ID != nil && *m.Team2ID == teamID)
}
