package models

import "time"

// TournamentFormat matches the tournament_format enum in the database.
type TournamentFormat string

const (
	FormatGroupStage  TournamentFormat = "group-stage"
	FormatElimination TournamentFormat = "elimination"
)

// TournamentStatus matches the tournament_status enum in the database.
type TournamentStatus string

const (
	StatusComingSoon   TournamentStatus = "coming-soon"
	StatusRegistration TournamentStatus = "registration"
	StatusInProgress   TournamentStatus = "in-progress"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

// GroupStageSettings configures the group phase of a group-stage tournament.
type GroupStageSettings struct {
	TeamsPerGroup          int `json:"teams_per_group"`
	TeamsAdvancingPerGroup int `json:"teams_advancing_per_group"`
	MatchesPerTeamInGroup  int `json:"matches_per_team_in_group"`
}

// ScoringRules holds the points awarded for a win, draw and loss in group
// play. The zero value is not meaningful; use DefaultScoringRules.
type ScoringRules struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Loss int `json:"loss"`
}

func DefaultScoringRules() ScoringRules {
	return ScoringRules{Win: 3, Draw: 1, Loss: 0}
}

type Tournament struct {
	ID                 int                 `json:"id" db:"id"`
	Name               string              `json:"name" db:"name"`
	Description        *string             `json:"description,omitempty" db:"description"`
	OrganizerID        int                 `json:"organizer_id" db:"organizer_id"`
	Format             TournamentFormat    `json:"format" db:"format"`
	GroupStageSettings *GroupStageSettings `json:"group_stage_settings,omitempty" db:"-"`
	BestOfMatches      int                 `json:"best_of_matches" db:"best_of_matches"`
	Scoring            *ScoringRules       `json:"scoring,omitempty" db:"-"`
	RegistrationStart  time.Time           `json:"registration_start" db:"registration_start"`
	RegistrationEnd    time.Time           `json:"registration_end" db:"registration_end"`
	StartDate          time.Time           `json:"start_date" db:"start_date"`
	EndDate            time.Time           `json:"end_date" db:"end_date"`
	MaxTeams           int                 `json:"max_teams" db:"max_teams"`
	Status             TournamentStatus    `json:"status" db:"status"`
	WinnerTeamID       *int                `json:"winner_team_id,omitempty" db:"winner_team_id"`
	LogoKey            *string             `json:"-" db:"logo_key"`
	LogoURL            *string             `json:"logo_url,omitempty" db:"-"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`

	// Optional linked entities, populated by services.
	Teams   []Team  `json:"teams,omitempty" db:"-"`
	Matches []Match `json:"matches,omitempty" db:"-"`
}

// Points returns the tournament's scoring rules, falling back to the
// 3/1/0 defaults when no custom rules are set.
func (t *Tournament) Points() ScoringRules {
	if t.Scoring == nil {
		return DefaultScoringRules()
	}
	return *t.Scoring
}

// RequiredWins is the number of game wins that decides a best-of series.
func (t *Tournament) RequiredWins() int {
	bestOf := t.BestOfMatches
	if bestOf < 1 {
		bestOf = 1
	}
	return bestOf/2 + 1
}
