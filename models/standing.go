package models

// Standing is one row of a group table, computed from completed matches.
// It is not persisted; standings are always derived from the match set.
type Standing struct {
	TeamID       int    `json:"team_id"`
	Group        string `json:"group,omitempty"`
	Played       int    `json:"played"`
	Wins         int    `json:"wins"`
	Draws        int    `json:"draws"`
	Losses       int    `json:"losses"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	Points       int    `json:"points"`

	// Optional linked entity, populated by services.
	Team *Team `json:"team,omitempty"`
}

// GoalDifference is the second standings sort key after points.
func (s *Standing) GoalDifference() int {
	return s.GoalsFor - s.GoalsAgainst
}
