package brackets

import (
	"sort"

	"github.com/openliga/tournament-engine/models"
)

// CalculateGroupStandings computes the ranked table for one group from its
// match list. Every team appearing in the list gets a row, so teams without
// a completed match still show up with zeroed stats. Only matches with
// status completed and both scores set contribute.
//
// Sort order: points desc, goal difference desc, goals for desc, then the
// head-to-head result between the two tied teams. Head-to-head is checked
// pairwise during the comparison, not precomputed, so three-way ties can
// order inconsistently; ties not resolved by any rule keep an arbitrary
// relative order.
func CalculateGroupStandings(matches []models.Match, tournament *models.Tournament) []models.Standing {
	points := tournament.Points()

	rows := make(map[int]*models.Standing)
	order := make([]int, 0)
	ensureRow := func(teamID int, group *string) *models.Standing {
		if row, ok := rows[teamID]; ok {
			return row
		}
		row := &models.Standing{TeamID: teamID}
		if group != nil {
			row.Group = *group
		}
		rows[teamID] = row
		order = append(order, teamID)
		return row
	}

	for _, match := range matches {
		if match.Team1ID != nil {
			ensureRow(*match.Team1ID, match.Group)
		}
		if match.Team2ID != nil {
			ensureRow(*match.Team2ID, match.Group)
		}
	}

	for _, match := range matches {
		if !countsForStandings(match) {
			continue
		}
		row1 := rows[*match.Team1ID]
		row2 := rows[*match.Team2ID]
		s1, s2 := *match.ScoreTeam1, *match.ScoreTeam2

		row1.Played++
		row2.Played++
		row1.GoalsFor += s1
		row1.GoalsAgainst += s2
		row2.GoalsFor += s2
		row2.GoalsAgainst += s1

		switch {
		case s1 > s2:
			row1.Wins++
			row1.Points += points.Win
			row2.Losses++
			row2.Points += points.Loss
		case s1 < s2:
			row2.Wins++
			row2.Points += points.Win
			row1.Losses++
			row1.Points += points.Loss
		default:
			row1.Draws++
			row2.Draws++
			row1.Points += points.Draw
			row2.Points += points.Draw
		}
	}

	standings := make([]models.Standing, 0, len(order))
	for _, teamID := range order {
		standings = append(standings, *rows[teamID])
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference() != b.GoalDifference() {
			return a.GoalDifference() > b.GoalDifference()
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return headToHeadWins(matches, a.TeamID, b.TeamID)
	})

	return standings
}

func countsForStandings(match models.Match) bool {
	return match.Status == models.MatchCompleted &&
		match.Team1ID != nil && match.Team2ID != nil &&
		match.ScoreTeam1 != nil && match.ScoreTeam2 != nil
}

// headToHeadWins reports whether teamA beat teamB in their completed direct
// match, if one exists.
func headToHeadWins(matches []models.Match, teamA, teamB int) bool {
	for _, match := range matches {
		if match.Status != models.MatchCompleted ||
			match.ScoreTeam1 == nil || match.ScoreTeam2 == nil ||
			match.Team1ID == nil || match.Team2ID == nil {
			continue
		}
		if *match.Team1ID == teamA && *match.Team2ID == teamB {
			return *match.ScoreTeam1 > *match.ScoreTeam2
		}
		if *match.Team1ID == teamB && *match.Team2ID == teamA {
			return *match.ScoreTeam2 > *match.ScoreTeam1
		}
	}
	return false
}

// TopOfGroup returns the first n rows of a sorted standings table.
func TopOfGroup(standings []models.Standing, n int) []models.Standing {
	if n > len(standings) {
		n = len(standings)
	}
	return standings[:n]
}
