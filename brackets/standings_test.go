package brackets

import (
	"testing"

	"github.com/openliga/tournament-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedMatch(team1, team2, score1, score2 int) models.Match {
	group := "A"
	return models.Match{
		TournamentID: 1,
		Group:        &group,
		Round:        models.RoundGroup,
		Team1ID:      &team1,
		Team2ID:      &team2,
		ScoreTeam1:   &score1,
		ScoreTeam2:   &score2,
		Status:       models.MatchCompleted,
	}
}

func TestGroupStandingsWorkedExample(t *testing.T) {
	// A beats B 3-0, B beats C 1-0, C draws A 2-2.
	teamA, teamB, teamC := 1, 2, 3
	matches := []models.Match{
		completedMatch(teamA, teamB, 3, 0),
		completedMatch(teamB, teamC, 1, 0),
		completedMatch(teamC, teamA, 2, 2),
	}

	standings := CalculateGroupStandings(matches, &models.Tournament{ID: 1})
	require.Len(t, standings, 3)

	assert.Equal(t, teamA, standings[0].TeamID)
	assert.Equal(t, 4, standings[0].Points)
	assert.Equal(t, 1, standings[0].Wins)
	assert.Equal(t, 1, standings[0].Draws)

	assert.Equal(t, teamB, standings[1].TeamID)
	assert.Equal(t, 3, standings[1].Points)
	assert.Equal(t, 1, standings[1].Wins)
	assert.Equal(t, 1, standings[1].Losses)

	assert.Equal(t, teamC, standings[2].TeamID)
	assert.Equal(t, 1, standings[2].Points)
	assert.Equal(t, 1, standings[2].Losses)
	assert.Equal(t, 1, standings[2].Draws)
}

func TestGroupStandingsCustomScoring(t *testing.T) {
	tournament := &models.Tournament{ID: 1, Scoring: &models.ScoringRules{Win: 2, Draw: 1, Loss: 0}}
	matches := []models.Match{completedMatch(1, 2, 1, 0)}

	standings := CalculateGroupStandings(matches, tournament)
	require.Len(t, standings, 2)
	assert.Equal(t, 2, standings[0].Points)
	assert.Equal(t, 0, standings[1].Points)
}

func TestGroupStandingsIgnoresUnfinishedMatches(t *testing.T) {
	team1, team2 := 1, 2
	scheduled := completedMatch(team1, team2, 0, 0)
	scheduled.Status = models.MatchScheduled
	noScores := completedMatch(team1, team2, 0, 0)
	noScores.ScoreTeam1 = nil
	noScores.ScoreTeam2 = nil

	standings := CalculateGroupStandings([]models.Match{scheduled, noScores}, &models.Tournament{ID: 1})
	require.Len(t, standings, 2, "teams still appear with zeroed rows")
	for _, row := range standings {
		assert.Zero(t, row.Played)
		assert.Zero(t, row.Points)
	}
}

func TestGroupStandingsGoalDifferenceAndGoalsFor(t *testing.T) {
	// All three beat team 4, so points are level; goal difference then
	// goals-for decide.
	matches := []models.Match{
		completedMatch(1, 4, 5, 0), // +5, 5 for
		completedMatch(2, 4, 3, 0), // +3, 3 for
		completedMatch(3, 4, 4, 1), // +3, 4 for
	}

	standings := CalculateGroupStandings(matches, &models.Tournament{ID: 1})
	require.Len(t, standings, 4)
	assert.Equal(t, 1, standings[0].TeamID, "best goal difference first")
	assert.Equal(t, 3, standings[1].TeamID, "goals-for breaks the +3 tie")
	assert.Equal(t, 2, standings[2].TeamID)
	assert.Equal(t, 4, standings[3].TeamID)
}

func TestGroupStandingsHeadToHead(t *testing.T) {
	// Teams 1 and 2 finish level on points, goal difference and goals for;
	// 2 won the direct match. Team 3 edges both on goals for.
	matches := []models.Match{
		completedMatch(2, 1, 1, 0),
		completedMatch(1, 3, 2, 1),
		completedMatch(3, 2, 2, 1),
	}

	standings := CalculateGroupStandings(matches, &models.Tournament{ID: 1})
	require.Len(t, standings, 3)
	assert.Equal(t, 3, standings[0].TeamID)
	assert.Equal(t, 2, standings[1].TeamID, "head-to-head winner ranks higher")
	assert.Equal(t, 1, standings[2].TeamID)
}

func TestTopOfGroup(t *testing.T) {
	standings := []models.Standing{{TeamID: 1}, {TeamID: 2}, {TeamID: 3}}
	assert.Len(t, TopOfGroup(standings, 2), 2)
	assert.Len(t, TopOfGroup(standings, 5), 3)
}
