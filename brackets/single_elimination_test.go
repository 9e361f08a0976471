package brackets

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/openliga/tournament-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eliminationTournament(bestOf int) *models.Tournament {
	return &models.Tournament{ID: 1, Format: models.FormatElimination, BestOfMatches: bestOf}
}

func TestGenerateBracketPowersOfTwo(t *testing.T) {
	testCases := []struct {
		name         string
		teamCount    int
		wantMatches  int
		wantFirstRnd models.Round
	}{
		{name: "2 teams", teamCount: 2, wantMatches: 1, wantFirstRnd: models.RoundFinal},
		{name: "4 teams", teamCount: 4, wantMatches: 3, wantFirstRnd: models.RoundSemiFinal},
		{name: "8 teams", teamCount: 8, wantMatches: 7, wantFirstRnd: models.RoundQuarterFinal},
		{name: "16 teams", teamCount: 16, wantMatches: 15, wantFirstRnd: models.RoundOf16},
		{name: "32 teams", teamCount: 32, wantMatches: 31, wantFirstRnd: models.RoundOf32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gen := NewEliminationGenerator(rand.New(rand.NewSource(9)))
			matches, err := gen.GenerateBracket(eliminationTournament(1), makeTeams(tc.teamCount))
			require.NoError(t, err)
			require.Len(t, matches, tc.wantMatches, "N teams produce N-1 matches")

			assert.Equal(t, tc.wantFirstRnd, matches[0].Round)

			finals := 0
			byBracketID := make(map[string]*models.Match)
			for i, match := range matches {
				require.NotNil(t, match.BracketID)
				assert.Equal(t, fmt.Sprintf("M%d", i+1), *match.BracketID, "bracket IDs increase in generation order")
				byBracketID[*match.BracketID] = match
				if match.NextMatchBracketID == nil {
					finals++
					assert.Equal(t, models.RoundFinal, match.Round)
				}
			}
			assert.Equal(t, 1, finals, "exactly one match without a forward link")

			// Every forward link points at an existing later match.
			for _, match := range matches {
				if match.NextMatchBracketID == nil {
					continue
				}
				next, ok := byBracketID[*match.NextMatchBracketID]
				require.True(t, ok, "forward link %s resolves", *match.NextMatchBracketID)
				assert.Equal(t, models.MatchPending, next.Status)
			}
		})
	}
}

func TestGenerateBracketRoundLabels(t *testing.T) {
	gen := NewEliminationGenerator(rand.New(rand.NewSource(2)))
	matches, err := gen.GenerateBracket(eliminationTournament(1), makeTeams(8))
	require.NoError(t, err)

	rounds := make(map[models.Round]int)
	for _, match := range matches {
		rounds[match.Round]++
	}
	assert.Equal(t, 4, rounds[models.RoundQuarterFinal])
	assert.Equal(t, 2, rounds[models.RoundSemiFinal])
	assert.Equal(t, 1, rounds[models.RoundFinal])
}

func TestGenerateBracketForwardLinking(t *testing.T) {
	gen := NewEliminationGenerator(rand.New(rand.NewSource(2)))
	matches, err := gen.GenerateBracket(eliminationTournament(1), makeTeams(8))
	require.NoError(t, err)

	// Quarter-final pairs feed semi-finals M5/M6, which feed the final M7.
	assert.Equal(t, "M5", *matches[0].NextMatchBracketID)
	assert.Equal(t, "M5", *matches[1].NextMatchBracketID)
	assert.Equal(t, "M6", *matches[2].NextMatchBracketID)
	assert.Equal(t, "M6", *matches[3].NextMatchBracketID)
	assert.Equal(t, "M7", *matches[4].NextMatchBracketID)
	assert.Equal(t, "M7", *matches[5].NextMatchBracketID)
	assert.Nil(t, matches[6].NextMatchBracketID)
}

func TestGenerateBracketOddTeamCount(t *testing.T) {
	gen := NewEliminationGenerator(rand.New(rand.NewSource(4)))
	matches, err := gen.GenerateBracket(eliminationTournament(1), makeTeams(5))
	require.NoError(t, err)

	walkovers := 0
	for _, match := range matches {
		if match.Status == models.MatchWalkover {
			walkovers++
			require.NotNil(t, match.WinnerID)
			assert.Nil(t, match.Team2ID, "walkover has no second team")
			assert.Equal(t, *match.Team1ID, *match.WinnerID)
		}
	}
	assert.Equal(t, 1, walkovers, "odd team count yields exactly one walkover")

	// Non-power-of-two sizes fall back to the generic first-round label.
	assert.Equal(t, models.RoundQualifying, matches[0].Round)
}

func TestGenerateBracketSeriesFlag(t *testing.T) {
	gen := NewEliminationGenerator(rand.New(rand.NewSource(4)))
	matches, err := gen.GenerateBracket(eliminationTournament(3), makeTeams(4))
	require.NoError(t, err)
	for _, match := range matches {
		assert.True(t, match.IsBestOfSeries)
	}
}

func TestGenerateBracketNoTeams(t *testing.T) {
	gen := NewEliminationGenerator(rand.New(rand.NewSource(4)))
	_, err := gen.GenerateBracket(eliminationTournament(1), nil)
	assert.ErrorIs(t, err, ErrNoTeams)
}

func TestGenerateBracketShuffleDeterministicWithSeed(t *testing.T) {
	first, err := NewEliminationGenerator(rand.New(rand.NewSource(21))).
		GenerateBracket(eliminationTournament(1), makeTeams(8))
	require.NoError(t, err)
	second, err := NewEliminationGenerator(rand.New(rand.NewSource(21))).
		GenerateBracket(eliminationTournament(1), makeTeams(8))
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Team1ID, second[i].Team1ID)
		assert.Equal(t, first[i].Team2ID, second[i].Team2ID)
	}
}

func TestGeneratePlayoffBracketDelegates(t *testing.T) {
	gen := NewEliminationGenerator(rand.New(rand.NewSource(5)))
	matches, err := gen.GeneratePlayoffBracket(eliminationTournament(1), makeTeams(4))
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}
