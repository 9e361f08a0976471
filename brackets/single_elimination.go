package brackets

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/openliga/tournament-engine/models"
)

// roundByTeamCount maps a first-round team count to the round label. Counts
// outside the table fall back to RoundQualifying; non-power-of-two bracket
// sizes are only partially supported and keep the generic label.
var roundByTeamCount = map[int]models.Round{
	2:  models.RoundFinal,
	4:  models.RoundSemiFinal,
	8:  models.RoundQuarterFinal,
	16: models.RoundOf16,
	32: models.RoundOf32,
}

// roundByStage maps "rounds remaining after this one" to the round label.
var roundByStage = map[int]models.Round{
	0: models.RoundFinal,
	1: models.RoundSemiFinal,
	2: models.RoundQuarterFinal,
	3: models.RoundOf16,
	4: models.RoundOf32,
}

func roundForTeamCount(count int) models.Round {
	if r, ok := roundByTeamCount[count]; ok {
		return r
	}
	return models.RoundQualifying
}

func roundForStage(stage int) models.Round {
	if r, ok := roundByStage[stage]; ok {
		return r
	}
	return models.RoundQualifying
}

// EliminationGenerator builds single-elimination brackets. Fairness comes
// from uniform shuffling rather than seeding; inject a seeded source for
// reproducible placements, or pass nil for a time-seeded one.
type EliminationGenerator struct {
	rnd *rand.Rand
}

func NewEliminationGenerator(rnd *rand.Rand) *EliminationGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &EliminationGenerator{rnd: rnd}
}

// GenerateBracket produces the full flat match list for a knockout stage:
// a shuffled first round, then every later round synthesized with pending
// matches and ceil(previous/2) slots, linked forward so match i of a round
// feeds match i/2 of the next. An odd team count leaves the last first-round
// pairing without an opponent; that match is resolved immediately as a
// walkover with the lone team as winner. Bracket IDs are "M1", "M2", ... in
// generation order across all rounds; only final-round matches lack a
// forward link. Nothing is persisted here.
func (g *EliminationGenerator) GenerateBracket(tournament *models.Tournament, teams []models.Team) ([]*models.Match, error) {
	if len(teams) == 0 {
		return nil, ErrNoTeams
	}

	shuffled := make([]models.Team, len(teams))
	copy(shuffled, teams)
	g.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	isSeries := tournament.BestOfMatches > 1
	initialRound := roundForTeamCount(len(shuffled))

	bracketSeq := 0
	nextBracketID := func() *string {
		bracketSeq++
		id := fmt.Sprintf("M%d", bracketSeq)
		return &id
	}

	firstRound := make([]*models.Match, 0, (len(shuffled)+1)/2)
	for i := 0; i < len(shuffled); i += 2 {
		match := &models.Match{
			TournamentID:   tournament.ID,
			Round:          initialRound,
			Status:         models.MatchScheduled,
			BracketID:      nextBracketID(),
			IsBestOfSeries: isSeries,
		}
		t1 := shuffled[i].ID
		match.Team1ID = &t1
		if i+1 < len(shuffled) {
			t2 := shuffled[i+1].ID
			match.Team2ID = &t2
		} else {
			// Bye: the lone team advances without playing.
			match.Status = models.MatchWalkover
			match.WinnerID = &t1
		}
		firstRound = append(firstRound, match)
	}

	totalRounds := int(math.Ceil(math.Log2(float64(len(shuffled)))))

	matches := make([]*models.Match, 0)
	currentRound := firstRound
	for roundNumber := 1; roundNumber < totalRounds; roundNumber++ {
		nextRoundLabel := roundForStage(totalRounds - (roundNumber + 1))
		nextRound := make([]*models.Match, 0, (len(currentRound)+1)/2)
		for i := 0; i < (len(currentRound)+1)/2; i++ {
			nextRound = append(nextRound, &models.Match{
				TournamentID:   tournament.ID,
				Round:          nextRoundLabel,
				Status:         models.MatchPending,
				BracketID:      nextBracketID(),
				IsBestOfSeries: isSeries,
			})
		}
		for i, match := range currentRound {
			match.NextMatchBracketID = nextRound[i/2].BracketID
		}
		matches = append(matches, currentRound...)
		currentRound = nextRound
	}
	matches = append(matches, currentRound...)

	return matches, nil
}

// GeneratePlayoffBracket is the knockout stage that follows a group phase:
// the same algorithm, invoked with the teams that finished in the advancing
// positions of their groups, concatenated in group order.
func (g *EliminationGenerator) GeneratePlayoffBracket(tournament *models.Tournament, advancing []models.Team) ([]*models.Match, error) {
	return g.GenerateBracket(tournament, advancing)
}
