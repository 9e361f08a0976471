package brackets

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/openliga/tournament-engine/models"
)

var (
	ErrAlreadyDecided = errors.New("match result is already decided")
	ErrTeamsNotSet    = errors.New("match does not have both teams assigned")
	ErrSlotConflict   = errors.New("team slot conflict in next bracket match")
)

// SeriesResolver aggregates per-game results of a best-of-N match into a
// series winner. The random source only matters for the exhausted-series
// exact tie, where the winner is drawn uniformly; inject a seeded source
// for reproducible tests, or pass nil for a time-seeded one.
type SeriesResolver struct {
	rnd *rand.Rand
}

func NewSeriesResolver(rnd *rand.Rand) *SeriesResolver {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SeriesResolver{rnd: rnd}
}

// AddGameResult appends one game to the match's series and recomputes its
// state. Aggregate scores are always the sum of all games. The series
// completes when either team reaches bestOf/2+1 game wins, or when bestOf
// games have been played; an exhausted series falls back to the aggregate
// score, and an exact aggregate tie is decided by coin flip. Until then the
// match stays in-progress. The caller is responsible for propagating a
// completed match's winner into the next bracket match.
func (r *SeriesResolver) AddGameResult(match *models.Match, tournament *models.Tournament, scoreTeam1, scoreTeam2 int) error {
	if match.Decided() {
		return fmt.Errorf("%w: match %d has status %s", ErrAlreadyDecided, match.ID, match.Status)
	}
	if match.Team1ID == nil || match.Team2ID == nil {
		return fmt.Errorf("%w: match %d", ErrTeamsNotSet, match.ID)
	}

	game := models.SeriesGame{
		ScoreTeam1: scoreTeam1,
		ScoreTeam2: scoreTeam2,
		Date:       time.Now(),
	}
	switch {
	case scoreTeam1 > scoreTeam2:
		game.WinnerID = match.Team1ID
	case scoreTeam1 < scoreTeam2:
		game.WinnerID = match.Team2ID
	}
	match.SeriesGames = append(match.SeriesGames, game)

	var total1, total2, wins1, wins2 int
	for _, played := range match.SeriesGames {
		total1 += played.ScoreTeam1
		total2 += played.ScoreTeam2
		if played.WinnerID != nil {
			switch *played.WinnerID {
			case *match.Team1ID:
				wins1++
			case *match.Team2ID:
				wins2++
			}
		}
	}
	match.ScoreTeam1 = &total1
	match.ScoreTeam2 = &total2

	score := fmt.Sprintf("%d-%d | %d-%d", wins1, wins2, total1, total2)
	match.SeriesScore = &score

	bestOf := tournament.BestOfMatches
	if bestOf < 1 {
		bestOf = 1
	}
	requiredWins := tournament.RequiredWins()

	switch {
	case wins1 >= requiredWins:
		r.completeSeries(match, *match.Team1ID)
	case wins2 >= requiredWins:
		r.completeSeries(match, *match.Team2ID)
	case len(match.SeriesGames) >= bestOf:
		// Exhausted without a decisive game count: aggregate score decides,
		// exact tie is a coin flip.
		switch {
		case total1 > total2:
			r.completeSeries(match, *match.Team1ID)
		case total2 > total1:
			r.completeSeries(match, *match.Team2ID)
		default:
			candidates := [2]int{*match.Team1ID, *match.Team2ID}
			r.completeSeries(match, candidates[r.rnd.Intn(2)])
		}
	default:
		match.Status = models.MatchInProgress
	}

	return nil
}

func (r *SeriesResolver) completeSeries(match *models.Match, winnerID int) {
	w := winnerID
	match.SeriesWinnerID = &w
	match.WinnerID = &w
	match.Status = models.MatchCompleted
}

// ResolveSingleResult records a one-off score for a non-series match: the
// higher-scoring team wins, a tie leaves the winner nil (a draw in group
// play), and the match completes.
func ResolveSingleResult(match *models.Match, scoreTeam1, scoreTeam2 int) error {
	if match.Decided() {
		return fmt.Errorf("%w: match %d has status %s", ErrAlreadyDecided, match.ID, match.Status)
	}
	if match.Team1ID == nil || match.Team2ID == nil {
		return fmt.Errorf("%w: match %d", ErrTeamsNotSet, match.ID)
	}

	s1, s2 := scoreTeam1, scoreTeam2
	match.ScoreTeam1 = &s1
	match.ScoreTeam2 = &s2
	switch {
	case scoreTeam1 > scoreTeam2:
		match.WinnerID = match.Team1ID
	case scoreTeam1 < scoreTeam2:
		match.WinnerID = match.Team2ID
	default:
		match.WinnerID = nil
	}
	match.Status = models.MatchCompleted
	return nil
}

// AssignWinnerToNextMatch places the advancing team into the first open
// slot of its downstream match: team1 if empty, otherwise team2. Assigning
// the same team into both slots, or assigning into a match whose slots are
// both taken, fails with ErrSlotConflict instead of overwriting. Once both
// slots are filled a pending match becomes scheduled.
func AssignWinnerToNextMatch(next *models.Match, winnerID int) error {
	switch {
	case next.Team1ID == nil:
		if next.Team2ID != nil && *next.Team2ID == winnerID {
			return fmt.Errorf("%w: team %d already holds the second slot of match %s",
				ErrSlotConflict, winnerID, derefBracketID(next))
		}
		w := winnerID
		next.Team1ID = &w
	case next.Team2ID == nil:
		if *next.Team1ID == winnerID {
			return fmt.Errorf("%w: team %d already holds the first slot of match %s",
				ErrSlotConflict, winnerID, derefBracketID(next))
		}
		w := winnerID
		next.Team2ID = &w
	default:
		return fmt.Errorf("%w: both slots of match %s are taken",
			ErrSlotConflict, derefBracketID(next))
	}

	if next.Team1ID != nil && next.Team2ID != nil && next.Status == models.MatchPending {
		next.Status = models.MatchScheduled
	}
	return nil
}

func derefBracketID(match *models.Match) string {
	if match.BracketID == nil {
		return "?"
	}
	return *match.BracketID
}
