package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openliga/tournament-engine/brackets"
	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/repositories"
)

type MatchService interface {
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error)
	// SubmitResult records the final score of a standalone match. Draws are
	// allowed in group play; in a bracket the winner is pushed into the next
	// match inside the same transaction.
	SubmitResult(ctx context.Context, matchID int, scoreTeam1, scoreTeam2 int) (*models.Match, error)
	// AddSeriesGame records one game of a best-of series and resolves the
	// series when a side reaches the required wins or the games run out.
	AddSeriesGame(ctx context.Context, matchID int, scoreTeam1, scoreTeam2 int) (*models.Match, error)
	Reschedule(ctx context.Context, matchID int, update MatchScheduleUpdate) (*models.Match, error)
}

type MatchScheduleUpdate struct {
	MatchTime *string `json:"match_time,omitempty"`
	Location  *string `json:"location,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type matchService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	series         *brackets.SeriesResolver
	hub            Broadcaster
	logger         *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	series *brackets.SeriesResolver,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	if hub == nil {
		hub = NopBroadcaster{}
	}
	return &matchService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		series:         series,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, s.mapMatchError(err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) SubmitResult(ctx context.Context, matchID int, scoreTeam1, scoreTeam2 int) (*models.Match, error) {
	return s.applyResult(ctx, matchID, func(match *models.Match, _ *models.Tournament) error {
		if match.IsBestOfSeries {
			return ErrMatchIsSeries
		}
		return brackets.ResolveSingleResult(match, scoreTeam1, scoreTeam2)
	})
}

func (s *matchService) AddSeriesGame(ctx context.Context, matchID int, scoreTeam1, scoreTeam2 int) (*models.Match, error) {
	return s.applyResult(ctx, matchID, func(match *models.Match, tournament *models.Tournament) error {
		if !match.IsBestOfSeries {
			return ErrMatchNotInSeries
		}
		return s.series.AddGameResult(match, tournament, scoreTeam1, scoreTeam2)
	})
}

// applyResult runs one result mutation under a row lock on the match, then
// handles bracket progression before committing. The downstream match is
// locked too, so two semi-finals finishing at once cannot both claim the
// same final slot.
func (s *matchService) applyResult(ctx context.Context, matchID int, mutate func(*models.Match, *models.Tournament) error) (*models.Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin result transaction: %w", err)
	}
	defer tx.Rollback()

	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, s.mapMatchError(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	if err := mutate(match, tournament); err != nil {
		return nil, err
	}
	if err := s.matchRepo.Update(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to persist result for match %d: %w", matchID, err)
	}

	if err := s.progressWinner(ctx, tx, tournament, match); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit result transaction: %w", err)
	}

	s.logger.Info("match result recorded",
		slog.Int("match_id", match.ID),
		slog.Int("tournament_id", match.TournamentID),
		slog.String("status", string(match.Status)))
	s.hub.BroadcastToTournament(match.TournamentID, StageEvent{
		Type: "match_updated", TournamentID: match.TournamentID, Match: match,
	})
	return match, nil
}

// progressWinner advances a decided bracket match. A decided final crowns
// the tournament winner instead.
func (s *matchService) progressWinner(ctx context.Context, tx repositories.SQLExecutor, tournament *models.Tournament, match *models.Match) error {
	if !match.Decided() || match.WinnerID == nil || match.Round == models.RoundGroup {
		return nil
	}

	if match.NextMatchBracketID == nil {
		if err := s.tournamentRepo.SetWinner(ctx, tx, tournament.ID, *match.WinnerID); err != nil {
			return fmt.Errorf("failed to record tournament %d winner: %w", tournament.ID, err)
		}
		return nil
	}

	next, err := s.matchRepo.GetByBracketID(ctx, tx, tournament.ID, *match.NextMatchBracketID, true)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return fmt.Errorf("%w: next match %s missing for match %d", ErrMatchNotFound, *match.NextMatchBracketID, match.ID)
		}
		return err
	}
	if err := brackets.AssignWinnerToNextMatch(next, *match.WinnerID); err != nil {
		return fmt.Errorf("failed to advance winner of match %d: %w", match.ID, err)
	}
	if err := s.matchRepo.Update(ctx, tx, next); err != nil {
		return fmt.Errorf("failed to persist next match %d: %w", next.ID, err)
	}
	return nil
}

func (s *matchService) Reschedule(ctx context.Context, matchID int, update MatchScheduleUpdate) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, s.mapMatchError(err)
	}
	if match.Decided() {
		return nil, brackets.ErrAlreadyDecided
	}

	if update.MatchTime != nil {
		parsed, err := parseMatchTime(*update.MatchTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		match.MatchTime = parsed
	}
	if update.Location != nil {
		match.Location = update.Location
	}
	if update.Status != nil {
		status := models.MatchStatus(*update.Status)
		switch status {
		case models.MatchScheduled, models.MatchInProgress, models.MatchPostponed, models.MatchCancelled:
			match.Status = status
		default:
			return nil, fmt.Errorf("%w: status %q cannot be set directly", ErrValidationFailed, status)
		}
	}

	if err := s.matchRepo.Update(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to persist schedule for match %d: %w", matchID, err)
	}
	s.hub.BroadcastToTournament(match.TournamentID, StageEvent{
		Type: "match_updated", TournamentID: match.TournamentID, Match: match,
	})
	return match, nil
}

func (s *matchService) mapMatchError(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}
