package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openliga/tournament-engine/brackets"
	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/repositories"
)

var ErrGroupStageNotFinished = errors.New("group stage is not finished yet")

// Broadcaster pushes tournament events to connected websocket clients. The
// live hub satisfies it; services stay unaware of the transport.
type Broadcaster interface {
	BroadcastToTournament(tournamentID int, payload interface{})
}

// NopBroadcaster discards events. Used in tests and when the hub is disabled.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToTournament(int, interface{}) {}

type StageEvent struct {
	Type         string          `json:"type"`
	TournamentID int             `json:"tournament_id"`
	Matches      []*models.Match `json:"matches,omitempty"`
	Match        *models.Match   `json:"match,omitempty"`
}

// StageService generates tournament stages and persists them atomically:
// either the whole stage is written or nothing is.
type StageService interface {
	GenerateGroupStage(ctx context.Context, tournamentID int) ([]*models.Match, error)
	GenerateEliminationBracket(ctx context.Context, tournamentID int) ([]*models.Match, error)
	GeneratePlayoffBracket(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type stageService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	groupGen       *brackets.GroupStageGenerator
	elimGen        *brackets.EliminationGenerator
	hub            Broadcaster
	logger         *slog.Logger
}

func NewStageService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	groupGen *brackets.GroupStageGenerator,
	elimGen *brackets.EliminationGenerator,
	hub Broadcaster,
	logger *slog.Logger,
) StageService {
	if hub == nil {
		hub = NopBroadcaster{}
	}
	return &stageService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		groupGen:       groupGen,
		elimGen:        elimGen,
		hub:            hub,
		logger:         logger,
	}
}

func (s *stageService) GenerateGroupStage(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tournament, teams, err := s.loadForGeneration(ctx, tournamentID, models.FormatGroupStage)
	if err != nil {
		return nil, err
	}

	grouping, err := s.groupGen.GenerateGroups(tournament, teams)
	if err != nil {
		return nil, err
	}
	if len(grouping.Unassigned) > 0 {
		return nil, fmt.Errorf("%w: %d teams left without a group", brackets.ErrUnassignedTeams, len(grouping.Unassigned))
	}

	matches, err := s.groupGen.GenerateGroupStageMatches(tournament, grouping)
	if err != nil {
		return nil, err
	}

	if err := s.saveStage(ctx, tournament, matches, false); err != nil {
		return nil, err
	}

	s.logger.Info("group stage generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("groups", len(grouping.Groups)),
		slog.Int("matches", len(matches)))
	s.hub.BroadcastToTournament(tournamentID, StageEvent{
		Type: "group_stage_generated", TournamentID: tournamentID, Matches: matches,
	})
	return matches, nil
}

func (s *stageService) GenerateEliminationBracket(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tournament, teams, err := s.loadForGeneration(ctx, tournamentID, models.FormatElimination)
	if err != nil {
		return nil, err
	}

	matches, err := s.elimGen.GenerateBracket(tournament, teams)
	if err != nil {
		return nil, err
	}

	if err := s.saveStage(ctx, tournament, matches, false); err != nil {
		return nil, err
	}

	s.logger.Info("elimination bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("matches", len(matches)))
	s.hub.BroadcastToTournament(tournamentID, StageEvent{
		Type: "bracket_generated", TournamentID: tournamentID, Matches: matches,
	})
	return matches, nil
}

// GeneratePlayoffBracket builds the knockout phase of a group-stage
// tournament from the advancing teams of each finished group.
func (s *stageService) GeneratePlayoffBracket(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, s.mapTournamentError(err)
	}
	if tournament.Format != models.FormatGroupStage {
		return nil, fmt.Errorf("%w: playoffs require a group-stage tournament", ErrInvalidFormat)
	}
	if tournament.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: expected in-progress, got %s", ErrTournamentInvalidStatus, tournament.Status)
	}

	advancing, err := s.collectAdvancingTeams(ctx, tournament)
	if err != nil {
		return nil, err
	}
	if len(advancing) < 2 {
		return nil, fmt.Errorf("%w: %d advancing teams", ErrNotEnoughTeams, len(advancing))
	}

	matches, err := s.elimGen.GeneratePlayoffBracket(tournament, advancing)
	if err != nil {
		return nil, err
	}

	if err := s.saveStage(ctx, tournament, matches, true); err != nil {
		return nil, err
	}

	s.logger.Info("playoff bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("advancing_teams", len(advancing)),
		slog.Int("matches", len(matches)))
	s.hub.BroadcastToTournament(tournamentID, StageEvent{
		Type: "playoffs_generated", TournamentID: tournamentID, Matches: matches,
	})
	return matches, nil
}

// loadForGeneration fetches the tournament and its teams and enforces the
// generation preconditions shared by the initial stages: matching format,
// registration closed, tournament not yet started.
func (s *stageService) loadForGeneration(ctx context.Context, tournamentID int, format models.TournamentFormat) (*models.Tournament, []models.Team, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, nil, s.mapTournamentError(err)
	}
	if tournament.Format != format {
		return nil, nil, fmt.Errorf("%w: tournament format is %s", ErrInvalidFormat, tournament.Format)
	}
	now := time.Now()
	if now.Before(tournament.RegistrationEnd) {
		return nil, nil, fmt.Errorf("%w: registration closes at %s", ErrRegistrationStillOpen, tournament.RegistrationEnd.Format(time.RFC3339))
	}
	switch tournament.Status {
	case models.StatusInProgress:
		return nil, nil, ErrTournamentAlreadyStarted
	case models.StatusCompleted, models.StatusCanceled:
		return nil, nil, fmt.Errorf("%w: tournament is %s", ErrTournamentInvalidStatus, tournament.Status)
	}

	teamPtrs, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	if len(teamPtrs) < 2 {
		return nil, nil, fmt.Errorf("%w: minimum 2 required, found %d", ErrNotEnoughTeams, len(teamPtrs))
	}
	teams := make([]models.Team, 0, len(teamPtrs))
	for _, t := range teamPtrs {
		teams = append(teams, *t)
	}
	return tournament, teams, nil
}

// saveStage persists a freshly generated stage in one transaction. Any
// previous matches of the same scope are removed first so regeneration is
// idempotent.
func (s *stageService) saveStage(ctx context.Context, tournament *models.Tournament, matches []*models.Match, playoff bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stage transaction: %w", err)
	}
	defer tx.Rollback()

	if playoff {
		err = s.matchRepo.DeleteEliminationByTournament(ctx, tx, tournament.ID)
	} else {
		err = s.matchRepo.DeleteByTournament(ctx, tx, tournament.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to clear previous matches for tournament %d: %w", tournament.ID, err)
	}

	if err := s.matchRepo.CreateBatch(ctx, tx, matches); err != nil {
		return fmt.Errorf("failed to insert stage matches for tournament %d: %w", tournament.ID, err)
	}

	if !playoff && tournament.Status != models.StatusInProgress {
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournament.ID, models.StatusInProgress); err != nil {
			return fmt.Errorf("failed to mark tournament %d in progress: %w", tournament.ID, err)
		}
		tournament.Status = models.StatusInProgress
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stage transaction: %w", err)
	}
	return nil
}

// collectAdvancingTeams ranks every finished group and takes its top
// finishers in group label order.
func (s *stageService) collectAdvancingTeams(ctx context.Context, tournament *models.Tournament) ([]models.Team, error) {
	round := models.RoundGroup
	groupMatches, err := s.matchRepo.ListByTournament(ctx, tournament.ID, repositories.ListMatchesFilter{Round: &round})
	if err != nil {
		return nil, fmt.Errorf("failed to list group matches for tournament %d: %w", tournament.ID, err)
	}
	if len(groupMatches) == 0 {
		return nil, fmt.Errorf("%w: no group matches found", ErrGroupStageNotFinished)
	}
	for _, match := range groupMatches {
		if !match.Decided() {
			return nil, fmt.Errorf("%w: match %d is %s", ErrGroupStageNotFinished, match.ID, match.Status)
		}
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournament.ID, err)
	}
	teamsByID := make(map[int]models.Team, len(teams))
	for _, t := range teams {
		teamsByID[t.ID] = *t
	}

	advancingPerGroup := 1
	if tournament.GroupStageSettings != nil && tournament.GroupStageSettings.TeamsAdvancingPerGroup > 0 {
		advancingPerGroup = tournament.GroupStageSettings.TeamsAdvancingPerGroup
	}

	byGroup := partitionByGroup(groupMatches)
	advancing := make([]models.Team, 0, len(byGroup)*advancingPerGroup)
	for _, label := range sortedGroupLabels(byGroup) {
		standings := brackets.CalculateGroupStandings(byGroup[label], tournament)
		for _, row := range brackets.TopOfGroup(standings, advancingPerGroup) {
			team, ok := teamsByID[row.TeamID]
			if !ok {
				return nil, fmt.Errorf("standings reference unknown team %d in group %s", row.TeamID, label)
			}
			advancing = append(advancing, team)
		}
	}
	return advancing, nil
}

func (s *stageService) mapTournamentError(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}
