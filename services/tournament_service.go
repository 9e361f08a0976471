package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/repositories"
	"github.com/openliga/tournament-engine/storage"
)

type CreateTournamentInput struct {
	Name               string                     `json:"name"`
	Description        *string                    `json:"description,omitempty"`
	Format             models.TournamentFormat    `json:"format"`
	GroupStageSettings *models.GroupStageSettings `json:"group_stage_settings,omitempty"`
	BestOfMatches      int                        `json:"best_of_matches"`
	Scoring            *models.ScoringRules       `json:"scoring,omitempty"`
	RegistrationStart  time.Time                  `json:"registration_start"`
	RegistrationEnd    time.Time                  `json:"registration_end"`
	StartDate          time.Time                  `json:"start_date"`
	EndDate            time.Time                  `json:"end_date"`
	MaxTeams           int                        `json:"max_teams"`
}

type UpdateTournamentInput struct {
	Name              *string              `json:"name,omitempty"`
	Description       *string              `json:"description,omitempty"`
	BestOfMatches     *int                 `json:"best_of_matches,omitempty"`
	Scoring           *models.ScoringRules `json:"scoring,omitempty"`
	RegistrationStart *time.Time           `json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time           `json:"registration_end,omitempty"`
	StartDate         *time.Time           `json:"start_date,omitempty"`
	EndDate           *time.Time           `json:"end_date,omitempty"`
	MaxTeams          *int                 `json:"max_teams,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// GetWithDetails loads the tournament together with its teams and
	// matches, fetched concurrently.
	GetWithDetails(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	Update(ctx context.Context, id int, currentUser *models.User, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, id int, currentUser *models.User, status models.TournamentStatus) (*models.Tournament, error)
	Delete(ctx context.Context, id int, currentUser *models.User) error
	UploadLogo(ctx context.Context, id int, currentUser *models.User, contentType string, file io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

// Allowed lifecycle transitions. Canceled is reachable from any state
// except completed.
var statusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusComingSoon:   {models.StatusRegistration, models.StatusCanceled},
	models.StatusRegistration: {models.StatusInProgress, models.StatusCanceled},
	models.StatusInProgress:   {models.StatusCompleted, models.StatusCanceled},
}

func transitionAllowed(from, to models.TournamentStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	switch input.Format {
	case models.FormatGroupStage, models.FormatElimination:
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrValidationFailed, input.Format)
	}
	if !input.RegistrationEnd.After(input.RegistrationStart) {
		return nil, ErrTournamentInvalidRegDate
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrTournamentInvalidDateRange
	}
	if input.MaxTeams <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.Format == models.FormatGroupStage && input.GroupStageSettings == nil {
		return nil, fmt.Errorf("%w: group stage settings are required for group-stage format", ErrValidationFailed)
	}
	bestOf := input.BestOfMatches
	if bestOf < 1 {
		bestOf = 1
	}

	status := models.StatusComingSoon
	if !time.Now().Before(input.RegistrationStart) {
		status = models.StatusRegistration
	}

	tournament := &models.Tournament{
		Name:               input.Name,
		Description:        input.Description,
		OrganizerID:        organizerID,
		Format:             input.Format,
		GroupStageSettings: input.GroupStageSettings,
		BestOfMatches:      bestOf,
		Scoring:            input.Scoring,
		RegistrationStart:  input.RegistrationStart,
		RegistrationEnd:    input.RegistrationEnd,
		StartDate:          input.StartDate,
		EndDate:            input.EndDate,
		MaxTeams:           input.MaxTeams,
		Status:             status,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameExists) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("format", string(tournament.Format)))
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	populateTournamentLogoURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) GetWithDetails(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}
		tournament.Teams = make([]models.Team, 0, len(teams))
		for _, team := range teams {
			populateTeamLogoURL(team, s.uploader)
			tournament.Teams = append(tournament.Teams, *team)
		}
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, id, repositories.ListMatchesFilter{})
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		tournament.Matches = make([]models.Match, 0, len(matches))
		for _, match := range matches {
			tournament.Matches = append(tournament.Matches, *match)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d details: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, tournament := range tournaments {
		populateTournamentLogoURL(tournament, s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, id int, currentUser *models.User, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.authorizeOrganizer(ctx, id, currentUser)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.StatusInProgress || tournament.Status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: cannot edit a %s tournament", ErrTournamentInvalidStatus, tournament.Status)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
		}
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.BestOfMatches != nil {
		if *input.BestOfMatches < 1 {
			return nil, fmt.Errorf("%w: best-of must be at least 1", ErrValidationFailed)
		}
		tournament.BestOfMatches = *input.BestOfMatches
	}
	if input.Scoring != nil {
		tournament.Scoring = input.Scoring
	}
	if input.RegistrationStart != nil {
		tournament.RegistrationStart = *input.RegistrationStart
	}
	if input.RegistrationEnd != nil {
		tournament.RegistrationEnd = *input.RegistrationEnd
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = *input.EndDate
	}
	if input.MaxTeams != nil {
		if *input.MaxTeams <= 0 {
			return nil, ErrTournamentInvalidCapacity
		}
		tournament.MaxTeams = *input.MaxTeams
	}
	if !tournament.RegistrationEnd.After(tournament.RegistrationStart) {
		return nil, ErrTournamentInvalidRegDate
	}
	if !tournament.EndDate.After(tournament.StartDate) {
		return nil, ErrTournamentInvalidDateRange
	}

	if err := s.tournamentRepo.Update(ctx, nil, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameExists) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	populateTournamentLogoURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, id int, currentUser *models.User, status models.TournamentStatus) (*models.Tournament, error) {
	switch status {
	case models.StatusComingSoon, models.StatusRegistration, models.StatusInProgress,
		models.StatusCompleted, models.StatusCanceled:
	default:
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.authorizeOrganizer(ctx, id, currentUser)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	tournament.Status = status
	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("status", string(status)))
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id int, currentUser *models.User) error {
	tournament, err := s.authorizeOrganizer(ctx, id, currentUser)
	if err != nil {
		return err
	}
	if tournament.Status == models.StatusInProgress {
		return fmt.Errorf("%w: cancel the tournament before deleting it", ErrTournamentInvalidStatus)
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return s.mapError(err)
	}
	if tournament.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
			s.logger.Warn("failed to delete tournament logo",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, currentUser *models.User, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}
	tournament, err := s.authorizeOrganizer(ctx, id, currentUser)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("tournaments/%d/logo%s", id, ext)

	oldKey := tournament.LogoKey
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}

	tournament.LogoKey = &result.Key
	if err := s.tournamentRepo.Update(ctx, nil, tournament); err != nil {
		return nil, fmt.Errorf("failed to save tournament %d logo key: %w", id, err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous tournament logo",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	populateTournamentLogoURL(tournament, s.uploader)
	return tournament, nil
}

// authorizeOrganizer loads the tournament and checks the caller owns it or
// is an admin.
func (s *tournamentService) authorizeOrganizer(ctx context.Context, id int, currentUser *models.User) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	if currentUser == nil {
		return nil, ErrAuthenticationFailed
	}
	if currentUser.Role != models.RoleAdmin && tournament.OrganizerID != currentUser.ID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *tournamentService) mapError(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}
