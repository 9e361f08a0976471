package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/repositories"
	"github.com/openliga/tournament-engine/storage"
)

type CreateTeamInput struct {
	Name string `json:"name"`
}

type TeamService interface {
	// Register adds a team to a tournament while its registration window is
	// open and capacity remains.
	Register(ctx context.Context, tournamentID int, currentUser *models.User, input CreateTeamInput) (*models.Team, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)
	Rename(ctx context.Context, id int, currentUser *models.User, name string) (*models.Team, error)
	Withdraw(ctx context.Context, id int, currentUser *models.User) error
	UploadLogo(ctx context.Context, id int, currentUser *models.User, contentType string, file io.Reader) (*models.Team, error)
}

type teamService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTeamService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *teamService) Register(ctx context.Context, tournamentID int, currentUser *models.User, input CreateTeamInput) (*models.Team, error) {
	if input.Name == "" {
		return nil, ErrTeamNameRequired
	}
	if currentUser == nil {
		return nil, ErrAuthenticationFailed
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	count, err := s.teamRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count teams for tournament %d: %w", tournamentID, err)
	}
	if count >= tournament.MaxTeams {
		return nil, ErrTournamentFull
	}

	captainID := currentUser.ID
	team := &models.Team{
		TournamentID: tournamentID,
		Name:         input.Name,
		CaptainID:    &captainID,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameExists) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to register team: %w", err)
	}

	s.logger.Info("team registered",
		slog.Int("team_id", team.ID),
		slog.Int("tournament_id", tournamentID))
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

func (s *teamService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	for _, team := range teams {
		populateTeamLogoURL(team, s.uploader)
	}
	return teams, nil
}

func (s *teamService) Rename(ctx context.Context, id int, currentUser *models.User, name string) (*models.Team, error) {
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	team, err := s.authorizeCaptain(ctx, id, currentUser)
	if err != nil {
		return nil, err
	}
	team.Name = name
	if err := s.teamRepo.Update(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameExists) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to rename team %d: %w", id, err)
	}
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

func (s *teamService) Withdraw(ctx context.Context, id int, currentUser *models.User) error {
	team, err := s.authorizeCaptain(ctx, id, currentUser)
	if err != nil {
		return err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, team.TournamentID)
	if err != nil && !errors.Is(err, repositories.ErrTournamentNotFound) {
		return err
	}
	// Teams are locked in once fixtures exist.
	if tournament != nil && (tournament.Status == models.StatusInProgress || tournament.Status == models.StatusCompleted) {
		return ErrTournamentAlreadyStarted
	}

	if err := s.teamRepo.Delete(ctx, id); err != nil {
		return s.mapError(err)
	}
	if team.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.Warn("failed to delete team logo",
				slog.Int("team_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *teamService) UploadLogo(ctx context.Context, id int, currentUser *models.User, contentType string, file io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}
	team, err := s.authorizeCaptain(ctx, id, currentUser)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("teams/%d/logo%s", id, ext)

	oldKey := team.LogoKey
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	team.LogoKey = &result.Key
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to save team %d logo key: %w", id, err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous team logo",
				slog.Int("team_id", id), slog.Any("error", err))
		}
	}
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

func (s *teamService) authorizeCaptain(ctx context.Context, id int, currentUser *models.User) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	if currentUser == nil {
		return nil, ErrAuthenticationFailed
	}
	if currentUser.Role == models.RoleAdmin || currentUser.Role == models.RoleOrganizer {
		return team, nil
	}
	if team.CaptainID == nil || *team.CaptainID != currentUser.ID {
		return nil, ErrForbiddenOperation
	}
	return team, nil
}

func (s *teamService) mapError(err error) error {
	if errors.Is(err, repositories.ErrTeamNotFound) {
		return ErrTeamNotFound
	}
	return err
}
