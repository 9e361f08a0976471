package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/openliga/tournament-engine/brackets"
	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/repositories"
)

// GroupStandings is one group's ranked table.
type GroupStandings struct {
	Group     string            `json:"group"`
	Standings []models.Standing `json:"standings"`
}

type StandingsService interface {
	// GetGroupStandings returns every group's table in label order, computed
	// from the tournament's stored group matches.
	GetGroupStandings(ctx context.Context, tournamentID int) ([]GroupStandings, error)
}

type standingsService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
}

func NewStandingsService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
) StandingsService {
	return &standingsService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
	}
}

func (s *standingsService) GetGroupStandings(ctx context.Context, tournamentID int) ([]GroupStandings, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Format != models.FormatGroupStage {
		return nil, fmt.Errorf("%w: standings require a group-stage tournament", ErrInvalidFormat)
	}

	round := models.RoundGroup
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, repositories.ListMatchesFilter{Round: &round})
	if err != nil {
		return nil, fmt.Errorf("failed to list group matches for tournament %d: %w", tournamentID, err)
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	teamsByID := make(map[int]*models.Team, len(teams))
	for _, team := range teams {
		teamsByID[team.ID] = team
	}

	byGroup := partitionByGroup(matches)
	result := make([]GroupStandings, 0, len(byGroup))
	for _, label := range sortedGroupLabels(byGroup) {
		standings := brackets.CalculateGroupStandings(byGroup[label], tournament)
		for i := range standings {
			standings[i].Team = teamsByID[standings[i].TeamID]
		}
		result = append(result, GroupStandings{Group: label, Standings: standings})
	}
	return result, nil
}
