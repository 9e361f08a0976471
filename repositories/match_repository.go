package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/openliga/tournament-engine/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchTeamInvalid       = errors.New("match team conflict or invalid")
	ErrMatchBracketIDConflict = errors.New("bracket id already exists for this tournament")
)

// ListMatchesFilter narrows ListByTournament. Nil fields are not applied.
type ListMatchesFilter struct {
	Round    *models.Round
	Group    *string
	Matchday *int
	Status   *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row for the duration of the surrounding
	// transaction so two result submissions cannot interleave.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByBracketID locates an elimination match by its bracket ID within a
	// tournament. With forUpdate the row is locked for the duration of the
	// surrounding transaction, serializing concurrent slot assignment.
	GetByBracketID(ctx context.Context, exec SQLExecutor, tournamentID int, bracketID string, forUpdate bool) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
	// DeleteEliminationByTournament removes bracket matches only, leaving the
	// group stage intact. Used when a playoff bracket is regenerated.
	DeleteEliminationByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, group_label, round, matchday, team1_id, team2_id,
	score_team1, score_team2, winner_id, status, bracket_id, next_match_bracket_id,
	is_best_of_series, series_games, series_score, series_winner_id,
	match_time, location, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	games, err := marshalSeriesGames(match.SeriesGames)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches (
			tournament_id, group_label, round, matchday, team1_id, team2_id,
			score_team1, score_team2, winner_id, status, bracket_id, next_match_bracket_id,
			is_best_of_series, series_games, series_score, series_winner_id, match_time, location
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	err = executor.QueryRowContext(ctx, query,
		match.TournamentID, match.Group, match.Round, match.Matchday,
		match.Team1ID, match.Team2ID, match.ScoreTeam1, match.ScoreTeam2,
		match.WinnerID, match.Status, match.BracketID, match.NextMatchBracketID,
		match.IsBestOfSeries, games, match.SeriesScore, match.SeriesWinnerID,
		match.MatchTime, match.Location,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

// CreateBatch inserts a generated stage's matches through one prepared
// statement. It is meant to run inside the caller's transaction so a failed
// insert rolls the whole stage back.
func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	for _, match := range matches {
		if err := r.Create(ctx, exec, match); err != nil {
			return fmt.Errorf("batch insert failed at bracket %v: %w", match.BracketID, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	match, err := r.scanMatch(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) GetByBracketID(ctx context.Context, exec SQLExecutor, tournamentID int, bracketID string, forUpdate bool) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND bracket_id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	match, err := r.scanMatch(executor.QueryRowContext(ctx, query, tournamentID, bracketID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s of tournament %d: %w", bracketID, tournamentID, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	addFilter := func(column string, value interface{}) {
		queryBuilder.WriteString(" AND " + column + " = $" + strconv.Itoa(len(args)+1))
		args = append(args, value)
	}
	if filter.Round != nil {
		addFilter("round", *filter.Round)
	}
	if filter.Group != nil {
		addFilter("group_label", *filter.Group)
	}
	if filter.Matchday != nil {
		addFilter("matchday", *filter.Matchday)
	}
	if filter.Status != nil {
		addFilter("status", *filter.Status)
	}
	queryBuilder.WriteString(" ORDER BY id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	games, err := marshalSeriesGames(match.SeriesGames)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches SET
			team1_id = $1, team2_id = $2, score_team1 = $3, score_team2 = $4,
			winner_id = $5, status = $6, matchday = $7, series_games = $8,
			series_score = $9, series_winner_id = $10, match_time = $11, location = $12
		WHERE id = $13`

	result, err := executor.ExecContext(ctx, query,
		match.Team1ID, match.Team2ID, match.ScoreTeam1, match.ScoreTeam2,
		match.WinnerID, match.Status, match.Matchday, games,
		match.SeriesScore, match.SeriesWinnerID, match.MatchTime, match.Location,
		match.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	return err
}

func (r *postgresMatchRepository) DeleteEliminationByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM matches WHERE tournament_id = $1 AND round <> $2`,
		tournamentID, models.RoundGroup)
	return err
}

func (r *postgresMatchRepository) scanMatch(scanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	match := &models.Match{}
	var games []byte
	err := scanner.Scan(
		&match.ID, &match.TournamentID, &match.Group, &match.Round, &match.Matchday,
		&match.Team1ID, &match.Team2ID, &match.ScoreTeam1, &match.ScoreTeam2,
		&match.WinnerID, &match.Status, &match.BracketID, &match.NextMatchBracketID,
		&match.IsBestOfSeries, &games, &match.SeriesScore, &match.SeriesWinnerID,
		&match.MatchTime, &match.Location, &match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(games) > 0 {
		if err := json.Unmarshal(games, &match.SeriesGames); err != nil {
			return nil, fmt.Errorf("failed to decode series games for match %d: %w", match.ID, err)
		}
	}
	return match, nil
}

func marshalSeriesGames(games []models.SeriesGame) ([]byte, error) {
	if games == nil {
		games = []models.SeriesGame{}
	}
	data, err := json.Marshal(games)
	if err != nil {
		return nil, fmt.Errorf("failed to encode series games: %w", err)
	}
	return data, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_team1_id_fkey", "matches_team2_id_fkey", "matches_winner_id_fkey", "matches_series_winner_id_fkey":
			return ErrMatchTeamInvalid
		case "matches_tournament_bracket_uidx":
			return ErrMatchBracketIDConflict
		}
	}
	return err
}
