package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/openliga/tournament-engine/models"
)

var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTournamentNameExists = errors.New("tournament name already exists")
	ErrTournamentInvalidRef = errors.New("tournament references a missing row")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID int) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, organizer_id, format, group_stage_settings,
	best_of_matches, scoring_rules, registration_start, registration_end,
	start_date, end_date, max_teams, status, winner_team_id, logo_key, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	settings, err := marshalNullableJSON(t.GroupStageSettings)
	if err != nil {
		return err
	}
	scoring, err := marshalNullableJSON(t.Scoring)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tournaments (
			name, description, organizer_id, format, group_stage_settings,
			best_of_matches, scoring_rules, registration_start, registration_end,
			start_date, end_date, max_teams, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.OrganizerID, t.Format, settings,
		t.BestOfMatches, scoring, t.RegistrationStart, t.RegistrationEnd,
		t.StartDate, t.EndDate, t.MaxTeams, t.Status,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	t, err := r.scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments`
	args := []interface{}{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY start_date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	settings, err := marshalNullableJSON(t.GroupStageSettings)
	if err != nil {
		return err
	}
	scoring, err := marshalNullableJSON(t.Scoring)
	if err != nil {
		return err
	}

	query := `
		UPDATE tournaments SET
			name = $1, description = $2, format = $3, group_stage_settings = $4,
			best_of_matches = $5, scoring_rules = $6, registration_start = $7,
			registration_end = $8, start_date = $9, end_date = $10, max_teams = $11,
			status = $12, winner_team_id = $13, logo_key = $14
		WHERE id = $15`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.Description, t.Format, settings,
		t.BestOfMatches, scoring, t.RegistrationStart,
		t.RegistrationEnd, t.StartDate, t.EndDate, t.MaxTeams,
		t.Status, t.WinnerTeamID, t.LogoKey, t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET winner_team_id = $1, status = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, winnerTeamID, models.StatusCompleted, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) scanTournament(scanner interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	var settings, scoring []byte
	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.Format, &settings,
		&t.BestOfMatches, &scoring, &t.RegistrationStart, &t.RegistrationEnd,
		&t.StartDate, &t.EndDate, &t.MaxTeams, &t.Status, &t.WinnerTeamID,
		&t.LogoKey, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		t.GroupStageSettings = &models.GroupStageSettings{}
		if err := json.Unmarshal(settings, t.GroupStageSettings); err != nil {
			return nil, fmt.Errorf("failed to decode group stage settings for tournament %d: %w", t.ID, err)
		}
	}
	if len(scoring) > 0 {
		t.Scoring = &models.ScoringRules{}
		if err := json.Unmarshal(scoring, t.Scoring); err != nil {
			return nil, fmt.Errorf("failed to decode scoring rules for tournament %d: %w", t.ID, err)
		}
	}
	return t, nil
}

// marshalNullableJSON renders v for a nullable jsonb column, keeping NULL for
// nil pointers rather than the string "null".
func marshalNullableJSON(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch typed := v.(type) {
	case *models.GroupStageSettings:
		if typed == nil {
			return nil, nil
		}
	case *models.ScoringRules:
		if typed == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jsonb value: %w", err)
	}
	return data, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "tournaments_name_key":
			return ErrTournamentNameExists
		case "tournaments_organizer_id_fkey", "tournaments_winner_team_id_fkey":
			return ErrTournamentInvalidRef
		}
	}
	return err
}
