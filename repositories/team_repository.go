package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/beachcup/tournament-system/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrTeamNameConflict    = errors.New("team name already taken in this category")
	ErrTeamCategoryInvalid = errors.New("team category conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByAccessCode(ctx context.Context, code string) (*models.Team, error)
	ListByCategory(ctx context.Context, categoryID int, status *models.TeamStatus) ([]*models.Team, error)
	UpdateStatus(ctx context.Context, id int, status models.TeamStatus) error
	// AssignGroup записывает группу и обнуляет групповую статистику команды —
	// единое действие жеребьёвки.
	AssignGroup(ctx context.Context, exec SQLExecutor, teamID int, groupName string) error
	UpdateStats(ctx context.Context, exec SQLExecutor, team *models.Team) error
	Delete(ctx context.Context, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, category_id, name, player1_name, player2_name, seed, status, group_name, access_code,
	wins, losses, sets_won, sets_lost, points_scored, points_conceded, created_at`

func scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	t := &models.Team{}
	err := row.Scan(
		&t.ID, &t.CategoryID, &t.Name, &t.Player1Name, &t.Player2Name, &t.Seed, &t.Status,
		&t.GroupName, &t.AccessCode,
		&t.Wins, &t.Losses, &t.SetsWon, &t.SetsLost, &t.PointsScored, &t.PointsConceded,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (category_id, name, player1_name, player2_name, seed, status, access_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		team.CategoryID, team.Name, team.Player1Name, team.Player2Name, team.Seed, team.Status, team.AccessCode,
	).Scan(&team.ID, &team.CreatedAt)

	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) GetByAccessCode(ctx context.Context, code string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE access_code = $1`
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team by access code: %w", err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByCategory(ctx context.Context, categoryID int, status *models.TeamStatus) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE category_id = $1`
	args := []interface{}{categoryID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams for category %d: %w", categoryID, err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) UpdateStatus(ctx context.Context, id int, status models.TeamStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE teams SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) AssignGroup(ctx context.Context, exec SQLExecutor, teamID int, groupName string) error {
	query := `
		UPDATE teams
		SET group_name = $1,
		    wins = 0, losses = 0, sets_won = 0, sets_lost = 0, points_scored = 0, points_conceded = 0
		WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, groupName, teamID)
	if err != nil {
		return fmt.Errorf("AssignGroup: failed for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateStats(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		UPDATE teams
		SET wins = $1, losses = $2, sets_won = $3, sets_lost = $4, points_scored = $5, points_conceded = $6
		WHERE id = $7`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		team.Wins, team.Losses, team.SetsWon, team.SetsLost, team.PointsScored, team.PointsConceded, team.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateStats: failed for team %d: %w", team.ID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "teams_category_id_name_key":
			return ErrTeamNameConflict
		case "teams_category_id_fkey":
			return ErrTeamCategoryInvalid
		}
	}
	return err
}
