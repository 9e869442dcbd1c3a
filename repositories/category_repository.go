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
	ErrCategoryNotFound          = errors.New("category not found")
	ErrCategoryTournamentInvalid = errors.New("category tournament conflict or invalid")
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id int) (*models.Category, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error)
	Delete(ctx context.Context, id int) error
}

type postgresCategoryRepository struct {
	db *sql.DB
}

func NewPostgresCategoryRepository(db *sql.DB) CategoryRepository {
	return &postgresCategoryRepository{db: db}
}

func (r *postgresCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (tournament_id, name, gender, min_teams, max_teams)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		c.TournamentID, c.Name, c.Gender, c.MinTeams, c.MaxTeams,
	).Scan(&c.ID)

	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Constraint == "categories_tournament_id_fkey" {
			return ErrCategoryTournamentInvalid
		}
	}
	return err
}

func (r *postgresCategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	query := `SELECT id, tournament_id, name, gender, min_teams, max_teams FROM categories WHERE id = $1`
	c := &models.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.TournamentID, &c.Name, &c.Gender, &c.MinTeams, &c.MaxTeams,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to scan category %d: %w", id, err)
	}
	return c, nil
}

func (r *postgresCategoryRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error) {
	query := `SELECT id, tournament_id, name, gender, min_teams, max_teams FROM categories WHERE tournament_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.TournamentID, &c.Name, &c.Gender, &c.MinTeams, &c.MaxTeams); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *postgresCategoryRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCategoryNotFound)
}
