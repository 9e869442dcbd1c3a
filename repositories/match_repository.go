package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beachcup/tournament-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchTeamInvalid     = errors.New("match team conflict or invalid")
	ErrMatchCategoryInvalid = errors.New("match category conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByCategory(ctx context.Context, categoryID int, stage *models.MatchStage, status *models.MatchStatus) ([]*models.Match, error)
	// UpdateResult записывает партии, статус и победителя.
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	// UpdateTeams заполняет слоты участников (продвижение по сетке).
	UpdateTeams(ctx context.Context, exec SQLExecutor, matchID int, team1ID, team2ID *int) error
	DeleteByCategory(ctx context.Context, exec SQLExecutor, categoryID int) error
	DeleteKnockoutByCategory(ctx context.Context, exec SQLExecutor, categoryID int) error
	MaxMatchNumber(ctx context.Context, exec SQLExecutor, categoryID int) (int, error)
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

const matchColumns = `id, category_id, team1_id, team2_id, stage, status, match_number, round_number, group_name, court_number, scheduled_time,
	score_t1_s1, score_t2_s1, score_t1_s2, score_t2_s2, score_t1_s3, score_t2_s3, winner_id, created_at`

// Партии хранятся шестью колонками (best of 3, как в протоколе матча);
// в модели они собираются в срез Sets, хвостовые 0:0 отбрасываются.
func setsToColumns(sets []models.SetScore) [6]int {
	var cols [6]int
	for i, s := range sets {
		if i >= 3 {
			break
		}
		cols[i*2] = s.Team1
		cols[i*2+1] = s.Team2
	}
	return cols
}

func columnsToSets(cols [6]int) []models.SetScore {
	sets := []models.SetScore{
		{Team1: cols[0], Team2: cols[1]},
		{Team1: cols[2], Team2: cols[3]},
		{Team1: cols[4], Team2: cols[5]},
	}
	for len(sets) > 0 {
		last := sets[len(sets)-1]
		if last.Team1 != 0 || last.Team2 != 0 {
			break
		}
		sets = sets[:len(sets)-1]
	}
	return sets
}

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var cols [6]int
	err := row.Scan(
		&m.ID, &m.CategoryID, &m.Team1ID, &m.Team2ID, &m.Stage, &m.Status,
		&m.MatchNumber, &m.RoundNumber, &m.GroupName, &m.CourtNumber, &m.ScheduledTime,
		&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5],
		&m.WinnerID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Sets = columnsToSets(cols)
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(category_id, team1_id, team2_id, stage, status, match_number, round_number, group_name, court_number, scheduled_time,
			 score_t1_s1, score_t2_s1, score_t1_s2, score_t2_s2, score_t1_s3, score_t2_s3, winner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at`

	cols := setsToColumns(match.Sets)
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.CategoryID, match.Team1ID, match.Team2ID, match.Stage, match.Status,
		match.MatchNumber, match.RoundNumber, match.GroupName, match.CourtNumber, match.ScheduledTime,
		cols[0], cols[1], cols[2], cols[3], cols[4], cols[5],
		match.WinnerID,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByCategory(ctx context.Context, categoryID int, stageFilter *models.MatchStage, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE category_id = $1`)

	args := []interface{}{categoryID}
	placeholderIndex := 2

	if stageFilter != nil {
		queryBuilder.WriteString(" AND stage = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *stageFilter)
		placeholderIndex++
	}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
	}

	// id даёт порядок создания — на него опирается продвижение по сетке.
	queryBuilder.WriteString(" ORDER BY match_number ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for category %d: %w", categoryID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET score_t1_s1 = $1, score_t2_s1 = $2, score_t1_s2 = $3, score_t2_s2 = $4,
		    score_t1_s3 = $5, score_t2_s3 = $6, status = $7, winner_id = $8
		WHERE id = $9`

	cols := setsToColumns(match.Sets)
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		cols[0], cols[1], cols[2], cols[3], cols[4], cols[5],
		match.Status, match.WinnerID, match.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateTeams(ctx context.Context, exec SQLExecutor, matchID int, team1ID, team2ID *int) error {
	query := `UPDATE matches SET team1_id = $1, team2_id = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, team1ID, team2ID, matchID)
	if err != nil {
		return fmt.Errorf("UpdateTeams: failed for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByCategory(ctx context.Context, exec SQLExecutor, categoryID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE category_id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("DeleteByCategory: failed for category %d: %w", categoryID, err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteKnockoutByCategory(ctx context.Context, exec SQLExecutor, categoryID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx,
		`DELETE FROM matches WHERE category_id = $1 AND stage <> $2`, categoryID, models.StageGroup)
	if err != nil {
		return fmt.Errorf("DeleteKnockoutByCategory: failed for category %d: %w", categoryID, err)
	}
	return nil
}

func (r *postgresMatchRepository) MaxMatchNumber(ctx context.Context, exec SQLExecutor, categoryID int) (int, error) {
	var max int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(match_number), 0) FROM matches WHERE category_id = $1`, categoryID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("MaxMatchNumber: failed for category %d: %w", categoryID, err)
	}
	return max, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_category_id_fkey":
			return ErrMatchCategoryInvalid
		case "matches_team1_id_fkey", "matches_team2_id_fkey", "matches_winner_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return err
}
