package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/repositories"
)

type RegisterTeamInput struct {
	Name        string `json:"name"`
	Player1Name string `json:"player1_name"`
	Player2Name string `json:"player2_name"`
	Seed        *int   `json:"seed"`
}

type TeamService interface {
	// Register создаёт команду со статусом pending и выдаёт код доступа,
	// по которому пара может смотреть свои матчи без аккаунта.
	Register(ctx context.Context, categoryID int, input RegisterTeamInput) (*models.Team, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByAccessCode(ctx context.Context, code string) (*models.Team, error)
	ListByCategory(ctx context.Context, categoryID int, status *models.TeamStatus) ([]*models.Team, error)
	UpdateStatus(ctx context.Context, id, requesterID int, status models.TeamStatus) (*models.Team, error)
	Delete(ctx context.Context, id, requesterID int) error
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	categoryRepo   repositories.CategoryRepository
	tournamentRepo repositories.TournamentRepository
	logger         *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	categoryRepo repositories.CategoryRepository,
	tournamentRepo repositories.TournamentRepository,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		categoryRepo:   categoryRepo,
		tournamentRepo: tournamentRepo,
		logger:         logger,
	}
}

func (s *teamService) Register(ctx context.Context, categoryID int, input RegisterTeamInput) (*models.Team, error) {
	if input.Name == "" {
		return nil, ErrTeamNameRequired
	}
	if input.Player1Name == "" || input.Player2Name == "" {
		return nil, ErrPlayerNamesNeeded
	}

	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to load category %d: %w", categoryID, err)
	}

	// Регистрация открыта только пока турнир в статусе open.
	tournament, err := s.tournamentRepo.GetByID(ctx, category.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament %d: %w", category.TournamentID, err)
	}
	if tournament.Status != models.TournamentStatusOpen {
		return nil, ErrForbiddenOperation
	}

	teams, err := s.teamRepo.ListByCategory(ctx, categoryID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for category %d: %w", categoryID, err)
	}
	if len(teams) >= category.MaxTeams {
		return nil, ErrValidationFailed
	}

	team := &models.Team{
		CategoryID:  categoryID,
		Name:        input.Name,
		Player1Name: input.Player1Name,
		Player2Name: input.Player2Name,
		Seed:        input.Seed,
		Status:      models.TeamStatusPending,
		AccessCode:  generateRandomToken(8),
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("ошибка регистрации команды: %w", err)
	}

	s.logger.Info("team registered",
		slog.Int("team_id", team.ID),
		slog.Int("category_id", categoryID),
	)
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", id, err)
	}
	return team, nil
}

func (s *teamService) GetByAccessCode(ctx context.Context, code string) (*models.Team, error) {
	team, err := s.teamRepo.GetByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team by access code: %w", err)
	}
	return team, nil
}

func (s *teamService) ListByCategory(ctx context.Context, categoryID int, status *models.TeamStatus) ([]*models.Team, error) {
	teams, err := s.teamRepo.ListByCategory(ctx, categoryID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for category %d: %w", categoryID, err)
	}
	return teams, nil
}

func (s *teamService) UpdateStatus(ctx context.Context, id, requesterID int, status models.TeamStatus) (*models.Team, error) {
	switch status {
	case models.TeamStatusPending, models.TeamStatusApproved, models.TeamStatusRejected:
	default:
		return nil, ErrValidationFailed
	}

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOrganizer(ctx, team.CategoryID, requesterID); err != nil {
		return nil, err
	}

	if err := s.teamRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("ошибка смены статуса команды %d: %w", id, err)
	}
	team.Status = status
	return team, nil
}

func (s *teamService) Delete(ctx context.Context, id, requesterID int) error {
	team, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOrganizer(ctx, team.CategoryID, requesterID); err != nil {
		return err
	}
	if err := s.teamRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("ошибка удаления команды %d: %w", id, err)
	}
	return nil
}

func (s *teamService) authorizeOrganizer(ctx context.Context, categoryID, requesterID int) error {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to load category %d: %w", categoryID, err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, category.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %d: %w", category.TournamentID, err)
	}
	if tournament.OrganizerID != requesterID {
		return ErrForbiddenOperation
	}
	return nil
}
