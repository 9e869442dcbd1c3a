package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/repositories"
	"golang.org/x/sync/errgroup"
)

// CategoryOverview — категория вместе с её командами и матчами, собирается
// для страницы турнира.
type CategoryOverview struct {
	Category *models.Category `json:"category"`
	Teams    []*models.Team   `json:"teams"`
	Matches  []*models.Match  `json:"matches"`
}

type CreateCategoryInput struct {
	Name     string                `json:"name"`
	Gender   models.CategoryGender `json:"gender"`
	MinTeams int                   `json:"min_teams"`
	MaxTeams int                   `json:"max_teams"`
}

type CategoryService interface {
	Create(ctx context.Context, tournamentID, requesterID int, input CreateCategoryInput) (*models.Category, error)
	GetByID(ctx context.Context, id int) (*models.Category, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error)
	// TournamentOverview загружает все категории турнира с командами и
	// матчами, параллельно по категориям.
	TournamentOverview(ctx context.Context, tournamentID int) ([]*CategoryOverview, error)
	Delete(ctx context.Context, id, requesterID int) error
}

type categoryService struct {
	categoryRepo   repositories.CategoryRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	logger         *slog.Logger
}

func NewCategoryService(
	categoryRepo repositories.CategoryRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) CategoryService {
	return &categoryService{
		categoryRepo:   categoryRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		logger:         logger,
	}
}

func (s *categoryService) Create(ctx context.Context, tournamentID, requesterID int, input CreateCategoryInput) (*models.Category, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.OrganizerID != requesterID {
		return nil, ErrForbiddenOperation
	}

	switch input.Gender {
	case models.GenderMale, models.GenderFemale, models.GenderMixed:
	default:
		return nil, ErrValidationFailed
	}
	if input.Name == "" || input.MinTeams < 2 || input.MaxTeams < input.MinTeams {
		return nil, ErrValidationFailed
	}

	category := &models.Category{
		TournamentID: tournamentID,
		Name:         input.Name,
		Gender:       input.Gender,
		MinTeams:     input.MinTeams,
		MaxTeams:     input.MaxTeams,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("ошибка создания категории: %w", err)
	}
	return category, nil
}

func (s *categoryService) GetByID(ctx context.Context, id int) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to load category %d: %w", id, err)
	}
	return category, nil
}

func (s *categoryService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error) {
	categories, err := s.categoryRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories for tournament %d: %w", tournamentID, err)
	}
	return categories, nil
}

func (s *categoryService) TournamentOverview(ctx context.Context, tournamentID int) ([]*CategoryOverview, error) {
	categories, err := s.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	overviews := make([]*CategoryOverview, len(categories))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			teams, err := s.teamRepo.ListByCategory(gctx, category.ID, nil)
			if err != nil {
				return err
			}
			matches, err := s.matchRepo.ListByCategory(gctx, category.ID, nil, nil)
			if err != nil {
				return err
			}
			mu.Lock()
			overviews[i] = &CategoryOverview{Category: category, Teams: teams, Matches: matches}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build overview for tournament %d: %w", tournamentID, err)
	}
	return overviews, nil
}

func (s *categoryService) Delete(ctx context.Context, id, requesterID int) error {
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, category.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %d: %w", category.TournamentID, err)
	}
	if tournament.OrganizerID != requesterID {
		return ErrForbiddenOperation
	}
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("ошибка удаления категории %d: %w", id, err)
	}
	s.logger.Info("category deleted", slog.Int("category_id", id))
	return nil
}
