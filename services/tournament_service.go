package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/repositories"
	"github.com/beachcup/tournament-system/storage"
)

// validStatusTransitions — допустимые переходы жизненного цикла турнира.
var validStatusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.TournamentStatusDraft:   {models.TournamentStatusOpen},
	models.TournamentStatusOpen:    {models.TournamentStatusOngoing, models.TournamentStatusDraft},
	models.TournamentStatusOngoing: {models.TournamentStatusCompleted},
}

type CreateTournamentInput struct {
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description *string   `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Courts      int       `json:"courts"`
}

type UpdateTournamentInput struct {
	Name        *string    `json:"name"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Courts      *int       `json:"courts"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	Update(ctx context.Context, id, requesterID int, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, id, requesterID int, status models.TournamentStatus) (*models.Tournament, error)
	UploadBanner(ctx context.Context, id, requesterID int, contentType, filename string, file io.Reader) (*models.Tournament, error)
	Delete(ctx context.Context, id, requesterID int) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(tournamentRepo repositories.TournamentRepository, uploader storage.FileUploader, logger *slog.Logger) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" || input.Location == "" {
		return nil, ErrValidationFailed
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrTournamentInvalidDateRange
	}
	if input.Courts < 1 {
		return nil, ErrTournamentInvalidCourts
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Location:    input.Location,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Status:      models.TournamentStatusDraft,
		OrganizerID: organizerID,
		Courts:      input.Courts,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("ошибка создания турнира: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, t := range tournaments {
		s.populateBannerURL(t)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, id, requesterID int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		tournament.Name = *input.Name
	}
	if input.Location != nil {
		tournament.Location = *input.Location
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = *input.EndDate
	}
	if input.Courts != nil {
		tournament.Courts = *input.Courts
	}

	if !tournament.EndDate.After(tournament.StartDate) {
		return nil, ErrTournamentInvalidDateRange
	}
	if tournament.Courts < 1 {
		return nil, ErrTournamentInvalidCourts
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, fmt.Errorf("ошибка обновления турнира %d: %w", id, err)
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, id, requesterID int, status models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range validStatusTransitions[tournament.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrTournamentInvalidStatusTransition
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("ошибка смены статуса турнира %d: %w", id, err)
	}
	tournament.Status = status
	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("status", string(status)),
	)
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, id, requesterID int, contentType, filename string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrValidationFailed
	}

	key := fmt.Sprintf("tournaments/%d/banner/%s%s", id, generateRandomToken(16), path.Ext(filename))
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки баннера: %w", err)
	}

	oldKey := tournament.BannerKey
	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("ошибка сохранения ключа баннера: %w", err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			// Осиротевший файл не повод ронять запрос.
			s.logger.Warn("failed to delete previous banner",
				slog.String("key", *oldKey),
				slog.String("error", err.Error()),
			)
		}
	}

	tournament.BannerKey = &result.Key
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id, requesterID int) error {
	tournament, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("ошибка удаления турнира %d: %w", id, err)
	}
	if tournament.BannerKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.BannerKey); err != nil {
			s.logger.Warn("failed to delete tournament banner",
				slog.String("key", *tournament.BannerKey),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// getOwned загружает турнир и проверяет, что его меняет организатор-владелец.
func (s *tournamentService) getOwned(ctx context.Context, id, requesterID int) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.OrganizerID != requesterID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *tournamentService) populateBannerURL(t *models.Tournament) {
	if t.BannerKey == nil || s.uploader == nil {
		return
	}
	if u := s.uploader.GetPublicURL(*t.BannerKey); u != "" {
		t.BannerURL = &u
	}
}
