package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/beachcup/tournament-system/brackets"
	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/repositories"
)

// RecordResultInput — результат матча от организатора: партии, новый статус
// и победитель (обязателен при статусе finished).
type RecordResultInput struct {
	Sets     []models.SetScore  `json:"sets"`
	Status   models.MatchStatus `json:"status"`
	WinnerID *int               `json:"winner_id"`
}

// MatchService — запись результатов и машина продвижения по сетке.
type MatchService interface {
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByCategory(ctx context.Context, categoryID int, stage *models.MatchStage, status *models.MatchStatus) ([]*models.Match, error)
	// RecordResult сохраняет результат и запускает побочные эффекты:
	// пересчёт статистики групп, продвижение победителей по сетке,
	// рассылку событий. Повторный вызов по завершённому матчу безопасен.
	RecordResult(ctx context.Context, matchID int, input RecordResultInput) (*models.Match, error)
}

type matchService struct {
	transactor   Transactor
	matchRepo    repositories.MatchRepository
	teamRepo     repositories.TeamRepository
	categoryRepo repositories.CategoryRepository
	publisher    brackets.EventPublisher
	logger       *slog.Logger
}

func NewMatchService(
	transactor Transactor,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	categoryRepo repositories.CategoryRepository,
	publisher brackets.EventPublisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		transactor:   transactor,
		matchRepo:    matchRepo,
		teamRepo:     teamRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	return match, nil
}

func (s *matchService) ListByCategory(ctx context.Context, categoryID int, stage *models.MatchStage, status *models.MatchStatus) ([]*models.Match, error) {
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to load category %d: %w", categoryID, err)
	}
	matches, err := s.matchRepo.ListByCategory(ctx, categoryID, stage, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for category %d: %w", categoryID, err)
	}
	return matches, nil
}

func (s *matchService) RecordResult(ctx context.Context, matchID int, input RecordResultInput) (*models.Match, error) {
	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := validateResult(match, input); err != nil {
		return nil, err
	}

	match.Sets = input.Sets
	match.Status = input.Status
	if input.Status == models.MatchStatusFinished {
		match.WinnerID = input.WinnerID
	} else {
		match.WinnerID = nil
	}

	// Результат и продвижение коммитятся вместе: победитель не может попасть
	// в полуфинал, если запись его четвертьфинала не сохранилась. События
	// уходят клиентам только после коммита.
	var pending []brackets.Event
	err = s.transactor.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		pending = pending[:0]
		if err := s.matchRepo.UpdateResult(ctx, exec, match); err != nil {
			return err
		}
		if match.Status == models.MatchStatusFinished {
			return s.applyProgression(ctx, exec, match, &pending)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record result for match %d: %w", matchID, err)
	}

	s.publishEvent(ctx, match.CategoryID, brackets.Event{
		Type:    brackets.EventMatchUpdate,
		Payload: match,
	})
	for _, event := range pending {
		s.publishEvent(ctx, match.CategoryID, event)
	}
	return match, nil
}

func validateResult(match *models.Match, input RecordResultInput) error {
	switch input.Status {
	case models.MatchStatusScheduled, models.MatchStatusInProgress, models.MatchStatusFinished:
	default:
		return ErrValidationFailed
	}
	if len(input.Sets) > 3 {
		return ErrInvalidSetScores
	}
	for _, set := range input.Sets {
		if set.Team1 < 0 || set.Team2 < 0 {
			return ErrInvalidSetScores
		}
	}
	if input.Status == models.MatchStatusFinished {
		if input.WinnerID == nil {
			return ErrWinnerRequired
		}
		if !match.HasTeam(*input.WinnerID) {
			return ErrWinnerNotInMatch
		}
	}
	return nil
}

// applyProgression выполняет побочные эффекты завершённого матча внутри
// транзакции записи результата.
func (s *matchService) applyProgression(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, pending *[]brackets.Event) error {
	switch match.Stage {
	case models.StageGroup:
		return s.onGroupMatchFinished(ctx, exec, match, pending)
	case models.StageQuarterfinal:
		return s.onQuarterfinalFinished(ctx, exec, match)
	case models.StageSemifinal:
		return s.onSemifinalFinished(ctx, exec, match)
	case models.StageFinal:
		s.onFinalFinished(match, pending)
	}
	return nil
}

// onGroupMatchFinished пересчитывает групповую статистику заново по всем
// завершённым матчам (запись результата можно править без двойного счёта)
// и сообщает о завершении группового этапа.
func (s *matchService) onGroupMatchFinished(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, pending *[]brackets.Event) error {
	teams, err := s.teamRepo.ListByCategory(ctx, match.CategoryID, nil)
	if err != nil {
		return err
	}
	matches, err := s.matchRepo.ListByCategory(ctx, match.CategoryID, nil, nil)
	if err != nil {
		return err
	}
	// match в выборке может быть ещё со старым результатом: транзакция своя,
	// а чтение идёт вне exec. Подменяем на актуальную версию.
	for i, m := range matches {
		if m.ID == match.ID {
			matches[i] = match
		}
	}

	standings := brackets.ComputeStandings(teams, matches)
	for _, group := range standings {
		for _, team := range group {
			if err := s.teamRepo.UpdateStats(ctx, exec, team); err != nil {
				return err
			}
		}
	}

	if groupPhaseComplete(matches) {
		*pending = append(*pending, brackets.Event{
			Type:    brackets.EventGroupPhaseComplete,
			Payload: brackets.GroupPhaseCompletePayload{CategoryID: match.CategoryID},
		})
	}
	return nil
}

// groupPhaseComplete: все групповые матчи завершены и сетка ещё не создана.
func groupPhaseComplete(matches []*models.Match) bool {
	sawGroup := false
	for _, m := range matches {
		if m.Stage.IsKnockout() {
			return false
		}
		sawGroup = true
		if m.Status != models.MatchStatusFinished {
			return false
		}
	}
	return sawGroup
}

// onQuarterfinalFinished продвигает победителей четвертьфиналов в назначенные
// им слоты полуфиналов. Раскладку задаёт brackets.SemifinalFeederSlots: при
// неполной сетке часть слотов уже занята командами, прошедшими напрямую.
// Полуфинал с двумя четвертьфиналами-источниками заполняется разом, когда
// известны оба победителя; полуфинал с одним источником — как только тот
// завершён. Занятые слоты не перезаписываются.
func (s *matchService) onQuarterfinalFinished(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	quarterfinals, err := s.listStage(ctx, match.CategoryID, models.StageQuarterfinal, match)
	if err != nil {
		return err
	}
	semifinals, err := s.listStage(ctx, match.CategoryID, models.StageSemifinal, match)
	if err != nil {
		return err
	}
	if len(semifinals) < 2 {
		s.logger.Warn("quarterfinal finished but semifinals are missing",
			slog.Int("category_id", match.CategoryID))
		return nil
	}

	slots := brackets.SemifinalFeederSlots(len(quarterfinals))
	for sfIdx, target := range semifinals[:2] {
		var feeders []*models.Match
		var feederSlots []brackets.SemifinalSlot
		for k, slot := range slots {
			if k < len(quarterfinals) && slot.Semifinal == sfIdx {
				feeders = append(feeders, quarterfinals[k])
				feederSlots = append(feederSlots, slot)
			}
		}

		var team1ID, team2ID *int
		switch len(feeders) {
		case 2:
			if feeders[0].WinnerID == nil || feeders[1].WinnerID == nil {
				continue
			}
			if target.Team1ID != nil || target.Team2ID != nil {
				continue
			}
			team1ID, team2ID = feeders[0].WinnerID, feeders[1].WinnerID
		case 1:
			// Второй слот занят командой, пропустившей четвертьфиналы.
			if feeders[0].WinnerID == nil {
				continue
			}
			team1ID, team2ID = target.Team1ID, target.Team2ID
			if feederSlots[0].Second {
				if team2ID != nil {
					continue
				}
				team2ID = feeders[0].WinnerID
			} else {
				if team1ID != nil {
					continue
				}
				team1ID = feeders[0].WinnerID
			}
		default:
			continue
		}

		if err := s.matchRepo.UpdateTeams(ctx, exec, target.ID, team1ID, team2ID); err != nil {
			return err
		}
		s.logger.Info("semifinal slots filled",
			slog.Int("semifinal_id", target.ID),
		)
	}
	return nil
}

// onSemifinalFinished заполняет финал победителями и матч за 3-е место
// проигравшими, когда оба полуфинала завершены.
func (s *matchService) onSemifinalFinished(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	semifinals, err := s.listStage(ctx, match.CategoryID, models.StageSemifinal, match)
	if err != nil {
		return err
	}
	if len(semifinals) < 2 || semifinals[0].WinnerID == nil || semifinals[1].WinnerID == nil {
		return nil
	}

	if err := s.fillStageOnce(ctx, exec, match.CategoryID, models.StageFinal,
		semifinals[0].WinnerID, semifinals[1].WinnerID); err != nil {
		return err
	}
	return s.fillStageOnce(ctx, exec, match.CategoryID, models.StageThirdPlace,
		semifinals[0].LoserID(), semifinals[1].LoserID())
}

func (s *matchService) onFinalFinished(match *models.Match, pending *[]brackets.Event) {
	if match.WinnerID == nil {
		return
	}
	*pending = append(*pending, brackets.Event{
		Type: brackets.EventChampionDeclared,
		Payload: brackets.ChampionDeclaredPayload{
			CategoryID: match.CategoryID,
			WinnerID:   *match.WinnerID,
		},
	})
	s.logger.Info("champion declared",
		slog.Int("category_id", match.CategoryID),
		slog.Int("winner_id", *match.WinnerID),
	)
}

// listStage возвращает матчи стадии в порядке создания, с подменой текущего
// матча на его свеже записанную версию.
func (s *matchService) listStage(ctx context.Context, categoryID int, stage models.MatchStage, current *models.Match) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByCategory(ctx, categoryID, &stage, nil)
	if err != nil {
		return nil, err
	}
	for i, m := range matches {
		if m.ID == current.ID {
			matches[i] = current
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchNumber < matches[j].MatchNumber
	})
	return matches, nil
}

// fillStageOnce заполняет слоты единственного матча стадии, если они пустые.
func (s *matchService) fillStageOnce(ctx context.Context, exec repositories.SQLExecutor, categoryID int, stage models.MatchStage, team1ID, team2ID *int) error {
	matches, err := s.matchRepo.ListByCategory(ctx, categoryID, &stage, nil)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		s.logger.Warn("stage match is missing, skipping progression",
			slog.Int("category_id", categoryID),
			slog.String("stage", string(stage)),
		)
		return nil
	}
	target := matches[0]
	if target.Team1ID != nil || target.Team2ID != nil {
		return nil
	}
	return s.matchRepo.UpdateTeams(ctx, exec, target.ID, team1ID, team2ID)
}

func (s *matchService) publishEvent(ctx context.Context, categoryID int, event brackets.Event) {
	if s.publisher == nil {
		return
	}
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		s.logger.Error("failed to resolve tournament for event",
			slog.Int("category_id", categoryID),
			slog.String("event", event.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	s.publisher.Publish(category.TournamentID, event)
}
