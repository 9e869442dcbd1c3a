package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/beachcup/tournament-system/brackets"
	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/repositories"
)

// ScheduleService — генерация расписания и сетки: жеребьёвка групп с круговым
// расписанием, таблицы, отбор в плей-офф и построение сетки плей-офф.
type ScheduleService interface {
	// GenerateGroupSchedule draws groups and creates the full round-robin
	// match list. Destructive: all existing matches of the category are
	// deleted and every team's group stats are reset.
	GenerateGroupSchedule(ctx context.Context, categoryID, numGroups int) ([]*models.Match, error)
	// ComputeStandings returns the ranked standings per group. Read-only.
	ComputeStandings(ctx context.Context, categoryID int) (map[string][]*models.Team, error)
	// PreviewQualification shows who would advance without committing anything.
	PreviewQualification(ctx context.Context, categoryID, qualifyPerGroup, qualifyByWildcard int) ([]brackets.QualificationEntry, error)
	// GenerateBracket commits qualification and creates the knockout matches,
	// replacing any existing knockout matches of the category.
	GenerateBracket(ctx context.Context, categoryID, qualifyPerGroup, qualifyByWildcard int) ([]*models.Match, error)
}

type scheduleService struct {
	transactor     Transactor
	categoryRepo   repositories.CategoryRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	logger         *slog.Logger
	rng            *rand.Rand
}

func NewScheduleService(
	transactor Transactor,
	categoryRepo repositories.CategoryRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		transactor:     transactor,
		categoryRepo:   categoryRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		logger:         logger,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *scheduleService) GenerateGroupSchedule(ctx context.Context, categoryID, numGroups int) ([]*models.Match, error) {
	_, tournament, err := s.loadCategoryWithTournament(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	approved := models.TeamStatusApproved
	teams, err := s.teamRepo.ListByCategory(ctx, categoryID, &approved)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for category %d: %w", categoryID, err)
	}

	groups, err := brackets.DrawGroups(teams, numGroups, s.rng)
	if err != nil {
		return nil, err
	}

	matches, err := brackets.BuildGroupSchedule(groups, brackets.ScheduleParams{
		CategoryID:  categoryID,
		TotalCourts: tournament.Courts,
	})
	if err != nil {
		return nil, err
	}
	stampGroupTimes(matches, time.Now())

	// Жеребьёвка, чистка старых матчей и создание новых — одна транзакция:
	// категория не может остаться с половиной расписания.
	err = s.transactor.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.DeleteByCategory(ctx, exec, categoryID); err != nil {
			return err
		}
		for groupName, groupTeams := range groups {
			for _, team := range groupTeams {
				if err := s.teamRepo.AssignGroup(ctx, exec, team.ID, groupName); err != nil {
					return err
				}
			}
		}
		for _, match := range matches {
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("group schedule generation failed for category %d: %w", categoryID, err)
	}

	s.logger.Info("group schedule generated",
		slog.Int("category_id", categoryID),
		slog.Int("groups", numGroups),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}

func (s *scheduleService) ComputeStandings(ctx context.Context, categoryID int) (map[string][]*models.Team, error) {
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		return nil, s.mapCategoryError(err, categoryID)
	}

	teams, matches, err := s.loadTeamsAndMatches(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return brackets.ComputeStandings(teams, matches), nil
}

func (s *scheduleService) PreviewQualification(ctx context.Context, categoryID, qualifyPerGroup, qualifyByWildcard int) ([]brackets.QualificationEntry, error) {
	standings, err := s.ComputeStandings(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return brackets.SelectQualifiers(standings, qualifyPerGroup, qualifyByWildcard)
}

func (s *scheduleService) GenerateBracket(ctx context.Context, categoryID, qualifyPerGroup, qualifyByWildcard int) ([]*models.Match, error) {
	category, tournament, err := s.loadCategoryWithTournament(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	teams, allMatches, err := s.loadTeamsAndMatches(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	standings := brackets.ComputeStandings(teams, allMatches)
	qualifiers, err := brackets.SelectQualifiers(standings, qualifyPerGroup, qualifyByWildcard)
	if err != nil {
		return nil, err
	}

	// Старая сетка удаляется и строится заново в одной транзакции, нумерация
	// матчей продолжается после последнего номера группового этапа.
	var matches []*models.Match
	err = s.transactor.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.DeleteKnockoutByCategory(ctx, exec, categoryID); err != nil {
			return err
		}
		startNumber, err := s.matchRepo.MaxMatchNumber(ctx, exec, categoryID)
		if err != nil {
			return err
		}
		matches, err = brackets.BuildKnockoutMatches(qualifiers, qualifyPerGroup, qualifyByWildcard, brackets.KnockoutParams{
			CategoryID:       categoryID,
			TotalCourts:      tournament.Courts,
			StartMatchNumber: startNumber,
		})
		if err != nil {
			return err
		}
		stampKnockoutTimes(matches, time.Now())
		for _, match := range matches {
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bracket generation failed for category %d: %w", categoryID, err)
	}

	s.logger.Info("knockout bracket generated",
		slog.Int("category_id", category.ID),
		slog.Int("qualifiers", len(qualifiers)),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}

func (s *scheduleService) loadCategoryWithTournament(ctx context.Context, categoryID int) (*models.Category, *models.Tournament, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, nil, s.mapCategoryError(err, categoryID)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, category.TournamentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tournament %d: %w", category.TournamentID, err)
	}
	return category, tournament, nil
}

func (s *scheduleService) loadTeamsAndMatches(ctx context.Context, categoryID int) ([]*models.Team, []*models.Match, error) {
	teams, err := s.teamRepo.ListByCategory(ctx, categoryID, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list teams for category %d: %w", categoryID, err)
	}
	matches, err := s.matchRepo.ListByCategory(ctx, categoryID, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list matches for category %d: %w", categoryID, err)
	}
	return teams, matches, nil
}

// stampGroupTimes проставляет ориентировочные времена старта: первый тур через
// час после генерации, далее тур в час.
func stampGroupTimes(matches []*models.Match, now time.Time) {
	base := now.Add(time.Hour)
	for _, match := range matches {
		start := base
		if match.RoundNumber != nil {
			start = base.Add(time.Duration(*match.RoundNumber-1) * time.Hour)
		}
		t := start
		match.ScheduledTime = &t
	}
}

var knockoutStageOffsets = map[models.MatchStage]time.Duration{
	models.StageQuarterfinal: 0,
	models.StageSemifinal:    time.Hour,
	models.StageThirdPlace:   2 * time.Hour,
	models.StageFinal:        3 * time.Hour,
}

func stampKnockoutTimes(matches []*models.Match, now time.Time) {
	base := now.Add(time.Hour)
	for _, match := range matches {
		t := base.Add(knockoutStageOffsets[match.Stage])
		match.ScheduledTime = &t
	}
}

func (s *scheduleService) mapCategoryError(err error, categoryID int) error {
	if errors.Is(err, repositories.ErrCategoryNotFound) {
		return ErrCategoryNotFound
	}
	return fmt.Errorf("failed to load category %d: %w", categoryID, err)
}
