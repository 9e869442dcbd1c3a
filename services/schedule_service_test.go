package services

import (
	"context"
	"testing"
	"time"

	"github.com/beachcup/tournament-system/brackets"
	"github.com/beachcup/tournament-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduleFixture(teams []*models.Team, matches []*models.Match) (ScheduleService, *fakeMatchRepo, *fakeTeamRepo, *fakeTransactor) {
	categoryRepo := newFakeCategoryRepo(&models.Category{ID: 1, TournamentID: 10, MinTeams: 2, MaxTeams: 16})
	tournamentRepo := newFakeTournamentRepo(&models.Tournament{ID: 10, Courts: 2, Status: models.TournamentStatusOngoing})
	teamRepo := newFakeTeamRepo(teams...)
	matchRepo := newFakeMatchRepo(matches...)
	tx := &fakeTransactor{}
	svc := NewScheduleService(tx, categoryRepo, tournamentRepo, teamRepo, matchRepo, discardLogger())
	return svc, matchRepo, teamRepo, tx
}

func approvedTeam(id int) *models.Team {
	return &models.Team{ID: id, CategoryID: 1, Status: models.TeamStatusApproved}
}

func TestGenerateGroupSchedule_SingleGroup(t *testing.T) {
	teams := []*models.Team{approvedTeam(1), approvedTeam(2), approvedTeam(3), approvedTeam(4)}
	svc, matchRepo, teamRepo, tx := newScheduleFixture(teams, nil)

	matches, err := svc.GenerateGroupSchedule(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, matches, 6) // C(4,2)
	assert.Equal(t, 1, tx.calls)

	stored, err := matchRepo.ListByCategory(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Len(t, stored, 6)
	for i, m := range stored {
		assert.Equal(t, i+1, m.MatchNumber)
		assert.Equal(t, models.StageGroup, m.Stage)
		assert.LessOrEqual(t, m.CourtNumber, 2)
	}

	for _, team := range teams {
		fresh, err := teamRepo.GetByID(context.Background(), team.ID)
		require.NoError(t, err)
		require.NotNil(t, fresh.GroupName)
		assert.Equal(t, "A", *fresh.GroupName)
		assert.Zero(t, fresh.Wins)
	}
}

func TestGenerateGroupSchedule_StampsProvisionalTimes(t *testing.T) {
	teams := []*models.Team{approvedTeam(1), approvedTeam(2), approvedTeam(3), approvedTeam(4)}
	svc, _, _, _ := newScheduleFixture(teams, nil)

	matches, err := svc.GenerateGroupSchedule(context.Background(), 1, 1)
	require.NoError(t, err)

	byRound := map[int]time.Time{}
	for _, m := range matches {
		require.NotNil(t, m.ScheduledTime)
		require.NotNil(t, m.RoundNumber)
		byRound[*m.RoundNumber] = *m.ScheduledTime
	}
	// Туры идут с шагом в час, первый — не раньше чем через час.
	require.Contains(t, byRound, 1)
	require.Contains(t, byRound, 2)
	assert.Equal(t, time.Hour, byRound[2].Sub(byRound[1]))
	assert.True(t, byRound[1].After(time.Now()))
}

func TestGenerateGroupSchedule_ReplacesExistingMatches(t *testing.T) {
	teams := []*models.Team{approvedTeam(1), approvedTeam(2)}
	stale := groupMatch(99, 1, 42, 1, 2, "B")
	svc, matchRepo, _, _ := newScheduleFixture(teams, []*models.Match{stale})

	_, err := svc.GenerateGroupSchedule(context.Background(), 1, 1)
	require.NoError(t, err)

	_, err = matchRepo.GetByID(context.Background(), 99)
	assert.Error(t, err, "stale match must be deleted")
	stored, _ := matchRepo.ListByCategory(context.Background(), 1, nil, nil)
	assert.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].MatchNumber)
}

func TestGenerateGroupSchedule_Errors(t *testing.T) {
	svc, _, _, _ := newScheduleFixture([]*models.Team{approvedTeam(1)}, nil)

	_, err := svc.GenerateGroupSchedule(context.Background(), 1, 1)
	assert.ErrorIs(t, err, brackets.ErrNotEnoughTeams)

	_, err = svc.GenerateGroupSchedule(context.Background(), 404, 1)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

// twoGroupsPlayed: две группы по две команды, оба групповых матча завершены.
func twoGroupsPlayed() ([]*models.Team, []*models.Match) {
	teams := []*models.Team{
		{ID: 1, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("A")},
		{ID: 2, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("A")},
		{ID: 3, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("B")},
		{ID: 4, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("B")},
	}
	m1 := groupMatch(1, 1, 1, 1, 2, "A")
	m1.Status = models.MatchStatusFinished
	m1.WinnerID = intPtr(1)
	m1.Sets = []models.SetScore{{Team1: 21, Team2: 15}}
	m2 := groupMatch(2, 1, 2, 3, 4, "B")
	m2.Status = models.MatchStatusFinished
	m2.WinnerID = intPtr(3)
	m2.Sets = []models.SetScore{{Team1: 21, Team2: 10}}
	return teams, []*models.Match{m1, m2}
}

func TestComputeStandings_RanksPerGroup(t *testing.T) {
	teams, matches := twoGroupsPlayed()
	svc, _, _, _ := newScheduleFixture(teams, matches)

	standings, err := svc.ComputeStandings(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, 1, standings["A"][0].ID)
	assert.Equal(t, 3, standings["B"][0].ID)
}

func TestPreviewQualification_DoesNotPersist(t *testing.T) {
	teams, matches := twoGroupsPlayed()
	svc, matchRepo, _, _ := newScheduleFixture(teams, matches)

	entries, err := svc.PreviewQualification(context.Background(), 1, 2, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	stored, _ := matchRepo.ListByCategory(context.Background(), 1, nil, nil)
	assert.Len(t, stored, 2, "preview must not create matches")
}

func TestGenerateBracket_FourQualifiers(t *testing.T) {
	teams, matches := twoGroupsPlayed()
	svc, matchRepo, _, _ := newScheduleFixture(teams, matches)

	created, err := svc.GenerateBracket(context.Background(), 1, 2, 0)
	require.NoError(t, err)
	// 4 команды: сразу полуфиналы, финал и матч за 3-е место.
	require.Len(t, created, 4)

	stages := make(map[models.MatchStage]int)
	for i, m := range created {
		stages[m.Stage]++
		// Нумерация продолжается после группового этапа (2 матча).
		assert.Equal(t, 3+i, m.MatchNumber)
	}
	assert.Equal(t, 2, stages[models.StageSemifinal])
	assert.Equal(t, 1, stages[models.StageFinal])
	assert.Equal(t, 1, stages[models.StageThirdPlace])

	// Полуфиналы без одногруппников.
	for _, m := range created {
		if m.Stage != models.StageSemifinal {
			continue
		}
		require.NotNil(t, m.Team1ID)
		require.NotNil(t, m.Team2ID)
		assert.False(t, sameGroupPair(*m.Team1ID, *m.Team2ID))
	}

	stored, _ := matchRepo.ListByCategory(context.Background(), 1, nil, nil)
	assert.Len(t, stored, 6) // 2 групповых + 4 плей-офф
}

// sameGroupPair для команд из twoGroupsPlayed: 1,2 — группа A; 3,4 — B.
func sameGroupPair(a, b int) bool {
	return (a <= 2) == (b <= 2)
}

func TestGenerateBracket_SixQualifiersBalancedBracket(t *testing.T) {
	// Три группы по две команды, все групповые матчи сыграны.
	teams := []*models.Team{
		{ID: 1, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("A")},
		{ID: 2, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("A")},
		{ID: 3, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("B")},
		{ID: 4, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("B")},
		{ID: 5, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("C")},
		{ID: 6, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("C")},
	}
	var matches []*models.Match
	for i, pair := range [][2]int{{1, 2}, {3, 4}, {5, 6}} {
		m := groupMatch(i+1, 1, i+1, pair[0], pair[1], string(rune('A'+i)))
		m.Status = models.MatchStatusFinished
		m.WinnerID = intPtr(pair[0])
		m.Sets = []models.SetScore{{Team1: 21, Team2: 15}}
		matches = append(matches, m)
	}
	svc, _, _, _ := newScheduleFixture(teams, matches)

	created, err := svc.GenerateBracket(context.Background(), 1, 2, 0)
	require.NoError(t, err)
	// Шесть участников: два четвертьфинала, два полуфинала с командами,
	// прошедшими напрямую, финал и матч за 3-е место.
	require.Len(t, created, 6)

	stages := make(map[models.MatchStage]int)
	for i, m := range created {
		stages[m.Stage]++
		assert.Equal(t, 4+i, m.MatchNumber)
		require.NotNil(t, m.ScheduledTime)
	}
	assert.Equal(t, 2, stages[models.StageQuarterfinal])
	assert.Equal(t, 2, stages[models.StageSemifinal])
	assert.Equal(t, 1, stages[models.StageFinal])
	assert.Equal(t, 1, stages[models.StageThirdPlace])

	// Оба четвертьфинала укомплектованы, каждый полуфинал держит одну
	// прошедшую напрямую команду и один открытый слот под победителя.
	for _, m := range created[:2] {
		require.NotNil(t, m.Team1ID)
		require.NotNil(t, m.Team2ID)
	}
	byeIDs := make([]int, 0, 2)
	for _, m := range created[2:4] {
		require.NotNil(t, m.Team1ID)
		assert.Nil(t, m.Team2ID)
		byeIDs = append(byeIDs, *m.Team1ID)
	}
	assert.ElementsMatch(t, []int{1, 3}, byeIDs, "group winners take the byes")

	// Финал запланирован позже полуфиналов.
	assert.True(t, created[4].ScheduledTime.After(*created[2].ScheduledTime))
}

func TestGenerateBracket_ReplacesExistingKnockout(t *testing.T) {
	teams, matches := twoGroupsPlayed()
	stale := knockoutMatch(50, 1, 10, models.StageFinal, nil, nil)
	svc, matchRepo, _, _ := newScheduleFixture(teams, append(matches, stale))

	_, err := svc.GenerateBracket(context.Background(), 1, 2, 0)
	require.NoError(t, err)

	_, err = matchRepo.GetByID(context.Background(), 50)
	assert.Error(t, err, "previous bracket must be dropped")

	stored, _ := matchRepo.ListByCategory(context.Background(), 1, nil, nil)
	assert.Len(t, stored, 6)
}

func TestGenerateBracket_NotEnoughQualifiers(t *testing.T) {
	teams := []*models.Team{
		{ID: 1, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("A")},
		{ID: 2, CategoryID: 1, Status: models.TeamStatusApproved, GroupName: strPtr("A")},
	}
	svc, _, _, _ := newScheduleFixture(teams, nil)

	_, err := svc.GenerateBracket(context.Background(), 1, 0, 1)
	assert.ErrorIs(t, err, brackets.ErrNotEnoughQualifiers)
}
