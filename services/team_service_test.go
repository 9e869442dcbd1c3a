package services

import (
	"context"
	"testing"

	"github.com/beachcup/tournament-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeamServiceFixture(tournamentStatus models.TournamentStatus, teams ...*models.Team) (TeamService, *fakeTeamRepo) {
	categoryRepo := newFakeCategoryRepo(&models.Category{ID: 1, TournamentID: 10, MinTeams: 2, MaxTeams: 2})
	tournamentRepo := newFakeTournamentRepo(&models.Tournament{ID: 10, OrganizerID: 77, Status: tournamentStatus, Courts: 2})
	teamRepo := newFakeTeamRepo(teams...)
	return NewTeamService(teamRepo, categoryRepo, tournamentRepo, discardLogger()), teamRepo
}

func TestTeamService_Register(t *testing.T) {
	svc, teamRepo := newTeamServiceFixture(models.TournamentStatusOpen)

	team, err := svc.Register(context.Background(), 1, RegisterTeamInput{
		Name:        "Sand Sharks",
		Player1Name: "Lena",
		Player2Name: "Mara",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusPending, team.Status)
	assert.NotEmpty(t, team.AccessCode)

	found, err := teamRepo.GetByAccessCode(context.Background(), team.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, team.ID, found.ID)
}

func TestTeamService_RegisterValidation(t *testing.T) {
	svc, _ := newTeamServiceFixture(models.TournamentStatusOpen)
	ctx := context.Background()

	_, err := svc.Register(ctx, 1, RegisterTeamInput{Player1Name: "a", Player2Name: "b"})
	assert.ErrorIs(t, err, ErrTeamNameRequired)

	_, err = svc.Register(ctx, 1, RegisterTeamInput{Name: "x", Player1Name: "a"})
	assert.ErrorIs(t, err, ErrPlayerNamesNeeded)

	_, err = svc.Register(ctx, 404, RegisterTeamInput{Name: "x", Player1Name: "a", Player2Name: "b"})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestTeamService_RegisterClosedTournament(t *testing.T) {
	svc, _ := newTeamServiceFixture(models.TournamentStatusOngoing)

	_, err := svc.Register(context.Background(), 1, RegisterTeamInput{
		Name: "x", Player1Name: "a", Player2Name: "b",
	})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestTeamService_RegisterCategoryFull(t *testing.T) {
	existing := []*models.Team{
		{ID: 1, CategoryID: 1, Name: "one"},
		{ID: 2, CategoryID: 1, Name: "two"},
	}
	svc, _ := newTeamServiceFixture(models.TournamentStatusOpen, existing...)

	_, err := svc.Register(context.Background(), 1, RegisterTeamInput{
		Name: "three", Player1Name: "a", Player2Name: "b",
	})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTeamService_RegisterNameConflict(t *testing.T) {
	existing := []*models.Team{{ID: 1, CategoryID: 1, Name: "Sand Sharks"}}
	svc, _ := newTeamServiceFixture(models.TournamentStatusOpen, existing...)

	_, err := svc.Register(context.Background(), 1, RegisterTeamInput{
		Name: "Sand Sharks", Player1Name: "a", Player2Name: "b",
	})
	assert.ErrorIs(t, err, ErrTeamNameConflict)
}

func TestTeamService_UpdateStatusAuthorization(t *testing.T) {
	existing := []*models.Team{{ID: 1, CategoryID: 1, Name: "one", Status: models.TeamStatusPending}}
	svc, teamRepo := newTeamServiceFixture(models.TournamentStatusOpen, existing...)
	ctx := context.Background()

	// Организатор турнира (id 77) подтверждает заявку.
	team, err := svc.UpdateStatus(ctx, 1, 77, models.TeamStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusApproved, team.Status)

	stored, _ := teamRepo.GetByID(ctx, 1)
	assert.Equal(t, models.TeamStatusApproved, stored.Status)

	// Чужой пользователь получает отказ.
	_, err = svc.UpdateStatus(ctx, 1, 99, models.TeamStatusRejected)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = svc.UpdateStatus(ctx, 1, 77, models.TeamStatus("bogus"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}
