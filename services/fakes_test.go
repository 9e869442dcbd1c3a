package services

import (
	"context"
	"sort"
	"sync"

	"github.com/beachcup/tournament-system/brackets"
	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/repositories"
)

// In-memory fakes backing the service tests. They mirror the ordering and
// sentinel-error behaviour of the Postgres repositories.

type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.calls++
	return fn(nil)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	TournamentID int
	Event        brackets.Event
}

func (f *fakePublisher) Publish(tournamentID int, event brackets.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{TournamentID: tournamentID, Event: event})
}

func (f *fakePublisher) byType(eventType string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = len(f.users) + 1
	stored := *user // строка в БД живёт отдельно от возвращённой структуры
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeCategoryRepo struct {
	categories map[int]*models.Category
}

func newFakeCategoryRepo(categories ...*models.Category) *fakeCategoryRepo {
	repo := &fakeCategoryRepo{categories: make(map[int]*models.Category)}
	for _, c := range categories {
		repo.categories[c.ID] = c
	}
	return repo
}

func (f *fakeCategoryRepo) Create(ctx context.Context, c *models.Category) error {
	c.ID = len(f.categories) + 1
	f.categories[c.ID] = c
	return nil
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, id int) (*models.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, repositories.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeCategoryRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range f.categories {
		if c.TournamentID == tournamentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.categories[id]; !ok {
		return repositories.ErrCategoryNotFound
	}
	delete(f.categories, id)
	return nil
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	repo := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		repo.tournaments[t.ID] = t
	}
	return repo
}

func (f *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	t.ID = len(f.tournaments) + 1
	f.tournaments[t.ID] = t
	return nil
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (f *fakeTournamentRepo) List(ctx context.Context) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range f.tournaments {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	if _, ok := f.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	f.tournaments[t.ID] = t
	return nil
}

func (f *fakeTournamentRepo) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, id int, key *string) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = key
	return nil
}

func (f *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(f.tournaments, id)
	return nil
}

type fakeTeamRepo struct {
	teams  map[int]*models.Team
	nextID int
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	repo := &fakeTeamRepo{teams: make(map[int]*models.Team)}
	for _, t := range teams {
		repo.teams[t.ID] = t
		if t.ID >= repo.nextID {
			repo.nextID = t.ID
		}
	}
	return repo
}

func (f *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	for _, existing := range f.teams {
		if existing.CategoryID == team.CategoryID && existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	f.nextID++
	team.ID = f.nextID
	f.teams[team.ID] = team
	return nil
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return t, nil
}

func (f *fakeTeamRepo) GetByAccessCode(ctx context.Context, code string) (*models.Team, error) {
	for _, t := range f.teams {
		if t.AccessCode == code {
			return t, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (f *fakeTeamRepo) ListByCategory(ctx context.Context, categoryID int, status *models.TeamStatus) ([]*models.Team, error) {
	var out []*models.Team
	for _, t := range f.teams {
		if t.CategoryID != categoryID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTeamRepo) UpdateStatus(ctx context.Context, id int, status models.TeamStatus) error {
	t, ok := f.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTeamRepo) AssignGroup(ctx context.Context, exec repositories.SQLExecutor, teamID int, groupName string) error {
	t, ok := f.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	g := groupName
	t.GroupName = &g
	t.ResetStats()
	return nil
}

func (f *fakeTeamRepo) UpdateStats(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	stored, ok := f.teams[team.ID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	stored.Wins = team.Wins
	stored.Losses = team.Losses
	stored.SetsWon = team.SetsWon
	stored.SetsLost = team.SetsLost
	stored.PointsScored = team.PointsScored
	stored.PointsConceded = team.PointsConceded
	return nil
}

func (f *fakeTeamRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(f.teams, id)
	return nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{matches: make(map[int]*models.Match)}
	for _, m := range matches {
		repo.matches[m.ID] = m
		if m.ID >= repo.nextID {
			repo.nextID = m.ID
		}
	}
	return repo
}

func (f *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	f.nextID++
	match.ID = f.nextID
	f.matches[match.ID] = match
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeMatchRepo) ListByCategory(ctx context.Context, categoryID int, stage *models.MatchStage, status *models.MatchStatus) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range f.matches {
		if m.CategoryID != categoryID {
			continue
		}
		if stage != nil && m.Stage != *stage {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchNumber != out[j].MatchNumber {
			return out[i].MatchNumber < out[j].MatchNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	stored, ok := f.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.Sets = match.Sets
	stored.Status = match.Status
	stored.WinnerID = match.WinnerID
	return nil
}

func (f *fakeMatchRepo) UpdateTeams(ctx context.Context, exec repositories.SQLExecutor, matchID int, team1ID, team2ID *int) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Team1ID = team1ID
	m.Team2ID = team2ID
	return nil
}

func (f *fakeMatchRepo) DeleteByCategory(ctx context.Context, exec repositories.SQLExecutor, categoryID int) error {
	for id, m := range f.matches {
		if m.CategoryID == categoryID {
			delete(f.matches, id)
		}
	}
	return nil
}

func (f *fakeMatchRepo) DeleteKnockoutByCategory(ctx context.Context, exec repositories.SQLExecutor, categoryID int) error {
	for id, m := range f.matches {
		if m.CategoryID == categoryID && m.Stage.IsKnockout() {
			delete(f.matches, id)
		}
	}
	return nil
}

func (f *fakeMatchRepo) MaxMatchNumber(ctx context.Context, exec repositories.SQLExecutor, categoryID int) (int, error) {
	max := 0
	for _, m := range f.matches {
		if m.CategoryID == categoryID && m.MatchNumber > max {
			max = m.MatchNumber
		}
	}
	return max, nil
}
