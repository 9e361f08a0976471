package services

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/repositories"
	"github.com/openliga/tournament-engine/storage"
)

// In-memory repository fakes backing the service tests.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]models.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repositories.ErrEmailExists
		}
		if existing.Nickname != nil && user.Nickname != nil && *existing.Nickname == *user.Nickname {
			return repositories.ErrNicknameTaken
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, tournaments: make(map[int]models.Tournament)}
}

func (f *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.tournaments {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameExists
		}
	}
	t.ID = f.nextID
	f.nextID++
	f.tournaments[t.ID] = *t
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (f *fakeTournamentRepo) List(_ context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.tournaments))
	for id := range f.tournaments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	result := make([]*models.Tournament, 0, len(ids))
	for _, id := range ids {
		t := f.tournaments[id]
		if status != nil && t.Status != *status {
			continue
		}
		result = append(result, &t)
	}
	return result, nil
}

func (f *fakeTournamentRepo) Update(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	f.tournaments[t.ID] = *t
	return nil
}

func (f *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	f.tournaments[id] = t
	return nil
}

func (f *fakeTournamentRepo) SetWinner(_ context.Context, _ repositories.SQLExecutor, id int, winnerTeamID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerTeamID = &winnerTeamID
	t.Status = models.StatusCompleted
	f.tournaments[id] = t
	return nil
}

func (f *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(f.tournaments, id)
	return nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	nextID int
	teams  map[int]models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{nextID: 1, teams: make(map[int]models.Team)}
}

func (f *fakeTeamRepo) Create(_ context.Context, team *models.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.teams {
		if existing.TournamentID == team.TournamentID && existing.Name == team.Name {
			return repositories.ErrTeamNameExists
		}
	}
	team.ID = f.nextID
	f.nextID++
	f.teams[team.ID] = *team
	return nil
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return &team, nil
}

func (f *fakeTeamRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.teams))
	for id, team := range f.teams {
		if team.TournamentID == tournamentID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	result := make([]*models.Team, 0, len(ids))
	for _, id := range ids {
		team := f.teams[id]
		result = append(result, &team)
	}
	return result, nil
}

func (f *fakeTeamRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	teams, _ := f.ListByTournament(ctx, tournamentID)
	return len(teams), nil
}

func (f *fakeTeamRepo) Update(_ context.Context, team *models.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.teams[team.ID]; !ok {
		return repositories.ErrTeamNotFound
	}
	for id, existing := range f.teams {
		if id != team.ID && existing.TournamentID == team.TournamentID && existing.Name == team.Name {
			return repositories.ErrTeamNameExists
		}
	}
	f.teams[team.ID] = *team
	return nil
}

func (f *fakeTeamRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(f.teams, id)
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]models.Match)}
}

func (f *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	match.ID = f.nextID
	f.nextID++
	f.matches[match.ID] = *match
	return nil
}

func (f *fakeMatchRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	for _, match := range matches {
		if err := f.Create(ctx, exec, match); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	match, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &match, nil
}

func (f *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeMatchRepo) GetByBracketID(_ context.Context, _ repositories.SQLExecutor, tournamentID int, bracketID string, _ bool) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, match := range f.matches {
		if match.TournamentID == tournamentID && match.BracketID != nil && *match.BracketID == bracketID {
			m := match
			return &m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.matches))
	for id, match := range f.matches {
		if match.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && match.Round != *filter.Round {
			continue
		}
		if filter.Group != nil && (match.Group == nil || *match.Group != *filter.Group) {
			continue
		}
		if filter.Matchday != nil && (match.Matchday == nil || *match.Matchday != *filter.Matchday) {
			continue
		}
		if filter.Status != nil && match.Status != *filter.Status {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	result := make([]*models.Match, 0, len(ids))
	for _, id := range ids {
		match := f.matches[id]
		result = append(result, &match)
	}
	return result, nil
}

func (f *fakeMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	f.matches[match.ID] = *match
	return nil
}

func (f *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, match := range f.matches {
		if match.TournamentID == tournamentID {
			delete(f.matches, id)
		}
	}
	return nil
}

func (f *fakeMatchRepo) DeleteEliminationByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, match := range f.matches {
		if match.TournamentID == tournamentID && match.Round != models.RoundGroup {
			delete(f.matches, id)
		}
	}
	return nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
}

func (f *fakeUploader) Upload(_ context.Context, key string, _ string, _ io.Reader) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, key)
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}
