package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openliga/tournament-engine/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validCreateInput() CreateTournamentInput {
	now := time.Now()
	return CreateTournamentInput{
		Name:   "OpenLiga Cup",
		Format: models.FormatElimination,
		// Registration opened an hour ago, so the tournament starts out in
		// the registration state.
		RegistrationStart: now.Add(-time.Hour),
		RegistrationEnd:   now.Add(24 * time.Hour),
		StartDate:         now.Add(48 * time.Hour),
		EndDate:           now.Add(72 * time.Hour),
		MaxTeams:          16,
		BestOfMatches:     1,
	}
}

func newTournamentServiceForTest() (TournamentService, *fakeTournamentRepo, *fakeTeamRepo, *fakeMatchRepo) {
	tournamentRepo := newFakeTournamentRepo()
	teamRepo := newFakeTeamRepo()
	matchRepo := newFakeMatchRepo()
	svc := NewTournamentService(tournamentRepo, teamRepo, matchRepo, &fakeUploader{}, discardLogger())
	return svc, tournamentRepo, teamRepo, matchRepo
}

func organizer(id int) *models.User {
	return &models.User{ID: id, Role: models.RoleOrganizer}
}

func TestTournamentServiceCreate(t *testing.T) {
	t.Run("open registration window starts in registration state", func(t *testing.T) {
		svc, _, _, _ := newTournamentServiceForTest()
		created, err := svc.Create(context.Background(), 7, validCreateInput())
		require.NoError(t, err)
		assert.Equal(t, models.StatusRegistration, created.Status)
		assert.Equal(t, 7, created.OrganizerID)
	})

	t.Run("future registration window starts as coming soon", func(t *testing.T) {
		svc, _, _, _ := newTournamentServiceForTest()
		input := validCreateInput()
		input.RegistrationStart = time.Now().Add(time.Hour)
		created, err := svc.Create(context.Background(), 7, input)
		require.NoError(t, err)
		assert.Equal(t, models.StatusComingSoon, created.Status)
	})

	t.Run("group stage requires settings", func(t *testing.T) {
		svc, _, _, _ := newTournamentServiceForTest()
		input := validCreateInput()
		input.Format = models.FormatGroupStage
		_, err := svc.Create(context.Background(), 7, input)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("date validation", func(t *testing.T) {
		svc, _, _, _ := newTournamentServiceForTest()

		input := validCreateInput()
		input.RegistrationEnd = input.RegistrationStart.Add(-time.Minute)
		_, err := svc.Create(context.Background(), 7, input)
		assert.ErrorIs(t, err, ErrTournamentInvalidRegDate)

		input = validCreateInput()
		input.EndDate = input.StartDate.Add(-time.Minute)
		_, err = svc.Create(context.Background(), 7, input)
		assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)

		input = validCreateInput()
		input.MaxTeams = 0
		_, err = svc.Create(context.Background(), 7, input)
		assert.ErrorIs(t, err, ErrTournamentInvalidCapacity)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		svc, _, _, _ := newTournamentServiceForTest()
		_, err := svc.Create(context.Background(), 7, validCreateInput())
		require.NoError(t, err)
		_, err = svc.Create(context.Background(), 8, validCreateInput())
		assert.ErrorIs(t, err, ErrTournamentNameConflict)
	})
}

func TestTournamentServiceAuthorization(t *testing.T) {
	svc, _, _, _ := newTournamentServiceForTest()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	t.Run("stranger cannot update", func(t *testing.T) {
		name := "Hijacked"
		_, err := svc.Update(context.Background(), created.ID, organizer(99), UpdateTournamentInput{Name: &name})
		assert.ErrorIs(t, err, ErrForbiddenOperation)
	})

	t.Run("owner can update", func(t *testing.T) {
		name := "Renamed Cup"
		updated, err := svc.Update(context.Background(), created.ID, organizer(7), UpdateTournamentInput{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed Cup", updated.Name)
	})

	t.Run("admin can update", func(t *testing.T) {
		name := "Admin Renamed"
		admin := &models.User{ID: 1, Role: models.RoleAdmin}
		updated, err := svc.Update(context.Background(), created.ID, admin, UpdateTournamentInput{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Admin Renamed", updated.Name)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		name := "Anon"
		_, err := svc.Update(context.Background(), created.ID, nil, UpdateTournamentInput{Name: &name})
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})
}

func TestTournamentServiceStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.TournamentStatus
		to      models.TournamentStatus
		wantErr error
	}{
		{"coming-soon to registration", models.StatusComingSoon, models.StatusRegistration, nil},
		{"registration to in-progress", models.StatusRegistration, models.StatusInProgress, nil},
		{"in-progress to completed", models.StatusInProgress, models.StatusCompleted, nil},
		{"registration to canceled", models.StatusRegistration, models.StatusCanceled, nil},
		{"completed is terminal", models.StatusCompleted, models.StatusCanceled, ErrTournamentInvalidStatusTransition},
		{"cannot skip registration", models.StatusComingSoon, models.StatusInProgress, ErrTournamentInvalidStatusTransition},
		{"cannot reopen", models.StatusInProgress, models.StatusRegistration, ErrTournamentInvalidStatusTransition},
		{"unknown status", models.StatusRegistration, models.TournamentStatus("paused"), ErrTournamentInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tournamentRepo, _, _ := newTournamentServiceForTest()
			created, err := svc.Create(context.Background(), 7, validCreateInput())
			require.NoError(t, err)
			require.NoError(t, tournamentRepo.UpdateStatus(context.Background(), nil, created.ID, tt.from))

			updated, err := svc.UpdateStatus(context.Background(), created.ID, organizer(7), tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.Status)
		})
	}
}

func TestTournamentServiceDelete(t *testing.T) {
	svc, tournamentRepo, _, _ := newTournamentServiceForTest()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	require.NoError(t, tournamentRepo.UpdateStatus(context.Background(), nil, created.ID, models.StatusInProgress))
	err = svc.Delete(context.Background(), created.ID, organizer(7))
	assert.ErrorIs(t, err, ErrTournamentInvalidStatus, "deleting a running tournament must fail")

	require.NoError(t, tournamentRepo.UpdateStatus(context.Background(), nil, created.ID, models.StatusCanceled))
	require.NoError(t, svc.Delete(context.Background(), created.ID, organizer(7)))

	_, err = svc.GetByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTournamentServiceLogoUpload(t *testing.T) {
	uploader := &fakeUploader{}
	tournamentRepo := newFakeTournamentRepo()
	svc := NewTournamentService(tournamentRepo, newFakeTeamRepo(), newFakeMatchRepo(), uploader, discardLogger())

	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	updated, err := svc.UploadLogo(context.Background(), created.ID, organizer(7), "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.NotNil(t, updated.LogoKey)
	assert.Contains(t, *updated.LogoKey, ".png")
	require.NotNil(t, updated.LogoURL)
	assert.Contains(t, *updated.LogoURL, "cdn.example.com")
	assert.Len(t, uploader.uploads, 1)

	_, err = svc.UploadLogo(context.Background(), created.ID, organizer(7), "application/pdf", strings.NewReader("nope"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTournamentServiceGetWithDetails(t *testing.T) {
	svc, _, teamRepo, matchRepo := newTournamentServiceForTest()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	for _, name := range []string{"North", "South"} {
		require.NoError(t, teamRepo.Create(context.Background(), &models.Team{TournamentID: created.ID, Name: name}))
	}
	require.NoError(t, matchRepo.Create(context.Background(), nil, &models.Match{
		TournamentID: created.ID,
		Round:        models.RoundFinal,
		Status:       models.MatchScheduled,
	}))

	full, err := svc.GetWithDetails(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, full.Teams, 2)
	assert.Len(t, full.Matches, 1)
}
