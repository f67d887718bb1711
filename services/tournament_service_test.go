package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/events"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

type stubLifecycleScheduler struct {
	initial  []int
	canceled []int
}

func (s *stubLifecycleScheduler) InitialSchedule(ctx context.Context, tournament *models.Tournament) error {
	s.initial = append(s.initial, tournament.ID)
	return nil
}

func (s *stubLifecycleScheduler) CancelTournament(ctx context.Context, tournamentID int) error {
	s.canceled = append(s.canceled, tournamentID)
	return nil
}

func tournamentFixture(t *testing.T) (TournamentService, RegistrationService, *repositories.Store, *stubLifecycleScheduler) {
	t.Helper()
	store, _ := repositories.NewFakeStore()
	logger := slog.Default()
	engine := brackets.NewEngine(store, logger).WithShuffle(func([]int) {})
	sched := &stubLifecycleScheduler{}
	registrations := NewRegistrationService(store, logger)
	svc := NewTournamentService(store, engine, sched, registrations, nil, logger)
	return svc, registrations, store, sched
}

func soloInput(name string) CreateTournamentInput {
	return CreateTournamentInput{
		Name:        name,
		TeamSize:    1,
		BracketType: models.BracketSingleElimination,
	}
}

func TestCreateTournamentValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := tournamentFixture(t)

	tests := []struct {
		name  string
		input CreateTournamentInput
	}{
		{
			name:  "missing name",
			input: CreateTournamentInput{TeamSize: 1, BracketType: models.BracketSingleElimination},
		},
		{
			name:  "zero team size",
			input: CreateTournamentInput{Name: "cup", BracketType: models.BracketSingleElimination},
		},
		{
			name:  "unknown bracket type",
			input: CreateTournamentInput{Name: "cup", TeamSize: 1, BracketType: "swiss"},
		},
		{
			name: "even best of",
			input: CreateTournamentInput{
				Name:        "cup",
				TeamSize:    1,
				BracketType: models.BracketSingleElimination,
				BestOf:      models.BestOfConfig{Round: 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestCreateTournamentDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)

	assert.Equal(t, models.TournamentDraft, tournament.Status)
	assert.Equal(t, models.BestOfConfig{Round: 1, Final: 3, GrandFinal: 5}, tournament.BestOf)
	assert.Equal(t, 3600, tournament.Schedule.GameDurationSeconds)
	assert.Equal(t, 300, tournament.Schedule.GameBreakDurationSeconds)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, tournament.ID, models.TournamentInProgress)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestUpdateStatusOpensReadyCheck(t *testing.T) {
	ctx := context.Background()
	svc, registrations, _, _ := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, tournament.ID, models.TournamentRegistration)
	require.NoError(t, err)
	_, err = registrations.RegisterParty(ctx, tournament.ID, []string{"a"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, tournament.ID, models.TournamentReadyCheck)
	require.NoError(t, err)

	parties, err := registrations.ListParties(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerPendingConfirmation, parties[0].Players[0].State)
}

// registerAndConfirm walks a tournament from draft to the moment the ready
// check closes, with the given parties answering yes.
func registerAndConfirm(t *testing.T, svc TournamentService, registrations RegistrationService, tournamentID int, confirmed int, total int) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, tournamentID, models.TournamentRegistration)
	require.NoError(t, err)
	steamIDs := make([]string, 0, total)
	for i := 0; i < total; i++ {
		id := gofakeit.DigitN(17)
		steamIDs = append(steamIDs, id)
		_, err = registrations.RegisterParty(ctx, tournamentID, []string{id})
		require.NoError(t, err)
	}
	_, err = svc.UpdateStatus(ctx, tournamentID, models.TournamentReadyCheck)
	require.NoError(t, err)
	for i := 0; i < confirmed; i++ {
		require.NoError(t, registrations.ConfirmPlayer(ctx, tournamentID, steamIDs[i]))
	}
}

func TestStartFallsBackWithTooFewParties(t *testing.T) {
	ctx := context.Background()
	svc, registrations, store, sched := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)
	registerAndConfirm(t, svc, registrations, tournament.ID, 2, 4)

	_, err = svc.UpdateStatus(ctx, tournament.ID, models.TournamentInProgress)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)

	got, err := store.Tournaments.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentRegistration, got.Status)
	assert.Empty(t, sched.initial)
}

func TestStartGeneratesBracketAndSchedule(t *testing.T) {
	ctx := context.Background()
	svc, registrations, store, sched := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)
	registerAndConfirm(t, svc, registrations, tournament.ID, 4, 4)

	got, err := svc.UpdateStatus(ctx, tournament.ID, models.TournamentInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, got.Status)

	participants, err := store.Participants.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 4)
	for _, p := range participants {
		assert.NotNil(t, p.RegistrationID)
	}

	matches, err := store.Matches.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	assert.Equal(t, []int{tournament.ID}, sched.initial)
}

func TestUpdateStatusCancelDropsTimers(t *testing.T) {
	ctx := context.Background()
	svc, registrations, _, sched := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)
	registerAndConfirm(t, svc, registrations, tournament.ID, 4, 4)
	_, err = svc.UpdateStatus(ctx, tournament.ID, models.TournamentInProgress)
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, tournament.ID, models.TournamentCanceled)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCanceled, got.Status)
	assert.Equal(t, []int{tournament.ID}, sched.canceled)
}

func TestRegenerateBracketAfterScores(t *testing.T) {
	ctx := context.Background()
	svc, registrations, store, _ := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)
	registerAndConfirm(t, svc, registrations, tournament.ID, 4, 4)
	_, err = svc.UpdateStatus(ctx, tournament.ID, models.TournamentInProgress)
	require.NoError(t, err)

	// A clean bracket regenerates fine.
	_, err = svc.RegenerateBracket(ctx, tournament.ID)
	require.NoError(t, err)

	matches, err := store.Matches.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	one := 1
	matches[0].Opponent1.Score = &one
	require.NoError(t, store.Matches.Update(ctx, nil, matches[0]))

	_, err = svc.RegenerateBracket(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrBracketAlreadyScored)
}

func TestUploadLogoWithoutUploader(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)

	_, err = svc.UploadLogo(ctx, tournament.ID, "image/png", nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestHandleBracketUpdatedFinishesTournament(t *testing.T) {
	ctx := context.Background()
	svc, registrations, store, _ := tournamentFixture(t)

	tournament, err := svc.Create(ctx, soloInput("cup"))
	require.NoError(t, err)
	registerAndConfirm(t, svc, registrations, tournament.ID, 4, 4)
	_, err = svc.UpdateStatus(ctx, tournament.ID, models.TournamentInProgress)
	require.NoError(t, err)

	// With matches still open the update is a no-op.
	require.NoError(t, svc.HandleBracketUpdated(ctx, events.BracketUpdated{TournamentID: tournament.ID}))
	got, err := store.Tournaments.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, got.Status)

	matches, err := store.Matches.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	win, loss := models.ResultWin, models.ResultLoss
	champion := 0
	for _, m := range matches {
		if m.Opponent1.ParticipantID == nil {
			m.Opponent1.ParticipantID = matches[0].Opponent1.ParticipantID
		}
		if m.Opponent2.ParticipantID == nil {
			m.Opponent2.ParticipantID = matches[0].Opponent2.ParticipantID
		}
		m.Opponent1.Result = &win
		m.Opponent2.Result = &loss
		m.Status = models.MatchCompleted
		require.NoError(t, store.Matches.Update(ctx, nil, m))
		if m.WinnerNextMatchID == nil {
			champion = *m.Opponent1.ParticipantID
		}
	}
	require.NotZero(t, champion)

	require.NoError(t, svc.HandleBracketUpdated(ctx, events.BracketUpdated{TournamentID: tournament.ID}))

	got, err = store.Tournaments.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentFinished, got.Status)

	matches, err = store.Matches.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, models.MatchArchived, m.Status)
	}

	// Finished tournaments ignore further updates.
	require.NoError(t, svc.HandleBracketUpdated(ctx, events.BracketUpdated{TournamentID: tournament.ID}))
}
