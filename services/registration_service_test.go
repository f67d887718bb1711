package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

func registrationFixture(t *testing.T, status models.TournamentStatus) (RegistrationService, *repositories.Store, *models.Tournament) {
	t.Helper()
	store, _ := repositories.NewFakeStore()
	tournament := &models.Tournament{
		Name:        "duo cup",
		TeamSize:    2,
		BracketType: models.BracketSingleElimination,
		Status:      status,
	}
	require.NoError(t, store.Tournaments.Create(context.Background(), tournament))
	return NewRegistrationService(store, slog.Default()), store, tournament
}

func TestRegisterPartyValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		status   models.TournamentStatus
		steamIDs []string
		wantErr  error
	}{
		{
			name:     "registration not open",
			status:   models.TournamentDraft,
			steamIDs: []string{"a", "b"},
			wantErr:  ErrRegistrationNotOpen,
		},
		{
			name:     "party smaller than team size",
			status:   models.TournamentRegistration,
			steamIDs: []string{"a"},
			wantErr:  ErrPartySizeMismatch,
		},
		{
			name:     "empty steam id",
			status:   models.TournamentRegistration,
			steamIDs: []string{"a", ""},
			wantErr:  ErrValidationFailed,
		},
		{
			name:     "duplicate steam id within party",
			status:   models.TournamentRegistration,
			steamIDs: []string{"a", "a"},
			wantErr:  ErrValidationFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, tournament := registrationFixture(t, tt.status)
			_, err := svc.RegisterParty(ctx, tournament.ID, tt.steamIDs)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegisterPartyAndList(t *testing.T) {
	ctx := context.Background()
	svc, _, tournament := registrationFixture(t, models.TournamentRegistration)

	first, err := svc.RegisterParty(ctx, tournament.ID, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationCreated, first.State)
	require.Len(t, first.Players, 2)
	for _, p := range first.Players {
		assert.Equal(t, models.PlayerCreated, p.State)
	}

	_, err = svc.RegisterParty(ctx, tournament.ID, []string{"c", "d"})
	require.NoError(t, err)

	parties, err := svc.ListParties(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, parties, 2)
}

func TestRegisterPartyRejectsSteamIDFromAnotherParty(t *testing.T) {
	ctx := context.Background()
	svc, _, tournament := registrationFixture(t, models.TournamentRegistration)

	_, err := svc.RegisterParty(ctx, tournament.ID, []string{"a", "b"})
	require.NoError(t, err)

	_, err = svc.RegisterParty(ctx, tournament.ID, []string{"a", "c"})
	assert.ErrorIs(t, err, ErrPlayerAlreadyRegistered)

	parties, err := svc.ListParties(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, parties, 1)
}

func TestUnregisterPlayerRemovesWholeParty(t *testing.T) {
	ctx := context.Background()
	svc, _, tournament := registrationFixture(t, models.TournamentRegistration)

	_, err := svc.RegisterParty(ctx, tournament.ID, []string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, svc.UnregisterPlayer(ctx, tournament.ID, "b"))

	parties, err := svc.ListParties(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, parties)

	err = svc.UnregisterPlayer(ctx, tournament.ID, "nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestReadyCheckFlow(t *testing.T) {
	ctx := context.Background()
	svc, store, tournament := registrationFixture(t, models.TournamentRegistration)

	_, err := svc.RegisterParty(ctx, tournament.ID, []string{"a", "b"})
	require.NoError(t, err)
	_, err = svc.RegisterParty(ctx, tournament.ID, []string{"c", "d"})
	require.NoError(t, err)

	require.NoError(t, store.Tournaments.UpdateStatus(ctx, nil, tournament.ID, models.TournamentReadyCheck))
	require.NoError(t, svc.OpenReadyCheck(ctx, tournament.ID))

	parties, err := svc.ListParties(ctx, tournament.ID)
	require.NoError(t, err)
	for _, party := range parties {
		for _, p := range party.Players {
			assert.Equal(t, models.PlayerPendingConfirmation, p.State)
		}
	}

	require.NoError(t, svc.ConfirmPlayer(ctx, tournament.ID, "a"))
	require.NoError(t, svc.ConfirmPlayer(ctx, tournament.ID, "b"))
	require.NoError(t, svc.ConfirmPlayer(ctx, tournament.ID, "c"))
	require.NoError(t, svc.DeclinePlayer(ctx, tournament.ID, "d"))

	// Repeating the same answer is fine, flipping it is not.
	require.NoError(t, svc.ConfirmPlayer(ctx, tournament.ID, "a"))
	err = svc.DeclinePlayer(ctx, tournament.ID, "a")
	assert.ErrorIs(t, err, ErrReadyCheckNotOpen)

	confirmed, err := svc.CloseReadyCheck(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, models.RegistrationConfirmed, confirmed[0].State)
	assert.Equal(t, "a", confirmed[0].Players[0].SteamID)
}

func TestReadyCheckAnswerRequiresOpenCheck(t *testing.T) {
	ctx := context.Background()
	svc, _, tournament := registrationFixture(t, models.TournamentRegistration)

	_, err := svc.RegisterParty(ctx, tournament.ID, []string{"a", "b"})
	require.NoError(t, err)

	err = svc.ConfirmPlayer(ctx, tournament.ID, "a")
	assert.ErrorIs(t, err, ErrReadyCheckNotOpen)
}

func TestCloseReadyCheckTimesOutSilentPlayers(t *testing.T) {
	ctx := context.Background()
	svc, store, tournament := registrationFixture(t, models.TournamentRegistration)

	_, err := svc.RegisterParty(ctx, tournament.ID, []string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, store.Tournaments.UpdateStatus(ctx, nil, tournament.ID, models.TournamentReadyCheck))
	require.NoError(t, svc.OpenReadyCheck(ctx, tournament.ID))

	confirmed, err := svc.CloseReadyCheck(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, confirmed)

	parties, err := svc.ListParties(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, parties, 1)
	for _, p := range parties[0].Players {
		assert.Equal(t, models.PlayerTimedOut, p.State)
	}
}

func TestCloseReadyCheckTimesOutPlayersNeverAsked(t *testing.T) {
	ctx := context.Background()
	svc, store, tournament := registrationFixture(t, models.TournamentRegistration)

	_, err := svc.RegisterParty(ctx, tournament.ID, []string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, store.Tournaments.UpdateStatus(ctx, nil, tournament.ID, models.TournamentReadyCheck))
	require.NoError(t, svc.OpenReadyCheck(ctx, tournament.ID))

	// A player stuck in the created state at closing time counts as silent
	// too.
	require.NoError(t, svc.ConfirmPlayer(ctx, tournament.ID, "a"))
	player, err := store.Registrations.FindPlayerBySteamID(ctx, tournament.ID, "b")
	require.NoError(t, err)
	require.NoError(t, store.Registrations.UpdatePlayerState(ctx, nil, player.ID, models.PlayerCreated))

	confirmed, err := svc.CloseReadyCheck(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, confirmed)

	got, err := store.Registrations.FindPlayerBySteamID(ctx, tournament.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerTimedOut, got.State)
}
