package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dosada05/tournament-engine/repositories"
)

func TestMapRepositoryError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"tournament", repositories.ErrTournamentNotFound, ErrTournamentNotFound},
		{"registration", repositories.ErrRegistrationNotFound, ErrRegistrationNotFound},
		{"player", repositories.ErrRegistrationPlayerNotFound, ErrPlayerNotFound},
		{"player conflict", repositories.ErrRegistrationPlayerConflict, ErrPlayerAlreadyRegistered},
		{"match", repositories.ErrMatchNotFound, ErrMatchNotFound},
		{"game", repositories.ErrMatchGameNotFound, ErrGameNotFound},
		{"stage", repositories.ErrStageNotFound, ErrNotFound},
		{"round", repositories.ErrRoundNotFound, ErrNotFound},
		{"participant", repositories.ErrParticipantNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("loading: %w", tt.in)
			assert.ErrorIs(t, mapRepositoryError(wrapped), tt.want)
		})
	}

	// Anything else passes through untouched.
	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapRepositoryError(plain))
}
