package services

import (
	"errors"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentDraft:        {models.TournamentRegistration, models.TournamentCanceled},
		models.TournamentRegistration: {models.TournamentReadyCheck, models.TournamentCanceled},
		// Ready check may fall back to registration when too few parties confirm.
		models.TournamentReadyCheck: {models.TournamentInProgress, models.TournamentRegistration, models.TournamentCanceled},
		models.TournamentInProgress: {models.TournamentFinished, models.TournamentCanceled},
		models.TournamentFinished:   {},
		models.TournamentCanceled:   {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// mapRepositoryError translates repository sentinels into service-level
// ones, so handlers only ever match on the services package.
func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrRegistrationPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrRegistrationPlayerConflict):
		return ErrPlayerAlreadyRegistered
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchGameNotFound):
		return ErrGameNotFound
	case errors.Is(err, repositories.ErrStageNotFound),
		errors.Is(err, repositories.ErrRoundNotFound),
		errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrNotFound
	}
	return err
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
