package services

import "errors"

// Shared errors used across services and the HTTP mapping.
var (
	// Generic not-found for entities without a sentinel of their own
	// (stages, groups, rounds, participants).
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules.
	ErrValidationFailed         = errors.New("validation failed")
	ErrInvalidStatusTransition  = errors.New("invalid tournament status transition")
	ErrRegistrationNotOpen      = errors.New("tournament registration is not open")
	ErrReadyCheckNotOpen        = errors.New("tournament ready check is not open")
	ErrPartySizeMismatch        = errors.New("party size does not match the tournament team size")
	ErrPlayerAlreadyRegistered  = errors.New("player is already registered for this tournament")
	ErrInsufficientParticipants = errors.New("not enough confirmed participants to start")
	ErrBracketAlreadyScored     = errors.New("bracket already has recorded results")

	// Match progression.
	ErrGameOutOfOrder = errors.New("an earlier game of this match is still unfinished")
	ErrMatchNotRunning     = errors.New("match is not accepting results")
	ErrAmbiguousForfeit    = errors.New("both sides failed, match flagged for operator review")
	ErrUnknownSide         = errors.New("unknown winning side")

	// Entity-specific not-founds, more context than the generic one.
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrGameNotFound         = errors.New("game not found")
)
