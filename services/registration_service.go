package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

// RegistrationService manages party registration and the ready check.
// Parties are atomic: they register together, confirm individually, and
// leave together.
type RegistrationService interface {
	RegisterParty(ctx context.Context, tournamentID int, steamIDs []string) (*models.Registration, error)
	UnregisterPlayer(ctx context.Context, tournamentID int, steamID string) error
	ListParties(ctx context.Context, tournamentID int) ([]*models.Registration, error)

	OpenReadyCheck(ctx context.Context, tournamentID int) error
	ConfirmPlayer(ctx context.Context, tournamentID int, steamID string) error
	DeclinePlayer(ctx context.Context, tournamentID int, steamID string) error
	// CloseReadyCheck times out every still-pending player, recomputes the
	// party aggregates and returns the confirmed parties.
	CloseReadyCheck(ctx context.Context, tournamentID int) ([]*models.Registration, error)
}

type registrationService struct {
	store  *repositories.Store
	logger *slog.Logger
}

func NewRegistrationService(store *repositories.Store, logger *slog.Logger) RegistrationService {
	return &registrationService{store: store, logger: logger}
}

func (s *registrationService) RegisterParty(ctx context.Context, tournamentID int, steamIDs []string) (*models.Registration, error) {
	tournament, err := s.store.Tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if tournament.Status != models.TournamentRegistration {
		return nil, ErrRegistrationNotOpen
	}
	if len(steamIDs) != tournament.TeamSize {
		return nil, fmt.Errorf("%w: expected %d players, got %d", ErrPartySizeMismatch, tournament.TeamSize, len(steamIDs))
	}
	seen := make(map[string]struct{}, len(steamIDs))
	for _, id := range steamIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty steam id", ErrValidationFailed)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate steam id %s", ErrValidationFailed, id)
		}
		seen[id] = struct{}{}
	}
	// A steam id may appear in at most one party per tournament. The unique
	// index backs this up; the lookup here gives the caller a precise error.
	for _, id := range steamIDs {
		_, err := s.store.Registrations.FindPlayerBySteamID(ctx, tournamentID, id)
		if err == nil {
			return nil, fmt.Errorf("%w: %s", ErrPlayerAlreadyRegistered, id)
		}
		if !errors.Is(err, repositories.ErrRegistrationPlayerNotFound) {
			return nil, mapRepositoryError(err)
		}
	}

	registration := &models.Registration{
		TournamentID: tournamentID,
		State:        models.RegistrationCreated,
		Players:      make([]models.RegistrationPlayer, 0, len(steamIDs)),
	}
	for _, id := range steamIDs {
		registration.Players = append(registration.Players, models.RegistrationPlayer{
			SteamID: id,
			State:   models.PlayerCreated,
		})
	}

	err = s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.store.Registrations.Create(ctx, exec, registration)
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	s.logger.Info("party registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("registration_id", registration.ID),
		slog.Int("players", len(registration.Players)),
	)
	return registration, nil
}

// UnregisterPlayer removes the whole party the player belongs to. Partial
// parties never persist.
func (s *registrationService) UnregisterPlayer(ctx context.Context, tournamentID int, steamID string) error {
	tournament, err := s.store.Tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if tournament.Status != models.TournamentRegistration {
		return ErrRegistrationNotOpen
	}
	player, err := s.store.Registrations.FindPlayerBySteamID(ctx, tournamentID, steamID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if err := s.store.Registrations.Delete(ctx, player.RegistrationID); err != nil {
		return mapRepositoryError(err)
	}
	s.logger.Info("party unregistered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("registration_id", player.RegistrationID),
		slog.String("requested_by", steamID),
	)
	return nil
}

func (s *registrationService) ListParties(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	registrations, err := s.store.Registrations.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return registrations, nil
}

// OpenReadyCheck moves every registered player into pending confirmation.
func (s *registrationService) OpenReadyCheck(ctx context.Context, tournamentID int) error {
	return s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		moved, err := s.store.Registrations.BulkAdvancePlayers(ctx, exec, tournamentID,
			[]models.PlayerState{models.PlayerCreated}, models.PlayerPendingConfirmation)
		if err != nil {
			return err
		}
		s.logger.Info("ready check opened",
			slog.Int("tournament_id", tournamentID),
			slog.Int64("players_pending", moved),
		)
		return nil
	})
}

func (s *registrationService) ConfirmPlayer(ctx context.Context, tournamentID int, steamID string) error {
	return s.setPlayerState(ctx, tournamentID, steamID, models.PlayerConfirmed)
}

func (s *registrationService) DeclinePlayer(ctx context.Context, tournamentID int, steamID string) error {
	return s.setPlayerState(ctx, tournamentID, steamID, models.PlayerDeclined)
}

func (s *registrationService) setPlayerState(ctx context.Context, tournamentID int, steamID string, state models.PlayerState) error {
	tournament, err := s.store.Tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if tournament.Status != models.TournamentReadyCheck {
		return ErrReadyCheckNotOpen
	}
	player, err := s.store.Registrations.FindPlayerBySteamID(ctx, tournamentID, steamID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if player.State == state {
		return nil
	}
	if player.State != models.PlayerPendingConfirmation {
		return fmt.Errorf("%w: player is %s", ErrReadyCheckNotOpen, player.State)
	}
	if err := s.store.Registrations.UpdatePlayerState(ctx, nil, player.ID, state); err != nil {
		return mapRepositoryError(err)
	}
	s.logger.Info("ready check answer",
		slog.Int("tournament_id", tournamentID),
		slog.String("steam_id", steamID),
		slog.String("state", string(state)),
	)
	return nil
}

func (s *registrationService) CloseReadyCheck(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	err := s.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		timedOut, err := s.store.Registrations.BulkAdvancePlayers(ctx, exec, tournamentID,
			[]models.PlayerState{models.PlayerCreated, models.PlayerPendingConfirmation}, models.PlayerTimedOut)
		if err != nil {
			return err
		}
		if timedOut > 0 {
			s.logger.Info("ready check timeouts",
				slog.Int("tournament_id", tournamentID),
				slog.Int64("players_timed_out", timedOut),
			)
		}
		return s.store.Registrations.RecomputeAggregateStates(ctx, exec, tournamentID)
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	registrations, err := s.store.Registrations.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	confirmed := make([]*models.Registration, 0, len(registrations))
	for _, reg := range registrations {
		if reg.State == models.RegistrationConfirmed {
			confirmed = append(confirmed, reg)
		}
	}
	s.logger.Info("ready check closed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("parties_confirmed", len(confirmed)),
		slog.Int("parties_total", len(registrations)),
	)
	return confirmed, nil
}
