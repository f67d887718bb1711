package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/events"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

// ProgressionService consumes game outcomes from the external provider and
// moves series and the bracket forward.
type ProgressionService interface {
	RecordGameResult(ctx context.Context, result events.GameResult) error
	HandleMatchFailed(ctx context.Context, failure events.MatchFailed) error
	HandleMatchCancelled(ctx context.Context, cancel events.MatchCancelled) error
}

type progressionService struct {
	store     *repositories.Store
	engine    *brackets.Engine
	scheduler GameScheduler
	bus       EventPublisher
	logger    *slog.Logger

	locks keyedMutex
}

// GameScheduler is the slice of the scheduler progression needs.
type GameScheduler interface {
	Schedule(ctx context.Context, game *models.MatchGame, at time.Time) error
	Cancel(gameID int)
	OnGameFinished(ctx context.Context, tournament *models.Tournament, matchID, finishedNumber int) error
}

// EventPublisher is the slice of the event bus progression needs.
type EventPublisher interface {
	Publish(topic string, payload interface{}) error
}

func NewProgressionService(store *repositories.Store, engine *brackets.Engine, sched GameScheduler, bus EventPublisher, logger *slog.Logger) ProgressionService {
	return &progressionService{
		store:     store,
		engine:    engine,
		scheduler: sched,
		bus:       bus,
		logger:    logger,
	}
}

// keyedMutex serializes work per match id. Results for different matches
// proceed in parallel; two results for the same match never interleave.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key int) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[int]*entry{}
	}
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// RecordGameResult applies one finished game. Results are accepted in game
// order only; a repeated result for a finished game is a no-op.
func (s *progressionService) RecordGameResult(ctx context.Context, result events.GameResult) error {
	game, err := s.store.Games.GetByExternalID(ctx, result.ExternalMatchID)
	if err != nil {
		return mapRepositoryError(err)
	}

	unlock := s.locks.lock(game.MatchID)
	defer unlock()

	// Re-read under the match lock; a concurrent duplicate may have won.
	game, err = s.store.Games.GetByExternalID(ctx, result.ExternalMatchID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if game.Finished {
		return nil
	}

	match, err := s.store.Matches.GetByID(ctx, game.MatchID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if match.Status != models.MatchRunning {
		return fmt.Errorf("%w: match %d is %s", ErrMatchNotRunning, match.ID, match.Status)
	}

	siblings, err := s.store.Games.ListByMatch(ctx, game.MatchID)
	if err != nil {
		return mapRepositoryError(err)
	}
	for _, sib := range siblings {
		if sib.Number < game.Number && !sib.Finished {
			return fmt.Errorf("%w: game %d before game %d", ErrGameOutOfOrder, sib.Number, game.Number)
		}
	}

	winnerID, loserID, err := s.winnerOfGame(match, game, result.WinningSide)
	if err != nil {
		return err
	}

	game.Finished = true
	game.WinnerParticipantID = &winnerID
	game.LoserParticipantID = &loserID
	if err := s.store.Games.Update(ctx, nil, game); err != nil {
		return mapRepositoryError(err)
	}

	score1, score2 := seriesScore(match, siblings, game)
	patch := &models.MatchPatch{
		Opponent1: &models.OpponentPatch{Score: &score1},
		Opponent2: &models.OpponentPatch{Score: &score2},
	}

	toWin := models.ScoreToWin(match.BestOf)
	decided := score1 >= toWin || score2 >= toWin
	if decided {
		win, loss := models.ResultWin, models.ResultLoss
		if score1 >= toWin {
			patch.Opponent1.Result = &win
			patch.Opponent2.Result = &loss
		} else {
			patch.Opponent1.Result = &loss
			patch.Opponent2.Result = &win
		}
	}

	updated, err := s.engine.UpdateMatch(ctx, match.ID, patch)
	if err != nil {
		return mapRepositoryError(err)
	}

	if decided {
		if err := s.cancelTrailingGames(ctx, siblings, game.Number); err != nil {
			return err
		}
	}

	// Every finished game cascades to the dependent match, decided or not.
	tournament, err := s.store.Tournaments.GetByID(ctx, game.TournamentID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if err := s.scheduler.OnGameFinished(ctx, tournament, match.ID, game.Number); err != nil {
		return err
	}

	s.logger.Info("game result recorded",
		slog.Int("tournament_id", game.TournamentID),
		slog.Int("match_id", match.ID),
		slog.Int("game_number", game.Number),
		slog.Int("score1", score1),
		slog.Int("score2", score2),
		slog.Bool("series_decided", decided),
	)
	return s.publishBracketUpdated(updated.TournamentID, updated.ID, &game.ID)
}

// winnerOfGame maps the provider side back onto the opponent slots using
// the per-game side offset.
func (s *progressionService) winnerOfGame(match *models.Match, game *models.MatchGame, side string) (winnerID, loserID int, err error) {
	if side != events.SideRadiant && side != events.SideDire {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}
	first := derefInt(match.Opponent1.ParticipantID)
	second := derefInt(match.Opponent2.ParticipantID)
	opponent1Radiant := (game.Number-1+game.TeamOffset)%2 == 0
	if (side == events.SideRadiant) == opponent1Radiant {
		return first, second, nil
	}
	return second, first, nil
}

// seriesScore counts wins per slot across the finished games, with the
// just-finished game folded in.
func seriesScore(match *models.Match, siblings []*models.MatchGame, justFinished *models.MatchGame) (score1, score2 int) {
	count := func(g *models.MatchGame) {
		if g.WinnerParticipantID == nil {
			return
		}
		switch {
		case match.Opponent1.ParticipantID != nil && *g.WinnerParticipantID == *match.Opponent1.ParticipantID:
			score1++
		case match.Opponent2.ParticipantID != nil && *g.WinnerParticipantID == *match.Opponent2.ParticipantID:
			score2++
		}
	}
	for _, g := range siblings {
		if g.ID == justFinished.ID {
			count(justFinished)
			continue
		}
		if g.Finished {
			count(g)
		}
	}
	return score1, score2
}

// cancelTrailingGames closes out the games a decided series no longer
// needs.
func (s *progressionService) cancelTrailingGames(ctx context.Context, siblings []*models.MatchGame, decidedAt int) error {
	for _, g := range siblings {
		if g.Number <= decidedAt || g.Finished {
			continue
		}
		s.scheduler.Cancel(g.ID)
		g.Finished = true
		if err := s.store.Games.Update(ctx, nil, g); err != nil {
			return mapRepositoryError(err)
		}
	}
	return nil
}

// HandleMatchFailed ends the series by forfeit when exactly one side is at
// fault. Mutual fault flags the match for operator review and leaves it
// running; a failure naming no player of either side is logged and ignored.
func (s *progressionService) HandleMatchFailed(ctx context.Context, failure events.MatchFailed) error {
	game, err := s.store.Games.GetByExternalID(ctx, failure.ExternalMatchID)
	if err != nil {
		return mapRepositoryError(err)
	}

	unlock := s.locks.lock(game.MatchID)
	defer unlock()

	match, err := s.store.Matches.GetByID(ctx, game.MatchID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if match.Status == models.MatchCompleted || match.Status == models.MatchArchived {
		return nil
	}

	fault1, fault2, err := s.faultSides(ctx, match, failure.FailedSteamIDs)
	if err != nil {
		return err
	}

	if !fault1 && !fault2 {
		s.logger.Warn("match failure names no player of either side, ignored",
			slog.Int("match_id", match.ID),
			slog.String("external_match_id", failure.ExternalMatchID),
			slog.String("reason", failure.Reason),
		)
		return nil
	}
	if fault1 && fault2 {
		match.NeedsAttention = true
		if err := s.store.Matches.Update(ctx, nil, match); err != nil {
			return mapRepositoryError(err)
		}
		s.logger.Error("both sides at fault, match flagged for review",
			slog.Int("match_id", match.ID),
			slog.String("external_match_id", failure.ExternalMatchID),
			slog.String("reason", failure.Reason),
		)
		if err := s.publishBracketUpdated(match.TournamentID, match.ID, nil); err != nil {
			return err
		}
		return ErrAmbiguousForfeit
	}

	forfeit := true
	win, loss := models.ResultWin, models.ResultLoss
	awarded := models.ScoreToWin(match.BestOf)
	patch := &models.MatchPatch{Opponent1: &models.OpponentPatch{}, Opponent2: &models.OpponentPatch{}}
	if fault1 {
		patch.Opponent1.Forfeit = &forfeit
		patch.Opponent1.Result = &loss
		patch.Opponent2.Result = &win
		patch.Opponent2.Score = &awarded
	} else {
		patch.Opponent2.Forfeit = &forfeit
		patch.Opponent2.Result = &loss
		patch.Opponent1.Result = &win
		patch.Opponent1.Score = &awarded
	}

	updated, err := s.engine.UpdateMatch(ctx, match.ID, patch)
	if err != nil {
		return mapRepositoryError(err)
	}

	siblings, err := s.store.Games.ListByMatch(ctx, match.ID)
	if err != nil {
		return mapRepositoryError(err)
	}
	if err := s.cancelTrailingGames(ctx, siblings, 0); err != nil {
		return err
	}

	s.logger.Info("match forfeited",
		slog.Int("match_id", match.ID),
		slog.String("external_match_id", failure.ExternalMatchID),
		slog.String("reason", failure.Reason),
	)
	return s.publishBracketUpdated(updated.TournamentID, updated.ID, nil)
}

// faultSides attributes the failed steam ids to the opponent slots.
func (s *progressionService) faultSides(ctx context.Context, match *models.Match, failedSteamIDs []string) (fault1, fault2 bool, err error) {
	if len(failedSteamIDs) == 0 {
		return false, false, nil
	}
	side1, err := s.partySteamIDs(ctx, match.Opponent1.ParticipantID)
	if err != nil {
		return false, false, err
	}
	side2, err := s.partySteamIDs(ctx, match.Opponent2.ParticipantID)
	if err != nil {
		return false, false, err
	}
	for _, id := range failedSteamIDs {
		if _, ok := side1[id]; ok {
			fault1 = true
		}
		if _, ok := side2[id]; ok {
			fault2 = true
		}
	}
	return fault1, fault2, nil
}

func (s *progressionService) partySteamIDs(ctx context.Context, participantID *int) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	if participantID == nil {
		return out, nil
	}
	participant, err := s.store.Participants.GetByID(ctx, *participantID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if participant.RegistrationID == nil {
		return out, nil
	}
	registration, err := s.store.Registrations.GetByID(ctx, *participant.RegistrationID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	for _, p := range registration.Players {
		out[p.SteamID] = struct{}{}
	}
	return out, nil
}

// HandleMatchCancelled returns the game to the dispatch pool: the external
// binding is dropped and the sweep picks the game up again.
func (s *progressionService) HandleMatchCancelled(ctx context.Context, cancel events.MatchCancelled) error {
	game, err := s.store.Games.GetByExternalID(ctx, cancel.ExternalMatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchGameNotFound) {
			return nil
		}
		return mapRepositoryError(err)
	}
	if game.Finished {
		return nil
	}
	if err := s.store.Games.DetachExternal(ctx, cancel.ExternalMatchID); err != nil {
		return mapRepositoryError(err)
	}
	s.logger.Info("game returned to dispatch pool",
		slog.Int("game_id", game.ID),
		slog.String("external_match_id", cancel.ExternalMatchID),
		slog.String("reason", cancel.Reason),
	)
	return nil
}

func (s *progressionService) publishBracketUpdated(tournamentID, matchID int, gameID *int) error {
	return s.bus.Publish(events.TopicBracketUpdated, events.BracketUpdated{
		TournamentID: tournamentID,
		MatchID:      matchID,
		GameID:       gameID,
	})
}
