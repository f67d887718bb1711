package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/tournament-engine/events"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

// sweepLockKey is the advisory lock key for the dispatch sweep, shared by
// every instance pointed at the same database.
const sweepLockKey int64 = 7205_4410

// DefaultRetryInterval is how far an undispatchable game (opponents not
// resolved yet) is pushed before the next attempt.
const DefaultRetryInterval = 30 * time.Second

// Scheduler owns game timing: the initial schedule laid out at tournament
// start, cascading reschedules as games finish, and the dispatch of due
// games to the external provider. Timers are in-process; the periodic
// sweep picks up anything a lost timer missed.
type Scheduler struct {
	store  *repositories.Store
	bus    *events.Bus
	logger *slog.Logger

	mu     sync.Mutex
	timers map[int]*time.Timer // keyed by game id

	dispatchMu sync.Mutex

	now           func() time.Time
	retryInterval time.Duration
}

func NewScheduler(store *repositories.Store, bus *events.Bus, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:         store,
		bus:           bus,
		logger:        logger,
		timers:        map[int]*time.Timer{},
		now:           time.Now,
		retryInterval: DefaultRetryInterval,
	}
}

// Schedule persists the game's scheduled date and arms a timer for it,
// replacing any previous timer for the same game.
func (s *Scheduler) Schedule(ctx context.Context, game *models.MatchGame, at time.Time) error {
	if err := s.store.Games.UpdateScheduledDate(ctx, nil, game.ID, at); err != nil {
		return err
	}
	game.ScheduledDate = &at

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[game.ID]; ok {
		t.Stop()
	}
	gameID := game.ID
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timers[gameID] = time.AfterFunc(delay, func() {
		s.fire(gameID)
	})
	return nil
}

func (s *Scheduler) fire(gameID int) {
	s.mu.Lock()
	delete(s.timers, gameID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.tryDispatch(ctx, gameID); err != nil {
		s.logger.Error("game dispatch failed", slog.Int("game_id", gameID), slog.Any("error", err))
	}
}

// Cancel drops the timer for a game. Canceling a game with no timer is a
// no-op.
func (s *Scheduler) Cancel(gameID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[gameID]; ok {
		t.Stop()
		delete(s.timers, gameID)
	}
}

// CancelMatch drops the timers of every game of a match.
func (s *Scheduler) CancelMatch(ctx context.Context, matchID int) error {
	games, err := s.store.Games.ListByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	for _, g := range games {
		s.Cancel(g.ID)
	}
	return nil
}

// CancelTournament drops the timers of every game of a tournament.
func (s *Scheduler) CancelTournament(ctx context.Context, tournamentID int) error {
	games, err := s.store.Games.ListByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	for _, g := range games {
		s.Cancel(g.ID)
	}
	return nil
}

// InitialSchedule lays out the whole bracket from the tournament start.
// Matches are grouped by dependency depth: a match sits one level past its
// deepest feeder, so loser-bracket rounds interleave with the winner
// bracket instead of queueing behind it. Levels play sequentially, matches
// within a level in parallel; each level occupies its longest best-of block
// plus one break, and game i of a match starts i game-durations into its
// level.
func (s *Scheduler) InitialSchedule(ctx context.Context, tournament *models.Tournament) error {
	matches, err := s.store.Matches.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return err
	}
	games, err := s.store.Games.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return err
	}
	byMatch := map[int][]*models.MatchGame{}
	for _, g := range games {
		byMatch[g.MatchID] = append(byMatch[g.MatchID], g)
	}

	gameDur := time.Duration(tournament.Schedule.GameDurationSeconds) * time.Second
	breakDur := time.Duration(tournament.Schedule.GameBreakDurationSeconds) * time.Second

	start := s.now()
	if tournament.StartDate.After(start) {
		start = tournament.StartDate
	}

	// Provenance links point backward in list order, so a single pass
	// resolves every match's depth.
	level := make(map[int]int, len(matches))
	blockBestOf := map[int]int{}
	depth := 0
	for _, m := range matches {
		l := 1
		for _, src := range []*int{m.Opponent1.SourceMatchID, m.Opponent2.SourceMatchID} {
			if src != nil && level[*src] >= l {
				l = level[*src] + 1
			}
		}
		level[m.ID] = l
		if m.BestOf > blockBestOf[l] {
			blockBestOf[l] = m.BestOf
		}
		if l > depth {
			depth = l
		}
	}
	levelStart := make([]time.Time, depth+1)
	cursor := start
	for l := 1; l <= depth; l++ {
		levelStart[l] = cursor
		cursor = cursor.Add(time.Duration(blockBestOf[l])*gameDur + breakDur)
	}

	for _, m := range matches {
		if m.Status == models.MatchCompleted || m.Status == models.MatchArchived {
			continue
		}
		matchStart := levelStart[level[m.ID]]
		if err := s.store.Matches.UpdateScheduledDate(ctx, nil, m.ID, matchStart); err != nil {
			return err
		}
		for _, g := range byMatch[m.ID] {
			if g.Finished {
				continue
			}
			if err := s.Schedule(ctx, g, matchStart.Add(time.Duration(g.Number-1)*gameDur)); err != nil {
				return err
			}
		}
	}

	s.logger.Info("initial schedule laid out",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("matches", len(matches)),
		slog.Int("games", len(games)),
	)
	return nil
}

// OnGameFinished cascades downstream: the match fed by this match's winner
// moves to max(currentScheduledDate, now + breakDuration). The pass is
// forward-only, a dependent already scheduled at or beyond the candidate is
// left alone and stops the propagation; matches not on the winner chain are
// never touched.
func (s *Scheduler) OnGameFinished(ctx context.Context, tournament *models.Tournament, matchID, finishedNumber int) error {
	gameDur := time.Duration(tournament.Schedule.GameDurationSeconds) * time.Second
	breakDur := time.Duration(tournament.Schedule.GameBreakDurationSeconds) * time.Second

	current, err := s.store.Matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	candidate := s.now().Add(breakDur)
	for current.WinnerNextMatchID != nil {
		next, err := s.store.Matches.GetByID(ctx, *current.WinnerNextMatchID)
		if err != nil {
			return err
		}
		if next.Status == models.MatchCompleted || next.Status == models.MatchArchived {
			return nil
		}
		if next.ScheduledDate != nil && !next.ScheduledDate.Before(candidate) {
			return nil
		}
		if err := s.store.Matches.UpdateScheduledDate(ctx, nil, next.ID, candidate); err != nil {
			return err
		}
		games, err := s.store.Games.ListByMatch(ctx, next.ID)
		if err != nil {
			return err
		}
		for _, g := range games {
			if g.Finished || g.ExternalMatchID != nil {
				continue
			}
			if err := s.Schedule(ctx, g, candidate.Add(time.Duration(g.Number-1)*gameDur)); err != nil {
				return err
			}
		}
		s.logger.Debug("dependent match rescheduled",
			slog.Int("match_id", next.ID),
			slog.Int("source_match_id", current.ID),
			slog.Int("finished_game", finishedNumber),
			slog.Time("scheduled_date", candidate),
		)
		candidate = candidate.Add(time.Duration(next.BestOf)*gameDur + breakDur)
		current = next
	}
	return nil
}

// RunDispatchLoop sweeps for due games until ctx is canceled. The sweep is
// the safety net behind the in-process timers.
func (s *Scheduler) RunDispatchLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("dispatch sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep dispatches every due game. Instances contend on an advisory lock;
// losing the lock skips the cycle rather than waiting.
func (s *Scheduler) Sweep(ctx context.Context) error {
	release, ok, err := s.store.Locker.TryLockSweep(ctx, sweepLockKey)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("dispatch sweep already running elsewhere, skipping cycle")
		return nil
	}
	defer release()

	due, err := s.store.Games.ListDue(ctx, s.now())
	if err != nil {
		return err
	}
	for _, g := range due {
		if err := s.tryDispatch(ctx, g.ID); err != nil {
			s.logger.Error("game dispatch failed", slog.Int("game_id", g.ID), slog.Any("error", err))
		}
	}
	return nil
}

// tryDispatch binds an external match id to a due game and announces it.
// Every early return is a deliberate no-op: fired timers for finished or
// already-dispatched games, matches waiting on opponents, out-of-order
// games.
func (s *Scheduler) tryDispatch(ctx context.Context, gameID int) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	game, err := s.store.Games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchGameNotFound) {
			return nil
		}
		return err
	}
	if game.Finished || game.ExternalMatchID != nil {
		return nil
	}
	if game.ScheduledDate == nil || game.ScheduledDate.After(s.now()) {
		return nil
	}

	// Canceled and finished tournaments keep their rows; their games must
	// never reach the provider.
	tournament, err := s.store.Tournaments.GetByID(ctx, game.TournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentInProgress {
		return nil
	}

	match, err := s.store.Matches.GetByID(ctx, game.MatchID)
	if err != nil {
		return err
	}
	if match.Status == models.MatchCompleted || match.Status == models.MatchArchived {
		// The series is over; close the leftover game out.
		game.Finished = true
		return s.store.Games.Update(ctx, nil, game)
	}
	if !match.Opponent1.Resolved() || !match.Opponent2.Resolved() {
		return s.Schedule(ctx, game, s.now().Add(s.retryInterval))
	}

	// In-order dispatch: every earlier game of the series must be done.
	siblings, err := s.store.Games.ListByMatch(ctx, game.MatchID)
	if err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.Number < game.Number && !sib.Finished {
			return nil
		}
	}

	radiant, dire, err := s.sides(ctx, match, game)
	if err != nil {
		return err
	}

	extID := uuid.NewString()
	game.ExternalMatchID = &extID
	if err := s.store.Games.Update(ctx, nil, game); err != nil {
		return err
	}
	if match.Status == models.MatchReady {
		match.Status = models.MatchRunning
		if err := s.store.Matches.Update(ctx, nil, match); err != nil {
			return err
		}
	}

	s.logger.Info("game dispatched",
		slog.Int("tournament_id", game.TournamentID),
		slog.Int("match_id", game.MatchID),
		slog.Int("game_id", game.ID),
		slog.String("external_match_id", extID),
	)
	return s.bus.Publish(events.TopicGameReady, events.GameReady{
		TournamentID:    game.TournamentID,
		MatchID:         game.MatchID,
		GameID:          game.ID,
		ExternalMatchID: extID,
		BestOf:          match.BestOf,
		GameNumber:      game.Number,
		RadiantSteamIDs: radiant,
		DireSteamIDs:    dire,
	})
}

// sides maps the opponent slots to provider sides. TeamOffset alternates
// sides between consecutive games of a series.
func (s *Scheduler) sides(ctx context.Context, match *models.Match, game *models.MatchGame) (radiant, dire []string, err error) {
	first, err := s.steamIDs(ctx, *match.Opponent1.ParticipantID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.steamIDs(ctx, *match.Opponent2.ParticipantID)
	if err != nil {
		return nil, nil, err
	}
	if (game.Number-1+game.TeamOffset)%2 == 0 {
		return first, second, nil
	}
	return second, first, nil
}

func (s *Scheduler) steamIDs(ctx context.Context, participantID int) ([]string, error) {
	participant, err := s.store.Participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if participant.RegistrationID == nil {
		return nil, nil
	}
	registration, err := s.store.Registrations.GetByID(ctx, *participant.RegistrationID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(registration.Players))
	for _, p := range registration.Players {
		ids = append(ids, p.SteamID)
	}
	return ids, nil
}
