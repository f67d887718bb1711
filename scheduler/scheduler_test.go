package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/events"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

// Fixture times sit well in the future so armed timers never fire during a
// test run; the clock the scheduler reads is injected.
func testScheduler(t *testing.T) (*Scheduler, *repositories.Store, time.Time) {
	t.Helper()
	store, _ := repositories.NewFakeStore()
	bus, err := events.NewBus(slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })

	s := NewScheduler(store, bus, slog.Default())
	base := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	s.now = func() time.Time { return base }
	return s, store, base
}

func seedBracket(t *testing.T, store *repositories.Store, startDate time.Time) (*models.Tournament, []*models.Match) {
	t.Helper()
	ctx := context.Background()
	tournament := &models.Tournament{
		Name:        "weekly",
		TeamSize:    1,
		BracketType: models.BracketSingleElimination,
		BestOf:      models.BestOfConfig{Round: 3, Final: 3, GrandFinal: 5},
		Schedule:    models.ScheduleStrategy{GameDurationSeconds: 3600, GameBreakDurationSeconds: 300},
		Status:      models.TournamentInProgress,
		StartDate:   startDate,
	}
	require.NoError(t, store.Tournaments.Create(ctx, tournament))

	participants := make([]*models.Participant, 4)
	for i := range participants {
		participants[i] = &models.Participant{TournamentID: tournament.ID, Name: "team"}
	}
	require.NoError(t, store.Participants.CreateBatch(ctx, nil, participants))
	ids := make([]int, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}

	engine := brackets.NewEngine(store, slog.Default()).WithShuffle(func([]int) {})
	_, err := engine.Generate(ctx, tournament, ids)
	require.NoError(t, err)

	matches, err := store.Matches.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	return tournament, matches
}

func TestInitialScheduleLaysOutRounds(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	start := base.Add(time.Hour)
	tournament, matches := seedBracket(t, store, start)

	require.NoError(t, s.InitialSchedule(ctx, tournament))

	gameDur := time.Duration(tournament.Schedule.GameDurationSeconds) * time.Second
	breakDur := time.Duration(tournament.Schedule.GameBreakDurationSeconds) * time.Second

	// Both first-round matches start together; the final waits for the
	// first round's best-of-3 block plus the break.
	finalStart := start.Add(3*gameDur + breakDur)
	for _, m := range matches {
		got, err := store.Matches.GetByID(ctx, m.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ScheduledDate)
		want := start
		if m.WinnerNextMatchID == nil {
			want = finalStart
		}
		assert.True(t, got.ScheduledDate.Equal(want), "match %d scheduled at %v, want %v", m.ID, got.ScheduledDate, want)

		games, err := store.Games.ListByMatch(ctx, m.ID)
		require.NoError(t, err)
		for i, g := range games {
			require.NotNil(t, g.ScheduledDate)
			assert.True(t, g.ScheduledDate.Equal(want.Add(time.Duration(i)*gameDur)))
		}
	}
}

func TestInitialScheduleInterleavesLoserBracket(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	start := base.Add(time.Hour)

	tournament := &models.Tournament{
		Name:        "weekly",
		TeamSize:    1,
		BracketType: models.BracketDoubleElimination,
		BestOf:      models.BestOfConfig{Round: 3, Final: 3, GrandFinal: 5},
		Schedule:    models.ScheduleStrategy{GameDurationSeconds: 3600, GameBreakDurationSeconds: 300},
		Status:      models.TournamentInProgress,
		StartDate:   start,
	}
	require.NoError(t, store.Tournaments.Create(ctx, tournament))
	participants := make([]*models.Participant, 4)
	for i := range participants {
		participants[i] = &models.Participant{TournamentID: tournament.ID, Name: "team"}
	}
	require.NoError(t, store.Participants.CreateBatch(ctx, nil, participants))
	ids := make([]int, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	engine := brackets.NewEngine(store, slog.Default()).WithShuffle(func([]int) {})
	_, err := engine.Generate(ctx, tournament, ids)
	require.NoError(t, err)

	require.NoError(t, s.InitialSchedule(ctx, tournament))

	gameDur := time.Duration(tournament.Schedule.GameDurationSeconds) * time.Second
	breakDur := time.Duration(tournament.Schedule.GameBreakDurationSeconds) * time.Second
	block := 3*gameDur + breakDur

	// Round order: winner round 1 (two matches), winner final, loser minor,
	// loser major, grand final. The loser minor only needs winner round 1,
	// so it plays alongside the winner final; the loser major waits for the
	// winner final and the grand final for the loser major.
	matches, err := store.Matches.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 6)
	want := []time.Time{
		start,
		start,
		start.Add(block),
		start.Add(block),
		start.Add(2 * block),
		start.Add(3 * block),
	}
	for i, m := range matches {
		got, err := store.Matches.GetByID(ctx, m.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ScheduledDate)
		assert.True(t, got.ScheduledDate.Equal(want[i]), "match %d scheduled at %v, want %v", i, got.ScheduledDate, want[i])
	}
}

func TestInitialScheduleUsesNowWhenStartPassed(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base.Add(-time.Hour))

	require.NoError(t, s.InitialSchedule(ctx, tournament))

	got, err := store.Matches.GetByID(ctx, matches[0].ID)
	require.NoError(t, err)
	assert.True(t, got.ScheduledDate.Equal(base))
}

func TestSweepDispatchesDueGamesInOrder(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)

	require.NoError(t, s.InitialSchedule(ctx, tournament))
	require.NoError(t, s.Sweep(ctx))

	for _, m := range matches {
		games, err := store.Games.ListByMatch(ctx, m.ID)
		require.NoError(t, err)
		got, err := store.Matches.GetByID(ctx, m.ID)
		require.NoError(t, err)

		if m.WinnerNextMatchID == nil {
			// The final has no opponents yet and is not due anyway.
			assert.Equal(t, models.MatchLocked, got.Status)
			for _, g := range games {
				assert.Nil(t, g.ExternalMatchID)
			}
			continue
		}
		assert.Equal(t, models.MatchRunning, got.Status)
		// Only the first game of each series is due at the start slot.
		require.NotNil(t, games[0].ExternalMatchID)
		assert.Nil(t, games[1].ExternalMatchID)
		assert.Nil(t, games[2].ExternalMatchID)
	}
}

func TestSweepIgnoresCanceledTournament(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	require.NoError(t, store.Tournaments.UpdateStatus(ctx, nil, tournament.ID, models.TournamentCanceled))
	require.NoError(t, s.CancelTournament(ctx, tournament.ID))

	require.NoError(t, s.Sweep(ctx))

	for _, m := range matches {
		games, err := store.Games.ListByMatch(ctx, m.ID)
		require.NoError(t, err)
		for _, g := range games {
			assert.Nil(t, g.ExternalMatchID)
		}
		got, err := store.Matches.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.NotEqual(t, models.MatchRunning, got.Status)
	}
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	release, ok, err := s.store.Locker.TryLockSweep(ctx, sweepLockKey)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	require.NoError(t, s.Sweep(ctx))

	games, err := store.Games.ListByMatch(ctx, matches[0].ID)
	require.NoError(t, err)
	assert.Nil(t, games[0].ExternalMatchID)
}

func TestTryDispatchSkipsOutOfOrderGame(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	games, err := store.Games.ListByMatch(ctx, matches[0].ID)
	require.NoError(t, err)
	require.NoError(t, store.Games.UpdateScheduledDate(ctx, nil, games[1].ID, base.Add(-time.Minute)))

	require.NoError(t, s.tryDispatch(ctx, games[1].ID))

	got, err := store.Games.GetByID(ctx, games[1].ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExternalMatchID)
}

func TestTryDispatchRetriesUnresolvedMatch(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	var final *models.Match
	for _, m := range matches {
		if m.WinnerNextMatchID == nil {
			final = m
		}
	}
	require.NotNil(t, final)

	games, err := store.Games.ListByMatch(ctx, final.ID)
	require.NoError(t, err)
	require.NoError(t, store.Games.UpdateScheduledDate(ctx, nil, games[0].ID, base.Add(-time.Minute)))

	require.NoError(t, s.tryDispatch(ctx, games[0].ID))

	got, err := store.Games.GetByID(ctx, games[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExternalMatchID)
	require.NotNil(t, got.ScheduledDate)
	assert.True(t, got.ScheduledDate.Equal(base.Add(s.retryInterval)))
}

func TestTryDispatchClosesGameOfCompletedMatch(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	first := matches[0]
	first.Status = models.MatchCompleted
	require.NoError(t, store.Matches.Update(ctx, nil, first))

	games, err := store.Games.ListByMatch(ctx, first.ID)
	require.NoError(t, err)
	require.NoError(t, s.tryDispatch(ctx, games[0].ID))

	got, err := store.Games.GetByID(ctx, games[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Finished)
	assert.Nil(t, got.ExternalMatchID)
}

func findFinal(t *testing.T, matches []*models.Match) *models.Match {
	t.Helper()
	for _, m := range matches {
		if m.WinnerNextMatchID == nil {
			return m
		}
	}
	t.Fatal("no final in bracket")
	return nil
}

func TestOnGameFinishedPushesLateDependentForward(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	first := matches[0]
	final := findFinal(t, matches)
	require.NoError(t, store.Matches.UpdateScheduledDate(ctx, nil, final.ID, base.Add(-time.Hour)))

	require.NoError(t, s.OnGameFinished(ctx, tournament, first.ID, 1))

	gameDur := time.Duration(tournament.Schedule.GameDurationSeconds) * time.Second
	breakDur := time.Duration(tournament.Schedule.GameBreakDurationSeconds) * time.Second
	candidate := base.Add(breakDur)

	got, err := store.Matches.GetByID(ctx, final.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ScheduledDate)
	assert.True(t, got.ScheduledDate.Equal(candidate))

	finalGames, err := store.Games.ListByMatch(ctx, final.ID)
	require.NoError(t, err)
	for _, g := range finalGames {
		require.NotNil(t, g.ScheduledDate)
		assert.True(t, g.ScheduledDate.Equal(candidate.Add(time.Duration(g.Number-1)*gameDur)))
	}

	// The finished match's own remaining games keep their slots; only the
	// dependent match is touched.
	games, err := store.Games.ListByMatch(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, games[1].ScheduledDate.Equal(base.Add(gameDur)))
	assert.True(t, games[2].ScheduledDate.Equal(base.Add(2*gameDur)))
}

func TestOnGameFinishedLeavesFarFutureScheduleAlone(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	first := matches[0]
	final := findFinal(t, matches)
	farFuture := base.Add(10 * time.Hour)
	require.NoError(t, store.Matches.UpdateScheduledDate(ctx, nil, final.ID, farFuture))
	finalGames, err := store.Games.ListByMatch(ctx, final.ID)
	require.NoError(t, err)
	require.NoError(t, store.Games.UpdateScheduledDate(ctx, nil, finalGames[0].ID, farFuture))

	require.NoError(t, s.OnGameFinished(ctx, tournament, first.ID, 1))

	got, err := store.Matches.GetByID(ctx, final.ID)
	require.NoError(t, err)
	assert.True(t, got.ScheduledDate.Equal(farFuture), "deliberately delayed match was moved to %v", got.ScheduledDate)
	g, err := store.Games.GetByID(ctx, finalGames[0].ID)
	require.NoError(t, err)
	assert.True(t, g.ScheduledDate.Equal(farFuture))
}

func TestCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, store, base := testScheduler(t)
	tournament, matches := seedBracket(t, store, base)
	require.NoError(t, s.InitialSchedule(ctx, tournament))

	games, err := store.Games.ListByMatch(ctx, matches[0].ID)
	require.NoError(t, err)

	s.Cancel(games[0].ID)
	s.Cancel(games[0].ID)
	require.NoError(t, s.CancelTournament(ctx, tournament.ID))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.timers)
}
