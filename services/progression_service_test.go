package services

import (
	"context"
	"fmt"
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

type stubGameScheduler struct {
	scheduled map[int]time.Time
	cancelled []int
	cascaded  []int // game numbers passed to OnGameFinished
}

func newStubGameScheduler() *stubGameScheduler {
	return &stubGameScheduler{scheduled: map[int]time.Time{}}
}

func (s *stubGameScheduler) Schedule(ctx context.Context, game *models.MatchGame, at time.Time) error {
	s.scheduled[game.ID] = at
	return nil
}

func (s *stubGameScheduler) Cancel(gameID int) {
	s.cancelled = append(s.cancelled, gameID)
}

func (s *stubGameScheduler) OnGameFinished(ctx context.Context, tournament *models.Tournament, matchID, finishedNumber int) error {
	s.cascaded = append(s.cascaded, finishedNumber)
	return nil
}

type stubPublisher struct {
	topics []string
}

func (p *stubPublisher) Publish(topic string, payload interface{}) error {
	p.topics = append(p.topics, topic)
	return nil
}

type progressionFixture struct {
	svc        ProgressionService
	store      *repositories.Store
	tournament *models.Tournament
	match      *models.Match
	games      []*models.MatchGame
	sched      *stubGameScheduler
	bus        *stubPublisher
}

// progressionTestFixture builds a running four-party bracket with the first
// first-round series bound to external match ids ext-1..ext-3.
func progressionTestFixture(t *testing.T) *progressionFixture {
	t.Helper()
	ctx := context.Background()
	store, _ := repositories.NewFakeStore()

	tournament := &models.Tournament{
		Name:        "solo cup",
		TeamSize:    1,
		BracketType: models.BracketSingleElimination,
		BestOf:      models.BestOfConfig{Round: 3, Final: 3, GrandFinal: 5},
		Schedule:    models.ScheduleStrategy{GameDurationSeconds: 3600, GameBreakDurationSeconds: 300},
		Status:      models.TournamentInProgress,
	}
	require.NoError(t, store.Tournaments.Create(ctx, tournament))

	participantIDs := make([]int, 0, 4)
	for i := 1; i <= 4; i++ {
		reg := &models.Registration{
			TournamentID: tournament.ID,
			State:        models.RegistrationConfirmed,
			Players: []models.RegistrationPlayer{
				{SteamID: fmt.Sprintf("p%d", i), State: models.PlayerConfirmed},
			},
		}
		require.NoError(t, store.Registrations.Create(ctx, nil, reg))
		participant := &models.Participant{
			TournamentID:   tournament.ID,
			RegistrationID: &reg.ID,
			Name:           reg.Players[0].SteamID,
		}
		require.NoError(t, store.Participants.CreateBatch(ctx, nil, []*models.Participant{participant}))
		participantIDs = append(participantIDs, participant.ID)
	}

	engine := brackets.NewEngine(store, slog.Default()).WithShuffle(func([]int) {})
	_, err := engine.Generate(ctx, tournament, participantIDs)
	require.NoError(t, err)

	matches, err := store.Matches.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	match := matches[0]
	require.NotNil(t, match.WinnerNextMatchID)

	match.Status = models.MatchRunning
	require.NoError(t, store.Matches.Update(ctx, nil, match))

	games, err := store.Games.ListByMatch(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, games, 3)
	for i, g := range games {
		extID := fmt.Sprintf("ext-%d", i+1)
		g.ExternalMatchID = &extID
		require.NoError(t, store.Games.Update(ctx, nil, g))
	}

	sched := newStubGameScheduler()
	bus := &stubPublisher{}
	svc := NewProgressionService(store, engine, sched, bus, slog.Default())
	return &progressionFixture{
		svc:        svc,
		store:      store,
		tournament: tournament,
		match:      match,
		games:      games,
		sched:      sched,
		bus:        bus,
	}
}

// winningSide returns the provider side the given slot plays in this game.
func winningSide(game *models.MatchGame, opponent1 bool) string {
	opponent1Radiant := (game.Number-1+game.TeamOffset)%2 == 0
	if opponent1 == opponent1Radiant {
		return events.SideRadiant
	}
	return events.SideDire
}

func TestRecordGameResultSeriesFlow(t *testing.T) {
	ctx := context.Background()
	f := progressionTestFixture(t)

	err := f.svc.RecordGameResult(ctx, events.GameResult{
		ExternalMatchID: "ext-1",
		WinningSide:     winningSide(f.games[0], true),
	})
	require.NoError(t, err)

	match, err := f.store.Matches.GetByID(ctx, f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchRunning, match.Status)
	assert.Equal(t, 1, *match.Opponent1.Score)
	assert.Equal(t, 0, *match.Opponent2.Score)
	assert.Equal(t, []int{1}, f.sched.cascaded)

	game, err := f.store.Games.GetByID(ctx, f.games[0].ID)
	require.NoError(t, err)
	assert.True(t, game.Finished)
	assert.Equal(t, *match.Opponent1.ParticipantID, *game.WinnerParticipantID)

	// Second win closes the best-of-3.
	err = f.svc.RecordGameResult(ctx, events.GameResult{
		ExternalMatchID: "ext-2",
		WinningSide:     winningSide(f.games[1], true),
	})
	require.NoError(t, err)

	match, err = f.store.Matches.GetByID(ctx, f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	assert.Equal(t, 2, *match.Opponent1.Score)
	require.NotNil(t, match.Winner())
	assert.Equal(t, *match.Opponent1.ParticipantID, *match.Winner())

	// The unneeded third game is closed out and its timer dropped.
	trailing, err := f.store.Games.GetByID(ctx, f.games[2].ID)
	require.NoError(t, err)
	assert.True(t, trailing.Finished)
	assert.Nil(t, trailing.WinnerParticipantID)
	assert.Contains(t, f.sched.cancelled, f.games[2].ID)

	// The winner lands in the linked slot of the next match.
	next, err := f.store.Matches.GetByID(ctx, *f.match.WinnerNextMatchID)
	require.NoError(t, err)
	slot := next.Opponent1
	if *f.match.WinnerNextSlot == 2 {
		slot = next.Opponent2
	}
	require.NotNil(t, slot.ParticipantID)
	assert.Equal(t, *match.Winner(), *slot.ParticipantID)

	assert.Equal(t, []string{events.TopicBracketUpdated, events.TopicBracketUpdated}, f.bus.topics)

	// The deciding game cascades to the dependent match like any other.
	assert.Equal(t, []int{1, 2}, f.sched.cascaded)
}

func TestRecordGameResultRejectsOutOfOrder(t *testing.T) {
	f := progressionTestFixture(t)

	err := f.svc.RecordGameResult(context.Background(), events.GameResult{
		ExternalMatchID: "ext-2",
		WinningSide:     winningSide(f.games[1], true),
	})
	assert.ErrorIs(t, err, ErrGameOutOfOrder)
}

func TestRecordGameResultDuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := progressionTestFixture(t)

	result := events.GameResult{
		ExternalMatchID: "ext-1",
		WinningSide:     winningSide(f.games[0], true),
	}
	require.NoError(t, f.svc.RecordGameResult(ctx, result))
	require.NoError(t, f.svc.RecordGameResult(ctx, result))

	match, err := f.store.Matches.GetByID(ctx, f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, *match.Opponent1.Score)
	assert.Equal(t, []int{1}, f.sched.cascaded)
}

func TestRecordGameResultUnknownSide(t *testing.T) {
	f := progressionTestFixture(t)

	err := f.svc.RecordGameResult(context.Background(), events.GameResult{
		ExternalMatchID: "ext-1",
		WinningSide:     "left",
	})
	assert.ErrorIs(t, err, ErrUnknownSide)
}

func TestRecordGameResultRequiresRunningMatch(t *testing.T) {
	ctx := context.Background()
	f := progressionTestFixture(t)

	f.match.Status = models.MatchReady
	require.NoError(t, f.store.Matches.Update(ctx, nil, f.match))

	err := f.svc.RecordGameResult(ctx, events.GameResult{
		ExternalMatchID: "ext-1",
		WinningSide:     winningSide(f.games[0], true),
	})
	assert.ErrorIs(t, err, ErrMatchNotRunning)
}

func TestRecordGameResultUnknownExternalID(t *testing.T) {
	f := progressionTestFixture(t)

	err := f.svc.RecordGameResult(context.Background(), events.GameResult{
		ExternalMatchID: "never-dispatched",
		WinningSide:     events.SideRadiant,
	})
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestHandleMatchFailedOneSidedForfeit(t *testing.T) {
	ctx := context.Background()
	f := progressionTestFixture(t)

	// p4 is the second slot of the first match.
	err := f.svc.HandleMatchFailed(ctx, events.MatchFailed{
		ExternalMatchID: "ext-1",
		Reason:          "players did not connect",
		FailedSteamIDs:  []string{"p4"},
	})
	require.NoError(t, err)

	match, err := f.store.Matches.GetByID(ctx, f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	require.NotNil(t, match.Opponent2.Forfeit)
	assert.True(t, *match.Opponent2.Forfeit)
	assert.Equal(t, *match.Opponent1.ParticipantID, *match.Winner())
	assert.Equal(t, models.ScoreToWin(match.BestOf), *match.Opponent1.Score)

	for _, g := range f.games {
		got, err := f.store.Games.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.True(t, got.Finished)
	}
}

func TestHandleMatchFailedMutualFaultNeedsAttention(t *testing.T) {
	ctx := context.Background()
	f := progressionTestFixture(t)

	err := f.svc.HandleMatchFailed(ctx, events.MatchFailed{
		ExternalMatchID: "ext-1",
		Reason:          "both sides failed to load",
		FailedSteamIDs:  []string{"p1", "p4"},
	})
	assert.ErrorIs(t, err, ErrAmbiguousForfeit)

	match, err := f.store.Matches.GetByID(ctx, f.match.ID)
	require.NoError(t, err)
	assert.True(t, match.NeedsAttention)
	assert.Equal(t, models.MatchRunning, match.Status)
	assert.Nil(t, match.Winner())
}

func TestHandleMatchFailedWithoutCulpritsIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := progressionTestFixture(t)

	err := f.svc.HandleMatchFailed(ctx, events.MatchFailed{
		ExternalMatchID: "ext-1",
		Reason:          "lobby timed out",
	})
	require.NoError(t, err)

	match, err := f.store.Matches.GetByID(ctx, f.match.ID)
	require.NoError(t, err)
	assert.False(t, match.NeedsAttention)
	assert.Equal(t, models.MatchRunning, match.Status)
	assert.Empty(t, f.bus.topics)

	game, err := f.store.Games.GetByID(ctx, f.games[0].ID)
	require.NoError(t, err)
	assert.False(t, game.Finished)
}

func TestHandleMatchCancelledReturnsGameToPool(t *testing.T) {
	ctx := context.Background()
	f := progressionTestFixture(t)

	require.NoError(t, f.svc.HandleMatchCancelled(ctx, events.MatchCancelled{
		ExternalMatchID: "ext-1",
		Reason:          "lobby expired",
	}))

	game, err := f.store.Games.GetByID(ctx, f.games[0].ID)
	require.NoError(t, err)
	assert.Nil(t, game.ExternalMatchID)
	assert.False(t, game.Finished)

	// Unknown or already-finished bindings are silently ignored.
	assert.NoError(t, f.svc.HandleMatchCancelled(ctx, events.MatchCancelled{
		ExternalMatchID: "never-dispatched",
	}))
}
