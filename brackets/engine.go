package brackets

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

// Engine owns the bracket topology: it generates and persists the full
// stage/group/round/match graph, applies merge-semantics match updates and
// advances winners (and losers, for double elimination) along the forward
// links written at generation time.
type Engine struct {
	store   *repositories.Store
	logger  *slog.Logger
	shuffle func([]int)
}

func NewEngine(store *repositories.Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		shuffle: func(ids []int) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
	}
}

// WithShuffle replaces the seed shuffle, used by tests and by callers that
// supply their own seeding order.
func (e *Engine) WithShuffle(shuffle func([]int)) *Engine {
	e.shuffle = shuffle
	return e
}

// Generate builds and persists the bracket for the tournament in one
// transaction. Participant ids are shuffled, padded to the next power of
// two with BYEs, and BYE matches are auto-resolved before the stage is
// returned.
func (e *Engine) Generate(ctx context.Context, tournament *models.Tournament, participantIDs []int) (*models.Stage, error) {
	if len(participantIDs) < MinParticipants {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientParticipants, len(participantIDs))
	}

	generator, err := generatorFor(tournament.BracketType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, tournament.BracketType)
	}

	seedIDs := make([]int, len(participantIDs))
	copy(seedIDs, participantIDs)
	e.shuffle(seedIDs)

	generated, err := generator.Generate(PadSeeds(seedIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket: %w", generator.Name(), err)
	}

	stage := &models.Stage{
		TournamentID: tournament.ID,
		Type:         models.StageType(tournament.BracketType),
	}

	err = e.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return e.persist(ctx, exec, tournament, stage, generated)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("type", generator.Name()),
		slog.Int("participants", len(participantIDs)),
		slog.Int("matches", len(generated)),
	)
	return stage, nil
}

func (e *Engine) persist(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, generated []*GeneratedMatch) error {
	if err := e.store.Stages.Create(ctx, exec, stage); err != nil {
		return err
	}

	// Groups and rounds first; both are keyed by what the generator emitted.
	type groupRounds struct {
		group  *models.Group
		rounds map[int]*models.Round
		count  int
	}
	groups := map[models.GroupKind]*groupRounds{}
	order := []models.GroupKind{models.GroupWinner, models.GroupLoser, models.GroupGrandFinal}
	for _, gm := range generated {
		gr, ok := groups[gm.GroupKind]
		if !ok {
			gr = &groupRounds{rounds: map[int]*models.Round{}}
			groups[gm.GroupKind] = gr
		}
		if gm.Round > gr.count {
			gr.count = gm.Round
		}
	}
	number := 0
	for _, kind := range order {
		gr, ok := groups[kind]
		if !ok {
			continue
		}
		number++
		gr.group = &models.Group{StageID: stage.ID, Number: number, Kind: kind}
		if err := e.store.Groups.Create(ctx, exec, gr.group); err != nil {
			return err
		}
		for r := 1; r <= gr.count; r++ {
			round := &models.Round{
				GroupID: gr.group.ID,
				Number:  r,
				BestOf:  tournament.BestOfForRound(kind, r, gr.count),
			}
			if err := e.store.Rounds.Create(ctx, exec, round); err != nil {
				return err
			}
			gr.rounds[r] = round
		}
	}

	// First pass: matches, in dependency order so every provenance link
	// already has a database id.
	dbMatches := make([]*models.Match, len(generated))
	toSlot := func(spec SlotSpec) models.Opponent {
		op := models.Opponent{ParticipantID: spec.ParticipantID}
		if spec.SourceIndex != nil {
			op.SourceMatchID = &dbMatches[*spec.SourceIndex].ID
		}
		return op
	}
	for i, gm := range generated {
		gr := groups[gm.GroupKind]
		m := &models.Match{
			TournamentID: tournament.ID,
			StageID:      stage.ID,
			GroupID:      gr.group.ID,
			RoundID:      gr.rounds[gm.Round].ID,
			Number:       gm.Number,
			BestOf:       gr.rounds[gm.Round].BestOf,
		}
		m.Opponent1 = toSlot(gm.Opponent1)
		m.Opponent2 = toSlot(gm.Opponent2)
		m.Status = m.PendingStatus()
		if err := e.store.Matches.Create(ctx, exec, m); err != nil {
			return err
		}
		dbMatches[i] = m
	}

	// Second pass: forward links.
	for i, gm := range generated {
		if gm.WinnerTo == nil && gm.LoserTo == nil {
			continue
		}
		var winnerNextID, winnerSlot, loserNextID, loserSlot *int
		if gm.WinnerTo != nil {
			winnerNextID = &dbMatches[gm.WinnerTo.Index].ID
			slot := gm.WinnerTo.Slot
			winnerSlot = &slot
		}
		if gm.LoserTo != nil {
			loserNextID = &dbMatches[gm.LoserTo.Index].ID
			slot := gm.LoserTo.Slot
			loserSlot = &slot
		}
		m := dbMatches[i]
		m.WinnerNextMatchID, m.WinnerNextSlot = winnerNextID, winnerSlot
		m.LoserNextMatchID, m.LoserNextSlot = loserNextID, loserSlot
		if err := e.store.Matches.UpdateNextMatchInfo(ctx, exec, m.ID, winnerNextID, winnerSlot, loserNextID, loserSlot); err != nil {
			return err
		}
	}

	// Auto-resolve BYEs in dependency order: a BYE win advances the real
	// opponent, a double BYE propagates the BYE itself.
	cache := byDBID(dbMatches)
	for _, m := range dbMatches {
		if !e.autoResolveBye(m) {
			continue
		}
		if err := e.store.Matches.Update(ctx, exec, m); err != nil {
			return err
		}
		if err := e.advanceLocked(ctx, exec, m, cache); err != nil {
			return err
		}
	}

	// Games only for matches that can still be played. Matches resolved as
	// BYEs above never get any.
	for _, m := range dbMatches {
		if m.Status == models.MatchCompleted || m.Opponent1.Bye() || m.Opponent2.Bye() {
			continue
		}
		games := make([]*models.MatchGame, 0, m.BestOf)
		for n := 1; n <= m.BestOf; n++ {
			games = append(games, &models.MatchGame{
				MatchID:      m.ID,
				TournamentID: tournament.ID,
				Number:       n,
				TeamOffset:   rand.Intn(2),
			})
		}
		if err := e.store.Games.CreateBatch(ctx, exec, games); err != nil {
			return err
		}
	}

	return nil
}

func byDBID(matches []*models.Match) map[int]*models.Match {
	out := make(map[int]*models.Match, len(matches))
	for _, m := range matches {
		out[m.ID] = m
	}
	return out
}

// autoResolveBye completes a match that cannot be played. Returns false if
// the match needs no resolution.
func (e *Engine) autoResolveBye(m *models.Match) bool {
	if m.Status == models.MatchCompleted || m.Status == models.MatchArchived {
		return false
	}
	bye1, bye2 := m.Opponent1.Bye(), m.Opponent2.Bye()
	switch {
	case bye1 && bye2:
		m.Status = models.MatchCompleted
		return true
	case bye2 && m.Opponent1.Resolved():
		win, loss := models.ResultWin, models.ResultLoss
		m.Opponent1.Result = &win
		m.Opponent2.Result = &loss
		m.Status = models.MatchCompleted
		return true
	case bye1 && m.Opponent2.Resolved():
		win, loss := models.ResultWin, models.ResultLoss
		m.Opponent2.Result = &win
		m.Opponent1.Result = &loss
		m.Status = models.MatchCompleted
		return true
	}
	return false
}

// UpdateMatch applies a partial match patch with level-2 deep merge
// semantics: per touched opponent slot, fields absent from the patch are
// preserved. If the merge decides the match, the winner (and loser) are
// advanced along the forward links exactly once; re-applying the same
// patch is a no-op.
func (e *Engine) UpdateMatch(ctx context.Context, matchID int, patch *models.MatchPatch) (*models.Match, error) {
	match, err := e.store.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	models.MergeOpponent(&match.Opponent1, patch.Opponent1)
	models.MergeOpponent(&match.Opponent2, patch.Opponent2)
	if match.Opponent1.ParticipantID != nil && match.Opponent2.ParticipantID != nil &&
		*match.Opponent1.ParticipantID == *match.Opponent2.ParticipantID {
		return nil, fmt.Errorf("%w: participant %d in match %d", ErrDuplicateOpponent, *match.Opponent1.ParticipantID, matchID)
	}
	if patch.Status != nil {
		match.Status = *patch.Status
	}
	if match.Winner() != nil && match.Status != models.MatchCompleted && match.Status != models.MatchArchived {
		match.Status = models.MatchCompleted
	}

	err = e.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := e.store.Matches.Update(ctx, exec, match); err != nil {
			return err
		}
		if match.Status == models.MatchCompleted || match.Status == models.MatchArchived {
			return e.advanceLocked(ctx, exec, match, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// advanceLocked writes the outcome of a completed match into the opponent
// slots of its linked matches, then cascades any auto-resolutions. The
// cache maps match id to an in-memory match during generation; when nil,
// targets are read from the store.
func (e *Engine) advanceLocked(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, cache map[int]*models.Match) error {
	type hop struct {
		targetID      int
		slot          int
		participantID *int // nil propagates a BYE
	}
	hops := make([]hop, 0, 2)
	if match.WinnerNextMatchID != nil {
		hops = append(hops, hop{*match.WinnerNextMatchID, *match.WinnerNextSlot, match.Winner()})
	}
	if match.LoserNextMatchID != nil {
		hops = append(hops, hop{*match.LoserNextMatchID, *match.LoserNextSlot, match.Loser()})
	}

	for _, h := range hops {
		target, err := e.lookupMatch(ctx, h.targetID, cache)
		if err != nil {
			return err
		}
		slot := &target.Opponent1
		if h.slot == 2 {
			slot = &target.Opponent2
		}
		changed := false
		if h.participantID != nil {
			if slot.ParticipantID == nil || *slot.ParticipantID != *h.participantID {
				slot.ParticipantID = h.participantID
				changed = true
			}
		} else if slot.SourceMatchID != nil {
			// The feeding match produced no participant: the slot becomes a BYE.
			slot.SourceMatchID = nil
			changed = true
		}
		if !changed {
			continue
		}

		if target.Status == models.MatchLocked || target.Status == models.MatchWaiting || target.Status == models.MatchReady {
			target.Status = target.PendingStatus()
		}
		resolved := e.autoResolveBye(target)
		if err := e.store.Matches.Update(ctx, exec, target); err != nil {
			return err
		}
		if resolved {
			if cache == nil {
				// Runtime auto-resolution: the target had playable games
				// created at generation; close them out unplayed.
				if err := e.finishGames(ctx, exec, target.ID); err != nil {
					return err
				}
			}
			if err := e.advanceLocked(ctx, exec, target, cache); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) finishGames(ctx context.Context, exec repositories.SQLExecutor, matchID int) error {
	games, err := e.store.Games.ListByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	for _, g := range games {
		if g.Finished {
			continue
		}
		g.Finished = true
		if err := e.store.Games.Update(ctx, exec, g); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) lookupMatch(ctx context.Context, id int, cache map[int]*models.Match) (*models.Match, error) {
	if cache != nil {
		if m, ok := cache[id]; ok {
			return m, nil
		}
	}
	return e.store.Matches.GetByID(ctx, id)
}

// Regenerate discards the previous stage and reruns generation with a
// fresh shuffle. It refuses once any match carries a score.
func (e *Engine) Regenerate(ctx context.Context, tournamentID int) (*models.Stage, error) {
	tournament, err := e.store.Tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	scored, err := e.store.Matches.CountWithScore(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if scored > 0 {
		return nil, fmt.Errorf("%w: tournament %d has %d scored matches", ErrScoresAlreadyRecorded, tournamentID, scored)
	}

	participants, err := e.store.Participants.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}

	err = e.store.Tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return e.store.Stages.DeleteByTournament(ctx, exec, tournamentID)
	})
	if err != nil {
		return nil, err
	}
	return e.Generate(ctx, tournament, ids)
}
