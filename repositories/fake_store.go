package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// FakeStore is an in-memory implementation of every repository interface.
// It backs service and scheduler tests, and mirrors the Postgres behaviour
// closely enough for the state machines: copies in, copies out, NotFound
// sentinels, and the same bulk-update semantics.
type FakeStore struct {
	mu sync.Mutex

	lastID        int
	tournaments   map[int]*models.Tournament
	registrations map[int]*models.Registration
	participants  map[int]*models.Participant
	stages        map[int]*models.Stage
	groups        map[int]*models.Group
	rounds        map[int]*models.Round
	matches       map[int]*models.Match
	games         map[int]*models.MatchGame

	sweepMu sync.Mutex
}

// NewFakeStore returns a Store wired entirely against in-memory state.
func NewFakeStore() (*Store, *FakeStore) {
	f := &FakeStore{
		tournaments:   make(map[int]*models.Tournament),
		registrations: make(map[int]*models.Registration),
		participants:  make(map[int]*models.Participant),
		stages:        make(map[int]*models.Stage),
		groups:        make(map[int]*models.Group),
		rounds:        make(map[int]*models.Round),
		matches:       make(map[int]*models.Match),
		games:         make(map[int]*models.MatchGame),
	}
	return &Store{
		Tx:            f,
		Locker:        f,
		Tournaments:   f,
		Registrations: &fakeRegistrationRepo{f},
		Participants:  &fakeParticipantRepo{f},
		Stages:        &fakeStageRepo{f},
		Groups:        &fakeGroupRepo{f},
		Rounds:        &fakeRoundRepo{f},
		Matches:       &fakeMatchRepo{f},
		Games:         &fakeMatchGameRepo{f},
	}, f
}

func (f *FakeStore) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error {
	return fn(nil)
}

func (f *FakeStore) TryLockSweep(ctx context.Context, key int64) (func(), bool, error) {
	if !f.sweepMu.TryLock() {
		return nil, false, nil
	}
	return f.sweepMu.Unlock, true, nil
}

func (f *FakeStore) nextID() int {
	f.lastID++
	return f.lastID
}

// --- tournaments ---

func (f *FakeStore) Create(ctx context.Context, tournament *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tournament.ID = f.nextID()
	tournament.CreatedAt = time.Now()
	cp := *tournament
	f.tournaments[tournament.ID] = &cp
	return nil
}

func (f *FakeStore) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *FakeStore) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Tournament, 0)
	for _, t := range f.tournaments {
		if status != nil && t.Status != *status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStore) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (f *FakeStore) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

// --- registrations ---

func copyRegistration(r *models.Registration) *models.Registration {
	cp := *r
	cp.Players = append([]models.RegistrationPlayer(nil), r.Players...)
	return &cp
}

func (f *FakeStore) CreateRegistration(ctx context.Context, exec SQLExecutor, registration *models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Mirrors the unique (tournament_id, steam_id) index.
	for _, r := range f.registrations {
		if r.TournamentID != registration.TournamentID {
			continue
		}
		for _, existing := range r.Players {
			for _, p := range registration.Players {
				if p.SteamID == existing.SteamID {
					return ErrRegistrationPlayerConflict
				}
			}
		}
	}
	registration.ID = f.nextID()
	registration.CreatedAt = time.Now()
	for i := range registration.Players {
		registration.Players[i].ID = f.nextID()
		registration.Players[i].RegistrationID = registration.ID
	}
	f.registrations[registration.ID] = copyRegistration(registration)
	return nil
}

func (f *FakeStore) GetRegistrationByID(ctx context.Context, id int) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return copyRegistration(r), nil
}

func (f *FakeStore) ListRegistrationsByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Registration, 0)
	for _, r := range f.registrations {
		if r.TournamentID == tournamentID {
			out = append(out, copyRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStore) DeleteRegistration(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.registrations[id]; !ok {
		return ErrRegistrationNotFound
	}
	delete(f.registrations, id)
	return nil
}

func (f *FakeStore) UpdateRegistrationState(ctx context.Context, exec SQLExecutor, id int, state models.RegistrationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registrations[id]
	if !ok {
		return ErrRegistrationNotFound
	}
	r.State = state
	return nil
}

func (f *FakeStore) FindPlayerBySteamID(ctx context.Context, tournamentID int, steamID string) (*models.RegistrationPlayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.registrations {
		if r.TournamentID != tournamentID {
			continue
		}
		for _, p := range r.Players {
			if p.SteamID == steamID {
				cp := p
				return &cp, nil
			}
		}
	}
	return nil, ErrRegistrationPlayerNotFound
}

func (f *FakeStore) UpdatePlayerState(ctx context.Context, exec SQLExecutor, playerID int, state models.PlayerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.registrations {
		for i := range r.Players {
			if r.Players[i].ID == playerID {
				r.Players[i].State = state
				return nil
			}
		}
	}
	return ErrRegistrationPlayerNotFound
}

func (f *FakeStore) BulkAdvancePlayers(ctx context.Context, exec SQLExecutor, tournamentID int, from []models.PlayerState, to models.PlayerState) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, r := range f.registrations {
		if r.TournamentID != tournamentID {
			continue
		}
		for i := range r.Players {
			for _, s := range from {
				if r.Players[i].State == s {
					r.Players[i].State = to
					affected++
					break
				}
			}
		}
	}
	return affected, nil
}

func (f *FakeStore) RecomputeAggregateStates(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.registrations {
		if r.TournamentID != tournamentID {
			continue
		}
		if r.AllPlayersConfirmed() {
			r.State = models.RegistrationConfirmed
		} else {
			r.State = models.RegistrationDeclined
		}
	}
	return nil
}

// --- participants ---

func (f *FakeStore) CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range participants {
		p.ID = f.nextID()
		p.CreatedAt = time.Now()
		cp := *p
		f.participants[p.ID] = &cp
	}
	return nil
}

func (f *FakeStore) GetParticipantByID(ctx context.Context, id int) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *FakeStore) ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Participant, 0)
	for _, p := range f.participants {
		if p.TournamentID == tournamentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStore) DeleteParticipantsByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.participants {
		if p.TournamentID == tournamentID {
			delete(f.participants, id)
		}
	}
	return nil
}

// --- stages, groups, rounds ---

func (f *FakeStore) CreateStage(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stage.ID = f.nextID()
	cp := *stage
	cp.Groups = nil
	f.stages[stage.ID] = &cp
	return nil
}

func (f *FakeStore) GetStageByTournament(ctx context.Context, tournamentID int) (*models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stages {
		if s.TournamentID == tournamentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrStageNotFound
}

func (f *FakeStore) DeleteStageByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.stages {
		if s.TournamentID != tournamentID {
			continue
		}
		delete(f.stages, id)
		for gid, g := range f.groups {
			if g.StageID != id {
				continue
			}
			delete(f.groups, gid)
			for rid, r := range f.rounds {
				if r.GroupID == gid {
					delete(f.rounds, rid)
				}
			}
		}
	}
	for mid, m := range f.matches {
		if m.TournamentID == tournamentID {
			delete(f.matches, mid)
		}
	}
	for gid, g := range f.games {
		if g.TournamentID == tournamentID {
			delete(f.games, gid)
		}
	}
	return nil
}

func (f *FakeStore) CreateGroup(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	group.ID = f.nextID()
	cp := *group
	cp.Rounds = nil
	f.groups[group.ID] = &cp
	return nil
}

func (f *FakeStore) ListGroupsByStage(ctx context.Context, stageID int) ([]*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Group, 0)
	for _, g := range f.groups {
		if g.StageID == stageID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *FakeStore) CreateRound(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	round.ID = f.nextID()
	cp := *round
	cp.Matches = nil
	f.rounds[round.ID] = &cp
	return nil
}

func (f *FakeStore) GetRoundByID(ctx context.Context, id int) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *FakeStore) ListRoundsByGroup(ctx context.Context, groupID int) ([]*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Round, 0)
	for _, r := range f.rounds {
		if r.GroupID == groupID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// --- matches ---

func copyMatch(m *models.Match) *models.Match {
	cp := *m
	cp.Games = nil
	return &cp
}

func (f *FakeStore) CreateMatch(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	match.ID = f.nextID()
	match.CreatedAt = time.Now()
	f.matches[match.ID] = copyMatch(match)
	return nil
}

func (f *FakeStore) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (f *FakeStore) sortedMatches(filter func(*models.Match) bool) []*models.Match {
	out := make([]*models.Match, 0)
	for _, m := range f.matches {
		if filter(m) {
			out = append(out, copyMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundID != out[j].RoundID {
			return out[i].RoundID < out[j].RoundID
		}
		return out[i].Number < out[j].Number
	})
	return out
}

func (f *FakeStore) ListMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedMatches(func(m *models.Match) bool { return m.TournamentID == tournamentID }), nil
}

func (f *FakeStore) ListMatchesByRound(ctx context.Context, roundID int) ([]*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedMatches(func(m *models.Match) bool { return m.RoundID == roundID }), nil
}

func (f *FakeStore) UpdateMatch(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.matches[match.ID]
	if !ok {
		return ErrMatchNotFound
	}
	existing.Status = match.Status
	existing.Opponent1 = match.Opponent1
	existing.Opponent2 = match.Opponent2
	existing.NeedsAttention = match.NeedsAttention
	existing.ScheduledDate = match.ScheduledDate
	return nil
}

func (f *FakeStore) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, winnerNextID, winnerSlot, loserNextID, loserSlot *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return ErrMatchNotFound
	}
	m.WinnerNextMatchID = winnerNextID
	m.WinnerNextSlot = winnerSlot
	m.LoserNextMatchID = loserNextID
	m.LoserNextSlot = loserSlot
	return nil
}

func (f *FakeStore) UpdateMatchScheduledDate(ctx context.Context, exec SQLExecutor, matchID int, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return ErrMatchNotFound
	}
	w := when
	m.ScheduledDate = &w
	return nil
}

func (f *FakeStore) CountWithScore(ctx context.Context, tournamentID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.matches {
		if m.TournamentID == tournamentID && (m.Opponent1.Score != nil || m.Opponent2.Score != nil) {
			count++
		}
	}
	return count, nil
}

func (f *FakeStore) CountUnfinished(ctx context.Context, tournamentID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if m.Status != models.MatchCompleted && m.Status != models.MatchArchived {
			count++
		}
	}
	return count, nil
}

// --- match games ---

func (f *FakeStore) CreateGameBatch(ctx context.Context, exec SQLExecutor, games []*models.MatchGame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range games {
		g.ID = f.nextID()
		cp := *g
		f.games[g.ID] = &cp
	}
	return nil
}

func (f *FakeStore) GetGameByID(ctx context.Context, id int) (*models.MatchGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return nil, ErrMatchGameNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *FakeStore) GetGameByExternalID(ctx context.Context, externalMatchID string) (*models.MatchGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.ExternalMatchID != nil && *g.ExternalMatchID == externalMatchID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, ErrMatchGameNotFound
}

func (f *FakeStore) sortedGames(filter func(*models.MatchGame) bool) []*models.MatchGame {
	out := make([]*models.MatchGame, 0)
	for _, g := range f.games {
		if filter(g) {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].Number < out[j].Number
	})
	return out
}

func (f *FakeStore) ListGamesByMatch(ctx context.Context, matchID int) ([]*models.MatchGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedGames(func(g *models.MatchGame) bool { return g.MatchID == matchID }), nil
}

func (f *FakeStore) ListGamesByTournament(ctx context.Context, tournamentID int) ([]*models.MatchGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedGames(func(g *models.MatchGame) bool { return g.TournamentID == tournamentID }), nil
}

func (f *FakeStore) ListDue(ctx context.Context, now time.Time) ([]*models.MatchGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedGames(func(g *models.MatchGame) bool {
		return !g.Finished && g.ExternalMatchID == nil && g.ScheduledDate != nil && !g.ScheduledDate.After(now)
	}), nil
}

func (f *FakeStore) UpdateGame(ctx context.Context, exec SQLExecutor, game *models.MatchGame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.games[game.ID]
	if !ok {
		return ErrMatchGameNotFound
	}
	existing.ScheduledDate = game.ScheduledDate
	existing.ExternalMatchID = game.ExternalMatchID
	existing.Finished = game.Finished
	existing.WinnerParticipantID = game.WinnerParticipantID
	existing.LoserParticipantID = game.LoserParticipantID
	return nil
}

func (f *FakeStore) UpdateGameScheduledDate(ctx context.Context, exec SQLExecutor, gameID int, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[gameID]
	if !ok {
		return ErrMatchGameNotFound
	}
	w := when
	g.ScheduledDate = &w
	return nil
}

func (f *FakeStore) DetachExternal(ctx context.Context, externalMatchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.ExternalMatchID != nil && *g.ExternalMatchID == externalMatchID {
			g.ExternalMatchID = nil
			return nil
		}
	}
	return ErrMatchGameNotFound
}

// Adapters mapping the per-kind interfaces onto the shared fake state.

type fakeRegistrationRepo struct{ f *FakeStore }

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	return r.f.CreateRegistration(ctx, exec, reg)
}
func (r *fakeRegistrationRepo) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	return r.f.GetRegistrationByID(ctx, id)
}
func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	return r.f.ListRegistrationsByTournament(ctx, tournamentID)
}
func (r *fakeRegistrationRepo) Delete(ctx context.Context, id int) error {
	return r.f.DeleteRegistration(ctx, id)
}
func (r *fakeRegistrationRepo) UpdateState(ctx context.Context, exec SQLExecutor, id int, state models.RegistrationState) error {
	return r.f.UpdateRegistrationState(ctx, exec, id, state)
}
func (r *fakeRegistrationRepo) FindPlayerBySteamID(ctx context.Context, tournamentID int, steamID string) (*models.RegistrationPlayer, error) {
	return r.f.FindPlayerBySteamID(ctx, tournamentID, steamID)
}
func (r *fakeRegistrationRepo) UpdatePlayerState(ctx context.Context, exec SQLExecutor, playerID int, state models.PlayerState) error {
	return r.f.UpdatePlayerState(ctx, exec, playerID, state)
}
func (r *fakeRegistrationRepo) BulkAdvancePlayers(ctx context.Context, exec SQLExecutor, tournamentID int, from []models.PlayerState, to models.PlayerState) (int64, error) {
	return r.f.BulkAdvancePlayers(ctx, exec, tournamentID, from, to)
}
func (r *fakeRegistrationRepo) RecomputeAggregateStates(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	return r.f.RecomputeAggregateStates(ctx, exec, tournamentID)
}

type fakeParticipantRepo struct{ f *FakeStore }

func (r *fakeParticipantRepo) CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.Participant) error {
	return r.f.CreateBatch(ctx, exec, participants)
}
func (r *fakeParticipantRepo) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	return r.f.GetParticipantByID(ctx, id)
}
func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	return r.f.ListParticipantsByTournament(ctx, tournamentID)
}
func (r *fakeParticipantRepo) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	return r.f.DeleteParticipantsByTournament(ctx, exec, tournamentID)
}

type fakeStageRepo struct{ f *FakeStore }

func (r *fakeStageRepo) Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	return r.f.CreateStage(ctx, exec, stage)
}
func (r *fakeStageRepo) GetByTournament(ctx context.Context, tournamentID int) (*models.Stage, error) {
	return r.f.GetStageByTournament(ctx, tournamentID)
}
func (r *fakeStageRepo) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	return r.f.DeleteStageByTournament(ctx, exec, tournamentID)
}

type fakeGroupRepo struct{ f *FakeStore }

func (r *fakeGroupRepo) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	return r.f.CreateGroup(ctx, exec, group)
}
func (r *fakeGroupRepo) ListByStage(ctx context.Context, stageID int) ([]*models.Group, error) {
	return r.f.ListGroupsByStage(ctx, stageID)
}

type fakeRoundRepo struct{ f *FakeStore }

func (r *fakeRoundRepo) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	return r.f.CreateRound(ctx, exec, round)
}
func (r *fakeRoundRepo) GetByID(ctx context.Context, id int) (*models.Round, error) {
	return r.f.GetRoundByID(ctx, id)
}
func (r *fakeRoundRepo) ListByGroup(ctx context.Context, groupID int) ([]*models.Round, error) {
	return r.f.ListRoundsByGroup(ctx, groupID)
}

type fakeMatchRepo struct{ f *FakeStore }

func (r *fakeMatchRepo) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	return r.f.CreateMatch(ctx, exec, match)
}
func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	return r.f.GetMatchByID(ctx, id)
}
func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return r.f.ListMatchesByTournament(ctx, tournamentID)
}
func (r *fakeMatchRepo) ListByRound(ctx context.Context, roundID int) ([]*models.Match, error) {
	return r.f.ListMatchesByRound(ctx, roundID)
}
func (r *fakeMatchRepo) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	return r.f.UpdateMatch(ctx, exec, match)
}
func (r *fakeMatchRepo) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, winnerNextID, winnerSlot, loserNextID, loserSlot *int) error {
	return r.f.UpdateNextMatchInfo(ctx, exec, matchID, winnerNextID, winnerSlot, loserNextID, loserSlot)
}
func (r *fakeMatchRepo) UpdateScheduledDate(ctx context.Context, exec SQLExecutor, matchID int, when time.Time) error {
	return r.f.UpdateMatchScheduledDate(ctx, exec, matchID, when)
}
func (r *fakeMatchRepo) CountWithScore(ctx context.Context, tournamentID int) (int, error) {
	return r.f.CountWithScore(ctx, tournamentID)
}
func (r *fakeMatchRepo) CountUnfinished(ctx context.Context, tournamentID int) (int, error) {
	return r.f.CountUnfinished(ctx, tournamentID)
}

type fakeMatchGameRepo struct{ f *FakeStore }

func (r *fakeMatchGameRepo) CreateBatch(ctx context.Context, exec SQLExecutor, games []*models.MatchGame) error {
	return r.f.CreateGameBatch(ctx, exec, games)
}
func (r *fakeMatchGameRepo) GetByID(ctx context.Context, id int) (*models.MatchGame, error) {
	return r.f.GetGameByID(ctx, id)
}
func (r *fakeMatchGameRepo) GetByExternalID(ctx context.Context, externalMatchID string) (*models.MatchGame, error) {
	return r.f.GetGameByExternalID(ctx, externalMatchID)
}
func (r *fakeMatchGameRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchGame, error) {
	return r.f.ListGamesByMatch(ctx, matchID)
}
func (r *fakeMatchGameRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.MatchGame, error) {
	return r.f.ListGamesByTournament(ctx, tournamentID)
}
func (r *fakeMatchGameRepo) ListDue(ctx context.Context, now time.Time) ([]*models.MatchGame, error) {
	return r.f.ListDue(ctx, now)
}
func (r *fakeMatchGameRepo) Update(ctx context.Context, exec SQLExecutor, game *models.MatchGame) error {
	return r.f.UpdateGame(ctx, exec, game)
}
func (r *fakeMatchGameRepo) UpdateScheduledDate(ctx context.Context, exec SQLExecutor, gameID int, when time.Time) error {
	return r.f.UpdateGameScheduledDate(ctx, exec, gameID, when)
}
func (r *fakeMatchGameRepo) DetachExternal(ctx context.Context, externalMatchID string) error {
	return r.f.DetachExternal(ctx, externalMatchID)
}
