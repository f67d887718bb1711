package models

import "time"

type MatchStatus string

const (
	MatchLocked    MatchStatus = "locked"
	MatchWaiting   MatchStatus = "waiting"
	MatchReady     MatchStatus = "ready"
	MatchRunning   MatchStatus = "running"
	MatchCompleted MatchStatus = "completed"
	MatchArchived  MatchStatus = "archived"
)

type OpponentResult string

const (
	ResultWin  OpponentResult = "win"
	ResultLoss OpponentResult = "loss"
	ResultDraw OpponentResult = "draw"
)

// Opponent is one slot of a match. A slot is resolved once ParticipantID is
// set. An unresolved slot with SourceMatchID set is fed by the winner (or,
// in the loser bracket, the loser) of that match. A slot with neither set is
// a BYE and never resolves.
type Opponent struct {
	ParticipantID *int            `json:"participant_id,omitempty" db:"participant_id"`
	SourceMatchID *int            `json:"source_match_id,omitempty" db:"source_match_id"`
	Score         *int            `json:"score,omitempty" db:"score"`
	Result        *OpponentResult `json:"result,omitempty" db:"result"`
	Forfeit       *bool           `json:"forfeit,omitempty" db:"forfeit"`
}

// Resolved reports whether a participant occupies the slot.
func (o Opponent) Resolved() bool {
	return o.ParticipantID != nil
}

// Bye reports whether the slot can never be filled.
func (o Opponent) Bye() bool {
	return o.ParticipantID == nil && o.SourceMatchID == nil
}

// OpponentPatch is a partial opponent update. Nil fields are preserved on
// merge; this is the level-2 deep merge used by every opponent write.
type OpponentPatch struct {
	ParticipantID *int            `json:"participant_id,omitempty"`
	Score         *int            `json:"score,omitempty"`
	Result        *OpponentResult `json:"result,omitempty"`
	Forfeit       *bool           `json:"forfeit,omitempty"`
}

// MergeOpponent applies patch onto dst, field by field. Fields absent from
// the patch keep their existing value. Applying the same patch twice yields
// the same slot state.
func MergeOpponent(dst *Opponent, patch *OpponentPatch) {
	if patch == nil {
		return
	}
	if patch.ParticipantID != nil {
		dst.ParticipantID = patch.ParticipantID
	}
	if patch.Score != nil {
		dst.Score = patch.Score
	}
	if patch.Result != nil {
		dst.Result = patch.Result
	}
	if patch.Forfeit != nil {
		dst.Forfeit = patch.Forfeit
	}
}

// MatchPatch is a partial match update issued through the topology engine.
type MatchPatch struct {
	Opponent1 *OpponentPatch `json:"opponent1,omitempty"`
	Opponent2 *OpponentPatch `json:"opponent2,omitempty"`
	Status    *MatchStatus   `json:"status,omitempty"`
}

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	StageID      int         `json:"stage_id" db:"stage_id"`
	GroupID      int         `json:"group_id" db:"group_id"`
	RoundID      int         `json:"round_id" db:"round_id"`
	Number       int         `json:"number" db:"number"`
	BestOf       int         `json:"best_of" db:"best_of"`
	Status       MatchStatus `json:"status" db:"status"`

	Opponent1 Opponent `json:"opponent1"`
	Opponent2 Opponent `json:"opponent2"`

	// Forward links written at generation time: where the winner (and, for
	// double elimination, the loser) of this match advances to.
	WinnerNextMatchID *int `json:"winner_next_match_id,omitempty" db:"winner_next_match_id"`
	WinnerNextSlot    *int `json:"winner_next_slot,omitempty" db:"winner_next_slot"`
	LoserNextMatchID  *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`
	LoserNextSlot     *int `json:"loser_next_slot,omitempty" db:"loser_next_slot"`

	// NeedsAttention marks a mutual forfeit left for operator resolution.
	NeedsAttention bool `json:"needs_attention,omitempty" db:"needs_attention"`

	ScheduledDate *time.Time `json:"scheduled_date,omitempty" db:"scheduled_date"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	Games []MatchGame `json:"games,omitempty" db:"-"`
}

// PendingStatus derives the pre-play status from slot resolution. A match
// with a BYE slot counts the BYE as resolved: it auto-completes, it never
// waits.
func (m *Match) PendingStatus() MatchStatus {
	resolved := 0
	if m.Opponent1.Resolved() || m.Opponent1.Bye() {
		resolved++
	}
	if m.Opponent2.Resolved() || m.Opponent2.Bye() {
		resolved++
	}
	switch resolved {
	case 2:
		return MatchReady
	case 1:
		return MatchWaiting
	default:
		return MatchLocked
	}
}

// Winner returns the participant id of the winning slot once the match has
// a decided result.
func (m *Match) Winner() *int {
	if m.Opponent1.Result != nil && *m.Opponent1.Result == ResultWin {
		return m.Opponent1.ParticipantID
	}
	if m.Opponent2.Result != nil && *m.Opponent2.Result == ResultWin {
		return m.Opponent2.ParticipantID
	}
	return nil
}

// Loser returns the participant id of the losing slot, nil for BYE losses.
func (m *Match) Loser() *int {
	if m.Opponent1.Result != nil && *m.Opponent1.Result == ResultLoss {
		return m.Opponent1.ParticipantID
	}
	if m.Opponent2.Result != nil && *m.Opponent2.Result == ResultLoss {
		return m.Opponent2.ParticipantID
	}
	return nil
}

type MatchGame struct {
	ID              int        `json:"id" db:"id"`
	MatchID         int        `json:"match_id" db:"match_id"`
	TournamentID    int        `json:"tournament_id" db:"tournament_id"`
	Number          int        `json:"number" db:"number"`
	TeamOffset      int        `json:"team_offset" db:"team_offset"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty" db:"scheduled_date"`
	ExternalMatchID *string    `json:"external_match_id,omitempty" db:"external_match_id"`
	Finished        bool       `json:"finished" db:"finished"`

	WinnerParticipantID *int `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	LoserParticipantID  *int `json:"loser_participant_id,omitempty" db:"loser_participant_id"`
}
