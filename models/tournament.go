package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	TournamentDraft        TournamentStatus = "draft"
	TournamentRegistration TournamentStatus = "registration"
	TournamentReadyCheck   TournamentStatus = "ready_check"
	TournamentInProgress   TournamentStatus = "in_progress"
	TournamentFinished     TournamentStatus = "finished"
	TournamentCanceled     TournamentStatus = "canceled"
)

type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
)

// BestOfConfig holds the number of games per round tier.
type BestOfConfig struct {
	Round      int `json:"round" db:"best_of_round"`
	Final      int `json:"final" db:"best_of_final"`
	GrandFinal int `json:"grand_final" db:"best_of_grand_final"`
}

// ScheduleStrategy drives initial and cascading game scheduling.
type ScheduleStrategy struct {
	GameDurationSeconds      int `json:"game_duration_seconds" db:"game_duration_seconds"`
	GameBreakDurationSeconds int `json:"game_break_duration_seconds" db:"game_break_duration_seconds"`
}

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	TeamSize    int              `json:"team_size" db:"team_size"`
	BracketType BracketType      `json:"bracket_type" db:"bracket_type"`
	BestOf      BestOfConfig     `json:"best_of"`
	Schedule    ScheduleStrategy `json:"schedule"`
	Status      TournamentStatus `json:"status" db:"status"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`
}

// BestOfForRound picks the best-of tier for a round: the sole grand-final
// round uses GrandFinal, the last winner-group round uses Final, everything
// else uses Round.
func (t *Tournament) BestOfForRound(groupKind GroupKind, roundNumber, roundsInGroup int) int {
	switch {
	case groupKind == GroupGrandFinal:
		return t.BestOf.GrandFinal
	case groupKind == GroupWinner && roundNumber == roundsInGroup:
		return t.BestOf.Final
	default:
		return t.BestOf.Round
	}
}

// ScoreToWin is the series win threshold for a best-of-K match.
func ScoreToWin(bestOf int) int {
	return bestOf/2 + 1
}
