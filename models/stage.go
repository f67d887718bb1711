package models

// StageType matches the tournament bracket type of the stage.
type StageType string

const (
	StageSingleElimination StageType = "single_elimination"
	StageDoubleElimination StageType = "double_elimination"
)

// Stage is the single bracket instance of a tournament. Its structure is
// immutable after generation; only match/game fields mutate.
type Stage struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Type         StageType `json:"type" db:"type"`

	Groups []Group `json:"groups,omitempty" db:"-"`
}

// GroupKind partitions a stage. Single elimination has exactly one winner
// group; double elimination adds a loser group and a grand-final group.
type GroupKind string

const (
	GroupWinner     GroupKind = "winner"
	GroupLoser      GroupKind = "loser"
	GroupGrandFinal GroupKind = "grand_final"
)

type Group struct {
	ID      int       `json:"id" db:"id"`
	StageID int       `json:"stage_id" db:"stage_id"`
	Number  int       `json:"number" db:"number"`
	Kind    GroupKind `json:"kind" db:"kind"`

	Rounds []Round `json:"rounds,omitempty" db:"-"`
}

// Round numbers are dense and strictly increasing within a group.
type Round struct {
	ID      int `json:"id" db:"id"`
	GroupID int `json:"group_id" db:"group_id"`
	Number  int `json:"number" db:"number"`
	BestOf  int `json:"best_of" db:"best_of"`

	Matches []Match `json:"matches,omitempty" db:"-"`
}
