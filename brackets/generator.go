package brackets

import (
	"errors"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrInsufficientParticipants = errors.New("not enough participants to generate a bracket (minimum 4)")
	ErrUnsupportedBracketType   = errors.New("unsupported bracket type")
	ErrScoresAlreadyRecorded    = errors.New("bracket already has recorded scores")
	ErrDuplicateOpponent        = errors.New("a participant cannot occupy both slots of a match")
)

// MinParticipants is the smallest field a bracket is generated for.
// Smaller fields are rejected, never padded up.
const MinParticipants = 4

// SlotSpec describes one opponent slot of a generated match: a seeded
// participant, a provenance link to an earlier match in the generated list,
// or a BYE (neither set).
type SlotSpec struct {
	ParticipantID *int
	// SourceIndex points at the match (by position in the generated list)
	// whose outcome fills this slot.
	SourceIndex *int
}

// LinkSpec is a forward link: the outcome of a match feeds slot Slot (1 or
// 2) of the match at Index.
type LinkSpec struct {
	Index int
	Slot  int
}

// GeneratedMatch is one node of the bracket topology, independent of
// storage ids. Matches are emitted in dependency order: every SourceIndex
// refers to an earlier position in the list.
type GeneratedMatch struct {
	GroupKind models.GroupKind
	Round     int
	Number    int

	Opponent1 SlotSpec
	Opponent2 SlotSpec

	WinnerTo *LinkSpec
	LoserTo  *LinkSpec
}

// Generator builds the full match topology for a padded, shuffled seed
// list. Seeds holds participant ids padded with nil (BYE) entries up to a
// power of two.
type Generator interface {
	Generate(seeds []*int) ([]*GeneratedMatch, error)
	Name() string
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PadSeeds pads participant ids with BYE (nil) entries up to the next
// power of two. The mirror pairing used by the generators guarantees a BYE
// never meets a BYE, because fewer than half the slots can be padding.
func PadSeeds(participantIDs []int) []*int {
	size := NextPowerOfTwo(len(participantIDs))
	seeds := make([]*int, size)
	for i := range participantIDs {
		id := participantIDs[i]
		seeds[i] = &id
	}
	return seeds
}

func generatorFor(bracketType models.BracketType) (Generator, error) {
	switch bracketType {
	case models.BracketSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.BracketDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	default:
		return nil, ErrUnsupportedBracketType
	}
}
