package brackets

import (
	"fmt"
	"math/bits"

	"github.com/Dosada05/tournament-engine/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate builds a single-elimination tree over the padded seed list.
// Round 1 pairs seed i against its mirror (size-1-i); the winner of round r
// match j feeds round r+1 match j/2. Exactly len(seeds)-1 matches are
// produced.
func (g *SingleEliminationGenerator) Generate(seeds []*int) ([]*GeneratedMatch, error) {
	size := len(seeds)
	if size < MinParticipants || size&(size-1) != 0 {
		return nil, fmt.Errorf("seed list of %d is not a padded power of two: %w", size, ErrInsufficientParticipants)
	}
	numRounds := bits.TrailingZeros(uint(size))

	matches := make([]*GeneratedMatch, 0, size-1)

	// Round 1 from the seed list itself.
	firstRound := make([]int, 0, size/2)
	for j := 0; j < size/2; j++ {
		m := &GeneratedMatch{
			GroupKind: models.GroupWinner,
			Round:     1,
			Number:    j + 1,
			Opponent1: SlotSpec{ParticipantID: seeds[j]},
			Opponent2: SlotSpec{ParticipantID: seeds[size-1-j]},
		}
		matches = append(matches, m)
		firstRound = append(firstRound, len(matches)-1)
	}

	prev := firstRound
	for r := 2; r <= numRounds; r++ {
		current := make([]int, 0, len(prev)/2)
		for j := 0; j < len(prev)/2; j++ {
			left, right := prev[2*j], prev[2*j+1]
			m := &GeneratedMatch{
				GroupKind: models.GroupWinner,
				Round:     r,
				Number:    j + 1,
				Opponent1: SlotSpec{SourceIndex: &left},
				Opponent2: SlotSpec{SourceIndex: &right},
			}
			matches = append(matches, m)
			idx := len(matches) - 1
			matches[left].WinnerTo = &LinkSpec{Index: idx, Slot: 1}
			matches[right].WinnerTo = &LinkSpec{Index: idx, Slot: 2}
			current = append(current, idx)
		}
		prev = current
	}

	return matches, nil
}
