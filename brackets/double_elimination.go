package brackets

import (
	"fmt"
	"math/bits"

	"github.com/Dosada05/tournament-engine/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() *DoubleEliminationGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Name() string {
	return "DoubleElimination"
}

// Generate builds winner bracket, loser bracket and grand final.
//
// The loser bracket runs 2*(R-1) rounds for a winner bracket of R rounds,
// alternating "minor" rounds (loser-bracket survivors pair up) and "major"
// rounds (each survivor meets a fresh winner-bracket dropout), so the loser
// bracket trails the winner bracket by one round. The winner-bracket
// champion and loser-bracket champion meet in the grand final group.
func (g *DoubleEliminationGenerator) Generate(seeds []*int) ([]*GeneratedMatch, error) {
	size := len(seeds)
	if size < MinParticipants || size&(size-1) != 0 {
		return nil, fmt.Errorf("seed list of %d is not a padded power of two: %w", size, ErrInsufficientParticipants)
	}
	numRounds := bits.TrailingZeros(uint(size))

	matches := make([]*GeneratedMatch, 0, 2*size-1)
	add := func(m *GeneratedMatch) int {
		matches = append(matches, m)
		return len(matches) - 1
	}
	linkWinner := func(from, to, slot int) {
		matches[from].WinnerTo = &LinkSpec{Index: to, Slot: slot}
		src := from
		if slot == 1 {
			matches[to].Opponent1 = SlotSpec{SourceIndex: &src}
		} else {
			matches[to].Opponent2 = SlotSpec{SourceIndex: &src}
		}
	}
	linkLoser := func(from, to, slot int) {
		matches[from].LoserTo = &LinkSpec{Index: to, Slot: slot}
		src := from
		if slot == 1 {
			matches[to].Opponent1 = SlotSpec{SourceIndex: &src}
		} else {
			matches[to].Opponent2 = SlotSpec{SourceIndex: &src}
		}
	}

	// Winner bracket round 1 from the seed list.
	wbPrev := make([]int, 0, size/2)
	for j := 0; j < size/2; j++ {
		idx := add(&GeneratedMatch{
			GroupKind: models.GroupWinner,
			Round:     1,
			Number:    j + 1,
			Opponent1: SlotSpec{ParticipantID: seeds[j]},
			Opponent2: SlotSpec{ParticipantID: seeds[size-1-j]},
		})
		wbPrev = append(wbPrev, idx)
	}

	// Loser bracket minor round 1: winner-bracket round 1 dropouts pair up.
	lbPrev := make([]int, 0, size/4)
	for j := 0; j < size/4; j++ {
		idx := add(&GeneratedMatch{
			GroupKind: models.GroupLoser,
			Round:     1,
			Number:    j + 1,
		})
		lbPrev = append(lbPrev, idx)
	}
	for j, wb := range wbPrev {
		linkLoser(wb, lbPrev[j/2], j%2+1)
	}

	// Remaining winner-bracket rounds, each followed by the loser-bracket
	// major round it feeds and the minor round that condenses it.
	for r := 2; r <= numRounds; r++ {
		wbCurrent := make([]int, 0, len(wbPrev)/2)
		for j := 0; j < len(wbPrev)/2; j++ {
			idx := add(&GeneratedMatch{
				GroupKind: models.GroupWinner,
				Round:     r,
				Number:    j + 1,
			})
			linkWinner(wbPrev[2*j], idx, 1)
			linkWinner(wbPrev[2*j+1], idx, 2)
			wbCurrent = append(wbCurrent, idx)
		}
		wbPrev = wbCurrent

		// Major round 2(r-1): minor-round survivor vs fresh dropout.
		majorRound := 2 * (r - 1)
		lbCurrent := make([]int, 0, len(lbPrev))
		for j := range lbPrev {
			idx := add(&GeneratedMatch{
				GroupKind: models.GroupLoser,
				Round:     majorRound,
				Number:    j + 1,
			})
			linkWinner(lbPrev[j], idx, 1)
			linkLoser(wbCurrent[j], idx, 2)
			lbCurrent = append(lbCurrent, idx)
		}
		lbPrev = lbCurrent

		// Minor round after the major, unless the loser bracket is done.
		if r < numRounds {
			minorRound := majorRound + 1
			lbNext := make([]int, 0, len(lbPrev)/2)
			for j := 0; j < len(lbPrev)/2; j++ {
				idx := add(&GeneratedMatch{
					GroupKind: models.GroupLoser,
					Round:     minorRound,
					Number:    j + 1,
				})
				linkWinner(lbPrev[2*j], idx, 1)
				linkWinner(lbPrev[2*j+1], idx, 2)
				lbNext = append(lbNext, idx)
			}
			lbPrev = lbNext
		}
	}

	// Grand final: winner-bracket champion vs loser-bracket champion.
	gf := add(&GeneratedMatch{
		GroupKind: models.GroupGrandFinal,
		Round:     1,
		Number:    1,
	})
	linkWinner(wbPrev[0], gf, 1)
	linkWinner(lbPrev[0], gf, 2)

	return matches, nil
}
