package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/models"
)

func seedsOf(n int) []*int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return PadSeeds(ids)
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 4, NextPowerOfTwo(3))
	assert.Equal(t, 4, NextPowerOfTwo(4))
	assert.Equal(t, 8, NextPowerOfTwo(5))
	assert.Equal(t, 16, NextPowerOfTwo(9))
}

func TestPadSeedsNoByeMeetsBye(t *testing.T) {
	// Mirror pairing: seed j meets seed size-1-j. With fewer than half the
	// slots padded, a padded slot always faces a real seed.
	for n := 5; n <= 16; n++ {
		seeds := seedsOf(n)
		size := len(seeds)
		for j := 0; j < size/2; j++ {
			if seeds[j] == nil {
				assert.NotNil(t, seeds[size-1-j], "double BYE pairing for n=%d at %d", n, j)
			}
		}
	}
}

func TestSingleEliminationTopology(t *testing.T) {
	t.Run("rejects non power of two", func(t *testing.T) {
		_, err := NewSingleEliminationGenerator().Generate(make([]*int, 6))
		require.ErrorIs(t, err, ErrInsufficientParticipants)
	})

	t.Run("produces size-1 matches", func(t *testing.T) {
		for _, n := range []int{4, 8, 16} {
			matches, err := NewSingleEliminationGenerator().Generate(seedsOf(n))
			require.NoError(t, err)
			assert.Len(t, matches, n-1)
		}
	})

	t.Run("links are forward only and final has none", func(t *testing.T) {
		matches, err := NewSingleEliminationGenerator().Generate(seedsOf(8))
		require.NoError(t, err)

		for i, m := range matches {
			if m.WinnerTo != nil {
				assert.Greater(t, m.WinnerTo.Index, i, "winner link must point forward")
			}
			assert.Nil(t, m.LoserTo, "single elimination has no loser links")
			if m.Opponent1.SourceIndex != nil {
				assert.Less(t, *m.Opponent1.SourceIndex, i, "source must point backward")
			}
			if m.Opponent2.SourceIndex != nil {
				assert.Less(t, *m.Opponent2.SourceIndex, i, "source must point backward")
			}
		}
		final := matches[len(matches)-1]
		assert.Nil(t, final.WinnerTo)
	})

	t.Run("round one pairs mirrored seeds", func(t *testing.T) {
		seeds := seedsOf(8)
		matches, err := NewSingleEliminationGenerator().Generate(seeds)
		require.NoError(t, err)

		first := matches[0]
		assert.Equal(t, *seeds[0], *first.Opponent1.ParticipantID)
		assert.Equal(t, *seeds[7], *first.Opponent2.ParticipantID)
	})
}

func TestDoubleEliminationTopology(t *testing.T) {
	for _, n := range []int{4, 8, 16} {
		matches, err := NewDoubleEliminationGenerator().Generate(seedsOf(n))
		require.NoError(t, err)

		var winner, loser, grandFinal int
		for _, m := range matches {
			switch m.GroupKind {
			case models.GroupWinner:
				winner++
			case models.GroupLoser:
				loser++
			case models.GroupGrandFinal:
				grandFinal++
			}
		}
		assert.Equal(t, n-1, winner, "winner bracket for n=%d", n)
		assert.Equal(t, n-2, loser, "loser bracket for n=%d", n)
		assert.Equal(t, 1, grandFinal)
	}
}

func TestDoubleEliminationEveryLoserDropsOnce(t *testing.T) {
	matches, err := NewDoubleEliminationGenerator().Generate(seedsOf(8))
	require.NoError(t, err)

	// Every winner-bracket match except none sends its loser somewhere;
	// loser-bracket losers are eliminated.
	for i, m := range matches {
		switch m.GroupKind {
		case models.GroupWinner:
			require.NotNil(t, m.LoserTo, "winner bracket match %d must drop its loser", i)
			assert.Greater(t, m.LoserTo.Index, i)
		case models.GroupLoser, models.GroupGrandFinal:
			assert.Nil(t, m.LoserTo)
		}
	}
}

func TestDoubleEliminationGrandFinalSources(t *testing.T) {
	matches, err := NewDoubleEliminationGenerator().Generate(seedsOf(8))
	require.NoError(t, err)

	gf := matches[len(matches)-1]
	require.Equal(t, models.GroupGrandFinal, gf.GroupKind)
	require.NotNil(t, gf.Opponent1.SourceIndex)
	require.NotNil(t, gf.Opponent2.SourceIndex)
	assert.Equal(t, models.GroupWinner, matches[*gf.Opponent1.SourceIndex].GroupKind)
	assert.Equal(t, models.GroupLoser, matches[*gf.Opponent2.SourceIndex].GroupKind)
}

func TestGeneratorForBracketType(t *testing.T) {
	g, err := generatorFor(models.BracketSingleElimination)
	require.NoError(t, err)
	assert.Equal(t, "SingleElimination", g.Name())

	g, err = generatorFor(models.BracketDoubleElimination)
	require.NoError(t, err)
	assert.Equal(t, "DoubleElimination", g.Name())

	_, err = generatorFor(models.BracketType("round_robin"))
	assert.ErrorIs(t, err, ErrUnsupportedBracketType)
}
