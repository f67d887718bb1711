package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestMergeOpponent(t *testing.T) {
	win := ResultWin

	t.Run("nil patch preserves everything", func(t *testing.T) {
		dst := Opponent{ParticipantID: intPtr(7), Score: intPtr(2)}
		MergeOpponent(&dst, nil)
		assert.Equal(t, 7, *dst.ParticipantID)
		assert.Equal(t, 2, *dst.Score)
	})

	t.Run("absent fields keep existing values", func(t *testing.T) {
		dst := Opponent{ParticipantID: intPtr(7), Score: intPtr(1)}
		MergeOpponent(&dst, &OpponentPatch{Score: intPtr(2)})
		assert.Equal(t, 7, *dst.ParticipantID)
		assert.Equal(t, 2, *dst.Score)
		assert.Nil(t, dst.Result)
	})

	t.Run("applying the same patch twice is stable", func(t *testing.T) {
		dst := Opponent{ParticipantID: intPtr(7)}
		patch := &OpponentPatch{Score: intPtr(2), Result: &win}
		MergeOpponent(&dst, patch)
		first := dst
		MergeOpponent(&dst, patch)
		assert.Equal(t, first, dst)
	})
}

func TestPendingStatus(t *testing.T) {
	tests := []struct {
		name      string
		opponent1 Opponent
		opponent2 Opponent
		want      MatchStatus
	}{
		{
			name: "no slots resolved",
			opponent1: Opponent{SourceMatchID: intPtr(1)},
			opponent2: Opponent{SourceMatchID: intPtr(2)},
			want:      MatchLocked,
		},
		{
			name: "one slot resolved",
			opponent1: Opponent{ParticipantID: intPtr(10)},
			opponent2: Opponent{SourceMatchID: intPtr(2)},
			want:      MatchWaiting,
		},
		{
			name: "both slots resolved",
			opponent1: Opponent{ParticipantID: intPtr(10)},
			opponent2: Opponent{ParticipantID: intPtr(11)},
			want:      MatchReady,
		},
		{
			name: "bye counts as resolved",
			opponent1: Opponent{ParticipantID: intPtr(10)},
			opponent2: Opponent{},
			want:      MatchReady,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Match{Opponent1: tt.opponent1, Opponent2: tt.opponent2}
			assert.Equal(t, tt.want, m.PendingStatus())
		})
	}
}

func TestWinnerAndLoser(t *testing.T) {
	win, loss := ResultWin, ResultLoss
	m := &Match{
		Opponent1: Opponent{ParticipantID: intPtr(10), Result: &loss},
		Opponent2: Opponent{ParticipantID: intPtr(11), Result: &win},
	}
	assert.Equal(t, 11, *m.Winner())
	assert.Equal(t, 10, *m.Loser())

	undecided := &Match{Opponent1: Opponent{ParticipantID: intPtr(10)}}
	assert.Nil(t, undecided.Winner())
	assert.Nil(t, undecided.Loser())
}

func TestScoreToWin(t *testing.T) {
	assert.Equal(t, 1, ScoreToWin(1))
	assert.Equal(t, 2, ScoreToWin(3))
	assert.Equal(t, 3, ScoreToWin(5))
}

func TestBestOfForRound(t *testing.T) {
	tournament := &Tournament{BestOf: BestOfConfig{Round: 1, Final: 3, GrandFinal: 5}}

	assert.Equal(t, 1, tournament.BestOfForRound(GroupWinner, 1, 3))
	assert.Equal(t, 1, tournament.BestOfForRound(GroupWinner, 2, 3))
	assert.Equal(t, 3, tournament.BestOfForRound(GroupWinner, 3, 3))
	assert.Equal(t, 1, tournament.BestOfForRound(GroupLoser, 4, 4))
	assert.Equal(t, 5, tournament.BestOfForRound(GroupGrandFinal, 1, 1))
}
