package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarias/chessinsight/internal/models"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		expected  infoLine
		haveScore bool
	}{
		{
			name: "centipawn score with pv",
			line: "info depth 15 seldepth 21 multipv 1 score cp 34 nodes 1000 pv e2e4 e7e5",
			expected: infoLine{
				multipv:   1,
				score:     models.Score{Kind: models.ScoreCentipawn, Value: 34},
				firstMove: "e2e4",
			},
			haveScore: true,
		},
		{
			name: "mate score",
			line: "info depth 12 multipv 2 score mate -3 pv d8h4",
			expected: infoLine{
				multipv:   2,
				score:     models.Score{Kind: models.ScoreMate, Value: -3},
				firstMove: "d8h4",
			},
			haveScore: true,
		},
		{
			name: "missing multipv defaults to principal",
			line: "info depth 10 score cp -120 pv g8f6",
			expected: infoLine{
				multipv:   1,
				score:     models.Score{Kind: models.ScoreCentipawn, Value: -120},
				firstMove: "g8f6",
			},
			haveScore: true,
		},
		{
			name:      "line without score is ignored",
			line:      "info depth 5 currmove e2e4 currmovenumber 1",
			haveScore: false,
		},
		{
			name:      "readyok is ignored",
			line:      "readyok",
			haveScore: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			il, ok := parseInfo(tt.line)
			assert.Equal(t, tt.haveScore, ok)
			if tt.haveScore {
				assert.Equal(t, tt.expected, il)
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	lines := map[int]infoLine{
		1: {multipv: 1, score: models.Score{Kind: models.ScoreCentipawn, Value: 50}, firstMove: "e2e4"},
		3: {multipv: 3, score: models.Score{Kind: models.ScoreCentipawn, Value: 10}, firstMove: "c2c4"},
		2: {multipv: 2, score: models.Score{Kind: models.ScoreCentipawn, Value: 30}, firstMove: "d2d4"},
	}

	eval := assemble("fen w", lines, false)
	assert.Equal(t, "e2e4", eval.BestMove)
	assert.Equal(t, 50, eval.Score.Value)
	require.Len(t, eval.Alternatives, 2)
	assert.Equal(t, "d2d4", eval.Alternatives[0].Move)
	assert.Equal(t, "c2c4", eval.Alternatives[1].Move)
}

func TestAssemble_NormalizesForBlack(t *testing.T) {
	lines := map[int]infoLine{
		1: {multipv: 1, score: models.Score{Kind: models.ScoreCentipawn, Value: 80}, firstMove: "e7e5"},
	}

	// Black to move: a score in black's favor reads negative for white.
	eval := assemble("fen b", lines, true)
	assert.Equal(t, -80, eval.Score.Value)
}

func TestSideToMoveIsBlack(t *testing.T) {
	assert.False(t, sideToMoveIsBlack("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"))
	assert.True(t, sideToMoveIsBlack("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"))
	assert.False(t, sideToMoveIsBlack("garbage"))
}
