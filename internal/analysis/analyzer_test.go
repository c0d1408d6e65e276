package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarias/chessinsight/internal/analysis"
	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/models"
)

const scholarsMatePGN = `[Event "Test"]
[Site "https://lichess.org/abcd1234"]
[White "alice"]
[Black "bob"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0`

// stubEvaluator answers by position order and can be scripted to always fail
// at given positions, which exercises the retry and missing-marker paths.
type stubEvaluator struct {
	failAt map[int]bool
	order  []string
	calls  map[string]int
}

func newStubEvaluator(failAt ...int) *stubEvaluator {
	fails := make(map[int]bool, len(failAt))
	for _, i := range failAt {
		fails[i] = true
	}
	return &stubEvaluator{failAt: fails, calls: map[string]int{}}
}

func (s *stubEvaluator) Evaluate(_ context.Context, fen string) (models.PositionEvaluation, error) {
	if s.calls[fen] == 0 {
		s.order = append(s.order, fen)
	}
	s.calls[fen]++

	idx := 0
	for i, seen := range s.order {
		if seen == fen {
			idx = i + 1
			break
		}
	}
	if s.failAt[idx] {
		return models.PositionEvaluation{}, errors.New("engine hiccup")
	}
	return models.PositionEvaluation{
		FEN:      fen,
		Score:    cp(10 * idx),
		BestMove: "e2e4",
	}, nil
}

func testGame() models.RawGame {
	return models.RawGame{
		ID:          "abcd1234",
		PGN:         scholarsMatePGN,
		White:       "alice",
		Black:       "bob",
		Result:      "1-0",
		TimeControl: "blitz",
	}
}

func TestAnalyzeGame(t *testing.T) {
	evaluator := newStubEvaluator()
	analyzer := analysis.NewAnalyzer(evaluator)

	record, err := analyzer.AnalyzeGame(context.Background(), testGame())
	require.NoError(t, err)

	assert.Len(t, record.Evaluations, 7)
	assert.Equal(t, 7, record.Summary.TotalMoves)
	assert.Equal(t, 0, record.Summary.MissingEvaluations)
	for i, e := range record.Evaluations {
		assert.Equal(t, i+1, e.MoveNumber)
		assert.NotEmpty(t, e.Move)
		assert.NotEmpty(t, e.FEN)
	}

	// Seven plies, all within the opening window, capped book view.
	assert.Len(t, record.Opening.Moves, 7)
	assert.Equal(t, 5, record.Opening.BookMoves)
}

func TestAnalyzeGame_EvaluatorFailure(t *testing.T) {
	evaluator := newStubEvaluator(3)
	analyzer := analysis.NewAnalyzer(evaluator)

	record, err := analyzer.AnalyzeGame(context.Background(), testGame())
	require.NoError(t, err)

	assert.Equal(t, 1, record.Summary.MissingEvaluations)
	require.Len(t, record.Evaluations, 7)
	assert.True(t, record.Evaluations[2].Missing)
	assert.Equal(t, 3, record.Evaluations[2].MoveNumber)

	// Failed position was retried once before being marked missing.
	failedFEN := record.Evaluations[2].FEN
	assert.Equal(t, 2, evaluator.calls[failedFEN])

	// Neighbors of the missing evaluation never pair up into mistakes.
	for _, m := range record.Mistakes {
		assert.NotEqual(t, 3, m.MoveNumber)
		assert.NotEqual(t, 4, m.MoveNumber)
	}
}

func TestAnalyzeGame_UnparseablePGN(t *testing.T) {
	analyzer := analysis.NewAnalyzer(newStubEvaluator())

	game := testGame()
	game.PGN = "this is not a chess game"
	_, err := analyzer.AnalyzeGame(context.Background(), game)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeSourceData))
}

func TestAnalyzeGame_Cancelled(t *testing.T) {
	analyzer := analysis.NewAnalyzer(newStubEvaluator())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := analyzer.AnalyzeGame(ctx, testGame())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMoveStrings(t *testing.T) {
	moves, err := analysis.MoveStrings(scholarsMatePGN)
	require.NoError(t, err)
	assert.Len(t, moves, 7)
}
