package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dfarias/chessinsight/internal/cache"
	"github.com/dfarias/chessinsight/internal/config"
	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/models"
	"github.com/dfarias/chessinsight/internal/service"
	"github.com/dfarias/chessinsight/internal/testutil/mocks"
)

const testPGN = `[Event "Test"]
[White "hero"]
[Black "rival"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0`

// fixedEvaluator returns the same centipawn score for every position. Call
// counting is atomic so the parallel path can share one instance.
type fixedEvaluator struct {
	calls atomic.Int64
}

func (f *fixedEvaluator) Evaluate(_ context.Context, fen string) (models.PositionEvaluation, error) {
	f.calls.Add(1)
	return models.PositionEvaluation{
		FEN:   fen,
		Score: models.Score{Kind: models.ScoreCentipawn, Value: 25},
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		LichessToken:          "token",
		Username:              "hero",
		StockfishPath:         "stockfish",
		AnalysisDepth:         15,
		AnalysisTimeMs:        2000,
		LogLevel:              "INFO",
		AnalysisWorkerCount:   1,
		DefaultNumGames:       10,
		DefaultDaysBack:       30,
		MinPatternOccurrences: 3,
	}
}

func rawGame(id, pgn string) models.RawGame {
	return models.RawGame{
		ID:     id,
		PGN:    pgn,
		White:  "hero",
		Black:  "rival",
		Result: "1-0",
	}
}

func TestAnalyzeBatch(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).
		Return([]models.RawGame{rawGame("g1", testPGN), rawGame("g2", testPGN)}, nil)

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	report, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{MaxCount: 10})
	require.NoError(t, err)

	assert.Len(t, report.Records, 2)
	assert.Equal(t, 0, report.SkippedGames)
	assert.Equal(t, 0, report.FailedGames)
	assert.Equal(t, 0, report.CacheHits)
	client.AssertExpectations(t)
}

func TestAnalyzeBatch_SkipsGamesWithoutMoveText(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).
		Return([]models.RawGame{rawGame("g1", testPGN), rawGame("g2", "   ")}, nil)

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	report, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{})
	require.NoError(t, err)

	assert.Len(t, report.Records, 1)
	assert.Equal(t, 1, report.SkippedGames)
}

func TestAnalyzeBatch_UnparseableGameIsCountedNotFatal(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).
		Return([]models.RawGame{rawGame("g1", "1. zz9 huh"), rawGame("g2", testPGN)}, nil)

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	report, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{})
	require.NoError(t, err)

	assert.Len(t, report.Records, 1)
	assert.Equal(t, 1, report.FailedGames)
}

func TestAnalyzeBatch_EmptyArchive(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).
		Return([]models.RawGame{}, nil)

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	report, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{})
	require.NoError(t, err)
	assert.Empty(t, report.Records)
}

func TestAnalyzeBatch_FetchErrorIsFatal(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).
		Return(nil, errors.New("network down"))

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	_, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{})
	assert.Error(t, err)
}

func TestAnalyzeBatch_CacheHitSkipsEngine(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).
		Return([]models.RawGame{rawGame("g1", testPGN)}, nil)

	evaluator := &fixedEvaluator{}
	svc := service.NewBatchService(testConfig(), client, store, evaluator)

	first, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)
	callsAfterFirst := evaluator.calls.Load()
	assert.Greater(t, callsAfterFirst, int64(0))

	second, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.CacheHits)
	assert.Equal(t, callsAfterFirst, evaluator.calls.Load(), "cached game must not touch the engine")
	assert.Len(t, second.Records, 1)
	assert.Equal(t, first.Records[0].Summary, second.Records[0].Summary)
}

func TestAnalyzeBatch_Parallel(t *testing.T) {
	cfg := testConfig()
	cfg.AnalysisWorkerCount = 3

	games := []models.RawGame{
		rawGame("g1", testPGN),
		rawGame("g2", testPGN),
		rawGame("g3", testPGN),
		rawGame("g4", testPGN),
	}
	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).Return(games, nil)

	svc := service.NewBatchService(cfg, client, nil, &fixedEvaluator{})
	report, err := svc.AnalyzeBatch(context.Background(), lichess.Filters{})
	require.NoError(t, err)

	require.Len(t, report.Records, 4)
	// Input order survives the fan-out.
	for i, rec := range report.Records {
		assert.Equal(t, games[i].ID, rec.Game.ID)
	}
}

func TestAnalyzeGameByID(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGameByID", mock.Anything, "g1").Return(rawGame("g1", testPGN), nil)

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	record, err := svc.AnalyzeGameByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", record.Game.ID)
	assert.Equal(t, 7, record.Summary.TotalMoves)
}

func TestAnalyzeGameByID_NoMoveText(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGameByID", mock.Anything, "g1").Return(rawGame("g1", ""), nil)

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	_, err := svc.AnalyzeGameByID(context.Background(), "g1")
	assert.Error(t, err)
}

func TestAnalyzeBatch_Cancelled(t *testing.T) {
	client := new(mocks.MockLichessClient)
	client.On("FetchGames", mock.Anything, "hero", mock.Anything).
		Return([]models.RawGame{rawGame("g1", testPGN)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := service.NewBatchService(testConfig(), client, nil, &fixedEvaluator{})
	_, err := svc.AnalyzeBatch(ctx, lichess.Filters{})
	assert.Error(t, err)
}
