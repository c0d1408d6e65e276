package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarias/chessinsight/internal/aggregate"
	"github.com/dfarias/chessinsight/internal/api"
	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/config"
	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/models"
	"github.com/dfarias/chessinsight/internal/worker"
)

// fakeBatch satisfies the handlers' service dependency without an engine.
type fakeBatch struct {
	report *models.BatchReport
	record models.GameAnalysisRecord
	err    error
}

func (f *fakeBatch) AnalyzeBatch(ctx context.Context, filters lichess.Filters) (*models.BatchReport, error) {
	return f.report, f.err
}

func (f *fakeBatch) AnalyzeGameByID(ctx context.Context, gameID string) (models.GameAnalysisRecord, error) {
	if f.err != nil {
		return models.GameAnalysisRecord{}, f.err
	}
	return f.record, nil
}

func testServer(batch api.BatchServiceInterface, queueSize int) *api.Server {
	return &api.Server{
		Cfg: &config.Config{
			Username:        "hero",
			DefaultNumGames: 10,
			DefaultDaysBack: 30,
		},
		Batch: batch,
		Pool:  worker.NewPool(1, queueSize),
		Agg:   aggregate.New("hero", 3),
	}
}

func reportWithGames() *models.BatchReport {
	return &models.BatchReport{
		Username: "hero",
		Records: []models.GameAnalysisRecord{
			{
				Game:    models.RawGame{ID: "g1", White: "hero", Black: "rival", Result: "1-0", TimeControl: "blitz"},
				Summary: models.GameSummary{TotalMoves: 40, Accuracy: 90},
			},
			{
				Game:    models.RawGame{ID: "g2", White: "rival", Black: "hero", Result: "1-0", TimeControl: "blitz"},
				Summary: models.GameSummary{TotalMoves: 35, Accuracy: 70},
			},
		},
	}
}

func TestHealthz(t *testing.T) {
	srv := testServer(&fakeBatch{}, 4)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSummary_NoReportYet(t *testing.T) {
	srv := testServer(&fakeBatch{}, 4)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummary(t *testing.T) {
	srv := testServer(&fakeBatch{}, 4)
	srv.SetLatest(reportWithGames())

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Username string                `json:"username"`
		Overall  models.OverallSummary `json:"overall"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "hero", payload.Username)
	assert.Equal(t, 2, payload.Overall.TotalGames)
	assert.Equal(t, models.Record{Wins: 1, Losses: 1}, payload.Overall.Record)
	assert.Equal(t, 80.0, payload.Overall.AvgAccuracyPct)
}

func TestOpponents(t *testing.T) {
	srv := testServer(&fakeBatch{}, 4)
	srv.SetLatest(reportWithGames())

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opponents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var standings models.Standings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &standings))
	require.Len(t, standings.ByOpponent, 1)
	assert.Equal(t, "rival", standings.ByOpponent[0].Key)
	assert.Equal(t, 2, standings.ByOpponent[0].Games)
}

func TestOpponentProfile_NotFound(t *testing.T) {
	srv := testServer(&fakeBatch{}, 4)
	srv.SetLatest(reportWithGames())

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opponents/stranger", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze_Queued(t *testing.T) {
	srv := testServer(&fakeBatch{report: reportWithGames()}, 4)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze?num=5", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, srv.Pool.QueueSize())
}

func TestAnalyze_BadParams(t *testing.T) {
	srv := testServer(&fakeBatch{}, 4)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze?num=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_QueueFull(t *testing.T) {
	srv := testServer(&fakeBatch{}, 1)

	first := httptest.NewRecorder()
	srv.Routes().ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	srv.Routes().ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestGame_ServedFromLatestReport(t *testing.T) {
	srv := testServer(&fakeBatch{err: apperr.NewSourceData("g1", "should not be called")}, 4)
	srv.SetLatest(reportWithGames())

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/g1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var record models.GameAnalysisRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "g1", record.Game.ID)
}

func TestGame_OnDemandFetchFailure(t *testing.T) {
	srv := testServer(&fakeBatch{err: apperr.NewSourceData("gx", "no move text")}, 4)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/gx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheStats_Disabled(t *testing.T) {
	srv := testServer(&fakeBatch{}, 4)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, false, payload["enabled"])
}
