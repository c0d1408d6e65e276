// Package api exposes aggregation results over HTTP. Analysis runs happen in
// the background through the worker pool; handlers only read the most recent
// finished report.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dfarias/chessinsight/internal/aggregate"
	"github.com/dfarias/chessinsight/internal/cache"
	"github.com/dfarias/chessinsight/internal/config"
	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/models"
	"github.com/dfarias/chessinsight/internal/worker"
)

// BatchServiceInterface is the slice of the batch service the handlers use.
type BatchServiceInterface interface {
	AnalyzeBatch(ctx context.Context, filters lichess.Filters) (*models.BatchReport, error)
	AnalyzeGameByID(ctx context.Context, gameID string) (models.GameAnalysisRecord, error)
}

type Server struct {
	Cfg   *config.Config
	Batch BatchServiceInterface
	Pool  *worker.Pool
	Agg   *aggregate.Aggregator
	Store *cache.Store

	mu     sync.RWMutex
	latest *models.BatchReport
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/api/summary", s.handleSummary)
	r.Get("/api/openings", s.handleOpenings)
	r.Get("/api/time-controls", s.handleTimeControls)
	r.Get("/api/opponents", s.handleOpponents)
	r.Get("/api/opponents/{name}", s.handleOpponentProfile)
	r.Get("/api/patterns", s.handlePatterns)
	r.Get("/api/games/{id}", s.handleGame)
	r.Get("/api/cache/stats", s.handleCacheStats)
	return r
}

// SetLatest swaps in a freshly finished report.
func (s *Server) SetLatest(report *models.BatchReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = report
}

func (s *Server) latestReport() *models.BatchReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
