package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/models"
	"github.com/dfarias/chessinsight/internal/worker"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleAnalyze queues a background batch run. Returns 202 with the queue
// position, or 409 when the queue is full.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	filters := lichess.Filters{
		MaxCount:        s.Cfg.DefaultNumGames,
		SinceDaysAgo:    s.Cfg.DefaultDaysBack,
		TimeControl:     r.URL.Query().Get("time_control"),
		OpeningContains: r.URL.Query().Get("opening"),
	}
	if v := r.URL.Query().Get("num"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "num must be a positive integer", http.StatusBadRequest)
			return
		}
		filters.MaxCount = n
	}
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filters.SinceDaysAgo = n
	}
	if v := r.URL.Query().Get("rated"); v != "" {
		filters.RatedOnly = v == "true" || v == "1"
	}
	if v := r.URL.Query().Get("tournament"); v != "" {
		filters.TournamentOnly = v == "true" || v == "1"
	}

	job := &worker.AnalyzeBatchJob{
		Runner:     s.Batch,
		Filters:    filters,
		OnComplete: s.SetLatest,
	}
	if !s.Pool.TrySubmit(job) {
		http.Error(w, "analysis queue is full", http.StatusConflict)
		return
	}

	log.Info("queued batch analysis (max %d games)", filters.MaxCount)
	s.respondJSON(w, http.StatusAccepted, map[string]any{
		"status": "queued",
		"queued": s.Pool.QueueSize(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := s.requireReport(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"username":            report.Username,
		"overall":             s.Agg.Overall(report.Records),
		"skipped_games":       report.SkippedGames,
		"failed_games":        report.FailedGames,
		"missing_evaluations": report.MissingEvaluations,
		"cache_hits":          report.CacheHits,
	})
}

func (s *Server) handleOpenings(w http.ResponseWriter, r *http.Request) {
	report, ok := s.requireReport(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.Agg.ByOpening(report.Records))
}

func (s *Server) handleTimeControls(w http.ResponseWriter, r *http.Request) {
	report, ok := s.requireReport(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.Agg.ByTimeControl(report.Records))
}

func (s *Server) handleOpponents(w http.ResponseWriter, r *http.Request) {
	report, ok := s.requireReport(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.Agg.Standings(report.Records))
}

func (s *Server) handleOpponentProfile(w http.ResponseWriter, r *http.Request) {
	report, ok := s.requireReport(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	profile := s.Agg.OpponentProfile(name, report.Records)
	if profile.HeadToHead.TotalGames == 0 {
		http.Error(w, "no games against "+name, http.StatusNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	report, ok := s.requireReport(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.Agg.MinePatterns(report.Records))
}

// handleGame serves one game's record from the latest batch, falling back to
// an on-demand fetch and analysis when the game is not in the batch.
func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	gameID := chi.URLParam(r, "id")

	if report := s.latestReport(); report != nil {
		for _, rec := range report.Records {
			if rec.Game.ID == gameID {
				s.respondJSON(w, http.StatusOK, rec)
				return
			}
		}
	}

	record, err := s.Batch.AnalyzeGameByID(r.Context(), gameID)
	if err != nil {
		log.Error("game %s analysis failed: %v", gameID, err)
		if apperr.HasCode(err, apperr.CodeSourceData) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		s.respondJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	stats := s.Store.GetStats()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"enabled":          true,
		"entries":          stats.Entries,
		"total_size_bytes": stats.TotalSizeBytes,
	})
}

func (s *Server) requireReport(w http.ResponseWriter) (*models.BatchReport, bool) {
	report := s.latestReport()
	if report == nil {
		http.Error(w, "no analysis available yet, POST /api/analyze first", http.StatusNotFound)
		return nil, false
	}
	return report, true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Default().Error("failed to encode response: %v", err)
	}
}
