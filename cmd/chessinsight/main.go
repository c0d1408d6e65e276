package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfarias/chessinsight/internal/aggregate"
	"github.com/dfarias/chessinsight/internal/analysis"
	"github.com/dfarias/chessinsight/internal/api"
	"github.com/dfarias/chessinsight/internal/cache"
	"github.com/dfarias/chessinsight/internal/config"
	"github.com/dfarias/chessinsight/internal/engine"
	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/service"
	"github.com/dfarias/chessinsight/internal/worker"
)

func main() {
	var (
		gameID      = flag.String("game", "", "analyze a single game by id")
		numGames    = flag.Int("num", 0, "number of recent games to analyze")
		daysBack    = flag.Int("days", 0, "only games from the last N days")
		timeControl = flag.String("time-control", "", "filter by time control (bullet, blitz, rapid, classical)")
		opening     = flag.String("opening", "", "filter by opening name substring")
		ratedOnly   = flag.Bool("rated", false, "only rated games")
		tournament  = flag.Bool("tournament", false, "only games played in tournaments")
		exportPath  = flag.String("export", "", "write the batch report as JSON to this path")
		serve       = flag.Bool("serve", false, "run the HTTP server instead of a one-shot batch")
		clearCache  = flag.Bool("clear-cache", false, "remove all cached analyses and exit")
	)
	flag.Parse()

	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("ChessInsight Starting")
	log.Info("===========================================")
	log.Debug("username=%s", cfg.Username)
	log.Debug("stockfish_path=%s", cfg.StockfishPath)
	log.Debug("analysis_depth=%d", cfg.AnalysisDepth)
	log.Debug("analysis_time_ms=%d", cfg.AnalysisTimeMs)
	log.Debug("cache_dir=%s cache_enabled=%v", cfg.CacheDir, cfg.CacheEnabled)
	log.Debug("analysis_worker_count=%d", cfg.AnalysisWorkerCount)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	var store *cache.Store
	if cfg.CacheEnabled {
		var err error
		store, err = cache.NewStore(cfg.CacheDir)
		if err != nil {
			log.Warn("cache unavailable, continuing without it: %v", err)
			store = nil
		}
	}

	if *clearCache {
		if store == nil {
			log.Info("cache is disabled, nothing to clear")
			return
		}
		if err := store.Clear(); err != nil {
			log.Error("failed to clear cache: %v", err)
			os.Exit(1)
		}
		log.Info("cache cleared: %s", store.Dir())
		return
	}

	moveTime := time.Duration(cfg.AnalysisTimeMs) * time.Millisecond
	var evaluator analysis.Evaluator
	var closeEngines func()
	if cfg.AnalysisWorkerCount > 1 {
		pool, err := engine.NewPool(cfg.StockfishPath, cfg.AnalysisDepth, moveTime, cfg.AnalysisWorkerCount)
		if err != nil {
			log.Error("failed to start engine pool: %v", err)
			os.Exit(1)
		}
		evaluator = pool
		closeEngines = pool.Close
	} else {
		eng, err := engine.New(cfg.StockfishPath, cfg.AnalysisDepth, moveTime)
		if err != nil {
			log.Error("failed to start engine: %v", err)
			os.Exit(1)
		}
		evaluator = eng
		closeEngines = func() { _ = eng.Close() }
	}
	defer closeEngines()

	client := lichess.New(cfg.LichessToken)
	batch := service.NewBatchService(&cfg, client, store, evaluator)
	agg := aggregate.New(cfg.Username, cfg.MinPatternOccurrences)
	reporter := service.NewReporter(agg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.NewContext(ctx, log)

	if *serve {
		runServer(ctx, &cfg, batch, agg, store, log)
		return
	}

	if *gameID != "" {
		record, err := batch.AnalyzeGameByID(ctx, *gameID)
		if err != nil {
			log.Error("failed to analyze game %s: %v", *gameID, err)
			os.Exit(1)
		}
		fmt.Println(reporter.GameFeedback(record))
		return
	}

	filters := lichess.Filters{
		MaxCount:        cfg.DefaultNumGames,
		SinceDaysAgo:    cfg.DefaultDaysBack,
		TimeControl:     *timeControl,
		OpeningContains: *opening,
		RatedOnly:       *ratedOnly,
		TournamentOnly:  *tournament,
	}
	if *numGames > 0 {
		filters.MaxCount = *numGames
	}
	if *daysBack > 0 {
		filters.SinceDaysAgo = *daysBack
	}

	report, err := batch.AnalyzeBatch(ctx, filters)
	if err != nil {
		log.Error("batch analysis failed: %v", err)
		os.Exit(1)
	}
	if len(report.Records) == 0 {
		log.Info("no games analyzed")
		return
	}

	for i, rec := range report.Records {
		fmt.Printf("\n==================================================\n")
		fmt.Printf("GAME %d ANALYSIS\n", i+1)
		fmt.Printf("==================================================\n")
		fmt.Println(reporter.GameFeedback(rec))
	}

	// Profile is best effort; the report renders without it.
	var profile *lichess.Profile
	if p, err := client.FetchProfile(ctx, cfg.Username); err == nil {
		profile = &p
	} else {
		log.Warn("could not fetch profile: %v", err)
	}

	fmt.Printf("\n")
	fmt.Println(reporter.Overall(report, profile))

	if *exportPath != "" {
		if err := service.ExportJSON(*exportPath, report); err != nil {
			log.Error("failed to export report: %v", err)
			os.Exit(1)
		}
		log.Info("report exported to %s", *exportPath)
	}
}

func runServer(ctx context.Context, cfg *config.Config, batch *service.BatchService, agg *aggregate.Aggregator, store *cache.Store, log *logger.Logger) {
	pool := worker.NewPool(1, 4)
	pool.Start(ctx)

	srv := &api.Server{
		Cfg:   cfg,
		Batch: batch,
		Pool:  pool,
		Agg:   agg,
		Store: store,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}
	pool.Stop()
	log.Info("shutdown complete")
}
