// Package service orchestrates the analysis pipeline: archive ingest, cache
// lookups, engine-backed game analysis, and report assembly.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/dfarias/chessinsight/internal/analysis"
	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/cache"
	"github.com/dfarias/chessinsight/internal/config"
	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/models"
)

// BatchService runs the fetch-analyze-aggregate pipeline for one player.
// The evaluator is injected so the caller controls engine lifecycle: a single
// engine session for sequential runs, an engine pool when analyzing games in
// parallel.
type BatchService struct {
	cfg       *config.Config
	client    lichess.ClientInterface
	store     *cache.Store
	evaluator analysis.Evaluator
	log       *logger.Logger
}

func NewBatchService(cfg *config.Config, client lichess.ClientInterface, store *cache.Store, evaluator analysis.Evaluator) *BatchService {
	return &BatchService{
		cfg:       cfg,
		client:    client,
		store:     store,
		evaluator: evaluator,
		log:       logger.Default().WithPrefix("batch"),
	}
}

// analyzed pairs a finished record with whether it came out of the cache.
type analyzed struct {
	record    models.GameAnalysisRecord
	fromCache bool
}

// AnalyzeBatch fetches the player's games, analyzes each one (serving cached
// results where the position set and engine settings match), and folds the
// outcomes into a report. Individual game failures are counted, not fatal.
func (s *BatchService) AnalyzeBatch(ctx context.Context, filters lichess.Filters) (*models.BatchReport, error) {
	log := logger.FromContext(ctx).WithPrefix("batch").WithField("username", s.cfg.Username)

	games, err := s.client.FetchGames(ctx, s.cfg.Username, filters)
	if err != nil {
		return nil, err
	}
	log.Info("fetched %d games", len(games))

	report := &models.BatchReport{Username: s.cfg.Username}
	if len(games) == 0 {
		return report, nil
	}

	playable := make([]models.RawGame, 0, len(games))
	for _, g := range games {
		if !lichess.HasMoveText(g) {
			log.Warn("skipping game %s: %v", g.ID, apperr.NewSourceData(g.ID, "no move text"))
			report.SkippedGames++
			continue
		}
		playable = append(playable, g)
	}

	var results []analyzed
	if s.cfg.AnalysisWorkerCount > 1 {
		results = s.analyzeParallel(ctx, log, playable, report)
	} else {
		results = s.analyzeSequential(ctx, log, playable, report)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	for _, res := range results {
		if res.fromCache {
			report.CacheHits++
		}
		report.MissingEvaluations += res.record.Summary.MissingEvaluations
		report.Records = append(report.Records, res.record)
	}
	log.Info("batch done: %d analyzed, %d cached, %d skipped, %d failed",
		len(report.Records), report.CacheHits, report.SkippedGames, report.FailedGames)
	return report, nil
}

func (s *BatchService) analyzeSequential(ctx context.Context, log *logger.Logger, games []models.RawGame, report *models.BatchReport) []analyzed {
	results := make([]analyzed, 0, len(games))
	for _, g := range games {
		if ctx.Err() != nil {
			break
		}
		res, err := s.analyzeOne(ctx, g)
		if err != nil {
			log.Error("game %s failed: %v", g.ID, err)
			report.FailedGames++
			continue
		}
		results = append(results, res)
	}
	return results
}

// analyzeParallel fans games out across workers. Each worker drives its own
// engine session through the shared evaluator, so ordering across games is
// not deterministic; results are re-keyed by input order before returning.
func (s *BatchService) analyzeParallel(ctx context.Context, log *logger.Logger, games []models.RawGame, report *models.BatchReport) []analyzed {
	type indexed struct {
		idx int
		res analyzed
		err error
		id  string
	}

	out := make(chan indexed, len(games))
	sem := make(chan struct{}, s.cfg.AnalysisWorkerCount)

	var wg sync.WaitGroup
	for i, g := range games {
		wg.Add(1)
		go func(idx int, game models.RawGame) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			res, err := s.analyzeOne(ctx, game)
			out <- indexed{idx: idx, res: res, err: err, id: game.ID}
		}(i, g)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	byIdx := make(map[int]analyzed, len(games))
	for r := range out {
		if r.err != nil {
			log.Error("game %s failed: %v", r.id, r.err)
			report.FailedGames++
			continue
		}
		byIdx[r.idx] = r.res
	}

	results := make([]analyzed, 0, len(byIdx))
	for i := range games {
		if res, ok := byIdx[i]; ok {
			results = append(results, res)
		}
	}
	return results
}

// AnalyzeGameByID fetches and analyzes a single game.
func (s *BatchService) AnalyzeGameByID(ctx context.Context, gameID string) (models.GameAnalysisRecord, error) {
	game, err := s.client.FetchGameByID(ctx, gameID)
	if err != nil {
		return models.GameAnalysisRecord{}, err
	}
	if !lichess.HasMoveText(game) {
		return models.GameAnalysisRecord{}, apperr.NewSourceData(game.ID, "no move text")
	}
	res, err := s.analyzeOne(ctx, game)
	if err != nil {
		return models.GameAnalysisRecord{}, err
	}
	return res.record, nil
}

// analyzeOne serves a game from the cache when possible and analyzes it
// otherwise. The cache key covers move text, depth, and time budget, so any
// settings change naturally misses.
func (s *BatchService) analyzeOne(ctx context.Context, game models.RawGame) (analyzed, error) {
	key := cache.Key(game.PGN, s.cfg.AnalysisDepth, s.moveTime())
	if s.store != nil {
		if record, ok := s.store.Get(key); ok {
			s.log.Debug("cache hit for game %s", game.ID)
			return analyzed{record: record, fromCache: true}, nil
		}
	}

	analyzer := analysis.NewAnalyzer(s.evaluator)
	record, err := analyzer.AnalyzeGame(ctx, game)
	if err != nil {
		return analyzed{}, err
	}
	if s.store != nil {
		s.store.Put(key, record)
	}
	return analyzed{record: record}, nil
}

func (s *BatchService) moveTime() time.Duration {
	return time.Duration(s.cfg.AnalysisTimeMs) * time.Millisecond
}
