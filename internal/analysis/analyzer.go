package analysis

import (
	"context"
	"strings"

	"github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/models"
)

// First plies summarized as the opening phase, and the fixed book-move
// heuristic cap. Not a real opening-book lookup.
const (
	openingPlies  = 10
	bookMovesView = 5
)

// Evaluator is the position-evaluation oracle the analyzer drives. One
// evaluation per half-move, each depending on the board state reached by the
// previous move.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string) (models.PositionEvaluation, error)
}

// Analyzer replays one game at a time through the evaluator and classifies
// the result. The evaluator session is owned by the caller; the analyzer
// holds it for its lifetime but never closes it.
type Analyzer struct {
	evaluator Evaluator
	log       *logger.Logger
}

// NewAnalyzer creates an Analyzer over the given evaluator session.
func NewAnalyzer(evaluator Evaluator) *Analyzer {
	return &Analyzer{
		evaluator: evaluator,
		log:       logger.Default().WithPrefix("analyzer"),
	}
}

// AnalyzeGame replays the game's moves, evaluates each resulting position,
// and builds the full analysis record. An evaluator failure on one position
// marks that evaluation missing and the game still completes; only context
// cancellation aborts the analysis.
func (a *Analyzer) AnalyzeGame(ctx context.Context, game models.RawGame) (models.GameAnalysisRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("analyzer").WithField("game_id", game.ID)

	moves, chessGame, err := replay(game.PGN)
	if err != nil {
		log.Error("failed to parse PGN: %v", err)
		return models.GameAnalysisRecord{}, apperr.NewSourceData(game.ID, "unparseable PGN")
	}
	if len(moves) == 0 {
		return models.GameAnalysisRecord{}, apperr.NewSourceData(game.ID, "no moves in PGN")
	}

	positions := chessGame.Positions()
	if len(positions) != len(moves)+1 {
		log.Warn("unexpected positions length: got %d positions for %d moves", len(positions), len(moves))
	}

	log.Debug("analyzing %d moves", len(moves))

	evals := make([]models.PositionEvaluation, 0, len(moves))
	missing := 0
	for i := range moves {
		if i+1 >= len(positions) {
			break
		}
		if ctx.Err() != nil {
			log.Warn("analysis cancelled: %v", ctx.Err())
			return models.GameAnalysisRecord{}, ctx.Err()
		}

		fen := positions[i+1].String()
		eval, err := a.evaluateWithRetry(ctx, fen)
		if err != nil {
			log.Warn("evaluation missing for move %d: %v", i+1, err)
			eval = models.PositionEvaluation{FEN: fen, Missing: true}
			missing++
		}
		eval.MoveNumber = i + 1
		eval.Move = moves[i]
		evals = append(evals, eval)
	}

	mistakes := FindMistakes(evals)
	record := models.GameAnalysisRecord{
		Game:        game,
		Evaluations: evals,
		Mistakes:    mistakes,
		Opening:     openingSummary(game, chessGame, moves),
		Summary:     summarize(evals, mistakes, missing),
	}

	log.Info("analysis completed: %d moves, %d blunders, %d mistakes, %d inaccuracies, %d missing",
		record.Summary.TotalMoves, record.Summary.Blunders, record.Summary.Mistakes,
		record.Summary.Inaccuracies, missing)
	return record, nil
}

// evaluateWithRetry retries a failed evaluation once before giving up. The
// session survives single-call failures, so one retry is usually enough to
// ride out a transient engine hiccup.
func (a *Analyzer) evaluateWithRetry(ctx context.Context, fen string) (models.PositionEvaluation, error) {
	eval, err := a.evaluator.Evaluate(ctx, fen)
	if err == nil {
		return eval, nil
	}
	if ctx.Err() != nil {
		return models.PositionEvaluation{}, err
	}
	a.log.Debug("retrying evaluation for %s", fen)
	return a.evaluator.Evaluate(ctx, fen)
}

// MoveStrings replays PGN move text and returns the move list in engine
// notation. Used by the pattern miner to reconstruct positions leading up to
// a blunder.
func MoveStrings(pgnText string) ([]string, error) {
	moves, _, err := replay(pgnText)
	return moves, err
}

func replay(pgnText string) ([]string, *chess.Game, error) {
	pgnOpt, err := chess.PGN(strings.NewReader(pgnText))
	if err != nil {
		return nil, nil, err
	}
	chessGame := chess.NewGame(pgnOpt)

	gameMoves := chessGame.Moves()
	moves := make([]string, len(gameMoves))
	for i := range gameMoves {
		moves[i] = gameMoves[i].String()
	}
	return moves, chessGame, nil
}

// openingSummary prefers the archive's opening metadata and falls back to the
// ECO book when the headers carry nothing.
func openingSummary(game models.RawGame, chessGame *chess.Game, moves []string) models.OpeningSummary {
	name, eco := game.Opening, game.ECO
	if name == "" {
		book := opening.NewBookECO()
		if found := book.Find(chessGame.Moves()); found != nil {
			eco = found.Code()
			name = found.Title()
		}
	}

	plies := moves
	if len(plies) > openingPlies {
		plies = plies[:openingPlies]
	}
	openingMoves := make([]string, len(plies))
	copy(openingMoves, plies)

	bookMoves := bookMovesView
	if len(openingMoves) < bookMoves {
		bookMoves = len(openingMoves)
	}

	return models.OpeningSummary{
		Name:      name,
		ECO:       eco,
		Moves:     openingMoves,
		BookMoves: bookMoves,
	}
}

func summarize(evals []models.PositionEvaluation, mistakes []models.MistakeRecord, missing int) models.GameSummary {
	summary := models.GameSummary{
		TotalMoves:           len(evals),
		Accuracy:             Accuracy(evals),
		AverageCentipawnLoss: AverageCentipawnLoss(mistakes),
		MissingEvaluations:   missing,
		CriticalMoments:      CriticalMoments(evals),
	}
	for _, m := range mistakes {
		switch m.Severity {
		case models.SeverityBlunder:
			summary.Blunders++
		case models.SeverityMistake:
			summary.Mistakes++
		case models.SeverityInaccuracy:
			summary.Inaccuracies++
		}
	}
	return summary
}
