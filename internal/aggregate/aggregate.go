// Package aggregate folds analyzed games into multi-game statistics. Every
// function here is a pure fold over immutable analysis records, so running an
// aggregation twice over the same input always produces the same output.
package aggregate

import (
	"sort"
	"strings"

	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/models"
)

// Phase breakpoints are defined over the full-move number of the mistake.
const (
	openingLastMove    = 10
	middlegameLastMove = 25
)

// Opponent eligibility for the struggling/best standings.
const (
	minOpponentGames   = 2
	strugglingCutoffPc = 40.0
	standingsLimit     = 5
)

// Outcome is a game result seen from the analyzed player's side.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Aggregator computes batch statistics for one player. It holds no state
// between calls; the fields only carry configuration.
type Aggregator struct {
	username       string
	minOccurrences int
}

// New returns an aggregator for the given player. minOccurrences bounds the
// pattern miner; values below 1 are clamped to 1.
func New(username string, minOccurrences int) *Aggregator {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	return &Aggregator{username: username, minOccurrences: minOccurrences}
}

// Username returns the player the aggregator reports on.
func (a *Aggregator) Username() string {
	return a.username
}

// ResultFor maps a game's result string onto the player's outcome. Any result
// that is not a decisive score or a draw, including "*", counts as a draw so
// an unknown result can never inflate a win rate.
func ResultFor(username string, game models.RawGame) Outcome {
	userIsWhite := strings.EqualFold(game.White, username)
	switch game.Result {
	case "1-0":
		if userIsWhite {
			return OutcomeWin
		}
		return OutcomeLoss
	case "0-1":
		if userIsWhite {
			return OutcomeLoss
		}
		return OutcomeWin
	default:
		return OutcomeDraw
	}
}

// OpponentName returns the other player of a game, or "" when the user played
// neither side.
func OpponentName(username string, game models.RawGame) string {
	return lichess.OpponentOf(username, game)
}

// PhaseOf buckets a full-move number into opening, middlegame or endgame.
func PhaseOf(moveNumber int) string {
	switch {
	case moveNumber <= openingLastMove:
		return "opening"
	case moveNumber <= middlegameLastMove:
		return "middlegame"
	default:
		return "endgame"
	}
}

// Overall rolls every record into one set of totals.
func (a *Aggregator) Overall(records []models.GameAnalysisRecord) models.OverallSummary {
	var out models.OverallSummary
	out.TotalGames = len(records)
	if len(records) == 0 {
		return out
	}

	var accuracySum, lossSum float64
	lossGames := 0
	for _, r := range records {
		out.TotalMoves += r.Summary.TotalMoves
		out.TotalBlunders += r.Summary.Blunders
		out.TotalMistakes += r.Summary.Mistakes
		out.TotalInaccuracies += r.Summary.Inaccuracies
		accuracySum += r.Summary.Accuracy
		if len(r.Mistakes) > 0 {
			lossSum += r.Summary.AverageCentipawnLoss
			lossGames++
		}
		switch ResultFor(a.username, r.Game) {
		case OutcomeWin:
			out.Record.Wins++
		case OutcomeLoss:
			out.Record.Losses++
		default:
			out.Record.Draws++
		}
	}
	out.WinRatePct = out.Record.WinRatePct()
	out.AvgAccuracyPct = models.Round1(accuracySum / float64(len(records)))
	if lossGames > 0 {
		out.AvgCentipawnLoss = models.Round1(lossSum / float64(lossGames))
	}
	return out
}

// MistakePhaseCounts tallies mistakes of the given severity by game phase.
// An empty severity counts every mistake regardless of severity.
func MistakePhaseCounts(records []models.GameAnalysisRecord, severity models.Severity) models.PhaseCounts {
	var counts models.PhaseCounts
	for _, r := range records {
		for _, m := range r.Mistakes {
			if severity != "" && m.Severity != severity {
				continue
			}
			switch PhaseOf(m.MoveNumber) {
			case "opening":
				counts.Opening++
			case "middlegame":
				counts.Middlegame++
			default:
				counts.Endgame++
			}
		}
	}
	return counts
}

// bucketAcc accumulates one breakdown row before rates are computed.
type bucketAcc struct {
	key         string
	record      models.Record
	accuracySum float64
}

// breakdown folds records into buckets keyed by keyFor. Rows keep their first
// appearance order among equal game counts; the final listing is sorted by
// descending game count.
func (a *Aggregator) breakdown(records []models.GameAnalysisRecord, keyFor func(models.GameAnalysisRecord) string) []models.Bucket {
	byKey := make(map[string]*bucketAcc)
	order := make([]string, 0, len(records))
	for _, r := range records {
		key := keyFor(r)
		if key == "" {
			key = "Unknown"
		}
		acc, ok := byKey[key]
		if !ok {
			acc = &bucketAcc{key: key}
			byKey[key] = acc
			order = append(order, key)
		}
		switch ResultFor(a.username, r.Game) {
		case OutcomeWin:
			acc.record.Wins++
		case OutcomeLoss:
			acc.record.Losses++
		default:
			acc.record.Draws++
		}
		acc.accuracySum += r.Summary.Accuracy
	}

	buckets := make([]models.Bucket, 0, len(order))
	for _, key := range order {
		acc := byKey[key]
		games := acc.record.Total()
		buckets = append(buckets, models.Bucket{
			Key:            key,
			Games:          games,
			Wins:           acc.record.Wins,
			Losses:         acc.record.Losses,
			Draws:          acc.record.Draws,
			WinRatePct:     acc.record.WinRatePct(),
			AvgAccuracyPct: models.Round1(acc.accuracySum / float64(games)),
		})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Games > buckets[j].Games
	})
	return buckets
}

// ByOpening breaks records down by opening name.
func (a *Aggregator) ByOpening(records []models.GameAnalysisRecord) []models.Bucket {
	return a.breakdown(records, func(r models.GameAnalysisRecord) string {
		if r.Opening.Name != "" {
			return r.Opening.Name
		}
		return r.Game.Opening
	})
}

// ByTimeControl breaks records down by time control.
func (a *Aggregator) ByTimeControl(records []models.GameAnalysisRecord) []models.Bucket {
	return a.breakdown(records, func(r models.GameAnalysisRecord) string {
		return r.Game.TimeControl
	})
}

// ByOpponent breaks records down by opponent name.
func (a *Aggregator) ByOpponent(records []models.GameAnalysisRecord) []models.Bucket {
	return a.breakdown(records, func(r models.GameAnalysisRecord) string {
		return OpponentName(a.username, r.Game)
	})
}
