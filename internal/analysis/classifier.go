package analysis

import (
	"fmt"
	"math"

	"github.com/dfarias/chessinsight/internal/models"
)

// Severity thresholds on the absolute evaluation change, in centipawns.
// Fixed constants, not tunable per skill level; downstream comparative stats
// depend on these staying put.
const (
	inaccuracyThreshold = 50
	mistakeThreshold    = 150
	blunderThreshold    = 300

	// Any transition into or out of a mate score is treated as maximally
	// severe, without distinguishing mate discovery from mate evasion.
	mateTransitionDelta = 1000.0

	// Centipawn magnitude beyond which a position counts as a significant
	// advantage for one side.
	significantAdvantage = 200
)

// DeltaScore computes the signed evaluation change between two adjacent
// positions. Both centipawn: plain difference, sign indicating which side lost
// ground. Either side a mate score: the fixed mate-transition magnitude.
func DeltaScore(prev, curr models.Score) float64 {
	if prev.Kind == models.ScoreCentipawn && curr.Kind == models.ScoreCentipawn {
		return float64(curr.Value - prev.Value)
	}
	return mateTransitionDelta
}

// ClassifySeverity maps an evaluation delta onto a severity tier. Boundary
// values classify into the higher bucket. ok is false when the loss is too
// small to record.
func ClassifySeverity(delta float64) (models.Severity, bool) {
	switch loss := math.Abs(delta); {
	case loss >= blunderThreshold:
		return models.SeverityBlunder, true
	case loss >= mistakeThreshold:
		return models.SeverityMistake, true
	case loss >= inaccuracyThreshold:
		return models.SeverityInaccuracy, true
	default:
		return "", false
	}
}

// FindMistakes scans the ordered evaluation sequence and records every move
// whose evaluation change crosses a severity threshold. Deltas are only ever
// taken between adjacent evaluations of the same game; a pair with a missing
// side produces no record.
func FindMistakes(evals []models.PositionEvaluation) []models.MistakeRecord {
	var mistakes []models.MistakeRecord

	for i := 1; i < len(evals); i++ {
		prev, curr := evals[i-1], evals[i]
		if prev.Missing || curr.Missing {
			continue
		}

		delta := DeltaScore(prev.Score, curr.Score)
		severity, ok := ClassifySeverity(delta)
		if !ok {
			continue
		}

		mistakes = append(mistakes, models.MistakeRecord{
			MoveNumber: curr.MoveNumber,
			Move:       curr.Move,
			Severity:   severity,
			EvalDelta:  delta,
			Before:     prev.Score,
			After:      curr.Score,
			FEN:        curr.FEN,
		})
	}
	return mistakes
}

// Accuracy is a stability heuristic over the evaluation trend:
// max(0, 100 - mean(|delta|)/10), rounded to one decimal. Mate scores enter
// the trend at their saturated centipawn equivalent; missing evaluations are
// excluded. Deliberately coarse - keep as is.
func Accuracy(evals []models.PositionEvaluation) float64 {
	var trend []float64
	for _, e := range evals {
		if e.Missing {
			continue
		}
		trend = append(trend, e.Score.Centipawns())
	}
	if len(trend) == 0 {
		return 0
	}
	// A single usable evaluation has no swings to penalize.
	if len(trend) == 1 {
		return 100
	}

	var total float64
	for i := 1; i < len(trend); i++ {
		total += math.Abs(trend[i] - trend[i-1])
	}
	avgChange := total / float64(len(trend)-1)

	accuracy := 100 - avgChange/10
	if accuracy < 0 {
		accuracy = 0
	}
	return models.Round1(accuracy)
}

// AverageCentipawnLoss is the mean absolute evaluation loss across the game's
// mistake records, rounded to one decimal.
func AverageCentipawnLoss(mistakes []models.MistakeRecord) float64 {
	if len(mistakes) == 0 {
		return 0
	}
	var total float64
	for _, m := range mistakes {
		total += math.Abs(m.EvalDelta)
	}
	return models.Round1(total / float64(len(mistakes)))
}

// CriticalMoments flags positions worth reviewing: large one-sided advantages
// and mate threats. Informational only; these never count as mistakes.
func CriticalMoments(evals []models.PositionEvaluation) []models.CriticalMoment {
	var moments []models.CriticalMoment

	for _, e := range evals {
		if e.Missing {
			continue
		}
		switch e.Score.Kind {
		case models.ScoreCentipawn:
			if e.Score.Value > significantAdvantage || e.Score.Value < -significantAdvantage {
				side := "White"
				if e.Score.Value < 0 {
					side = "Black"
				}
				moments = append(moments, models.CriticalMoment{
					MoveNumber:  e.MoveNumber,
					Kind:        "significant_advantage",
					Evaluation:  e.Score,
					Description: fmt.Sprintf("%s gains significant advantage", side),
				})
			}
		case models.ScoreMate:
			side := "White"
			if e.Score.Value < 0 {
				side = "Black"
			}
			moments = append(moments, models.CriticalMoment{
				MoveNumber:  e.MoveNumber,
				Kind:        "mate_threat",
				Evaluation:  e.Score,
				Description: fmt.Sprintf("Mate in %d for %s", abs(e.Score.Value), side),
			})
		}
	}
	return moments
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
