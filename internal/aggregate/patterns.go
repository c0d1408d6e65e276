package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/dfarias/chessinsight/internal/analysis"
	"github.com/dfarias/chessinsight/internal/models"
)

// prefixPlies is the number of leading plies that identify a line for prefix
// grouping.
const prefixPlies = 6

type patternAcc struct {
	count   int
	lossSum float64
	games   []string
	seen    map[string]bool
}

func (p *patternAcc) add(gameID string, loss float64) {
	p.count++
	p.lossSum += loss
	if !p.seen[gameID] {
		p.seen[gameID] = true
		p.games = append(p.games, gameID)
	}
}

// MinePatterns groups every blunder in the batch by exact move text and by
// the line played before it, keeping groups that recur at least the
// configured number of times.
func (a *Aggregator) MinePatterns(records []models.GameAnalysisRecord) models.BlunderPatterns {
	return minePatterns(records, a.minOccurrences)
}

func minePatterns(records []models.GameAnalysisRecord, minOccurrences int) models.BlunderPatterns {
	byMove := make(map[string]*patternAcc)
	byPrefix := make(map[string]*patternAcc)
	byOpening := make(map[string]*patternAcc)
	var moveOrder, prefixOrder, openingOrder []string

	out := models.BlunderPatterns{
		ByPhase: MistakePhaseCounts(records, models.SeverityBlunder),
	}

	for _, r := range records {
		blunders := 0
		for _, m := range r.Mistakes {
			if m.Severity == models.SeverityBlunder {
				blunders++
			}
		}
		if blunders == 0 {
			continue
		}
		out.TotalBlunders += blunders

		leading := leadingMoves(r)
		opening := r.Opening.Name
		if opening == "" {
			opening = r.Game.Opening
		}
		if opening == "" {
			opening = "Unknown"
		}

		for _, m := range r.Mistakes {
			if m.Severity != models.SeverityBlunder {
				continue
			}
			loss := math.Abs(m.EvalDelta)
			moveOrder = accumulate(byMove, moveOrder, m.Move, r.Game.ID, loss)
			if prefix := prefixBefore(leading, m.MoveNumber); prefix != "" {
				prefixOrder = accumulate(byPrefix, prefixOrder, prefix, r.Game.ID, loss)
			}
			openingOrder = accumulate(byOpening, openingOrder, opening, r.Game.ID, loss)
		}
	}

	for _, move := range moveOrder {
		acc := byMove[move]
		if acc.count < minOccurrences {
			continue
		}
		out.MovePatterns = append(out.MovePatterns, models.MovePattern{
			Move:    move,
			Count:   acc.count,
			AvgLoss: models.Round1(acc.lossSum / float64(acc.count)),
			Games:   acc.games,
		})
	}
	for _, prefix := range prefixOrder {
		acc := byPrefix[prefix]
		if acc.count < minOccurrences {
			continue
		}
		out.PrefixPatterns = append(out.PrefixPatterns, models.PrefixPattern{
			Prefix:  prefix,
			Count:   acc.count,
			AvgLoss: models.Round1(acc.lossSum / float64(acc.count)),
			Games:   acc.games,
		})
	}
	for _, opening := range openingOrder {
		acc := byOpening[opening]
		if acc.count < minOccurrences {
			continue
		}
		out.OpeningBlunders = append(out.OpeningBlunders, models.GroupStat{
			Key:     opening,
			Count:   acc.count,
			AvgLoss: models.Round1(acc.lossSum / float64(acc.count)),
		})
	}

	sortMovePatterns(out.MovePatterns)
	sortPrefixPatterns(out.PrefixPatterns)
	sort.SliceStable(out.OpeningBlunders, func(i, j int) bool {
		return out.OpeningBlunders[i].Count > out.OpeningBlunders[j].Count
	})
	return out
}

func accumulate(byKey map[string]*patternAcc, order []string, key, gameID string, loss float64) []string {
	acc, ok := byKey[key]
	if !ok {
		acc = &patternAcc{seen: make(map[string]bool)}
		byKey[key] = acc
		order = append(order, key)
	}
	acc.add(gameID, loss)
	return order
}

// leadingMoves reconstructs the opening plies of a game. The opening summary
// already holds replayed moves; the PGN is only re-parsed when that list is
// empty.
func leadingMoves(r models.GameAnalysisRecord) []string {
	moves := r.Opening.Moves
	if len(moves) == 0 {
		replayed, err := analysis.MoveStrings(r.Game.PGN)
		if err != nil {
			return nil
		}
		moves = replayed
	}
	if len(moves) > prefixPlies {
		moves = moves[:prefixPlies]
	}
	return moves
}

// prefixBefore joins the plies played before the given ply, capped at
// prefixPlies. A blunder on the first ply has no prefix to group under.
func prefixBefore(moves []string, ply int) string {
	n := ply - 1
	if n > len(moves) {
		n = len(moves)
	}
	if n <= 0 {
		return ""
	}
	return strings.Join(moves[:n], " ")
}

func sortMovePatterns(patterns []models.MovePattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].AvgLoss > patterns[j].AvgLoss
	})
}

func sortPrefixPatterns(patterns []models.PrefixPattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].AvgLoss > patterns[j].AvgLoss
	})
}
