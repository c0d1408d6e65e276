package aggregate

import (
	"sort"
	"strings"

	"github.com/dfarias/chessinsight/internal/models"
)

// HeadToHead computes the record against one opponent, split by the color the
// user held. Games against other opponents are ignored.
func (a *Aggregator) HeadToHead(opponent string, records []models.GameAnalysisRecord) models.HeadToHead {
	h2h := models.HeadToHead{Opponent: opponent}
	for _, r := range records {
		if !strings.EqualFold(OpponentName(a.username, r.Game), opponent) {
			continue
		}
		outcome := ResultFor(a.username, r.Game)
		tally(&h2h.Overall, outcome)
		if strings.EqualFold(r.Game.White, a.username) {
			tally(&h2h.AsWhite, outcome)
		} else {
			tally(&h2h.AsBlack, outcome)
		}
	}
	h2h.TotalGames = h2h.Overall.Total()
	h2h.WinRatePct = h2h.Overall.WinRatePct()
	return h2h
}

func tally(rec *models.Record, outcome Outcome) {
	switch outcome {
	case OutcomeWin:
		rec.Wins++
	case OutcomeLoss:
		rec.Losses++
	default:
		rec.Draws++
	}
}

// Standings ranks every opponent and extracts the struggling matchups (at
// least two games, win rate under the cutoff) plus the best matchups by the
// inverse ordering. Both lists are capped.
func (a *Aggregator) Standings(records []models.GameAnalysisRecord) models.Standings {
	byOpponent := a.ByOpponent(records)

	eligible := make([]models.Bucket, 0, len(byOpponent))
	for _, b := range byOpponent {
		if b.Games >= minOpponentGames {
			eligible = append(eligible, b)
		}
	}

	struggling := make([]models.Bucket, 0, len(eligible))
	for _, b := range eligible {
		if b.WinRatePct < strugglingCutoffPc {
			struggling = append(struggling, b)
		}
	}
	sort.SliceStable(struggling, func(i, j int) bool {
		if struggling[i].WinRatePct != struggling[j].WinRatePct {
			return struggling[i].WinRatePct < struggling[j].WinRatePct
		}
		return struggling[i].Games > struggling[j].Games
	})

	best := make([]models.Bucket, len(eligible))
	copy(best, eligible)
	sort.SliceStable(best, func(i, j int) bool {
		if best[i].WinRatePct != best[j].WinRatePct {
			return best[i].WinRatePct > best[j].WinRatePct
		}
		return best[i].Games > best[j].Games
	})

	return models.Standings{
		ByOpponent: byOpponent,
		Struggling: capBuckets(struggling, standingsLimit),
		Best:       capBuckets(best, standingsLimit),
	}
}

func capBuckets(buckets []models.Bucket, limit int) []models.Bucket {
	if len(buckets) > limit {
		return buckets[:limit]
	}
	return buckets
}

// OpponentProfile builds the deep-dive view for one opponent: head-to-head
// record, opening and time-control breakdowns restricted to their games, and
// the user's recurring blunders in those games.
func (a *Aggregator) OpponentProfile(opponent string, records []models.GameAnalysisRecord) models.OpponentProfile {
	matched := make([]models.GameAnalysisRecord, 0, len(records))
	for _, r := range records {
		if strings.EqualFold(OpponentName(a.username, r.Game), opponent) {
			matched = append(matched, r)
		}
	}

	profile := models.OpponentProfile{
		Opponent:   opponent,
		HeadToHead: a.HeadToHead(opponent, matched),
	}
	if len(matched) == 0 {
		return profile
	}

	profile.Openings = a.ByOpening(matched)
	profile.TimeControls = a.ByTimeControl(matched)

	var accuracySum float64
	for _, r := range matched {
		accuracySum += r.Summary.Accuracy
		profile.TotalBlunders += r.Summary.Blunders
	}
	profile.AvgAccuracyPct = models.Round1(accuracySum / float64(len(matched)))

	// Every blunder against this opponent is interesting, so the miner runs
	// with the occurrence filter disabled.
	patterns := minePatterns(matched, 1)
	profile.BlunderPatterns = patterns.MovePatterns
	return profile
}
