package service

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dfarias/chessinsight/internal/aggregate"
	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/models"
)

const reportRule = "=================================================="

// Reporter renders batch results as human-readable text. All aggregation is
// delegated to the aggregator, so rendering twice gives identical output.
type Reporter struct {
	agg *aggregate.Aggregator
}

func NewReporter(agg *aggregate.Aggregator) *Reporter {
	return &Reporter{agg: agg}
}

// GameFeedback renders a single game's analysis: performance counts, the
// worst mistakes, critical moments, and simple recommendations.
func (r *Reporter) GameFeedback(rec models.GameAnalysisRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game Analysis: %s vs %s\n", rec.Game.White, rec.Game.Black)
	fmt.Fprintf(&b, "Result: %s\n", rec.Game.Result)
	fmt.Fprintf(&b, "Time Control: %s\n", rec.Game.TimeControl)
	if rec.Opening.Name != "" {
		fmt.Fprintf(&b, "Opening: %s", rec.Opening.Name)
		if rec.Opening.ECO != "" {
			fmt.Fprintf(&b, " (%s)", rec.Opening.ECO)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	s := rec.Summary
	b.WriteString("Performance Summary:\n")
	fmt.Fprintf(&b, "- Total Moves: %d\n", s.TotalMoves)
	fmt.Fprintf(&b, "- Accuracy: %.1f%%\n", s.Accuracy)
	fmt.Fprintf(&b, "- Blunders: %d\n", s.Blunders)
	fmt.Fprintf(&b, "- Mistakes: %d\n", s.Mistakes)
	fmt.Fprintf(&b, "- Inaccuracies: %d\n", s.Inaccuracies)
	fmt.Fprintf(&b, "- Average Centipawn Loss: %.1f\n", s.AverageCentipawnLoss)
	if s.MissingEvaluations > 0 {
		fmt.Fprintf(&b, "- Positions Without Evaluation: %d\n", s.MissingEvaluations)
	}
	b.WriteString("\n")

	if len(rec.Mistakes) > 0 {
		worst := worstMistakes(rec.Mistakes, 3)
		b.WriteString("Key Mistakes:\n")
		for _, m := range worst {
			fmt.Fprintf(&b, "- Move %d: %s (%s, %.1f cp loss)\n", m.MoveNumber, m.Move, m.Severity, absFloat(m.EvalDelta))
		}
		b.WriteString("\n")
	}

	if len(s.CriticalMoments) > 0 {
		b.WriteString("Critical Moments:\n")
		for i, cm := range s.CriticalMoments {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "- Move %d: %s\n", cm.MoveNumber, cm.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("Recommendations:\n")
	if s.Blunders > 0 {
		b.WriteString("- Focus on tactical calculation to avoid blunders\n")
	}
	if s.Mistakes > 2 {
		b.WriteString("- Work on positional understanding to reduce mistakes\n")
	}
	if s.Accuracy < 80 {
		b.WriteString("- Practice more puzzles to improve overall accuracy\n")
	}
	b.WriteString("- Review critical moments to learn from key positions\n")
	return b.String()
}

// Overall renders the whole batch: player profile, rolled-up performance,
// per-dimension breakdowns, recurring blunders, and opponent standings.
// profile may be nil when the profile fetch failed or was skipped.
func (r *Reporter) Overall(report *models.BatchReport, profile *lichess.Profile) string {
	var b strings.Builder
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "CHESS ANALYSIS REPORT FOR %s\n", strings.ToUpper(report.Username))
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Games Analyzed: %d\n", len(report.Records))
	if report.SkippedGames > 0 || report.FailedGames > 0 {
		fmt.Fprintf(&b, "Skipped: %d, Failed: %d\n", report.SkippedGames, report.FailedGames)
	}
	if report.MissingEvaluations > 0 {
		fmt.Fprintf(&b, "Positions Without Evaluation: %d\n", report.MissingEvaluations)
	}
	b.WriteString("\n")

	if profile != nil {
		b.WriteString("PLAYER PROFILE:\n")
		fmt.Fprintf(&b, "Username: %s\n", profile.Username)
		for _, tc := range []string{"bullet", "blitz", "rapid", "classical"} {
			if rating, ok := profile.Ratings[tc]; ok {
				fmt.Fprintf(&b, "%s Rating: %d\n", capitalize(tc), rating)
			}
		}
		b.WriteString("\n")
	}

	overall := r.agg.Overall(report.Records)
	b.WriteString("OVERALL PERFORMANCE:\n")
	fmt.Fprintf(&b, "Record: %dW-%dL-%dD (%.1f%% win rate)\n", overall.Record.Wins, overall.Record.Losses, overall.Record.Draws, overall.WinRatePct)
	fmt.Fprintf(&b, "Total Moves: %d\n", overall.TotalMoves)
	fmt.Fprintf(&b, "Average Accuracy: %.1f%%\n", overall.AvgAccuracyPct)
	fmt.Fprintf(&b, "Average Centipawn Loss: %.1f\n", overall.AvgCentipawnLoss)
	fmt.Fprintf(&b, "Blunders: %d, Mistakes: %d, Inaccuracies: %d\n", overall.TotalBlunders, overall.TotalMistakes, overall.TotalInaccuracies)
	b.WriteString("\n")

	writeBuckets(&b, "OPENINGS:", r.agg.ByOpening(report.Records))
	writeBuckets(&b, "TIME CONTROLS:", r.agg.ByTimeControl(report.Records))

	phases := aggregate.MistakePhaseCounts(report.Records, "")
	b.WriteString("MISTAKES BY PHASE:\n")
	fmt.Fprintf(&b, "- Opening: %d\n", phases.Opening)
	fmt.Fprintf(&b, "- Middlegame: %d\n", phases.Middlegame)
	fmt.Fprintf(&b, "- Endgame: %d\n", phases.Endgame)
	b.WriteString("\n")

	patterns := r.agg.MinePatterns(report.Records)
	if len(patterns.MovePatterns) > 0 {
		b.WriteString("RECURRING BLUNDERS:\n")
		for _, p := range patterns.MovePatterns {
			fmt.Fprintf(&b, "- %s: %d times, avg %.1f cp loss (games: %s)\n", p.Move, p.Count, p.AvgLoss, strings.Join(p.Games, ", "))
		}
		b.WriteString("\n")
	}
	if len(patterns.PrefixPatterns) > 0 {
		b.WriteString("TROUBLESOME LINES:\n")
		for _, p := range patterns.PrefixPatterns {
			fmt.Fprintf(&b, "- %s: %d blunders, avg %.1f cp loss\n", p.Prefix, p.Count, p.AvgLoss)
		}
		b.WriteString("\n")
	}

	standings := r.agg.Standings(report.Records)
	if len(standings.Struggling) > 0 {
		b.WriteString("STRUGGLING AGAINST:\n")
		for _, opp := range standings.Struggling {
			fmt.Fprintf(&b, "- %s: %d games, %.1f%% win rate\n", opp.Key, opp.Games, opp.WinRatePct)
		}
		b.WriteString("\n")
	}
	if len(standings.Best) > 0 {
		b.WriteString("BEST RESULTS AGAINST:\n")
		for _, opp := range standings.Best {
			fmt.Fprintf(&b, "- %s: %d games, %.1f%% win rate\n", opp.Key, opp.Games, opp.WinRatePct)
		}
		b.WriteString("\n")
	}

	b.WriteString("RECENT GAMES SUMMARY:\n")
	records := report.Records
	if len(records) > 5 {
		records = records[len(records)-5:]
	}
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. %s vs %s - %s\n", i+1, rec.Game.White, rec.Game.Black, rec.Game.Result)
		fmt.Fprintf(&b, "   Accuracy: %.1f%%, Blunders: %d\n", rec.Summary.Accuracy, rec.Summary.Blunders)
	}
	return b.String()
}

// ExportJSON writes the batch report to path as indented JSON.
func ExportJSON(path string, report *models.BatchReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperr.NewCacheWrite(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.NewCacheWrite(path, err)
	}
	return nil
}

func writeBuckets(b *strings.Builder, title string, buckets []models.Bucket) {
	if len(buckets) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, bucket := range buckets {
		fmt.Fprintf(b, "- %s: %d games, %.1f%% win rate, %.1f%% avg accuracy\n", bucket.Key, bucket.Games, bucket.WinRatePct, bucket.AvgAccuracyPct)
	}
	b.WriteString("\n")
}

func worstMistakes(mistakes []models.MistakeRecord, limit int) []models.MistakeRecord {
	sorted := make([]models.MistakeRecord, len(mistakes))
	copy(sorted, mistakes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return absFloat(sorted[i].EvalDelta) > absFloat(sorted[j].EvalDelta)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
