package models

// Record is a basic win/loss/draw tally from the analyzed user's perspective.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Total returns the number of games in the record.
func (r Record) Total() int {
	return r.Wins + r.Losses + r.Draws
}

// WinRatePct returns the win rate as a percentage rounded to one decimal.
func (r Record) WinRatePct() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return round1(float64(r.Wins) / float64(total) * 100)
}

// HeadToHead is the aggregated record against one opponent, split by color.
type HeadToHead struct {
	Opponent   string  `json:"opponent"`
	Overall    Record  `json:"overall"`
	AsWhite    Record  `json:"as_white"`
	AsBlack    Record  `json:"as_black"`
	TotalGames int     `json:"total_games"`
	WinRatePct float64 `json:"win_rate_pct"`
}

// Bucket is one row of a per-dimension breakdown (opening, time control,
// opponent). Listings are sorted by descending game count.
type Bucket struct {
	Key            string  `json:"key"`
	Games          int     `json:"games"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	Draws          int     `json:"draws"`
	WinRatePct     float64 `json:"win_rate_pct"`
	AvgAccuracyPct float64 `json:"avg_accuracy_pct"`
}

// PhaseCounts tallies mistakes by the fixed phase breakpoints: move <=10
// opening, <=25 middlegame, otherwise endgame.
type PhaseCounts struct {
	Opening    int `json:"opening"`
	Middlegame int `json:"middlegame"`
	Endgame    int `json:"endgame"`
}

// MovePattern is a recurring blunder grouped by exact move text.
type MovePattern struct {
	Move    string   `json:"move"`
	Count   int      `json:"count"`
	AvgLoss float64  `json:"avg_loss"`
	Games   []string `json:"games"`
}

// PrefixPattern is a recurring blunder grouped by the leading move prefix.
type PrefixPattern struct {
	Prefix  string   `json:"prefix"`
	Count   int      `json:"count"`
	AvgLoss float64  `json:"avg_loss"`
	Games   []string `json:"games"`
}

// GroupStat is a generic occurrence group: key, count, average loss.
type GroupStat struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	AvgLoss float64 `json:"avg_loss"`
}

// BlunderPatterns is the output of a pattern-mining run.
type BlunderPatterns struct {
	MovePatterns    []MovePattern   `json:"move_patterns"`
	PrefixPatterns  []PrefixPattern `json:"prefix_patterns"`
	OpeningBlunders []GroupStat     `json:"opening_blunders"`
	TotalBlunders   int             `json:"total_blunders"`
	ByPhase         PhaseCounts     `json:"by_phase"`
}

// Standings ranks every opponent in a batch and flags the extremes:
// struggling opponents (enough games, win rate below the cutoff) and the best
// matchups by the inverse ordering.
type Standings struct {
	ByOpponent []Bucket `json:"by_opponent"`
	Struggling []Bucket `json:"struggling"`
	Best       []Bucket `json:"best"`
}

// OpponentProfile is the full aggregation output for one opponent. Rebuilt
// from scratch on every request; never persisted on its own.
type OpponentProfile struct {
	Opponent        string        `json:"opponent"`
	HeadToHead      HeadToHead    `json:"head_to_head"`
	Openings        []Bucket      `json:"openings"`
	TimeControls    []Bucket      `json:"time_controls"`
	BlunderPatterns []MovePattern `json:"blunder_patterns"`
	AvgAccuracyPct  float64       `json:"avg_accuracy_pct"`
	TotalBlunders   int           `json:"total_blunders"`
}

// OverallSummary rolls every analyzed game into one set of totals.
type OverallSummary struct {
	TotalGames        int     `json:"total_games"`
	TotalMoves        int     `json:"total_moves"`
	Record            Record  `json:"record"`
	WinRatePct        float64 `json:"win_rate_pct"`
	AvgAccuracyPct    float64 `json:"avg_accuracy_pct"`
	AvgCentipawnLoss  float64 `json:"avg_centipawn_loss"`
	TotalBlunders     int     `json:"total_blunders"`
	TotalMistakes     int     `json:"total_mistakes"`
	TotalInaccuracies int     `json:"total_inaccuracies"`
}

// BatchReport is everything one analysis run produced, including the failure
// counters the error policy requires to stay visible.
type BatchReport struct {
	Username           string               `json:"username"`
	Records            []GameAnalysisRecord `json:"records"`
	SkippedGames       int                  `json:"skipped_games"`
	FailedGames        int                  `json:"failed_games"`
	MissingEvaluations int                  `json:"missing_evaluations"`
	CacheHits          int                  `json:"cache_hits"`
}

func round1(v float64) float64 {
	if v >= 0 {
		return float64(int(v*10+0.5)) / 10
	}
	return float64(int(v*10-0.5)) / 10
}

// Round1 rounds to one decimal, matching the reporting precision used across
// all aggregate outputs.
func Round1(v float64) float64 {
	return round1(v)
}
