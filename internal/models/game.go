package models

import "time"

// RawGame is one game as fetched from the archive, validated at the boundary.
type RawGame struct {
	ID          string    `json:"id"`
	PGN         string    `json:"pgn"`
	White       string    `json:"white"`
	Black       string    `json:"black"`
	Result      string    `json:"result"`
	TimeControl string    `json:"time_control"`
	Opening     string    `json:"opening"`
	ECO         string    `json:"eco"`
	Event       string    `json:"event"`
	PlayedAt    time.Time `json:"played_at"`
	Rated       bool      `json:"rated"`
}

// ScoreKind distinguishes centipawn scores from mate-distance scores.
type ScoreKind string

const (
	ScoreCentipawn ScoreKind = "cp"
	ScoreMate      ScoreKind = "mate"
)

// Score is an engine evaluation from white's perspective. For Kind mate the
// Value is the signed number of moves to mate.
type Score struct {
	Kind  ScoreKind `json:"kind"`
	Value int       `json:"value"`
}

// Centipawns returns the score as a centipawn-equivalent for trend and
// threshold arithmetic. Mate scores saturate to +-10000 preserving sign.
func (s Score) Centipawns() float64 {
	if s.Kind == ScoreMate {
		if s.Value >= 0 {
			return 10000
		}
		return -10000
	}
	return float64(s.Value)
}

// AltMove is one ranked engine alternative to the best move.
type AltMove struct {
	Move  string `json:"move"`
	Score Score  `json:"score"`
}

// PositionEvaluation is the engine's verdict on the position reached after one
// half-move. Missing marks positions the engine could not evaluate; such
// entries are excluded from delta and accuracy arithmetic.
type PositionEvaluation struct {
	MoveNumber   int       `json:"move_number"`
	Move         string    `json:"move"`
	FEN          string    `json:"fen"`
	Score        Score     `json:"score"`
	BestMove     string    `json:"best_move"`
	Alternatives []AltMove `json:"alternatives,omitempty"`
	Missing      bool      `json:"missing,omitempty"`
}

// Severity tiers for a move based on evaluation loss.
type Severity string

const (
	SeverityInaccuracy Severity = "inaccuracy"
	SeverityMistake    Severity = "mistake"
	SeverityBlunder    Severity = "blunder"
)

// MistakeRecord is one classified evaluation loss. Immutable once created.
type MistakeRecord struct {
	MoveNumber int      `json:"move_number"`
	Move       string   `json:"move"`
	Severity   Severity `json:"severity"`
	EvalDelta  float64  `json:"eval_delta"`
	Before     Score    `json:"evaluation_before"`
	After      Score    `json:"evaluation_after"`
	FEN        string   `json:"fen"`
}

// CriticalMoment flags a position worth reviewing; informational, never
// counted as a mistake.
type CriticalMoment struct {
	MoveNumber  int    `json:"move_number"`
	Kind        string `json:"kind"` // significant_advantage or mate_threat
	Evaluation  Score  `json:"evaluation"`
	Description string `json:"description"`
}

// OpeningSummary describes the first phase of one game. BookMoves is the fixed
// min(5, plies) heuristic, not a real opening-book lookup.
type OpeningSummary struct {
	Name      string   `json:"name"`
	ECO       string   `json:"eco"`
	Moves     []string `json:"moves"`
	BookMoves int      `json:"book_moves"`
}

// GameSummary aggregates one game's classification results.
type GameSummary struct {
	TotalMoves           int              `json:"total_moves"`
	Blunders             int              `json:"blunders"`
	Mistakes             int              `json:"mistakes"`
	Inaccuracies         int              `json:"inaccuracies"`
	Accuracy             float64          `json:"accuracy"`
	AverageCentipawnLoss float64          `json:"average_centipawn_loss"`
	MissingEvaluations   int              `json:"missing_evaluations"`
	CriticalMoments      []CriticalMoment `json:"critical_moments"`
}

// GameAnalysisRecord is the unit of work consumed by the aggregation engine.
// Immutable once built.
type GameAnalysisRecord struct {
	Game        RawGame              `json:"game"`
	Evaluations []PositionEvaluation `json:"evaluations"`
	Mistakes    []MistakeRecord      `json:"mistakes"`
	Opening     OpeningSummary       `json:"opening"`
	Summary     GameSummary          `json:"summary"`
}
