package lichess

import (
	"strings"

	"github.com/dfarias/chessinsight/internal/models"
)

var tournamentIndicators = []string{
	"tournament", "arena", "swiss", "cup", "championship",
	"olympiad", "match", "league",
}

// IsTournamentGame reports whether the game's event context indicates a
// tournament, by keyword match on the event name.
func IsTournamentGame(g models.RawGame) bool {
	event := strings.ToLower(g.Event)
	for _, indicator := range tournamentIndicators {
		if strings.Contains(event, indicator) {
			return true
		}
	}
	return false
}

// OpponentOf returns the name of username's opponent in the game, or an empty
// string when username did not play in it.
func OpponentOf(username string, g models.RawGame) string {
	switch {
	case strings.EqualFold(g.White, username):
		return g.Black
	case strings.EqualFold(g.Black, username):
		return g.White
	default:
		return ""
	}
}

// HasMoveText reports whether the game carries usable PGN move text. Games
// without it are skipped as source-data errors.
func HasMoveText(g models.RawGame) bool {
	return strings.TrimSpace(g.PGN) != ""
}
