package lichess

import (
	"context"

	"github.com/dfarias/chessinsight/internal/models"
)

// ClientInterface defines the game-archive operations the pipeline consumes.
// This interface enables testability by allowing mock implementations.
type ClientInterface interface {
	FetchGames(ctx context.Context, username string, f Filters) ([]models.RawGame, error)
	FetchGameByID(ctx context.Context, gameID string) (models.RawGame, error)
	FetchProfile(ctx context.Context, username string) (Profile, error)
}

// Ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)
