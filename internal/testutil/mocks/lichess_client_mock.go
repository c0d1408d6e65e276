package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/models"
)

// MockLichessClient is a mock implementation of lichess.ClientInterface
type MockLichessClient struct {
	mock.Mock
}

func (m *MockLichessClient) FetchGames(ctx context.Context, username string, f lichess.Filters) ([]models.RawGame, error) {
	args := m.Called(ctx, username, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawGame), args.Error(1)
}

func (m *MockLichessClient) FetchGameByID(ctx context.Context, gameID string) (models.RawGame, error) {
	args := m.Called(ctx, gameID)
	return args.Get(0).(models.RawGame), args.Error(1)
}

func (m *MockLichessClient) FetchProfile(ctx context.Context, username string) (lichess.Profile, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(lichess.Profile), args.Error(1)
}
