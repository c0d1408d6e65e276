package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dfarias/chessinsight/internal/models"
)

// MockEvaluator is a mock implementation of analysis.Evaluator
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, fen string) (models.PositionEvaluation, error) {
	args := m.Called(ctx, fen)
	return args.Get(0).(models.PositionEvaluation), args.Error(1)
}
