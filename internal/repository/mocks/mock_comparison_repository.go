package mocks

import (
	"context"

	"aigrader/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockComparisonRepository struct {
	mock.Mock
}

func (m *MockComparisonRepository) Record(ctx context.Context, c *model.Comparison) (*model.Comparison, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if f, ok := args.Get(0).(func(context.Context, *model.Comparison) *model.Comparison); ok {
		return f(ctx, c), args.Error(1)
	}
	return args.Get(0).(*model.Comparison), args.Error(1)
}

func (m *MockComparisonRepository) ListByUser(ctx context.Context, userID int64) ([]model.Comparison, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comparison), args.Error(1)
}
