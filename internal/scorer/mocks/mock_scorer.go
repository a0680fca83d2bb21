package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, candidate, reference string) (float64, error) {
	args := m.Called(ctx, candidate, reference)
	return args.Get(0).(float64), args.Error(1)
}
