package mocks

import (
	"context"
	"io"

	"aigrader/internal/model"
	"aigrader/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockGradingService struct {
	mock.Mock
}

func (m *MockGradingService) UploadAnswerKey(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*model.AnswerKey, error) {
	args := m.Called(ctx, r, filename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnswerKey), args.Error(1)
}

func (m *MockGradingService) UploadSubmission(ctx context.Context, userID int64, r io.Reader, filename, contentType string, size int64) (*service.SubmissionResult, error) {
	args := m.Called(ctx, userID, r, filename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmissionResult), args.Error(1)
}

func (m *MockGradingService) ListComparisons(ctx context.Context, userID int64) ([]model.Comparison, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comparison), args.Error(1)
}
