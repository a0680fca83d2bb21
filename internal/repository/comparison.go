package repository

import (
	"context"

	"aigrader/internal/model"
)

// ComparisonRepository is the comparison ledger. It persists scored
// submissions per user and serves them back newest first.
// No business logic here; strictly persistence operations.
type ComparisonRepository interface {
	// Record inserts a comparison atomically and returns the stored row with
	// its assigned ID and Timestamp. It fails with apperrors.ErrUnknownUser
	// when UserID has no users row, apperrors.ErrTimeout on deadline and
	// apperrors.ErrPersistence on any other storage fault. A failed Record
	// never leaves a row behind.
	Record(ctx context.Context, c *model.Comparison) (*model.Comparison, error)

	// ListByUser returns the user's comparisons ordered by timestamp, newest
	// first. Unknown users and users without records yield an empty slice.
	ListByUser(ctx context.Context, userID int64) ([]model.Comparison, error)
}
