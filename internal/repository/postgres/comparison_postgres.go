package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"aigrader/internal/apperrors"
	"aigrader/internal/model"
	"aigrader/internal/repository"
)

// SQLSTATE foreign_key_violation.
const pgForeignKeyViolation = "23503"

// ComparisonPostgres is a PostgreSQL implementation of repository.ComparisonRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ComparisonPostgres struct {
	db      *sql.DB
	timeout time.Duration
	log     *zap.Logger
}

// NewComparisonPostgres creates the ledger. timeout bounds each call; zero disables it.
func NewComparisonPostgres(db *sql.DB, timeout time.Duration, log *zap.Logger) *ComparisonPostgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &ComparisonPostgres{db: db, timeout: timeout, log: log.Named("ledger")}
}

var _ repository.ComparisonRepository = (*ComparisonPostgres)(nil)

func (r *ComparisonPostgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Record borrows one connection from the pool, inserts the row inside a
// single-statement transaction and commits. Any error before commit rolls
// the transaction back; the connection is returned on every path.
func (r *ComparisonPostgres) Record(ctx context.Context, c *model.Comparison) (*model.Comparison, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, r.classify(ctx, "acquire connection", c.UserID, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, r.classify(ctx, "begin transaction", c.UserID, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Error("rollback failed", zap.Int64("user_id", c.UserID), zap.Error(rbErr))
		}
	}()

	const q = `
		INSERT INTO comparisons (user_id, filename, storage_key, similarity_score)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, filename, storage_key, similarity_score, timestamp
	`
	var out model.Comparison
	if err := tx.QueryRowContext(ctx, q,
		c.UserID,
		c.Filename,
		c.StorageKey,
		c.SimilarityScore,
	).Scan(
		&out.ID,
		&out.UserID,
		&out.Filename,
		&out.StorageKey,
		&out.SimilarityScore,
		&out.Timestamp,
	); err != nil {
		return nil, r.classify(ctx, "insert comparison", c.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, r.classify(ctx, "commit", c.UserID, err)
	}
	committed = true

	r.log.Info("comparison stored",
		zap.Int64("id", out.ID),
		zap.Int64("user_id", out.UserID),
		zap.String("filename", out.Filename),
		zap.Float64("similarity_score", out.SimilarityScore))
	return &out, nil
}

// ListByUser returns the user's comparisons newest first; ties on timestamp
// are broken by id so later inserts still come first.
func (r *ComparisonPostgres) ListByUser(ctx context.Context, userID int64) ([]model.Comparison, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const q = `
		SELECT id, user_id, filename, storage_key, similarity_score, timestamp
		FROM comparisons
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, r.classify(ctx, "list comparisons", userID, err)
	}
	defer rows.Close()

	items := make([]model.Comparison, 0)
	for rows.Next() {
		var c model.Comparison
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Filename,
			&c.StorageKey,
			&c.SimilarityScore,
			&c.Timestamp,
		); err != nil {
			return nil, r.classify(ctx, "scan comparison", userID, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.classify(ctx, "iterate comparisons", userID, err)
	}
	return items, nil
}

// classify maps a driver error onto the ledger's error taxonomy.
func (r *ComparisonPostgres) classify(ctx context.Context, op string, userID int64, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation:
		r.log.Warn("unknown user", zap.String("op", op), zap.Int64("user_id", userID))
		return fmt.Errorf("%w: %d", apperrors.ErrUnknownUser, userID)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.log.Error("ledger timeout", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", apperrors.ErrTimeout, op, err)
	default:
		r.log.Error("ledger failure", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", apperrors.ErrPersistence, op, err)
	}
}
