package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/reseller-settlement/internal/config"
	"github.com/reseller-settlement/internal/domain/shared"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// TxBeginner starts transactions with explicit options
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxFunc is the unit of work executed inside a transaction. It may run more
// than once, so it must not have side effects outside tx.
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// TxRunner executes units of work in serializable transactions and retries
// them on serialization failures and deadlocks.
type TxRunner struct {
	db          TxBeginner
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func NewTxRunner(logger *slog.Logger, db TxBeginner, cfg *config.SettlementConfig) *TxRunner {
	maxAttempts := cfg.MaxRetryAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TxRunner{
		db:          db,
		logger:      logger,
		maxAttempts: maxAttempts,
		baseDelay:   cfg.RetryBaseDelay,
		maxDelay:    cfg.RetryMaxDelay,
	}
}

// RunSerializable commits everything fn did or nothing. After the retry budget
// is spent it returns a shared.ConcurrencyError wrapping the last conflict.
func (r *TxRunner) RunSerializable(ctx context.Context, fn TxFunc) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt == r.maxAttempts {
			break
		}
		delay := r.backoff(attempt)
		r.logger.Warn("Transaction conflict, retrying",
			"attempt", attempt, "max_attempts", r.maxAttempts, "delay", delay, "error", err)
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
	}

	r.logger.Error("Transaction retry budget exhausted", "attempts", r.maxAttempts, "error", lastErr)
	return shared.ConcurrencyError{Attempts: r.maxAttempts, Err: lastErr}
}

func (r *TxRunner) runOnce(ctx context.Context, fn TxFunc) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Commit and rollback resolve even if the caller has gone away.
	finishCtx := context.WithoutCancel(ctx)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(finishCtx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(finishCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(finishCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *TxRunner) backoff(attempt int) time.Duration {
	delay := r.baseDelay << (attempt - 1)
	if delay <= 0 || delay > r.maxDelay {
		return r.maxDelay
	}
	return delay
}

// IsRetryable reports whether err is a serialization failure or deadlock.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

// UniqueViolation returns the violated constraint name when err is a unique violation.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
