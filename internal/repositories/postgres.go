package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
)

const (
	txMaxRetries  = 3
	txBaseBackoff = 25 * time.Millisecond
	txMaxBackoff  = time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
}

// now is replaced in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

func withConn(ctx context.Context, pool db.Pool, fn func(conn *pgxpool.Conn) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

// withTx runs fn in a transaction, retrying it when the database reports a
// serialization failure. fn must be safe to run more than once.
func withTx(ctx context.Context, pool db.Pool, fn func(tx pgx.Tx) error) error {
	return withConn(ctx, pool, func(conn *pgxpool.Conn) error {
		var err error
		for attempt := 0; attempt < txMaxRetries; attempt++ {
			if attempt > 0 {
				if werr := sleepBackoff(ctx, attempt); werr != nil {
					return werr
				}
			}

			err = runTx(ctx, conn, fn)
			if err == nil || !isRetryable(err) {
				return err
			}
		}
		return err
	})
}

func runTx(ctx context.Context, conn *pgxpool.Conn, fn func(tx pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * txBaseBackoff
	if backoff > txMaxBackoff {
		backoff = txMaxBackoff
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryablePgErrorCodes[pgErr.Code]
		return ok
	}
	return false
}

// classify maps constraint violations onto the repository sentinels. Other
// errors are wrapped with op.
func classify(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		case "23514":
			return ErrInvalidRelation
		}
		if _, ok := retryablePgErrorCodes[pgErr.Code]; ok {
			// keep the pg error reachable so withTx can retry
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullable turns an empty identifier into SQL NULL so viewer-relative
// predicates evaluate to false for anonymous callers.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}
