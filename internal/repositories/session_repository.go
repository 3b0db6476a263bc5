package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresSessionStore persists sessions and their refresh token digests to PostgreSQL.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Create stores a new session record.
func (s *PostgresSessionStore) Create(ctx context.Context, session auth.Session) error {
	return withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
        INSERT INTO sessions (id, account_id, token_hash, expires_at, created_at, rotated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, session.ID, session.AccountID, session.TokenHash, session.ExpiresAt.UTC(), session.CreatedAt.UTC(), session.RotatedAt.UTC())
		if err != nil {
			return classify(err, "insert session")
		}
		return nil
	})
}

// Find loads a session by its identifier.
func (s *PostgresSessionStore) Find(ctx context.Context, id string) (auth.Session, error) {
	var session auth.Session
	err := withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
        SELECT id, account_id, token_hash, expires_at, created_at, rotated_at
        FROM sessions
        WHERE id = $1
    `, id).Scan(&session.ID, &session.AccountID, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt, &session.RotatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return auth.ErrSessionNotFound
			}
			return classify(err, "select session")
		}
		session.ExpiresAt = session.ExpiresAt.UTC()
		return nil
	})
	return session, err
}

// Rotate swaps the token digest only while the stored digest still equals
// previousHash, so two concurrent rotations of one token cannot both succeed.
func (s *PostgresSessionStore) Rotate(ctx context.Context, id, previousHash string, next auth.Session) error {
	return withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `
        UPDATE sessions
        SET token_hash = $3, expires_at = $4, rotated_at = $5
        WHERE id = $1 AND token_hash = $2
    `, id, previousHash, next.TokenHash, next.ExpiresAt.UTC(), next.RotatedAt.UTC())
		if err != nil {
			return classify(err, "rotate session")
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrRefreshTokenReused
		}
		return nil
	})
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	return withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
			return classify(err, "delete session")
		}
		return nil
	})
}

// DeleteForAccount removes every session of the account except keepID.
func (s *PostgresSessionStore) DeleteForAccount(ctx context.Context, accountID, keepID string) error {
	return withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
        DELETE FROM sessions WHERE account_id = $1 AND ($2::UUID IS NULL OR id <> $2::UUID)
    `, accountID, nullable(keepID))
		if err != nil {
			return classify(err, "delete account sessions")
		}
		return nil
	})
}
