package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const accountColumns = `id, username, email, fullname, password_hash, avatar_url, cover_image_url, created_at, updated_at`

// PostgresAccountRepository provides PostgreSQL-backed persistence for accounts.
type PostgresAccountRepository struct {
	pool db.Pool
}

// NewPostgresAccountRepository constructs an account repository backed by PostgreSQL.
func NewPostgresAccountRepository(pool db.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Fullname, &a.PasswordHash, &a.Avatar, &a.CoverImage, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create persists a new account. A taken username or email yields ErrConflict.
func (r *PostgresAccountRepository) Create(ctx context.Context, account models.Account) error {
	return withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
        INSERT INTO accounts (id, username, email, fullname, password_hash, avatar_url, cover_image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, account.ID, account.Username, account.Email, account.Fullname, account.PasswordHash,
			account.Avatar, account.CoverImage, account.CreatedAt, account.UpdatedAt)
		if err != nil {
			return classify(err, "insert account")
		}
		return nil
	})
}

// FindByID fetches an account by identifier.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (models.Account, error) {
	var account models.Account
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		account, err = scanAccount(conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
		if err != nil {
			return classify(err, "select account by id")
		}
		return nil
	})
	return account, err
}

// FindByLogin fetches the account matching either the username or the email.
// Empty arguments never match.
func (r *PostgresAccountRepository) FindByLogin(ctx context.Context, username, email string) (models.Account, error) {
	var account models.Account
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		account, err = scanAccount(conn.QueryRow(ctx, `
        SELECT `+accountColumns+`
        FROM accounts
        WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
        ORDER BY created_at
        LIMIT 1
    `, username, email))
		if err != nil {
			return classify(err, "select account by login")
		}
		return nil
	})
	return account, err
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `
        UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, id, passwordHash, now())
		if err != nil {
			return classify(err, "update account password")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateDetails changes the display name and email. A taken email yields ErrConflict.
func (r *PostgresAccountRepository) UpdateDetails(ctx context.Context, id, fullname, email string) (models.Account, error) {
	return r.updateReturning(ctx, "update account details", `
        UPDATE accounts SET fullname = $2, email = $3, updated_at = $4 WHERE id = $1
        RETURNING `+accountColumns, id, fullname, email, now())
}

// UpdateAvatar points the account at a new avatar image.
func (r *PostgresAccountRepository) UpdateAvatar(ctx context.Context, id, url string) (models.Account, error) {
	return r.updateReturning(ctx, "update account avatar", `
        UPDATE accounts SET avatar_url = $2, updated_at = $3 WHERE id = $1
        RETURNING `+accountColumns, id, url, now())
}

// UpdateCoverImage points the account at a new cover image.
func (r *PostgresAccountRepository) UpdateCoverImage(ctx context.Context, id, url string) (models.Account, error) {
	return r.updateReturning(ctx, "update account cover image", `
        UPDATE accounts SET cover_image_url = $2, updated_at = $3 WHERE id = $1
        RETURNING `+accountColumns, id, url, now())
}

func (r *PostgresAccountRepository) updateReturning(ctx context.Context, op, query string, args ...any) (models.Account, error) {
	var account models.Account
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		account, err = scanAccount(conn.QueryRow(ctx, query, args...))
		if err != nil {
			return classify(err, op)
		}
		return nil
	})
	return account, err
}
