package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const tweetColumns = `id, owner_id, content, created_at, updated_at`

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var t models.Tweet
	err := row.Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	return withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
        INSERT INTO tweets (`+tweetColumns+`) VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
		if err != nil {
			return classify(err, "insert tweet")
		}
		return nil
	})
}

// Update changes the content of a tweet owned by ownerID.
func (r *PostgresTweetRepository) Update(ctx context.Context, id, ownerID, content string) (models.Tweet, error) {
	var tweet models.Tweet
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		tweet, err = scanTweet(conn.QueryRow(ctx, `
        UPDATE tweets SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING `+tweetColumns, id, ownerID, content, now()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFoundOrUnauthorized
			}
			return classify(err, "update tweet")
		}
		return nil
	})
	return tweet, err
}

// Delete removes a tweet owned by ownerID and the likes it received.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id, ownerID string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
        DELETE FROM likes WHERE tweet_id IN (SELECT id FROM tweets WHERE id = $1 AND owner_id = $2)
    `, id, ownerID); err != nil {
			return classify(err, "delete tweet likes")
		}

		tag, err := tx.Exec(ctx, `DELETE FROM tweets WHERE id = $1 AND owner_id = $2`, id, ownerID)
		if err != nil {
			return classify(err, "delete tweet")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFoundOrUnauthorized
		}
		return nil
	})
}
