package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const commentColumns = `id, video_id, owner_id, content, created_at, updated_at`

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

func scanComment(row pgx.Row) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create adds a comment to a video the author can see. Returns ErrNotFound
// when the video is missing or unpublished and owned by someone else.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	return withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `
        INSERT INTO comments (`+commentColumns+`)
        SELECT $1, v.id, $3, $4, $5, $6
        FROM videos v
        WHERE v.id = $2 AND (v.is_published OR v.owner_id = $3)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
		if err != nil {
			return classify(err, "insert comment")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Update changes the content of a comment owned by ownerID.
func (r *PostgresCommentRepository) Update(ctx context.Context, id, ownerID, content string) (models.Comment, error) {
	var comment models.Comment
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		comment, err = scanComment(conn.QueryRow(ctx, `
        UPDATE comments SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING `+commentColumns, id, ownerID, content, now()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFoundOrUnauthorized
			}
			return classify(err, "update comment")
		}
		return nil
	})
	return comment, err
}

// Delete removes a comment owned by ownerID and the likes it received.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id, ownerID string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
        DELETE FROM likes WHERE comment_id IN (SELECT id FROM comments WHERE id = $1 AND owner_id = $2)
    `, id, ownerID); err != nil {
			return classify(err, "delete comment likes")
		}

		tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND owner_id = $2`, id, ownerID)
		if err != nil {
			return classify(err, "delete comment")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFoundOrUnauthorized
		}
		return nil
	})
}
