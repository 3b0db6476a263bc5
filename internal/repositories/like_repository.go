package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

var likeColumnByKind = map[models.LikeKind]string{
	models.LikeVideo:   "video_id",
	models.LikeComment: "comment_id",
	models.LikeTweet:   "tweet_id",
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle removes the account's like on target if present, or adds it
// otherwise, and reports whether the target is liked afterwards. A new like
// on another account's unpublished video is ErrNotFound. Concurrent toggles
// converge through the per-target unique constraints.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, accountID string, target models.LikeTarget) (bool, error) {
	column, ok := likeColumnByKind[target.Kind]
	if !ok {
		return false, fmt.Errorf("unknown like target kind %q", target.Kind)
	}

	var liked bool
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM likes WHERE liked_by = $1 AND `+column+` = $2`, accountID, target.ID)
		if err != nil {
			return classify(err, "delete like")
		}
		if tag.RowsAffected() > 0 {
			liked = false
			return nil
		}
		if target.Kind == models.LikeVideo {
			if err := requireVisibleVideo(ctx, tx, target.ID, accountID); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
        INSERT INTO likes (id, liked_by, `+column+`, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT DO NOTHING
    `, uuid.NewString(), accountID, target.ID, now())
		if err != nil {
			return classify(err, "insert like")
		}
		liked = true
		return nil
	})
	return liked, err
}
