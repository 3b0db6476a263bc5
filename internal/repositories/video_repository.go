package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const videoColumns = `id, owner_id, video_file_url, thumbnail_url, title, description, duration, views, is_published, created_at, updated_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Create persists a new video.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	return withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
			video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
		if err != nil {
			return classify(err, "insert video")
		}
		return nil
	})
}

// Update applies the non-nil fields of update to a video owned by ownerID and
// returns the updated row along with the thumbnail it replaced, if any.
func (r *PostgresVideoRepository) Update(ctx context.Context, id, ownerID string, update models.VideoUpdate) (models.Video, string, error) {
	var (
		video    models.Video
		replaced string
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var previous string
		err := tx.QueryRow(ctx, `
        SELECT thumbnail_url FROM videos WHERE id = $1 AND owner_id = $2 FOR UPDATE
    `, id, ownerID).Scan(&previous)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFoundOrUnauthorized
			}
			return classify(err, "lock video")
		}

		video, err = scanVideo(tx.QueryRow(ctx, `
        UPDATE videos
        SET title = COALESCE($3, title),
            description = COALESCE($4, description),
            thumbnail_url = COALESCE($5, thumbnail_url),
            updated_at = $6
        WHERE id = $1 AND owner_id = $2
        RETURNING `+videoColumns, id, ownerID, update.Title, update.Description, update.Thumbnail, now()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFoundOrUnauthorized
			}
			return classify(err, "update video")
		}

		if update.Thumbnail != nil && previous != video.Thumbnail {
			replaced = previous
		}
		return nil
	})
	return video, replaced, err
}

// TogglePublish flips the publication flag of a video owned by ownerID.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id, ownerID string) (models.Video, error) {
	var video models.Video
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		video, err = scanVideo(conn.QueryRow(ctx, `
        UPDATE videos SET is_published = NOT is_published, updated_at = $3
        WHERE id = $1 AND owner_id = $2
        RETURNING `+videoColumns, id, ownerID, now()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFoundOrUnauthorized
			}
			return classify(err, "toggle video publication")
		}
		return nil
	})
	return video, err
}

// Delete removes a video owned by ownerID together with every row that
// references it, in one transaction. The deleted row is returned so the
// caller can clean up its media.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id, ownerID string) (models.Video, error) {
	var video models.Video
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		const owned = `SELECT id FROM videos WHERE id = $1 AND owner_id = $2`
		cleanup := []struct{ op, query string }{
			{"delete video likes", `DELETE FROM likes WHERE video_id IN (` + owned + `)`},
			{"delete video comment likes", `DELETE FROM likes WHERE comment_id IN (SELECT c.id FROM comments c WHERE c.video_id IN (` + owned + `))`},
			{"delete video comments", `DELETE FROM comments WHERE video_id IN (` + owned + `)`},
			{"delete video watch history", `DELETE FROM watch_history WHERE video_id IN (` + owned + `)`},
			{"delete video playlist entries", `DELETE FROM playlist_videos WHERE video_id IN (` + owned + `)`},
		}
		for _, step := range cleanup {
			if _, err := tx.Exec(ctx, step.query, id, ownerID); err != nil {
				return classify(err, step.op)
			}
		}

		var err error
		video, err = scanVideo(tx.QueryRow(ctx, `
        DELETE FROM videos WHERE id = $1 AND owner_id = $2
        RETURNING `+videoColumns, id, ownerID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFoundOrUnauthorized
			}
			return classify(err, "delete video")
		}
		return nil
	})
	return video, err
}

// RecordView counts a view of a video visible to viewerID and, for signed-in
// viewers, moves the video to the top of their watch history.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, id, viewerID string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
        UPDATE videos SET views = views + 1
        WHERE id = $1 AND (is_published OR owner_id = $2)
    `, id, nullable(viewerID))
		if err != nil {
			return classify(err, "increment video views")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if viewerID == "" {
			return nil
		}

		_, err = tx.Exec(ctx, `
        INSERT INTO watch_history (account_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (account_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, viewerID, id, now())
		if err != nil {
			return classify(err, "upsert watch history")
		}
		return nil
	})
}

// requireVisibleVideo returns ErrNotFound unless the video exists and is
// published or owned by accountID.
func requireVisibleVideo(ctx context.Context, tx pgx.Tx, videoID, accountID string) error {
	var visible bool
	err := tx.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1 AND (is_published OR owner_id = $2))
    `, videoID, accountID).Scan(&visible)
	if err != nil {
		return classify(err, "check video visibility")
	}
	if !visible {
		return ErrNotFound
	}
	return nil
}
