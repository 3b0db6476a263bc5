package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const playlistColumns = `id, owner_id, name, description, created_at, updated_at`

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var p models.Playlist
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create persists a playlist and its initial videos in order. A video that is
// unknown or hidden from the owner yields ErrNotFound and a repeated one
// ErrConflict.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
        INSERT INTO playlists (`+playlistColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
		if err != nil {
			return classify(err, "insert playlist")
		}

		for i, videoID := range playlist.VideoIDs {
			if err := requireVisibleVideo(ctx, tx, videoID, playlist.OwnerID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
        VALUES ($1, $2, $3, $4)
    `, playlist.ID, videoID, i+1, playlist.CreatedAt); err != nil {
				return classify(err, "insert playlist video")
			}
		}
		return nil
	})
}

// Update renames a playlist owned by ownerID.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, ownerID, name, description string) (models.Playlist, error) {
	var playlist models.Playlist
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		playlist, err = scanPlaylist(conn.QueryRow(ctx, `
        UPDATE playlists SET name = $3, description = $4, updated_at = $5
        WHERE id = $1 AND owner_id = $2
        RETURNING `+playlistColumns, id, ownerID, name, description, now()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFoundOrUnauthorized
			}
			return classify(err, "update playlist")
		}
		return nil
	})
	return playlist, err
}

// Delete removes a playlist owned by ownerID. Its entries cascade.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id, ownerID string) error {
	return withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1 AND owner_id = $2`, id, ownerID)
		if err != nil {
			return classify(err, "delete playlist")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFoundOrUnauthorized
		}
		return nil
	})
}

// AddVideo appends a video to a playlist owned by ownerID. The video must be
// visible to ownerID. A video already in the playlist yields ErrConflict.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID, ownerID string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := requireVisibleVideo(ctx, tx, videoID, ownerID); err != nil {
			return err
		}
		added := now()
		tag, err := tx.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
        SELECT p.id, $2, COALESCE((SELECT MAX(pv.position) FROM playlist_videos pv WHERE pv.playlist_id = $1), 0) + 1, $4
        FROM playlists p
        WHERE p.id = $1 AND p.owner_id = $3
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID, ownerID, added)
		if err != nil {
			return classify(err, "insert playlist video")
		}
		if tag.RowsAffected() == 0 {
			return ownedOrMissing(ctx, tx, playlistID, ownerID, ErrConflict)
		}
		return touchPlaylist(ctx, tx, playlistID, added)
	})
}

// RemoveVideo takes a video out of a playlist owned by ownerID.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID, ownerID string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
        DELETE FROM playlist_videos
        WHERE playlist_id = $1 AND video_id = $2
          AND EXISTS (SELECT 1 FROM playlists p WHERE p.id = $1 AND p.owner_id = $3)
    `, playlistID, videoID, ownerID)
		if err != nil {
			return classify(err, "delete playlist video")
		}
		if tag.RowsAffected() == 0 {
			return ownedOrMissing(ctx, tx, playlistID, ownerID, ErrNotFound)
		}
		return touchPlaylist(ctx, tx, playlistID, now())
	})
}

// ownedOrMissing explains a zero-row playlist write: whenOwned if the caller
// owns the playlist, ErrNotFoundOrUnauthorized otherwise.
func ownedOrMissing(ctx context.Context, tx pgx.Tx, playlistID, ownerID string, whenOwned error) error {
	var owned bool
	if err := tx.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1 AND owner_id = $2)
    `, playlistID, ownerID).Scan(&owned); err != nil {
		return classify(err, "check playlist ownership")
	}
	if owned {
		return whenOwned
	}
	return ErrNotFoundOrUnauthorized
}

func touchPlaylist(ctx context.Context, tx pgx.Tx, playlistID string, at time.Time) error {
	if _, err := tx.Exec(ctx, `UPDATE playlists SET updated_at = $2 WHERE id = $1`, playlistID, at); err != nil {
		return classify(err, "touch playlist")
	}
	return nil
}
