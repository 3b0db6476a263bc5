// Package views composes the read models served by the API: videos with
// their owners, counts and viewer-relative flags.
package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
)

var (
	ErrVideoNotFound    = apperr.NotFound("video not found")
	ErrChannelNotFound  = apperr.NotFound("channel not found")
	ErrAccountNotFound  = apperr.NotFound("account not found")
	ErrPlaylistNotFound = apperr.NotFound("playlist not found")
)

const (
	ownerColumns        = `o.id, o.username, o.fullname, o.avatar_url`
	videoSummaryColumns = `v.id, v.title, v.description, v.thumbnail_url, v.video_file_url, v.duration, v.views, v.is_published, v.created_at, ` + ownerColumns

	// a like targets exactly one entity, so video likes are those with video_id set
	videoLikes = `SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id`
)

// Composer runs the aggregate queries behind every read endpoint. Viewer
// arguments may be empty, in which case viewer-relative flags are false.
type Composer struct {
	pool db.Pool
}

func NewComposer(pool db.Pool) *Composer {
	return &Composer{pool: pool}
}

func videoSummaryDest(v *VideoSummary) []any {
	return []any{&v.ID, &v.Title, &v.Description, &v.Thumbnail, &v.VideoFile, &v.Duration, &v.Views,
		&v.IsPublished, &v.CreatedAt, &v.Owner.ID, &v.Owner.Username, &v.Owner.Fullname, &v.Owner.Avatar}
}

// ListVideos returns one page of the videos visible to viewerID.
func (c *Composer) ListVideos(ctx context.Context, viewerID string, q VideoListQuery) (VideoPage, error) {
	sql, args, err := buildVideoList(q, viewerID)
	if err != nil {
		return VideoPage{}, err
	}

	page := VideoPage{Videos: []VideoSummary{}, Page: q.Page.Number, Limit: q.Page.Limit}
	err = c.query(ctx, "views.ListVideos", sql, args, func(rows pgx.Rows) error {
		var item VideoSummary
		if err := rows.Scan(append(videoSummaryDest(&item), &page.TotalVideos)...); err != nil {
			return err
		}
		page.Videos = append(page.Videos, item)
		return nil
	})
	if err != nil {
		return VideoPage{}, err
	}

	if len(page.Videos) == 0 && q.Page.Number > 1 {
		countSQL, countArgs := buildVideoCount(q, viewerID)
		if err := c.queryRow(ctx, "views.CountVideos", countSQL, countArgs, &page.TotalVideos); err != nil {
			return VideoPage{}, err
		}
	}

	page.paginate(page.TotalVideos)
	return page, nil
}

// VideoDetail returns a video visible to viewerID with its like and owner
// subscription aggregates.
func (c *Composer) VideoDetail(ctx context.Context, videoID, viewerID string) (VideoDetail, error) {
	var d VideoDetail
	err := c.queryRow(ctx, "views.VideoDetail", `
        SELECT v.id, v.title, v.description, v.thumbnail_url, v.video_file_url, v.duration, v.views,
               v.is_published, v.created_at, v.updated_at, `+ownerColumns+`,
               (`+videoLikes+`),
               EXISTS (SELECT 1 FROM likes l WHERE l.video_id = v.id AND l.liked_by = $2),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = v.owner_id),
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = v.owner_id AND s.subscriber_id = $2)
        FROM videos v
        JOIN accounts o ON o.id = v.owner_id
        WHERE v.id = $1 AND (v.is_published OR v.owner_id = $2)
    `, []any{videoID, nullableID(viewerID)},
		&d.ID, &d.Title, &d.Description, &d.Thumbnail, &d.VideoFile, &d.Duration, &d.Views,
		&d.IsPublished, &d.CreatedAt, &d.UpdatedAt,
		&d.Owner.ID, &d.Owner.Username, &d.Owner.Fullname, &d.Owner.Avatar,
		&d.TotalLikes, &d.IsLiked, &d.TotalSubscriber, &d.IsSubscribed)
	if errors.Is(err, pgx.ErrNoRows) {
		return VideoDetail{}, ErrVideoNotFound
	}
	return d, err
}

// ChannelProfile returns the public channel page of username.
func (c *Composer) ChannelProfile(ctx context.Context, username, viewerID string) (ChannelProfile, error) {
	var p ChannelProfile
	err := c.queryRow(ctx, "views.ChannelProfile", `
        SELECT a.id, a.username, a.email, a.fullname, a.avatar_url, a.cover_image_url,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = a.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = a.id),
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = a.id AND s.subscriber_id = $2)
        FROM accounts a
        WHERE a.username = $1
    `, []any{username, nullableID(viewerID)},
		&p.ID, &p.Username, &p.Email, &p.Fullname, &p.Avatar, &p.CoverImage,
		&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ChannelProfile{}, ErrChannelNotFound
	}
	return p, err
}

// WatchHistory lists the videos accountID watched, most recent first.
func (c *Composer) WatchHistory(ctx context.Context, accountID string) ([]VideoSummary, error) {
	return c.videoSummaries(ctx, "views.WatchHistory", `
        SELECT `+videoSummaryColumns+`
        FROM watch_history w
        JOIN videos v ON v.id = w.video_id
        JOIN accounts o ON o.id = v.owner_id
        WHERE w.account_id = $1 AND (v.is_published OR v.owner_id = $1)
        ORDER BY w.watched_at DESC
    `, accountID)
}

// LikedVideos lists the videos accountID liked, newest like first.
func (c *Composer) LikedVideos(ctx context.Context, accountID string) ([]VideoSummary, error) {
	return c.videoSummaries(ctx, "views.LikedVideos", `
        SELECT `+videoSummaryColumns+`
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        JOIN accounts o ON o.id = v.owner_id
        WHERE l.liked_by = $1 AND (v.is_published OR v.owner_id = $1)
        ORDER BY l.created_at DESC, v.id
    `, accountID)
}

// ChannelStats aggregates the dashboard totals of accountID's channel.
func (c *Composer) ChannelStats(ctx context.Context, accountID string) (ChannelStats, error) {
	var s ChannelStats
	err := c.queryRow(ctx, "views.ChannelStats", `
        SELECT a.id, a.username, a.fullname, a.avatar_url,
               (SELECT COUNT(*) FROM videos v WHERE v.owner_id = a.id),
               (SELECT COALESCE(SUM(v.views), 0)::INT8 FROM videos v WHERE v.owner_id = a.id),
               (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = a.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = a.id)
        FROM accounts a
        WHERE a.id = $1
    `, []any{accountID},
		&s.Channel.ID, &s.Channel.Username, &s.Channel.Fullname, &s.Channel.Avatar,
		&s.TotalVideos, &s.TotalViews, &s.TotalLikes, &s.TotalSubscriber)
	if errors.Is(err, pgx.ErrNoRows) {
		return ChannelStats{}, ErrChannelNotFound
	}
	return s, err
}

// ChannelVideos lists every video of accountID, published or not, with like counts.
func (c *Composer) ChannelVideos(ctx context.Context, accountID string) ([]ChannelVideo, error) {
	videos := []ChannelVideo{}
	err := c.query(ctx, "views.ChannelVideos", `
        SELECT v.id, v.title, v.description, v.thumbnail_url, v.video_file_url, v.duration, v.views,
               v.is_published, v.created_at, v.updated_at, (`+videoLikes+`)
        FROM videos v
        WHERE v.owner_id = $1
        ORDER BY v.created_at DESC, v.id
    `, []any{accountID}, func(rows pgx.Rows) error {
		var v ChannelVideo
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.Thumbnail, &v.VideoFile, &v.Duration,
			&v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt, &v.LikeCount); err != nil {
			return err
		}
		videos = append(videos, v)
		return nil
	})
	return videos, err
}

// VideoComments returns one page of a visible video's comments, newest first.
func (c *Composer) VideoComments(ctx context.Context, videoID, viewerID string, page Page) (CommentPage, error) {
	if err := c.requireVisibleVideo(ctx, videoID, viewerID); err != nil {
		return CommentPage{}, err
	}

	result := CommentPage{Comments: []CommentView{}, Page: page.Number, Limit: page.Limit}
	err := c.query(ctx, "views.VideoComments", `
        SELECT c.id, c.video_id, c.content, c.created_at, c.updated_at, `+ownerColumns+`,
               (SELECT COUNT(*) FROM likes l WHERE l.comment_id = c.id),
               EXISTS (SELECT 1 FROM likes l WHERE l.comment_id = c.id AND l.liked_by = $2),
               COUNT(*) OVER()
        FROM comments c
        JOIN accounts o ON o.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC, c.id DESC
        LIMIT $3 OFFSET $4
    `, []any{videoID, nullableID(viewerID), page.Limit, page.Offset()}, func(rows pgx.Rows) error {
		var cv CommentView
		if err := rows.Scan(&cv.ID, &cv.VideoID, &cv.Content, &cv.CreatedAt, &cv.UpdatedAt,
			&cv.Owner.ID, &cv.Owner.Username, &cv.Owner.Fullname, &cv.Owner.Avatar,
			&cv.LikesCount, &cv.IsLiked, &result.TotalComments); err != nil {
			return err
		}
		result.Comments = append(result.Comments, cv)
		return nil
	})
	if err != nil {
		return CommentPage{}, err
	}

	if len(result.Comments) == 0 && page.Number > 1 {
		if err := c.queryRow(ctx, "views.CountComments", `SELECT COUNT(*) FROM comments WHERE video_id = $1`,
			[]any{videoID}, &result.TotalComments); err != nil {
			return CommentPage{}, err
		}
	}

	result.TotalPages = totalPages(result.TotalComments, result.Limit)
	result.HasNextPage = result.Page < result.TotalPages
	return result, nil
}

// UserTweets lists ownerID's tweets, newest first.
func (c *Composer) UserTweets(ctx context.Context, ownerID, viewerID string) ([]TweetView, error) {
	if err := c.requireAccount(ctx, ownerID); err != nil {
		return nil, err
	}

	tweets := []TweetView{}
	err := c.query(ctx, "views.UserTweets", `
        SELECT t.id, t.content, t.created_at, t.updated_at, `+ownerColumns+`,
               (SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id),
               EXISTS (SELECT 1 FROM likes l WHERE l.tweet_id = t.id AND l.liked_by = $2)
        FROM tweets t
        JOIN accounts o ON o.id = t.owner_id
        WHERE t.owner_id = $1
        ORDER BY t.created_at DESC, t.id DESC
    `, []any{ownerID, nullableID(viewerID)}, func(rows pgx.Rows) error {
		var tv TweetView
		if err := rows.Scan(&tv.ID, &tv.Content, &tv.CreatedAt, &tv.UpdatedAt,
			&tv.Owner.ID, &tv.Owner.Username, &tv.Owner.Fullname, &tv.Owner.Avatar,
			&tv.LikesCount, &tv.IsLiked); err != nil {
			return err
		}
		tweets = append(tweets, tv)
		return nil
	})
	return tweets, err
}

// ChannelSubscribers lists the accounts subscribed to channelID, newest first.
func (c *Composer) ChannelSubscribers(ctx context.Context, channelID string) ([]SubscriberView, error) {
	if err := c.requireAccount(ctx, channelID); err != nil {
		return nil, apperr.WithMessage(err, ErrChannelNotFound.Message)
	}

	subscribers := []SubscriberView{}
	err := c.query(ctx, "views.ChannelSubscribers", `
        SELECT `+ownerColumns+`, s.created_at
        FROM subscriptions s
        JOIN accounts o ON o.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC, o.id
    `, []any{channelID}, func(rows pgx.Rows) error {
		var sv SubscriberView
		if err := rows.Scan(&sv.ID, &sv.Username, &sv.Fullname, &sv.Avatar, &sv.SubscribedAt); err != nil {
			return err
		}
		subscribers = append(subscribers, sv)
		return nil
	})
	return subscribers, err
}

// SubscribedChannels lists the channels subscriberID follows, newest first.
func (c *Composer) SubscribedChannels(ctx context.Context, subscriberID string) ([]SubscribedChannelView, error) {
	if err := c.requireAccount(ctx, subscriberID); err != nil {
		return nil, err
	}

	channels := []SubscribedChannelView{}
	err := c.query(ctx, "views.SubscribedChannels", `
        SELECT `+ownerColumns+`,
               (SELECT COUNT(*) FROM subscriptions x WHERE x.channel_id = o.id),
               s.created_at
        FROM subscriptions s
        JOIN accounts o ON o.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC, o.id
    `, []any{subscriberID}, func(rows pgx.Rows) error {
		var cv SubscribedChannelView
		if err := rows.Scan(&cv.ID, &cv.Username, &cv.Fullname, &cv.Avatar, &cv.SubscribersCount, &cv.SubscribedAt); err != nil {
			return err
		}
		channels = append(channels, cv)
		return nil
	})
	return channels, err
}

// Playlist returns a playlist with its owner and the videos visible to
// viewerID, in the order they were added.
func (c *Composer) Playlist(ctx context.Context, playlistID, viewerID string) (PlaylistView, error) {
	var p PlaylistView
	err := c.queryRow(ctx, "views.Playlist", `
        SELECT p.id, p.name, p.description, p.created_at, p.updated_at, `+ownerColumns+`
        FROM playlists p
        JOIN accounts o ON o.id = p.owner_id
        WHERE p.id = $1
    `, []any{playlistID},
		&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt,
		&p.Owner.ID, &p.Owner.Username, &p.Owner.Fullname, &p.Owner.Avatar)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlaylistView{}, ErrPlaylistNotFound
	}
	if err != nil {
		return PlaylistView{}, err
	}

	p.Videos, err = c.videoSummaries(ctx, "views.PlaylistVideos", `
        SELECT `+videoSummaryColumns+`
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        JOIN accounts o ON o.id = v.owner_id
        WHERE pv.playlist_id = $1 AND (v.is_published OR v.owner_id = $2)
        ORDER BY pv.position
    `, playlistID, nullableID(viewerID))
	if err != nil {
		return PlaylistView{}, err
	}
	p.TotalVideos = len(p.Videos)
	return p, nil
}

// UserPlaylists lists ownerID's playlists, most recently updated first.
func (c *Composer) UserPlaylists(ctx context.Context, ownerID string) ([]PlaylistSummary, error) {
	if err := c.requireAccount(ctx, ownerID); err != nil {
		return nil, err
	}

	playlists := []PlaylistSummary{}
	err := c.query(ctx, "views.UserPlaylists", `
        SELECT p.id, p.name, p.description,
               (SELECT COUNT(*) FROM playlist_videos pv WHERE pv.playlist_id = p.id),
               p.created_at, p.updated_at
        FROM playlists p
        WHERE p.owner_id = $1
        ORDER BY p.updated_at DESC, p.id
    `, []any{ownerID}, func(rows pgx.Rows) error {
		var ps PlaylistSummary
		if err := rows.Scan(&ps.ID, &ps.Name, &ps.Description, &ps.TotalVideos, &ps.CreatedAt, &ps.UpdatedAt); err != nil {
			return err
		}
		playlists = append(playlists, ps)
		return nil
	})
	return playlists, err
}

func (c *Composer) videoSummaries(ctx context.Context, name, sql string, args ...any) ([]VideoSummary, error) {
	videos := []VideoSummary{}
	err := c.query(ctx, name, sql, args, func(rows pgx.Rows) error {
		var v VideoSummary
		if err := rows.Scan(videoSummaryDest(&v)...); err != nil {
			return err
		}
		videos = append(videos, v)
		return nil
	})
	return videos, err
}

func (c *Composer) requireAccount(ctx context.Context, id string) error {
	var exists bool
	if err := c.queryRow(ctx, "views.AccountExists", `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`,
		[]any{id}, &exists); err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}
	return nil
}

func (c *Composer) requireVisibleVideo(ctx context.Context, videoID, viewerID string) error {
	var exists bool
	if err := c.queryRow(ctx, "views.VideoVisible", `
        SELECT EXISTS (SELECT 1 FROM videos v WHERE v.id = $1 AND (v.is_published OR v.owner_id = $2))
    `, []any{videoID, nullableID(viewerID)}, &exists); err != nil {
		return err
	}
	if !exists {
		return ErrVideoNotFound
	}
	return nil
}

// query runs sql inside a span and calls scan once per row.
func (c *Composer) query(ctx context.Context, name, sql string, args []any, scan func(pgx.Rows) error) (err error) {
	ctx, span := logging.StartSpan(ctx, name)
	defer func() {
		span.Fail(err)
		span.End()
	}()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: scan: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// queryRow runs a single-row query inside a span. pgx.ErrNoRows is returned
// unwrapped so callers can translate it.
func (c *Composer) queryRow(ctx context.Context, name, sql string, args []any, dest ...any) (err error) {
	ctx, span := logging.StartSpan(ctx, name)
	defer func() {
		if !errors.Is(err, pgx.ErrNoRows) {
			span.Fail(err)
		}
		span.End()
	}()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := conn.QueryRow(ctx, sql, args...).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
