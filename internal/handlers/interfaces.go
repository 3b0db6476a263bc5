package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/views"
)

// AccountStore captures the persistence operations required by the account handlers.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByLogin(ctx context.Context, username, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id, fullname, email string) (models.Account, error)
	UpdateAvatar(ctx context.Context, id, url string) (models.Account, error)
	UpdateCoverImage(ctx context.Context, id, url string) (models.Account, error)
}

// SessionManager issues, rotates and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, account models.Account) (models.SessionTokens, error)
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeOthers(ctx context.Context, accountID, keepSessionID string) error
}

// VideoStore captures owner-conditional video writes.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	Update(ctx context.Context, id, ownerID string, update models.VideoUpdate) (models.Video, string, error)
	TogglePublish(ctx context.Context, id, ownerID string) (models.Video, error)
	Delete(ctx context.Context, id, ownerID string) (models.Video, error)
	RecordView(ctx context.Context, id, viewerID string) error
}

type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	Update(ctx context.Context, id, ownerID, content string) (models.Comment, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	Update(ctx context.Context, id, ownerID, content string) (models.Tweet, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type LikeStore interface {
	Toggle(ctx context.Context, accountID string, target models.LikeTarget) (bool, error)
}

type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
}

type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	Update(ctx context.Context, id, ownerID, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, id, ownerID string) error
	AddVideo(ctx context.Context, playlistID, videoID, ownerID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID, ownerID string) error
}

// ViewComposer builds the read models served by GET endpoints.
type ViewComposer interface {
	ListVideos(ctx context.Context, viewerID string, q views.VideoListQuery) (views.VideoPage, error)
	VideoDetail(ctx context.Context, videoID, viewerID string) (views.VideoDetail, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (views.ChannelProfile, error)
	WatchHistory(ctx context.Context, accountID string) ([]views.VideoSummary, error)
	LikedVideos(ctx context.Context, accountID string) ([]views.VideoSummary, error)
	ChannelStats(ctx context.Context, accountID string) (views.ChannelStats, error)
	ChannelVideos(ctx context.Context, accountID string) ([]views.ChannelVideo, error)
	VideoComments(ctx context.Context, videoID, viewerID string, page views.Page) (views.CommentPage, error)
	UserTweets(ctx context.Context, ownerID, viewerID string) ([]views.TweetView, error)
	ChannelSubscribers(ctx context.Context, channelID string) ([]views.SubscriberView, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]views.SubscribedChannelView, error)
	Playlist(ctx context.Context, playlistID, viewerID string) (views.PlaylistView, error)
	UserPlaylists(ctx context.Context, ownerID string) ([]views.PlaylistSummary, error)
}

// MediaStore uploads local files to the media host.
type MediaStore interface {
	UploadFile(ctx context.Context, path string, kind media.Kind) (media.Asset, error)
}

// MediaCleaner schedules deletion of media objects.
type MediaCleaner interface {
	Enqueue(ctx context.Context, locations ...string) error
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
