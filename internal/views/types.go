package views

import "time"

// Owner is the public summary of an account embedded in other views.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

// VideoSummary is a video as it appears in lists.
type VideoSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	VideoFile   string    `json:"videoFile"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	Owner       Owner     `json:"owner"`
}

type VideoPage struct {
	Videos      []VideoSummary `json:"videos"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	TotalVideos int64          `json:"totalVideos"`
	TotalPages  int            `json:"totalPages"`
	HasNextPage bool           `json:"hasNextPage"`
}

// VideoDetail is the single-video view shown on the watch page. The like
// and subscription aggregates are viewer-relative.
type VideoDetail struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Thumbnail       string    `json:"thumbnail"`
	VideoFile       string    `json:"videoFile"`
	Duration        float64   `json:"duration"`
	Views           int64     `json:"views"`
	IsPublished     bool      `json:"isPublished"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Owner           Owner     `json:"owner"`
	TotalLikes      int64     `json:"totalLikes"`
	IsLiked         bool      `json:"isLiked"`
	TotalSubscriber int64     `json:"totalSubscriber"`
	IsSubscribed    bool      `json:"isSubscribed"`
}

type ChannelProfile struct {
	ID                        string `json:"id"`
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	Fullname                  string `json:"fullname"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

type ChannelStats struct {
	Channel          Owner `json:"channel"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscriber  int64 `json:"totalSubscriber"`
}

// ChannelVideo is a video on its owner's dashboard.
type ChannelVideo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	VideoFile   string    `json:"videoFile"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LikeCount   int64     `json:"likeCount"`
}

type CommentView struct {
	ID         string    `json:"id"`
	VideoID    string    `json:"videoId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Owner      Owner     `json:"owner"`
	LikesCount int64     `json:"likesCount"`
	IsLiked    bool      `json:"isLiked"`
}

type CommentPage struct {
	Comments      []CommentView `json:"comments"`
	Page          int           `json:"page"`
	Limit         int           `json:"limit"`
	TotalComments int64         `json:"totalComments"`
	TotalPages    int           `json:"totalPages"`
	HasNextPage   bool          `json:"hasNextPage"`
}

type TweetView struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Owner      Owner     `json:"owner"`
	LikesCount int64     `json:"likesCount"`
	IsLiked    bool      `json:"isLiked"`
}

type SubscriberView struct {
	Owner
	SubscribedAt time.Time `json:"subscribedAt"`
}

type SubscribedChannelView struct {
	Owner
	SubscribersCount int64     `json:"subscribersCount"`
	SubscribedAt     time.Time `json:"subscribedAt"`
}

type PlaylistView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Owner       Owner          `json:"owner"`
	TotalVideos int            `json:"totalVideos"`
	Videos      []VideoSummary `json:"videos"`
}

type PlaylistSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TotalVideos int64     `json:"totalVideos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
