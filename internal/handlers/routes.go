package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts      AccountStore
	Sessions      SessionManager
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Views         ViewComposer

	Tokens      middleware.AccessVerifier
	AccountByID middleware.AccountFinder
	DB          Pinger

	Uploads      Uploader
	Cookies      CookieWriter
	BcryptCost   int
	LoginLimiter middleware.RateLimiter
	Metrics      http.Handler
	NowFunc      func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided router.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	accounts := AccountHandler{
		Accounts:   deps.Accounts,
		Sessions:   deps.Sessions,
		Views:      deps.Views,
		Uploads:    deps.Uploads,
		Cookies:    deps.Cookies,
		BcryptCost: deps.BcryptCost,
		NowFunc:    deps.NowFunc,
	}
	videos := VideoHandler{Videos: deps.Videos, Views: deps.Views, Uploads: deps.Uploads, NowFunc: deps.NowFunc}
	comments := CommentHandler{Comments: deps.Comments, Views: deps.Views, NowFunc: deps.NowFunc}
	tweets := TweetHandler{Tweets: deps.Tweets, Views: deps.Views, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Views: deps.Views}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Views: deps.Views}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Views: deps.Views, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Views: deps.Views}

	authenticate := middleware.Authenticate(deps.Tokens, deps.AccountByID)

	r.Get("/healthz", health.Handle)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", handle(accounts.Register))
			r.With(middleware.RateLimit(deps.LoginLimiter, "login")).Post("/login", handle(accounts.Login))
			r.Post("/refresh-token", handle(accounts.RefreshToken))

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/logout", handle(accounts.Logout))
				r.Patch("/change-password", handle(accounts.ChangePassword))
				r.Post("/change-password", handle(accounts.ChangePassword))
				r.Get("/get-user", handle(accounts.CurrentUser))
				r.Get("/current-user", handle(accounts.CurrentUser))
				r.Patch("/update-user", handle(accounts.UpdateAccount))
				r.Patch("/avatar", handle(accounts.UpdateAvatar))
				r.Patch("/coverimage", handle(accounts.UpdateCoverImage))
				r.Get("/c/{username}", handle(accounts.ChannelProfile))
				r.Get("/watchHistory", handle(accounts.WatchHistory))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/videos", func(r chi.Router) {
				r.Get("/", handle(videos.List))
				r.Post("/", handle(videos.Publish))
				r.Get("/{videoId}", handle(videos.Get))
				r.Patch("/{videoId}", handle(videos.Update))
				r.Delete("/{videoId}", handle(videos.Delete))
				r.Patch("/toggle/publish/{videoId}", handle(videos.TogglePublish))
			})

			r.Route("/comments", func(r chi.Router) {
				r.Get("/{videoId}", handle(comments.List))
				r.Post("/{videoId}", handle(comments.Add))
				r.Patch("/c/{commentId}", handle(comments.Update))
				r.Delete("/c/{commentId}", handle(comments.Delete))
			})

			r.Route("/tweets", func(r chi.Router) {
				r.Post("/", handle(tweets.Create))
				r.Get("/user/{userId}", handle(tweets.ListForUser))
				r.Patch("/{tweetId}", handle(tweets.Update))
				r.Delete("/{tweetId}", handle(tweets.Delete))
			})

			r.Route("/likes", func(r chi.Router) {
				r.Post("/toggle/v/{videoId}", handle(likes.Toggle(models.LikeVideo, "videoId")))
				r.Post("/toggle/c/{commentId}", handle(likes.Toggle(models.LikeComment, "commentId")))
				r.Post("/toggle/t/{tweetId}", handle(likes.Toggle(models.LikeTweet, "tweetId")))
				r.Get("/videos", handle(likes.LikedVideos))
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/c/{channelId}", handle(subscriptions.Toggle))
				r.Get("/c/{channelId}", handle(subscriptions.Subscribers))
				r.Get("/u/{subscriberId}", handle(subscriptions.SubscribedChannels))
			})

			r.Route("/playlist", func(r chi.Router) {
				r.Post("/", handle(playlists.Create))
				r.Get("/{playlistId}", handle(playlists.Get))
				r.Patch("/{playlistId}", handle(playlists.Update))
				r.Delete("/{playlistId}", handle(playlists.Delete))
				r.Patch("/add/{videoId}/{playlistId}", handle(playlists.AddVideo))
				r.Patch("/remove/{videoId}/{playlistId}", handle(playlists.RemoveVideo))
				r.Get("/user/{userId}", handle(playlists.ListForUser))
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", handle(dashboard.Stats))
				r.Get("/videos", handle(dashboard.Videos))
			})
		})
	})
}
