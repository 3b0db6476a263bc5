package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/respond"
)

// TweetHandler implements the tweet endpoints.
type TweetHandler struct {
	Tweets  TweetStore
	Views   ViewComposer
	NowFunc func() time.Time
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	now := timeNow(h.NowFunc)
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   account.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		return err
	}
	respond.Success(ctx, w, http.StatusCreated, tweet, "tweet created successfully")
	return nil
}

// ListForUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListForUser(w http.ResponseWriter, r *http.Request) error {
	userID, err := pathID(r, "userId")
	if err != nil {
		return err
	}

	tweets, err := h.Views.UserTweets(r.Context(), userID, viewerID(r))
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, tweets, "tweets fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	tweet, err := h.Tweets.Update(ctx, tweetID, account.ID, req.Content)
	if err != nil {
		return apperr.WithMessage(err, "tweet not found or not owned by you")
	}
	respond.Success(ctx, w, http.StatusOK, tweet, "tweet updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		return err
	}

	if err := h.Tweets.Delete(ctx, tweetID, account.ID); err != nil {
		return apperr.WithMessage(err, "tweet not found or not owned by you")
	}
	respond.Success(ctx, w, http.StatusOK, struct{}{}, "tweet deleted successfully")
	return nil
}
