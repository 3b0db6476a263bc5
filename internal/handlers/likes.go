package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/respond"
)

// LikeHandler implements the like endpoints.
type LikeHandler struct {
	Likes LikeStore
	Views ViewComposer
}

// Toggle returns a handler for POST /api/v1/likes/toggle/{v|c|t}/{id}. param
// names the path parameter carrying the target ID.
func (h LikeHandler) Toggle(kind models.LikeKind, param string) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		ctx := r.Context()
		account, err := currentAccount(r)
		if err != nil {
			return err
		}
		targetID, err := pathID(r, param)
		if err != nil {
			return err
		}

		liked, err := h.Likes.Toggle(ctx, account.ID, models.LikeTarget{Kind: kind, ID: targetID})
		if err != nil {
			return apperr.WithMessage(err, string(kind)+" not found")
		}

		message := string(kind) + " unliked successfully"
		if liked {
			message = string(kind) + " liked successfully"
		}
		respond.Success(ctx, w, http.StatusOK, map[string]bool{"isLiked": liked}, message)
		return nil
	}
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) error {
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	videos, err := h.Views.LikedVideos(r.Context(), account.ID)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, videos, "liked videos fetched successfully")
	return nil
}
