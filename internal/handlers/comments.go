package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/respond"
	"github.com/vidtube/backend/internal/views"
)

// CommentHandler implements the comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Views    ViewComposer
	NowFunc  func() time.Time
}

// contentRequest is the body of comment and tweet writes.
type contentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func (req *contentRequest) normalize() {
	req.Content = strings.TrimSpace(req.Content)
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) error {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	page, err := views.ParsePage(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))
	if err != nil {
		return err
	}

	comments, err := h.Views.VideoComments(r.Context(), videoID, viewerID(r), page)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, comments, "comments fetched successfully")
	return nil
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	now := timeNow(h.NowFunc)
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   account.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		return apperr.WithMessage(err, "video not found")
	}

	respond.Success(ctx, w, http.StatusCreated, comment, "comment added successfully")
	return nil
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "commentId")
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	comment, err := h.Comments.Update(ctx, commentID, account.ID, req.Content)
	if err != nil {
		return apperr.WithMessage(err, "comment not found or not owned by you")
	}
	respond.Success(ctx, w, http.StatusOK, comment, "comment updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "commentId")
	if err != nil {
		return err
	}

	if err := h.Comments.Delete(ctx, commentID, account.ID); err != nil {
		return apperr.WithMessage(err, "comment not found or not owned by you")
	}
	respond.Success(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
	return nil
}

func timeNow(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
