package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/respond"
)

const playlistNotOwned = "playlist not found or not owned by you"

// PlaylistHandler implements the playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Views     ViewComposer
	NowFunc   func() time.Time
}

type createPlaylistRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"required,max=1000"`
	Videos      []string `json:"videos" validate:"omitempty,unique,dive,uuid"`
}

func (req *createPlaylistRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	for i, id := range req.Videos {
		req.Videos[i] = strings.ToLower(strings.TrimSpace(id))
	}
}

type updatePlaylistRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=1000"`
}

func (req *updatePlaylistRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
}

// Create handles POST /api/v1/playlist.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	now := timeNow(h.NowFunc)
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     account.ID,
		Name:        req.Name,
		Description: req.Description,
		VideoIDs:    req.Videos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if playlist.VideoIDs == nil {
		playlist.VideoIDs = []string{}
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		return apperr.WithMessage(err, "video not found")
	}

	respond.Success(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
	return nil
}

// Get handles GET /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) error {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}

	playlist, err := h.Views.Playlist(r.Context(), playlistID, viewerID(r))
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, playlist, "playlist fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}

	var req updatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	playlist, err := h.Playlists.Update(ctx, playlistID, account.ID, req.Name, req.Description)
	if err != nil {
		return apperr.WithMessage(err, playlistNotOwned)
	}
	respond.Success(ctx, w, http.StatusOK, playlist, "playlist updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}

	if err := h.Playlists.Delete(ctx, playlistID, account.ID); err != nil {
		return apperr.WithMessage(err, playlistNotOwned)
	}
	respond.Success(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
	return nil
}

// AddVideo handles PATCH /api/v1/playlist/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) error {
	return h.changeVideos(w, r, h.Playlists.AddVideo, "video not found", "video added to playlist successfully")
}

// RemoveVideo handles PATCH /api/v1/playlist/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) error {
	return h.changeVideos(w, r, h.Playlists.RemoveVideo, "video is not in the playlist", "video removed from playlist successfully")
}

func (h PlaylistHandler) changeVideos(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, playlistID, videoID, ownerID string) error, missing, message string) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}

	if err := change(ctx, playlistID, videoID, account.ID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFoundOrUnauthorized):
			return apperr.WithMessage(err, playlistNotOwned)
		case errors.Is(err, repositories.ErrConflict):
			return apperr.WithMessage(err, "video is already in the playlist")
		case errors.Is(err, repositories.ErrNotFound):
			return apperr.WithMessage(err, missing)
		}
		return err
	}

	playlist, err := h.Views.Playlist(ctx, playlistID, account.ID)
	if err != nil {
		return err
	}
	respond.Success(ctx, w, http.StatusOK, playlist, message)
	return nil
}

// ListForUser handles GET /api/v1/playlist/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) error {
	userID, err := pathID(r, "userId")
	if err != nil {
		return err
	}

	playlists, err := h.Views.UserPlaylists(r.Context(), userID)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, playlists, "playlists fetched successfully")
	return nil
}
