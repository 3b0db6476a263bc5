package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/respond"
)

// DashboardHandler serves a channel owner's own statistics.
type DashboardHandler struct {
	Views ViewComposer
}

// Stats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) error {
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	stats, err := h.Views.ChannelStats(r.Context(), account.ID)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, stats, "channel stats fetched successfully")
	return nil
}

// Videos handles GET /api/v1/dashboard/videos.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) error {
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	videos, err := h.Views.ChannelVideos(r.Context(), account.ID)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, videos, "channel videos fetched successfully")
	return nil
}
