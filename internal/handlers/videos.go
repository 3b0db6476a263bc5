package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/respond"
	"github.com/vidtube/backend/internal/views"
)

var (
	errVideoNotFound  = apperr.NotFound("video not found")
	errEmptyVideoEdit = apperr.Validation("at least one of title, description or thumbnail is required")
)

// VideoHandler implements the video endpoints.
type VideoHandler struct {
	Videos  VideoStore
	Views   ViewComposer
	Uploads Uploader
	NowFunc func() time.Time
}

type publishVideoRequest struct {
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"required,max=5000"`
}

func (req *publishVideoRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
}

type updateVideoRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,min=1,max=5000"`
}

func (req *updateVideoRequest) normalize() {
	for _, field := range []*string{req.Title, req.Description} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	page, err := views.ParsePage(q.Get("page"), q.Get("limit"))
	if err != nil {
		return err
	}

	query := views.VideoListQuery{
		Page:     page,
		Search:   q.Get("query"),
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
	}
	if raw := strings.TrimSpace(q.Get("userId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("invalid userId")
		}
		query.OwnerID = id.String()
	}

	result, err := h.Views.ListVideos(r.Context(), viewerID(r), query)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, result, "videos fetched successfully")
	return nil
}

// Publish handles POST /api/v1/videos. The video and thumbnail files are
// uploaded before the row is written and removed again if the write fails.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	cleanup, err := h.Uploads.parseForm(w, r)
	defer cleanup()
	if err != nil {
		return err
	}

	req := publishVideoRequest{Title: r.FormValue("title"), Description: r.FormValue("description")}
	if err := check(&req); err != nil {
		return err
	}

	file, err := h.Uploads.upload(ctx, r, "videoFile", media.KindVideo, true)
	if err != nil {
		return err
	}
	thumbnail, err := h.Uploads.upload(ctx, r, "thumbnail", media.KindImage, true)
	if err != nil {
		h.Uploads.discard(ctx, file)
		return err
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     account.ID,
		VideoFile:   file.URL,
		Thumbnail:   thumbnail.URL,
		Title:       req.Title,
		Description: req.Description,
		Duration:    file.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Videos.Create(ctx, video); err != nil {
		h.Uploads.discard(ctx, file, thumbnail)
		return err
	}

	logging.FromContext(ctx).Info("video published", "video_id", video.ID, "duration", video.Duration)
	respond.Success(ctx, w, http.StatusCreated, video, "video published successfully")
	return nil
}

// Get handles GET /api/v1/videos/{videoId}. Every fetch counts as a view and
// moves the video to the top of the caller's watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	viewer := viewerID(r)

	if err := h.Videos.RecordView(ctx, videoID, viewer); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errVideoNotFound
		}
		return err
	}

	detail, err := h.Views.VideoDetail(ctx, videoID, viewer)
	if err != nil {
		return err
	}
	respond.Success(ctx, w, http.StatusOK, detail, "video fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/videos/{videoId}. It accepts a multipart form
// carrying an optional thumbnail file, or a JSON body.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	var (
		req       updateVideoRequest
		thumbnail media.Asset
	)
	if isMultipart(r) {
		cleanup, err := h.Uploads.parseForm(w, r)
		defer cleanup()
		if err != nil {
			return err
		}
		req.Title = formValue(r, "title")
		req.Description = formValue(r, "description")
		if err := check(&req); err != nil {
			return err
		}
		if thumbnail, err = h.Uploads.upload(ctx, r, "thumbnail", media.KindImage, false); err != nil {
			return err
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return err
	}

	update := models.VideoUpdate{Title: req.Title, Description: req.Description}
	if thumbnail.URL != "" {
		update.Thumbnail = &thumbnail.URL
	}
	if update.Empty() {
		return errEmptyVideoEdit
	}

	video, replaced, err := h.Videos.Update(ctx, videoID, account.ID, update)
	if err != nil {
		if thumbnail.URL != "" {
			h.Uploads.discard(ctx, thumbnail)
		}
		return apperr.WithMessage(err, "video not found or not owned by you")
	}
	if replaced != "" {
		h.Uploads.release(ctx, replaced)
	}

	respond.Success(ctx, w, http.StatusOK, video, "video updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	video, err := h.Videos.Delete(ctx, videoID, account.ID)
	if err != nil {
		return apperr.WithMessage(err, "video not found or not owned by you")
	}
	h.Uploads.release(ctx, video.VideoFile, video.Thumbnail)

	respond.Success(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
	return nil
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	video, err := h.Videos.TogglePublish(ctx, videoID, account.ID)
	if err != nil {
		return apperr.WithMessage(err, "video not found or not owned by you")
	}

	respond.Success(ctx, w, http.StatusOK, map[string]bool{"isPublished": video.IsPublished}, "publish status toggled successfully")
	return nil
}

func (h VideoHandler) now() time.Time {
	return timeNow(h.NowFunc)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// formValue returns a pointer to a submitted form field, or nil when the
// field was not sent at all.
func formValue(r *http.Request, name string) *string {
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
