package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
)

const multipartMemory = 32 << 20

// Uploader moves multipart files to the media host and schedules removal
// of objects that are no longer referenced.
type Uploader struct {
	Media    MediaStore
	Cleaner  MediaCleaner
	Dir      string
	MaxBytes int64
}

// parseForm reads a multipart body no larger than MaxBytes. Callers must
// invoke the returned cleanup once the files have been consumed.
func (u Uploader) parseForm(w http.ResponseWriter, r *http.Request) (func(), error) {
	if u.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return func() {}, apperr.Validation(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		return func() {}, apperr.Wrap(err, apperr.KindValidation, "invalid multipart form")
	}
	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// upload stores the first file of field. A missing optional file yields a
// zero Asset.
func (u Uploader) upload(ctx context.Context, r *http.Request, field string, kind media.Kind, required bool) (media.Asset, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		if required {
			return media.Asset{}, apperr.Validation(field + " file is required")
		}
		return media.Asset{}, nil
	}

	path, err := media.SaveUpload(u.Dir, files[0])
	if err != nil {
		return media.Asset{}, apperr.Internal(err)
	}

	asset, err := u.Media.UploadFile(ctx, path, kind)
	if err != nil {
		return media.Asset{}, apperr.Upstream(err, "failed to upload "+field)
	}
	return asset, nil
}

// release schedules deletion of media objects. Failures to enqueue are logged
// and otherwise ignored, since the owning row has already changed.
func (u Uploader) release(ctx context.Context, locations ...string) {
	if u.Cleaner == nil {
		return
	}
	if err := u.Cleaner.Enqueue(ctx, locations...); err != nil {
		logging.FromContext(ctx).Warn("schedule media cleanup", "locations", locations, "error", err)
	}
}

// discard releases assets uploaded for a request that then failed.
func (u Uploader) discard(ctx context.Context, assets ...media.Asset) {
	locations := make([]string, 0, len(assets))
	for _, asset := range assets {
		locations = append(locations, asset.URL)
	}
	u.release(ctx, locations...)
}
