package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/logging"
)

// Kind is the class of a media object. It decides the key prefix and
// whether a duration is probed.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// videoContentTypes covers containers missing from minimal mime tables.
var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
}

// Asset describes an uploaded object.
type Asset struct {
	URL      string
	Key      string
	Size     int64
	Duration float64
}

// Prober measures the playback duration of a local media file in seconds.
type Prober interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// Recorder counts media operations by outcome.
type Recorder interface {
	ObserveMedia(operation, result string)
}

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store hosts media in an S3-compatible bucket.
type S3Store struct {
	uploader objectUploader
	deleter  objectDeleter
	bucket   string
	baseURL  string
	prober   Prober
	recorder Recorder
}

// NewS3Store configures a client targeting the provided object store. prober
// and recorder may be nil.
func NewS3Store(ctx context.Context, cfg config.ObjectStoreConfig, prober Prober, recorder Recorder) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Store{
		uploader: uploader,
		deleter:  client,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		prober:   prober,
		recorder: recorder,
	}, nil
}

// UploadFile stores the local file at path under a fresh key and returns its
// public location. The local file is removed whether or not the upload succeeds.
func (s *S3Store) UploadFile(ctx context.Context, path string, kind Kind) (asset Asset, err error) {
	ctx, span := logging.StartSpan(ctx, "media.UploadFile")
	logger := logging.FromContext(ctx)
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logger.Warn("remove local upload", "path", path, "error", rmErr)
		}
		s.observe("upload", err)
		span.Fail(err)
		span.End()
	}()

	file, err := os.Open(path)
	if err != nil {
		return Asset{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Asset{}, fmt.Errorf("stat upload: %w", err)
	}

	if kind == KindVideo && s.prober != nil {
		duration, probeErr := s.prober.Probe(ctx, path)
		if probeErr != nil {
			logger.Warn("probe video duration", "path", path, "error", probeErr)
		}
		asset.Duration = duration
	}

	ext := strings.ToLower(filepath.Ext(path))
	key := fmt.Sprintf("%ss/%s%s", kind, uuid.NewString(), ext)
	contentType := videoContentTypes[ext]
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return Asset{}, fmt.Errorf("s3 store upload %s: %w", key, err)
	}

	asset.Key = key
	asset.Size = info.Size()
	asset.URL = s.locationFor(key)
	return asset, nil
}

// Delete removes the object behind a location previously returned by
// UploadFile. Empty locations are ignored.
func (s *S3Store) Delete(ctx context.Context, location string) (err error) {
	key := s.keyFor(location)
	if key == "" {
		return nil
	}
	defer func() { s.observe("delete", err) }()

	_, err = s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 store delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) locationFor(key string) string {
	if s.baseURL == "" {
		return key
	}
	return s.baseURL + "/" + key
}

// keyFor recovers the object key from a public location. It accepts
// locations under the configured base URL, path-style bucket URLs and bare keys.
func (s *S3Store) keyFor(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	if s.baseURL != "" && strings.HasPrefix(location, s.baseURL+"/") {
		return strings.TrimPrefix(location, s.baseURL+"/")
	}

	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return strings.TrimLeft(location, "/")
	}
	key := strings.TrimLeft(u.Path, "/")
	return strings.TrimPrefix(key, s.bucket+"/")
}

func (s *S3Store) observe(operation string, err error) {
	if s.recorder == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	s.recorder.ObserveMedia(operation, result)
}
