package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/views"
)

type memAccounts struct {
	byID      map[string]models.Account
	createErr error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: make(map[string]models.Account)}
}

func (s *memAccounts) Create(_ context.Context, account models.Account) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.byID {
		if existing.Username == account.Username || existing.Email == account.Email {
			return repositories.ErrConflict
		}
	}
	s.byID[account.ID] = account
	return nil
}

func (s *memAccounts) FindByID(_ context.Context, id string) (models.Account, error) {
	account, ok := s.byID[id]
	if !ok {
		return models.Account{}, repositories.ErrNotFound
	}
	return account, nil
}

func (s *memAccounts) FindByLogin(_ context.Context, username, email string) (models.Account, error) {
	for _, account := range s.byID {
		if (username != "" && account.Username == username) || (email != "" && account.Email == email) {
			return account, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s *memAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	account, ok := s.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	account.PasswordHash = passwordHash
	s.byID[id] = account
	return nil
}

func (s *memAccounts) UpdateDetails(_ context.Context, id, fullname, email string) (models.Account, error) {
	for otherID, other := range s.byID {
		if otherID != id && other.Email == email {
			return models.Account{}, repositories.ErrConflict
		}
	}
	account := s.byID[id]
	account.Fullname, account.Email = fullname, email
	s.byID[id] = account
	return account, nil
}

func (s *memAccounts) UpdateAvatar(_ context.Context, id, url string) (models.Account, error) {
	account := s.byID[id]
	account.Avatar = url
	s.byID[id] = account
	return account, nil
}

func (s *memAccounts) UpdateCoverImage(_ context.Context, id, url string) (models.Account, error) {
	account := s.byID[id]
	account.CoverImage = url
	s.byID[id] = account
	return account, nil
}

type memVideos struct {
	byID    map[string]models.Video
	history map[string][]string
}

func (s *memVideos) Create(_ context.Context, video models.Video) error {
	s.byID[video.ID] = video
	return nil
}

func (s *memVideos) owned(id, ownerID string) (models.Video, error) {
	video, ok := s.byID[id]
	if !ok || video.OwnerID != ownerID {
		return models.Video{}, repositories.ErrNotFoundOrUnauthorized
	}
	return video, nil
}

func (s *memVideos) Update(_ context.Context, id, ownerID string, update models.VideoUpdate) (models.Video, string, error) {
	video, err := s.owned(id, ownerID)
	if err != nil {
		return models.Video{}, "", err
	}
	replaced := ""
	if update.Title != nil {
		video.Title = *update.Title
	}
	if update.Description != nil {
		video.Description = *update.Description
	}
	if update.Thumbnail != nil {
		replaced, video.Thumbnail = video.Thumbnail, *update.Thumbnail
	}
	s.byID[id] = video
	return video, replaced, nil
}

func (s *memVideos) TogglePublish(_ context.Context, id, ownerID string) (models.Video, error) {
	video, err := s.owned(id, ownerID)
	if err != nil {
		return models.Video{}, err
	}
	video.IsPublished = !video.IsPublished
	s.byID[id] = video
	return video, nil
}

func (s *memVideos) Delete(_ context.Context, id, ownerID string) (models.Video, error) {
	video, err := s.owned(id, ownerID)
	if err != nil {
		return models.Video{}, err
	}
	delete(s.byID, id)
	return video, nil
}

func (s *memVideos) RecordView(_ context.Context, id, viewerID string) error {
	video, ok := s.byID[id]
	if !ok || (!video.IsPublished && video.OwnerID != viewerID) {
		return repositories.ErrNotFound
	}
	video.Views++
	s.byID[id] = video
	if viewerID != "" {
		watched := []string{id}
		for _, seen := range s.history[viewerID] {
			if seen != id {
				watched = append(watched, seen)
			}
		}
		s.history[viewerID] = watched
	}
	return nil
}

// memContent backs both comments and tweets, keyed by ID.
type memContent struct {
	owners   map[string]string
	contents map[string]string
	videos   *memVideos
}

func newMemContent(videos *memVideos) *memContent {
	return &memContent{owners: make(map[string]string), contents: make(map[string]string), videos: videos}
}

func (s *memContent) put(id, ownerID, content string) {
	s.owners[id] = ownerID
	s.contents[id] = content
}

func (s *memContent) update(id, ownerID, content string) error {
	if s.owners[id] != ownerID || ownerID == "" {
		return repositories.ErrNotFoundOrUnauthorized
	}
	s.contents[id] = content
	return nil
}

func (s *memContent) remove(id, ownerID string) error {
	if s.owners[id] != ownerID || ownerID == "" {
		return repositories.ErrNotFoundOrUnauthorized
	}
	delete(s.owners, id)
	delete(s.contents, id)
	return nil
}

type memComments struct{ *memContent }

func (s memComments) Create(_ context.Context, comment models.Comment) error {
	if _, ok := s.videos.byID[comment.VideoID]; !ok {
		return repositories.ErrNotFound
	}
	s.put(comment.ID, comment.OwnerID, comment.Content)
	return nil
}

func (s memComments) Update(_ context.Context, id, ownerID, content string) (models.Comment, error) {
	if err := s.update(id, ownerID, content); err != nil {
		return models.Comment{}, err
	}
	return models.Comment{ID: id, OwnerID: ownerID, Content: content}, nil
}

func (s memComments) Delete(_ context.Context, id, ownerID string) error {
	return s.remove(id, ownerID)
}

type memTweets struct{ *memContent }

func (s memTweets) Create(_ context.Context, tweet models.Tweet) error {
	s.put(tweet.ID, tweet.OwnerID, tweet.Content)
	return nil
}

func (s memTweets) Update(_ context.Context, id, ownerID, content string) (models.Tweet, error) {
	if err := s.update(id, ownerID, content); err != nil {
		return models.Tweet{}, err
	}
	return models.Tweet{ID: id, OwnerID: ownerID, Content: content}, nil
}

func (s memTweets) Delete(_ context.Context, id, ownerID string) error {
	return s.remove(id, ownerID)
}

type memLikes struct {
	liked map[string]bool
}

func likeKey(accountID string, target models.LikeTarget) string {
	return fmt.Sprintf("%s/%s/%s", accountID, target.Kind, target.ID)
}

func (s *memLikes) Toggle(_ context.Context, accountID string, target models.LikeTarget) (bool, error) {
	key := likeKey(accountID, target)
	s.liked[key] = !s.liked[key]
	return s.liked[key], nil
}

func (s *memLikes) count(target models.LikeTarget) int64 {
	var n int64
	suffix := fmt.Sprintf("/%s/%s", target.Kind, target.ID)
	for key, liked := range s.liked {
		if liked && strings.HasSuffix(key, suffix) {
			n++
		}
	}
	return n
}

type subscriptionsStub struct {
	calls int
	err   error
}

func (s *subscriptionsStub) Toggle(context.Context, string, string) (bool, error) {
	s.calls++
	return s.err == nil, s.err
}

type playlistsStub struct {
	created models.Playlist
	err     error
}

func (s *playlistsStub) Create(_ context.Context, playlist models.Playlist) error {
	s.created = playlist
	return s.err
}

func (s *playlistsStub) Update(context.Context, string, string, string, string) (models.Playlist, error) {
	return models.Playlist{}, s.err
}

func (s *playlistsStub) Delete(context.Context, string, string) error { return s.err }

func (s *playlistsStub) AddVideo(context.Context, string, string, string) error { return s.err }

func (s *playlistsStub) RemoveVideo(context.Context, string, string, string) error { return s.err }

// viewsStub answers the read models the tests exercise from the in-memory
// stores. Other methods panic through the nil embedded interface.
type viewsStub struct {
	ViewComposer
	accounts *memAccounts
	videos   *memVideos
	likes    *memLikes
}

func (v viewsStub) VideoDetail(_ context.Context, videoID, viewerID string) (views.VideoDetail, error) {
	video, ok := v.videos.byID[videoID]
	if !ok {
		return views.VideoDetail{}, views.ErrVideoNotFound
	}
	owner := v.accounts.byID[video.OwnerID]
	target := models.LikeTarget{Kind: models.LikeVideo, ID: videoID}
	return views.VideoDetail{
		ID:         video.ID,
		Title:      video.Title,
		Views:      video.Views,
		Duration:   video.Duration,
		TotalLikes: v.likes.count(target),
		IsLiked:    v.likes.liked[likeKey(viewerID, target)],
		Owner:      views.Owner{ID: owner.ID, Username: owner.Username},
	}, nil
}

func (v viewsStub) WatchHistory(_ context.Context, accountID string) ([]views.VideoSummary, error) {
	watched := []views.VideoSummary{}
	for _, id := range v.videos.history[accountID] {
		video := v.videos.byID[id]
		watched = append(watched, views.VideoSummary{ID: video.ID, Title: video.Title, Views: video.Views})
	}
	return watched, nil
}

type fakeMedia struct {
	uploads []media.Kind
	err     error
}

func (m *fakeMedia) UploadFile(_ context.Context, path string, kind media.Kind) (media.Asset, error) {
	defer os.Remove(path)
	if m.err != nil {
		return media.Asset{}, m.err
	}
	m.uploads = append(m.uploads, kind)
	asset := media.Asset{
		URL: fmt.Sprintf("https://cdn.test/%ss/%d", kind, len(m.uploads)),
		Key: fmt.Sprintf("%ss/%d", kind, len(m.uploads)),
	}
	if kind == media.KindVideo {
		asset.Duration = 42
	}
	return asset, nil
}

type fakeCleaner struct {
	released []string
}

func (c *fakeCleaner) Enqueue(_ context.Context, locations ...string) error {
	for _, location := range locations {
		if location != "" {
			c.released = append(c.released, location)
		}
	}
	return nil
}

type testServer struct {
	router        http.Handler
	accounts      *memAccounts
	videos        *memVideos
	likes         *memLikes
	content       *memContent
	subscriptions *subscriptionsStub
	playlists     *playlistsStub
	media         *fakeMedia
	cleaner       *fakeCleaner
	tokens        *auth.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenService(config.TokenConfig{
		AccessSecret:  "test-access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "test-refresh-secret",
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	videos := &memVideos{byID: make(map[string]models.Video), history: make(map[string][]string)}
	s := &testServer{
		accounts:      newMemAccounts(),
		videos:        videos,
		content:       newMemContent(videos),
		likes:         &memLikes{liked: make(map[string]bool)},
		subscriptions: &subscriptionsStub{},
		playlists:     &playlistsStub{},
		media:         &fakeMedia{},
		cleaner:       &fakeCleaner{},
		tokens:        tokens,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Dependencies{
		Accounts:      s.accounts,
		Sessions:      auth.NewManager(tokens, auth.NewInMemorySessionStore(), s.accounts),
		Videos:        s.videos,
		Comments:      memComments{s.content},
		Tweets:        memTweets{s.content},
		Likes:         s.likes,
		Subscriptions: s.subscriptions,
		Playlists:     s.playlists,
		Views:         viewsStub{accounts: s.accounts, videos: s.videos, likes: s.likes},
		Tokens:        tokens,
		AccountByID:   s.accounts,
		Uploads:       Uploader{Media: s.media, Cleaner: s.cleaner, Dir: t.TempDir(), MaxBytes: 1 << 20},
		BcryptCost:    bcrypt.MinCost,
	})
	s.router = router
	return s
}

// seedAccount stores an account with the given password and returns a valid
// access token for it.
func (s *testServer) seedAccount(t *testing.T, username, password string) (models.Account, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	account := models.Account{
		ID:           fmt.Sprintf("00000000-0000-4000-8000-%012d", len(s.accounts.byID)+1),
		Username:     username,
		Email:        username + "@example.com",
		Fullname:     strings.ToUpper(username),
		PasswordHash: string(hash),
	}
	s.accounts.byID[account.ID] = account

	token, _, err := s.tokens.IssueAccessToken(account, "seed-session")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return account, token
}

func (s *testServer) do(req *http.Request, accessToken string) *httptest.ResponseRecorder {
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, filename := range files {
		part, err := writer.CreateFormFile(name, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("contents of " + filename)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, data any) envelope {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("expected status %d got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}
