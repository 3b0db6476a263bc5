package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/models"
)

func TestRegisterLoginPublishLikeAndWatch(t *testing.T) {
	srv := newTestServer(t)

	register := multipartRequest(t, http.MethodPost, "/api/v1/users/register",
		map[string]string{"username": "  Alice ", "email": "Alice@Example.com", "fullname": "Alice Liddell", "password": "supersafe1"},
		map[string]string{"avatar": "me.png"})
	var registered models.Account
	decodeEnvelope(t, srv.do(register, ""), http.StatusCreated, &registered)
	if registered.Username != "alice" || registered.Email != "alice@example.com" {
		t.Fatalf("expected normalized account, got %+v", registered)
	}
	if registered.Avatar == "" {
		t.Fatal("expected avatar url")
	}
	stored := srv.accounts.byID[registered.ID]
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersafe1")) != nil {
		t.Fatal("stored password is not hashed")
	}

	loginRec := srv.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{"email": "alice@example.com", "password": "supersafe1"}), "")
	var login loginResponse
	decodeEnvelope(t, loginRec, http.StatusOK, &login)
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", login)
	}
	cookies := map[string]*http.Cookie{}
	for _, cookie := range loginRec.Result().Cookies() {
		cookies[cookie.Name] = cookie
	}
	access, ok := cookies["accessToken"]
	if !ok || !access.HttpOnly || access.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected http-only access cookie, got %+v", access)
	}
	if _, ok := cookies["refreshToken"]; !ok {
		t.Fatal("expected refresh cookie")
	}

	publish := multipartRequest(t, http.MethodPost, "/api/v1/videos",
		map[string]string{"title": "First upload", "description": "hello"},
		map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.png"})
	publish.AddCookie(access)
	var video models.Video
	decodeEnvelope(t, srv.do(publish, ""), http.StatusCreated, &video)
	if video.Duration != 42 || !video.IsPublished || video.OwnerID != registered.ID {
		t.Fatalf("unexpected video %+v", video)
	}

	var like map[string]bool
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, nil), login.AccessToken), http.StatusOK, &like)
	if !like["isLiked"] {
		t.Fatalf("expected like, got %v", like)
	}

	type videoDetail struct {
		Views      int64 `json:"views"`
		TotalLikes int64 `json:"totalLikes"`
		IsLiked    bool  `json:"isLiked"`
	}
	var detail videoDetail
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/videos/"+video.ID, nil), login.AccessToken), http.StatusOK, &detail)
	if detail.Views != 1 || detail.TotalLikes != 1 || !detail.IsLiked {
		t.Fatalf("unexpected detail %+v", detail)
	}

	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, nil), login.AccessToken), http.StatusOK, &like)
	if like["isLiked"] {
		t.Fatalf("expected unlike, got %v", like)
	}

	detail = videoDetail{}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/videos/"+video.ID, nil), login.AccessToken), http.StatusOK, &detail)
	if detail.Views != 2 || detail.TotalLikes != 0 || detail.IsLiked {
		t.Fatalf("unexpected detail after unlike %+v", detail)
	}

	var history []struct {
		ID string `json:"id"`
	}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/users/watchHistory", nil), login.AccessToken), http.StatusOK, &history)
	if len(history) != 1 || history[0].ID != video.ID {
		t.Fatalf("unexpected watch history %+v", history)
	}
}

func TestRegisterRejectsTakenUsernameBeforeUploading(t *testing.T) {
	srv := newTestServer(t)
	srv.seedAccount(t, "alice", "supersafe1")

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register",
		map[string]string{"username": "ALICE", "email": "other@example.com", "fullname": "Other", "password": "supersafe1"},
		map[string]string{"avatar": "me.png"})
	env := decodeEnvelope(t, srv.do(req, ""), http.StatusConflict, nil)
	if env.Success {
		t.Fatal("expected failure envelope")
	}
	if len(srv.media.uploads) != 0 {
		t.Fatalf("expected no uploads, got %v", srv.media.uploads)
	}
}

func TestRegisterDiscardsUploadsWhenCreateFails(t *testing.T) {
	srv := newTestServer(t)
	srv.accounts.createErr = errors.New("connection reset")

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register",
		map[string]string{"username": "bob", "email": "bob@example.com", "fullname": "Bob", "password": "supersafe1"},
		map[string]string{"avatar": "me.png", "coverimage": "cover.png"})
	env := decodeEnvelope(t, srv.do(req, ""), http.StatusInternalServerError, nil)
	if env.Message != "internal server error" {
		t.Fatalf("expected generic message, got %q", env.Message)
	}
	if len(srv.cleaner.released) != 2 {
		t.Fatalf("expected both uploads to be released, got %v", srv.cleaner.released)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := map[string]struct {
		fields map[string]string
		files  map[string]string
		want   string
	}{
		"short password": {
			fields: map[string]string{"username": "bob", "email": "bob@example.com", "fullname": "Bob", "password": "short"},
			files:  map[string]string{"avatar": "me.png"},
			want:   "password must be at least 8 characters",
		},
		"bad email": {
			fields: map[string]string{"username": "bob", "email": "not-an-email", "fullname": "Bob", "password": "supersafe1"},
			files:  map[string]string{"avatar": "me.png"},
			want:   "email must be a valid email address",
		},
		"blank fullname": {
			fields: map[string]string{"username": "bob", "email": "bob@example.com", "fullname": "   ", "password": "supersafe1"},
			files:  map[string]string{"avatar": "me.png"},
			want:   "fullname is required",
		},
		"missing avatar": {
			fields: map[string]string{"username": "bob", "email": "bob@example.com", "fullname": "Bob", "password": "supersafe1"},
			want:   "avatar file is required",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", tc.fields, tc.files)
			env := decodeEnvelope(t, srv.do(req, ""), http.StatusBadRequest, nil)
			if env.Message != tc.want {
				t.Fatalf("expected %q got %q", tc.want, env.Message)
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	srv.seedAccount(t, "alice", "supersafe1")

	for name, body := range map[string]map[string]string{
		"unknown user":   {"username": "mallory", "password": "supersafe1"},
		"wrong password": {"username": "alice", "password": "incorrect"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := srv.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", body), "")
			env := decodeEnvelope(t, rec, http.StatusUnauthorized, nil)
			if env.Message != errInvalidCredentials.Message {
				t.Fatalf("unexpected message %q", env.Message)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Fatal("expected no cookies on failed login")
			}
		})
	}
}

func TestRefreshTokenRotatesAndDetectsReuse(t *testing.T) {
	srv := newTestServer(t)
	srv.seedAccount(t, "alice", "supersafe1")

	var login loginResponse
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "supersafe1"}), ""), http.StatusOK, &login)

	refresh := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", nil)
	refresh.AddCookie(&http.Cookie{Name: refreshCookie, Value: login.RefreshToken})
	var rotated models.SessionTokens
	decodeEnvelope(t, srv.do(refresh, ""), http.StatusOK, &rotated)
	if rotated.RefreshToken == "" || rotated.RefreshToken == login.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}

	replay := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": login.RefreshToken})
	decodeEnvelope(t, srv.do(replay, ""), http.StatusUnauthorized, nil)

	// reuse revokes the session, so the rotated token is dead too
	again := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": rotated.RefreshToken})
	decodeEnvelope(t, srv.do(again, ""), http.StatusUnauthorized, nil)

	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", nil), ""), http.StatusUnauthorized, nil)
}

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t)
	account, token := srv.seedAccount(t, "alice", "supersafe1")

	wrong := jsonRequest(t, http.MethodPatch, "/api/v1/users/change-password", map[string]string{"oldPassword": "nope", "newPassword": "evensafer2"})
	env := decodeEnvelope(t, srv.do(wrong, token), http.StatusBadRequest, nil)
	if env.Message != errWrongPassword.Message {
		t.Fatalf("unexpected message %q", env.Message)
	}

	ok := jsonRequest(t, http.MethodPatch, "/api/v1/users/change-password", map[string]string{"oldPassword": "supersafe1", "newPassword": "evensafer2"})
	decodeEnvelope(t, srv.do(ok, token), http.StatusOK, nil)

	updated, err := srv.accounts.FindByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("evensafer2")) != nil {
		t.Fatal("expected new password to be stored")
	}
}

func TestUpdateAccountConflict(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.seedAccount(t, "alice", "supersafe1")
	srv.seedAccount(t, "bob", "supersafe1")

	req := jsonRequest(t, http.MethodPatch, "/api/v1/users/update-user", map[string]string{"fullname": "Alice", "email": "BOB@example.com"})
	env := decodeEnvelope(t, srv.do(req, token), http.StatusConflict, nil)
	if env.Message != errEmailTaken.Message {
		t.Fatalf("unexpected message %q", env.Message)
	}

	req = jsonRequest(t, http.MethodPatch, "/api/v1/users/update-user", map[string]string{"fullname": " Alice L ", "email": "alice@new.example.com"})
	var updated models.Account
	decodeEnvelope(t, srv.do(req, token), http.StatusOK, &updated)
	if updated.Fullname != "Alice L" || updated.Email != "alice@new.example.com" {
		t.Fatalf("unexpected account %+v", updated)
	}
}

func TestUpdateAvatarReleasesPreviousImage(t *testing.T) {
	srv := newTestServer(t)
	account, token := srv.seedAccount(t, "alice", "supersafe1")
	account.Avatar = "https://cdn.test/images/old"
	srv.accounts.byID[account.ID] = account

	req := multipartRequest(t, http.MethodPatch, "/api/v1/users/avatar", nil, map[string]string{"avatar": "new.png"})
	var updated models.Account
	decodeEnvelope(t, srv.do(req, token), http.StatusOK, &updated)

	if updated.Avatar == account.Avatar || updated.Avatar == "" {
		t.Fatalf("expected new avatar, got %q", updated.Avatar)
	}
	if len(srv.cleaner.released) != 1 || srv.cleaner.released[0] != "https://cdn.test/images/old" {
		t.Fatalf("expected old avatar release, got %v", srv.cleaner.released)
	}
}

func TestCurrentUserAndLogout(t *testing.T) {
	srv := newTestServer(t)
	account, token := srv.seedAccount(t, "alice", "supersafe1")

	var current models.Account
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/users/get-user", nil), token), http.StatusOK, &current)
	if current.ID != account.ID || current.PasswordHash != "" {
		t.Fatalf("unexpected current user %+v", current)
	}

	rec := srv.do(jsonRequest(t, http.MethodPost, "/api/v1/users/logout", nil), token)
	decodeEnvelope(t, rec, http.StatusOK, nil)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Fatalf("expected cleared cookie, got %+v", cookie)
		}
	}
}

func TestProtectedRoutesRequireAuthentication(t *testing.T) {
	srv := newTestServer(t)

	for _, target := range []string{"/api/v1/users/current-user", "/api/v1/videos", "/api/v1/dashboard/stats"} {
		env := decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, target, nil), ""), http.StatusUnauthorized, nil)
		if env.Success {
			t.Fatalf("%s: expected failure envelope", target)
		}
	}
}

func TestAccountRoutePaths(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.seedAccount(t, "alice", "supersafe1")

	req := multipartRequest(t, http.MethodPatch, "/api/v1/users/coverimage", nil, map[string]string{"coverimage": "cover.png"})
	var updated models.Account
	decodeEnvelope(t, srv.do(req, token), http.StatusOK, &updated)
	if updated.CoverImage == "" {
		t.Fatal("expected cover image url")
	}

	var current models.Account
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/users/current-user", nil), token), http.StatusOK, &current)
	if current.CoverImage != updated.CoverImage {
		t.Fatalf("expected cover image %q, got %q", updated.CoverImage, current.CoverImage)
	}

	var history []json.RawMessage
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/users/watchHistory", nil), token), http.StatusOK, &history)
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history))
	}

	change := jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{"oldPassword": "supersafe1", "newPassword": "evensafer2"})
	decodeEnvelope(t, srv.do(change, token), http.StatusOK, nil)
}
