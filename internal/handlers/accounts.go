package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/respond"
)

var (
	errInvalidCredentials = apperr.Unauthorized("invalid user credentials")
	errAccountTaken       = apperr.Conflict("user with this username or email already exists")
	errEmailTaken         = apperr.Conflict("email is already in use")
	errWrongPassword      = apperr.Validation("invalid old password")
	errMissingRefresh     = apperr.Unauthorized("refresh token is required")
)

// AccountHandler implements the account and session endpoints.
type AccountHandler struct {
	Accounts   AccountStore
	Sessions   SessionManager
	Views      ViewComposer
	Uploads    Uploader
	Cookies    CookieWriter
	BcryptCost int
	NowFunc    func() time.Time
}

type registerRequest struct {
	Username string `form:"username" validate:"required,max=30"`
	Email    string `form:"email" validate:"required,email"`
	Fullname string `form:"fullname" validate:"required,max=100"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

func (req *registerRequest) normalize() {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Fullname = strings.TrimSpace(req.Fullname)
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

func (req *loginRequest) normalize() {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
}

type loginResponse struct {
	Account      models.Account `json:"account"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type updateAccountRequest struct {
	Fullname string `json:"fullname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

func (req *updateAccountRequest) normalize() {
	req.Fullname = strings.TrimSpace(req.Fullname)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
}

// Register handles POST /api/v1/users/register.
func (h AccountHandler) Register(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	cleanup, err := h.Uploads.parseForm(w, r)
	defer cleanup()
	if err != nil {
		return err
	}

	req := registerRequest{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Fullname: r.FormValue("fullname"),
		Password: r.FormValue("password"),
	}
	if err := check(&req); err != nil {
		return err
	}

	if _, err := h.Accounts.FindByLogin(ctx, req.Username, req.Email); err == nil {
		logger.Warn("register existing account", "username", req.Username)
		return errAccountTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	avatar, err := h.Uploads.upload(ctx, r, "avatar", media.KindImage, true)
	if err != nil {
		return err
	}
	cover, err := h.Uploads.upload(ctx, r, "coverimage", media.KindImage, false)
	if err != nil {
		h.Uploads.discard(ctx, avatar)
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost())
	if err != nil {
		h.Uploads.discard(ctx, avatar, cover)
		return apperr.Internal(err)
	}

	now := h.now()
	account := models.Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		Fullname:     req.Fullname,
		Avatar:       avatar.URL,
		CoverImage:   cover.URL,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Accounts.Create(ctx, account); err != nil {
		h.Uploads.discard(ctx, avatar, cover)
		if errors.Is(err, repositories.ErrConflict) {
			return errAccountTaken
		}
		return err
	}

	logger.Info("account registered", "account_id", account.ID)
	respond.Success(ctx, w, http.StatusCreated, account, "user registered successfully")
	return nil
}

// Login handles POST /api/v1/users/login. Unknown accounts and wrong
// passwords are indistinguishable to the caller.
func (h AccountHandler) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Username == "" && req.Email == "" {
		return apperr.Validation("username or email is required")
	}

	account, err := h.Accounts.FindByLogin(ctx, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("login unknown account", "username", req.Username, "email", req.Email)
			return errInvalidCredentials
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "account_id", account.ID)
		return errInvalidCredentials
	}

	tokens, err := h.Sessions.Issue(ctx, account)
	if err != nil {
		return err
	}

	h.Cookies.setTokens(w, tokens)
	respond.Success(ctx, w, http.StatusOK, loginResponse{
		Account:      account,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
	return nil
}

// Logout handles POST /api/v1/users/logout.
func (h AccountHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if _, err := currentAccount(r); err != nil {
		return err
	}

	if err := h.Sessions.Revoke(ctx, auth.SessionIDFromContext(ctx)); err != nil {
		return err
	}

	h.Cookies.clear(w)
	respond.Success(ctx, w, http.StatusOK, struct{}{}, "user logged out")
	return nil
}

// RefreshToken handles POST /api/v1/users/refresh-token. The token is read
// from the refresh cookie, falling back to the JSON body.
func (h AccountHandler) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return apperr.Wrap(err, apperr.KindValidation, errInvalidBody.Message)
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		return errMissingRefresh
	}

	tokens, err := h.Sessions.Rotate(ctx, token)
	if err != nil {
		return err
	}

	h.Cookies.setTokens(w, tokens)
	respond.Success(ctx, w, http.StatusOK, tokens, "access token refreshed")
	return nil
}

// ChangePassword handles PATCH /api/v1/users/change-password. Every other
// session of the account is signed out.
func (h AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.OldPassword)); err != nil {
		return errWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.cost())
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Accounts.UpdatePassword(ctx, account.ID, string(hashed)); err != nil {
		return err
	}
	if err := h.Sessions.RevokeOthers(ctx, account.ID, auth.SessionIDFromContext(ctx)); err != nil {
		return err
	}

	respond.Success(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
	return nil
}

// CurrentUser handles GET /api/v1/users/get-user.
func (h AccountHandler) CurrentUser(w http.ResponseWriter, r *http.Request) error {
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, account, "current user fetched successfully")
	return nil
}

// UpdateAccount handles PATCH /api/v1/users/update-user.
func (h AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	updated, err := h.Accounts.UpdateDetails(ctx, account.ID, req.Fullname, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return errEmailTaken
		}
		return err
	}

	respond.Success(ctx, w, http.StatusOK, updated, "account details updated successfully")
	return nil
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.replaceImage(w, r, "avatar", func(account models.Account) string { return account.Avatar }, h.Accounts.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/coverimage.
func (h AccountHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.replaceImage(w, r, "coverimage", func(account models.Account) string { return account.CoverImage }, h.Accounts.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, id, url string) (models.Account, error)

func (h AccountHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, current func(models.Account) string, update imageUpdater) error {
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

	asset, err := h.Uploads.upload(ctx, r, field, media.KindImage, true)
	if err != nil {
		return err
	}

	updated, err := update(ctx, account.ID, asset.URL)
	if err != nil {
		h.Uploads.discard(ctx, asset)
		return err
	}
	h.Uploads.release(ctx, current(account))

	respond.Success(ctx, w, http.StatusOK, updated, field+" updated successfully")
	return nil
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h AccountHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) error {
	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		return apperr.Validation("username is required")
	}

	profile, err := h.Views.ChannelProfile(r.Context(), username, viewerID(r))
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, profile, "channel fetched successfully")
	return nil
}

// WatchHistory handles GET /api/v1/users/watchHistory.
func (h AccountHandler) WatchHistory(w http.ResponseWriter, r *http.Request) error {
	account, err := currentAccount(r)
	if err != nil {
		return err
	}

	history, err := h.Views.WatchHistory(r.Context(), account.ID)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, history, "watch history fetched successfully")
	return nil
}

func (h AccountHandler) now() time.Time {
	return timeNow(h.NowFunc)
}

func (h AccountHandler) cost() int {
	if h.BcryptCost < bcrypt.MinCost || h.BcryptCost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return h.BcryptCost
}
