package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the refresh token names a session that no longer exists.
	ErrSessionNotFound = apperr.Unauthorized("session not found")
	// ErrRefreshTokenExpired indicates the session outlived its refresh window.
	ErrRefreshTokenExpired = apperr.Unauthorized("refresh token expired")
	// ErrRefreshTokenReused indicates a refresh token that was already rotated away.
	// The session is revoked when this happens.
	ErrRefreshTokenReused = apperr.Unauthorized("refresh token is no longer valid")
)

// SessionStore persists sessions so they can survive process restarts. Only
// the digest of the current refresh token is stored.
type SessionStore interface {
	Create(ctx context.Context, session Session) error
	Find(ctx context.Context, id string) (Session, error)
	// Rotate replaces the session's token digest only if it still equals
	// previousHash, and returns ErrRefreshTokenReused otherwise.
	Rotate(ctx context.Context, id, previousHash string, next Session) error
	Delete(ctx context.Context, id string) error
	DeleteForAccount(ctx context.Context, accountID, keepID string) error
}

// AccountFinder loads the account a session belongs to.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
}

// Session is one signed-in device of an account.
type Session struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RotatedAt time.Time
}

// Manager manages the lifecycle of issued session tokens backed by a persistent store.
type Manager struct {
	tokens   *TokenService
	store    SessionStore
	accounts AccountFinder
	now      func() time.Time
}

// NewManager constructs a Manager that signs tokens with tokens and records sessions in store.
func NewManager(tokens *TokenService, store SessionStore, accounts AccountFinder) *Manager {
	if tokens == nil || store == nil || accounts == nil {
		panic("auth: token service, session store and account finder must not be nil")
	}
	return &Manager{
		tokens:   tokens,
		store:    store,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue opens a new session for the account and returns its first token pair.
func (m *Manager) Issue(ctx context.Context, account models.Account) (models.SessionTokens, error) {
	if account.ID == "" {
		return models.SessionTokens{}, errors.New("account id must be provided")
	}

	sessionID := uuid.NewString()
	tokens, err := m.sign(account, sessionID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	now := m.now()
	if err := m.store.Create(ctx, Session{
		ID:        sessionID,
		AccountID: account.ID,
		TokenHash: HashToken(tokens.RefreshToken),
		ExpiresAt: tokens.RefreshExpiresAt,
		CreatedAt: now,
		RotatedAt: now,
	}); err != nil {
		return models.SessionTokens{}, fmt.Errorf("create session: %w", err)
	}

	return tokens, nil
}

// Rotate exchanges a refresh token for a new pair within the same session.
// The presented token stops working immediately. Presenting an already
// rotated token revokes the whole session.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	logger := logging.FromContext(ctx)

	claims, err := m.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	session, err := m.store.Find(ctx, claims.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if session.AccountID != claims.Subject {
		return models.SessionTokens{}, ErrInvalidToken
	}

	presentedHash := HashToken(refreshToken)
	if session.TokenHash != presentedHash {
		logger.Warn("stale refresh token presented, revoking session", "session_id", session.ID, "account_id", session.AccountID)
		if err := m.store.Delete(ctx, session.ID); err != nil {
			return models.SessionTokens{}, fmt.Errorf("revoke session: %w", err)
		}
		return models.SessionTokens{}, ErrRefreshTokenReused
	}

	if m.now().After(session.ExpiresAt) {
		if err := m.store.Delete(ctx, session.ID); err != nil {
			logger.Warn("failed to delete expired session", "session_id", session.ID, "error", err)
		}
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	account, err := m.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return models.SessionTokens{}, ErrSessionNotFound
		}
		return models.SessionTokens{}, fmt.Errorf("load session account: %w", err)
	}

	tokens, err := m.sign(account, session.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	next := session
	next.TokenHash = HashToken(tokens.RefreshToken)
	next.ExpiresAt = tokens.RefreshExpiresAt
	next.RotatedAt = m.now()
	if err := m.store.Rotate(ctx, session.ID, presentedHash, next); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Revoke ends a single session.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.store.Delete(ctx, sessionID)
}

// RevokeOthers ends every session of the account except keepSessionID.
func (m *Manager) RevokeOthers(ctx context.Context, accountID, keepSessionID string) error {
	return m.store.DeleteForAccount(ctx, accountID, keepSessionID)
}

func (m *Manager) sign(account models.Account, sessionID string) (models.SessionTokens, error) {
	access, accessExp, err := m.tokens.IssueAccessToken(account, sessionID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	refresh, refreshExp, err := m.tokens.IssueRefreshToken(account.ID, sessionID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// HashToken returns the digest under which a refresh token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
