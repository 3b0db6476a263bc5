package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/models"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(config.TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    240 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

var testAccount = models.Account{
	ID:       "0b8e5c1e-3f7a-4d2b-9c61-5a4e2f1d0c01",
	Username: "alice",
	Email:    "alice@example.com",
	Fullname: "Alice Example",
}

func TestNewTokenServiceRejectsBadConfig(t *testing.T) {
	tests := []config.TokenConfig{
		{AccessSecret: "", RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		{AccessSecret: "same", RefreshSecret: "same", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		{AccessSecret: "a", RefreshSecret: "r", AccessTTL: 0, RefreshTTL: time.Hour},
	}
	for _, cfg := range tests {
		_, err := NewTokenService(cfg)
		assert.Error(t, err)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, expiresAt, err := svc.IssueAccessToken(testAccount, "session-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, testAccount.ID, claims.AccountID())
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "Alice Example", claims.Fullname)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	first, _, err := svc.IssueRefreshToken(testAccount.ID, "session-1")
	require.NoError(t, err)
	second, _, err := svc.IssueRefreshToken(testAccount.ID, "session-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "tokens issued back to back must differ")

	claims, err := svc.VerifyRefreshToken(first)
	require.NoError(t, err)
	assert.Equal(t, testAccount.ID, claims.Subject)
	assert.Equal(t, "session-1", claims.ID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	svc := newTestTokenService(t)

	access, _, err := svc.IssueAccessToken(testAccount, "session-1")
	require.NoError(t, err)
	refresh, _, err := svc.IssueRefreshToken(testAccount.ID, "session-1")
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService(t)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.IssueAccessToken(testAccount, "session-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now() }
	_, err = svc.VerifyAccessToken(token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestVerifyRejectsForeignSignatures(t *testing.T) {
	svc := newTestTokenService(t)

	claims := AccessClaims{
		SessionID: "session-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testAccount.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("someone-else"))
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyAccessToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
