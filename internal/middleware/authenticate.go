package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/respond"
)

// AccessCookie is the cookie carrying the access token.
const AccessCookie = "accessToken"

var errMissingCredential = apperr.Unauthorized("unauthorized request")

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

// AccountFinder loads the account named by a verified token.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
}

// Authenticate rejects requests without a valid access token. The token is
// read from the access cookie first and the bearer header second. Accepted
// requests carry the account and session ID on their context.
func Authenticate(tokens AccessVerifier, accounts AccountFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := accessToken(r)
			if token == "" {
				respond.Error(ctx, w, errMissingCredential)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				respond.Error(ctx, w, err)
				return
			}

			account, err := accounts.FindByID(ctx, claims.AccountID())
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					err = auth.ErrInvalidToken
				}
				respond.Error(ctx, w, err)
				return
			}

			ctx = logging.With(ctx, "account_id", account.ID)
			ctx = auth.WithAccount(ctx, account, claims.SessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
