package auth

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

type ctxKey string

const (
	accountKey   ctxKey = "account"
	sessionIDKey ctxKey = "sessionID"
)

// WithAccount stores the authenticated account and its session on the context.
func WithAccount(ctx context.Context, account models.Account, sessionID string) context.Context {
	ctx = context.WithValue(ctx, accountKey, account)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// AccountFromContext returns the account attached by the session middleware.
func AccountFromContext(ctx context.Context) (models.Account, bool) {
	account, ok := ctx.Value(accountKey).(models.Account)
	return account, ok && account.ID != ""
}

// SessionIDFromContext returns the session of the authenticated request.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}
