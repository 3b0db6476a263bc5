package handlers

import (
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
)

const refreshCookie = "refreshToken"

// CookieWriter sets and clears the session cookies.
type CookieWriter struct {
	Secure bool
	Domain string
}

// NewCookieWriter builds a CookieWriter from cfg.
func NewCookieWriter(cfg config.CookieConfig) CookieWriter {
	return CookieWriter{Secure: cfg.Secure, Domain: cfg.Domain}
}

func (c CookieWriter) setTokens(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, c.cookie(middleware.AccessCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, c.cookie(refreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (c CookieWriter) clear(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessCookie, refreshCookie} {
		cookie := c.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (c CookieWriter) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
