// Package auth provides the HTTP-side session collaborators of the history
// view: where the bearer token comes from and what happens when it expires.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// RequestToken reads the bearer token of an incoming request.
//
// The cookie wins; an Authorization: Bearer header is accepted so API
// clients can mount a view without a browser session.
type RequestToken struct {
	Request *http.Request
	Cookie  string
}

// Token returns the token, or "" when the request carries none.
func (t RequestToken) Token() string {
	if t.Request == nil {
		return ""
	}
	if c, err := t.Request.Cookie(t.Cookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := t.Request.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return ""
}

// LoginRedirect handles session expiry for one HTTP request: it clears the
// token cookie and remembers that the response must redirect to the login page.
type LoginRedirect struct {
	W        http.ResponseWriter
	Cookie   string
	LoginURL string

	mu    sync.Mutex
	fired int
}

// SessionExpired implements history.SessionExpiryHandler.
func (l *LoginRedirect) SessionExpired(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired++
	if l.W != nil {
		http.SetCookie(l.W, &http.Cookie{
			Name:     l.Cookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

// Fired reports how many times SessionExpired ran.
func (l *LoginRedirect) Fired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fired
}

// Redirect sends the login redirect if the session expired. It reports whether it did.
func (l *LoginRedirect) Redirect(w http.ResponseWriter, r *http.Request) bool {
	if l.Fired() == 0 {
		return false
	}
	http.Redirect(w, r, l.LoginURL, http.StatusSeeOther)
	return true
}

// Subject extracts a user identifier from a JWT for log attribution.
//
// The signature is NOT verified; the backend is the authority on the token.
// Returns "" for tokens that are not JWTs.
func Subject(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	if sub, err := claims.GetSubject(); err == nil {
		return sub
	}
	return ""
}

// Fingerprint identifies the owner of a token without keeping the token itself.
// The empty token has the empty fingerprint.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
