// Package auth verifies the storefront session that identifies the current
// user. Sessions are issued elsewhere; this package only checks the
// signature and expiry and exposes the user id and email to handlers.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ignite/email-delivery/internal/config"
	"github.com/ignite/email-delivery/internal/domain"
	"github.com/ignite/email-delivery/internal/pkg/httputil"
)

// ErrInvalidSession covers missing, malformed, forged and expired sessions.
var ErrInvalidSession = fmt.Errorf("%w: invalid session", domain.ErrAuth)

// Session represents an authenticated user session
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// Manager signs and verifies HS256 session JWTs.
type Manager struct {
	secret     []byte
	cookieName string
	now        func() time.Time
}

// NewManager creates a session manager from config.
func NewManager(cfg config.AuthConfig) *Manager {
	name := cfg.CookieName
	if name == "" {
		name = "session"
	}
	return &Manager{secret: []byte(cfg.SessionSecret), cookieName: name, now: time.Now}
}

// Sign encodes s. Used by the storefront and by tests.
func (m *Manager) Sign(s Session) (string, error) {
	claims := sessionClaims{
		UserID: s.UserID,
		Email:  s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(m.now()),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return tok, nil
}

// Verify parses a token and checks its signature and expiry.
func (m *Manager) Verify(token string) (*Session, error) {
	if len(m.secret) == 0 {
		return nil, fmt.Errorf("%w: no session secret configured", ErrInvalidSession)
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: no user", ErrInvalidSession)
	}
	return &Session{UserID: claims.UserID, Email: claims.Email, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// GetSession returns the session for the current request, or nil if not
// authenticated. The cookie wins over a bearer token.
func (m *Manager) GetSession(r *http.Request) *Session {
	var token string
	if c, err := r.Cookie(m.cookieName); err == nil {
		token = c.Value
	} else if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		return nil
	}
	s, err := m.Verify(token)
	if err != nil {
		return nil
	}
	return s
}

// RequireAuth rejects unauthenticated requests with 401 and stores the
// session on the request context.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.GetSession(r)
		if s == nil {
			httputil.Unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by RequireAuth.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
