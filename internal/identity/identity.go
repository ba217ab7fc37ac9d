// Package identity provides cookie-based session identity: registered
// users derived from their email, ephemeral guests, and the fixed local
// user of single-user deployments.
package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
)

const (
	SessionCookieName = "orion_session"
	SessionHeaderName = "X-Orion-Session-ID"

	// LocalUserID is the only identity in single-user mode.
	LocalUserID = "local"

	DefaultSessionIDValue = "default"
	sessionCookieMaxAge   = 30 * 24 * time.Hour
)

type contextKey int

const (
	userKey contextKey = iota
	sessionIDKey
)

var (
	userIDPattern    = regexp.MustCompile(`^(u-[A-Za-z0-9_-]{1,16}|guest-[a-f0-9-]{36}|local)$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// UserFromContext extracts the authenticated user from the request
// context. Returns nil for unauthenticated requests.
func UserFromContext(ctx context.Context) *domain.UserSession {
	if v, ok := ctx.Value(userKey).(*domain.UserSession); ok {
		return v
	}
	return nil
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// DeriveUserID maps an email to a stable user ID, so the same account
// always lands on the same record.
func DeriveUserID(email string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(strings.ToLower(strings.TrimSpace(email))))
	if len(encoded) > 10 {
		encoded = encoded[:10]
	}
	return "u-" + encoded
}

// NewGuestID generates a fresh ephemeral guest identity.
func NewGuestID() string {
	return "guest-" + uuid.NewString()
}

// IsValidUserID reports whether id matches one of the accepted identity
// shapes. Cookie values that fail this are ignored.
func IsValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

// Login resolves an email to its user record, creating it on first
// login and refreshing last-seen on return visits.
func Login(ctx context.Context, repo store.Repository, email, name string) (*domain.UserSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("login: invalid email")
	}

	userID := DeriveUserID(email)
	existing, err := repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	now := time.Now()
	user := &domain.UserSession{
		UserID:     userID,
		Name:       strings.TrimSpace(name),
		Email:      email,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		user.CreatedAt = existing.CreatedAt
		if user.Name == "" {
			user.Name = existing.Name
		}
	}
	if user.Name == "" {
		user.Name = strings.SplitN(email, "@", 2)[0]
	}

	if err := repo.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return user, nil
}

// StartGuest creates a fresh guest record. Guests get no persistent
// memory and are swept once idle past their TTL.
func StartGuest(ctx context.Context, repo store.Repository) (*domain.UserSession, error) {
	now := time.Now()
	guest := &domain.UserSession{
		UserID:     NewGuestID(),
		Name:       "Visitante",
		IsGuest:    true,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.UpsertUser(ctx, guest); err != nil {
		return nil, fmt.Errorf("start guest: %w", err)
	}
	return guest, nil
}

// ensureLocalUser creates the single-user identity on first use.
func ensureLocalUser(ctx context.Context, repo store.Repository) (*domain.UserSession, error) {
	user, err := repo.GetUser(ctx, LocalUserID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	now := time.Now()
	user = &domain.UserSession{
		UserID:     LocalUserID,
		Name:       "Operador",
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetSessionCookie binds the browser to a user identity.
func SetSessionCookie(w http.ResponseWriter, userID string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    userID,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// ClearSessionCookie removes the identity cookie on logout.
func ClearSessionCookie(w http.ResponseWriter, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware resolves the request identity. In single-user mode every
// request runs as the local user; otherwise the session cookie decides,
// and requests without a valid one proceed unauthenticated so the login
// endpoints stay reachable.
func Middleware(repo store.Repository, singleUser bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), sessionIDKey, sessionIDFromRequest(r))

			if singleUser {
				user, err := ensureLocalUser(ctx, repo)
				if err != nil {
					http.Error(w, `{"error":"failed to initialize local user"}`, http.StatusInternalServerError)
					return
				}
				ctx = context.WithValue(ctx, userKey, user)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if c, err := r.Cookie(SessionCookieName); err == nil && IsValidUserID(c.Value) {
				user, err := repo.GetUser(ctx, c.Value)
				if err != nil {
					http.Error(w, `{"error":"failed to resolve identity"}`, http.StatusInternalServerError)
					return
				}
				if user != nil {
					ctx = context.WithValue(ctx, userKey, user)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
