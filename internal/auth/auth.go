package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/models"
)

const (
	sessionCookieName = "session"
	sessionDuration   = 24 * time.Hour
)

type ctxKey string

const userCtxKey = ctxKey("currentUser")

// CreateSession persists a new session row and sets the cookie. Session
// lookups hit the database on every request; there is no in-process cache,
// so revoking a session takes effect immediately.
func CreateSession(conn *gorm.DB, w http.ResponseWriter, userID uint) (*models.Session, error) {
	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(sessionDuration),
	}
	if err := conn.Create(&session).Error; err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return &session, nil
}

// ClearSession deletes the session row (if any) and expires the cookie.
func ClearSession(conn *gorm.DB, w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		conn.Delete(&models.Session{}, "token = ?", c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware resolves the session cookie to a user record and stores it in
// the request context. Requests without a valid session pass through
// unauthenticated; RequireAuth decides whether that is acceptable.
func Middleware(conn *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(sessionCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			var session models.Session
			if err := conn.First(&session, "token = ?", c.Value).Error; err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if session.Expired() {
				// lazy cleanup, matched by no background sweeper
				conn.Delete(&models.Session{}, "token = ?", session.Token)
				next.ServeHTTP(w, r)
				return
			}
			var user models.User
			if err := conn.First(&user, session.UserID).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					httpx.JSONError(w, http.StatusInternalServerError, "Failed to resolve session", nil)
					return
				}
				// session refers to a deleted user: drop it
				conn.Delete(&models.Session{}, "token = ?", session.Token)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &user)))
		})
	}
}

// WithUser stores the resolved user in the context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// CurrentUser extracts the resolved user, if any.
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userCtxKey).(*models.User)
	return user, ok && user != nil
}

// RequireAuth rejects requests without a resolved session user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "Not authenticated", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests unless the session user holds the ADMIN role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "Not authenticated", nil)
			return
		}
		if !user.IsAdmin() {
			httpx.JSONError(w, http.StatusForbidden, "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
