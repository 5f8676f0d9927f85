// Package middleware provides HTTP middlewares for session
// authentication and request logging.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sparkyfit/authority/internal/models"
	"github.com/sparkyfit/authority/internal/service"
)

type ctxKey string

const sessionKey ctxKey = "session"

// SessionAuthenticator resolves an opaque bearer token to a live
// session.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.SessionRecord, error)
}

// SessionAuth is a middleware that enforces opaque-token session
// authentication.
//
// It extracts the bearer token from the Authorization header, resolves
// it through the authenticator and stores the resulting session record
// in the request context for downstream handlers. Requests without a
// valid live session are rejected with 401.
func SessionAuth(auth SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				http.Error(w, "authorization required", http.StatusUnauthorized)
				return
			}

			sess, err := auth.Authenticate(r.Context(), token)
			if errors.Is(err, service.ErrSessionNotFound) {
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(SessionToContext(r.Context(), sess)))
		})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return ""
}

// SessionToContext returns a copy of ctx carrying the session record.
func SessionToContext(ctx context.Context, s *models.SessionRecord) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// GetSessionFromContext extracts the session record stored by
// SessionAuth. Returns nil if not found.
func GetSessionFromContext(ctx context.Context) *models.SessionRecord {
	if s, ok := ctx.Value(sessionKey).(*models.SessionRecord); ok {
		return s
	}
	return nil
}
