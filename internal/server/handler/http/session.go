package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/sparkyfit/authority/internal/middleware"
	"github.com/sparkyfit/authority/internal/models"
	"github.com/sparkyfit/authority/internal/service"
)

// SessionDeleter revokes sessions by id.
type SessionDeleter interface {
	Delete(ctx context.Context, sessionID string) error
}

// SessionHandler serves the session-provider endpoints identityd
// exposes for development setups without a separate authentication
// provider.
type SessionHandler struct {
	// IdentityService resolves the session owner's principal.
	IdentityService IdentityService
	// Sessions revokes sessions on sign-out.
	Sessions SessionDeleter
}

// Session handles GET /identity/session.
// It returns the provider-shaped session of the token's owner (the
// authenticated principal, not the active one).
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	p, err := h.IdentityService.Principal(r.Context(), sess.UserID)
	if errors.Is(err, service.ErrPrincipalNotFound) {
		writeError(w, http.StatusUnauthorized, "session owner not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, models.ProviderSession{User: *p})
}

// SignOut handles POST /identity/signout.
// It revokes the session behind the presented token.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	if err := h.Sessions.Delete(r.Context(), sess.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
