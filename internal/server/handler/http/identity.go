// Package http provides HTTP handlers for the identity service:
// authoritative identity lookup, accessible-users listing and the
// active-principal context switch.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sparkyfit/authority/internal/middleware"
	"github.com/sparkyfit/authority/internal/models"
	"github.com/sparkyfit/authority/internal/service"
)

// IdentityService defines the interface for identity operations
// required by the HTTP handlers.
type IdentityService interface {
	// Principal fetches a principal by id.
	Principal(ctx context.Context, id string) (*models.Principal, error)
	// AccessibleUsers lists the grants whose grantee is the given
	// principal.
	AccessibleUsers(ctx context.Context, granteeID string) ([]models.Grant, error)
	// SwitchContext changes the session's active principal.
	SwitchContext(ctx context.Context, sess *models.SessionRecord, targetUserID string) (string, error)
}

// IdentityHandler handles HTTP requests for the /identity endpoints.
type IdentityHandler struct {
	// IdentityService performs the underlying identity operations.
	IdentityService IdentityService
}

// writeJSON writes v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error payload shape consumed by clients.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ActiveUser handles GET /identity/user.
// It returns the authoritative identity of the session's active
// principal: the post-session enrichment clients merge into their local
// state.
func (h *IdentityHandler) ActiveUser(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	p, err := h.IdentityService.Principal(r.Context(), sess.ActiveUserID)
	if errors.Is(err, service.ErrPrincipalNotFound) {
		writeError(w, http.StatusNotFound, "active user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"activeUserId":       p.ID,
		"activeUserFullName": p.DisplayName,
		"activeUserEmail":    p.Email,
	})
}

// accessibleUserResponse is the wire shape of one accessible-users
// entry. Permission field names are canonical; legacy aliases are only
// accepted on the way in by clients, never emitted.
type accessibleUserResponse struct {
	UserID        string               `json:"user_id"`
	FullName      string               `json:"full_name"`
	Email         string               `json:"email"`
	Permissions   models.PermissionSet `json:"permissions"`
	AccessEndDate string               `json:"access_end_date,omitempty"`
}

// AccessibleUsers handles GET /identity/users/accessible-users.
// It lists every principal who granted the authenticated principal some
// access, with the grant's permission flags and expiry.
func (h *IdentityHandler) AccessibleUsers(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	grants, err := h.IdentityService.AccessibleUsers(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]accessibleUserResponse, 0, len(grants))
	for _, g := range grants {
		entry := accessibleUserResponse{
			UserID:      g.GrantorPrincipalID,
			FullName:    g.GrantorDisplayName,
			Email:       g.GrantorEmail,
			Permissions: g.Permissions,
		}
		if g.ExpiresAt != nil {
			entry.AccessEndDate = g.ExpiresAt.Format(time.RFC3339)
		}
		resp = append(resp, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SwitchContextRequest represents the JSON payload for a context switch.
type SwitchContextRequest struct {
	// TargetUserID is the principal to act as.
	TargetUserID string `json:"targetUserId"`
}

// SwitchContext handles POST /identity/switch-context.
// The target must be the caller or a principal with a non-expired grant
// to the caller; violations are rejected with 403 and an error payload,
// leaving the session unchanged.
func (h *IdentityHandler) SwitchContext(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	var req SwitchContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	activeID, err := h.IdentityService.SwitchContext(r.Context(), sess, req.TargetUserID)
	switch {
	case errors.Is(err, service.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrDelegationNotGranted),
		errors.Is(err, service.ErrGrantExpired):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"activeUserId": activeID})
}
