// Package authority implements the identity and delegated-access engine:
// a local mirror of the externally issued session, the signed-in state
// machine, the delegation directory, the active-principal context switch
// and the permission resolver queried by every feature before each read
// or write.
package authority

import (
	"context"
	"time"

	"github.com/sparkyfit/authority/internal/models"
)

// SessionProvider is the external authentication provider as seen by the
// engine. Token issuance, MFA and passkey ceremonies all live behind it.
type SessionProvider interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*models.ProviderSession, error)
	// SignOut revokes the provider-side session.
	SignOut(ctx context.Context) error
}

// ActiveIdentity is the authoritative post-session enrichment returned
// by the backend identity service.
type ActiveIdentity struct {
	// ActiveUserID is the principal the session currently acts as.
	ActiveUserID string
	// ActiveUserFullName is that principal's display name.
	ActiveUserFullName string
	// ActiveUserEmail is that principal's email address.
	ActiveUserEmail string
}

// AccessibleUser is one raw entry of the accessible-users listing:
// a principal who granted the authenticated principal some access.
// Permissions carries whatever flag names the backend emitted; the
// delegation directory canonicalizes them.
type AccessibleUser struct {
	// UserID is the grantor principal's id.
	UserID string
	// FullName is the grantor's display name.
	FullName string
	// Email is the grantor's email address.
	Email string
	// Permissions maps raw (canonical or legacy) flag names to values.
	Permissions map[string]bool
	// AccessEndDate is the grant expiry; nil means no expiry.
	AccessEndDate *time.Time
}

// IdentityAPI is the backend identity service as consumed by the engine.
type IdentityAPI interface {
	// ActiveIdentity fetches the authoritative active-principal identity.
	ActiveIdentity(ctx context.Context) (*ActiveIdentity, error)
	// AccessibleUsers lists the principals who granted the authenticated
	// principal access, with raw permission flags.
	AccessibleUsers(ctx context.Context) ([]AccessibleUser, error)
	// SwitchContext asks the server to change the session's active
	// principal. It returns the active principal id confirmed by the
	// server, which may be empty when the response omits one.
	SwitchContext(ctx context.Context, targetUserID string) (string, error)
}
