// Package models defines the core data structures for principals,
// sessions and delegated-access grants.
package models

import "time"

// Principal represents a real account known to the identity service.
// Principals are created externally on signup; this engine never mutates them.
type Principal struct {
	// ID is the unique identifier for the principal.
	ID string `json:"id"`
	// Email is the account email address.
	Email string `json:"email"`
	// DisplayName is the human-readable name shown in the UI.
	DisplayName string `json:"name"`
	// Role is the account role assigned by the identity service.
	Role string `json:"role"`
	// TwoFactorEnabled reports whether TOTP two-factor auth is enabled.
	TwoFactorEnabled bool `json:"twoFactorEnabled"`
	// MFAEmailEnabled reports whether email-based MFA is enabled.
	MFAEmailEnabled bool `json:"mfaEmailEnabled"`
}

// ProviderSession is the session shape reported by the external
// authentication provider on each authoritative re-poll.
type ProviderSession struct {
	// User is the principal that holds valid credentials for the session.
	User Principal `json:"user"`
}

// AuthoritySession is the local view of the current authenticated session.
// ActivePrincipalID equals AuthenticatedPrincipalID unless a delegation
// context switch is in effect.
type AuthoritySession struct {
	// AuthenticatedPrincipalID is the principal holding valid credentials.
	AuthenticatedPrincipalID string
	// ActivePrincipalID is the principal whose data is currently in scope.
	ActivePrincipalID string
	// DisplayName is the display name of the active principal.
	DisplayName string
	// IsSyncing is true only between "local state unknown" and the first
	// authoritative resolution.
	IsSyncing bool
}

// Capability identifies one of the fixed access categories a grant
// may authorize.
type Capability string

const (
	// CapabilityDiary covers the food and nutrition diary.
	CapabilityDiary Capability = "diary"
	// CapabilityCheckin covers weight and measurement check-ins.
	CapabilityCheckin Capability = "checkin"
	// CapabilityReports covers progress reports.
	CapabilityReports Capability = "reports"
	// CapabilityFoodList covers the custom food library.
	CapabilityFoodList Capability = "foodList"
)

// Capabilities lists every valid capability.
var Capabilities = []Capability{
	CapabilityDiary,
	CapabilityCheckin,
	CapabilityReports,
	CapabilityFoodList,
}

// PermissionSet holds the canonical per-capability flags of a grant.
type PermissionSet struct {
	Diary    bool `json:"diary"`
	Checkin  bool `json:"checkin"`
	Reports  bool `json:"reports"`
	FoodList bool `json:"food_list"`
}

// Allows reports whether the set directly authorizes the capability.
func (p PermissionSet) Allows(c Capability) bool {
	switch c {
	case CapabilityDiary:
		return p.Diary
	case CapabilityCheckin:
		return p.Checkin
	case CapabilityReports:
		return p.Reports
	case CapabilityFoodList:
		return p.FoodList
	}
	return false
}

// Grant represents one principal (the grantor) authorizing another
// (the grantee) to access their data under specific capabilities.
// Grants are created and revoked by an external management flow; the
// engine only reads snapshots.
type Grant struct {
	// GranteePrincipalID is the principal the access was granted to.
	GranteePrincipalID string
	// GrantorPrincipalID is the principal whose data may be accessed.
	GrantorPrincipalID string
	// GrantorDisplayName is the grantor's display name.
	GrantorDisplayName string
	// GrantorEmail is the grantor's email address.
	GrantorEmail string
	// Permissions are the canonical capability flags of the grant.
	Permissions PermissionSet
	// ExpiresAt is the end of the access period; nil means no expiry.
	ExpiresAt *time.Time
}

// Expired reports whether the grant's access period has ended at the
// given instant. Grants without an end date never expire.
func (g Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// SessionRecord is a server-side session row in the identity service.
// Tokens are opaque; the service looks them up, it never verifies
// signatures.
type SessionRecord struct {
	// ID is the unique session identifier.
	ID string
	// Token is the opaque bearer token presented by the client.
	Token string
	// UserID is the authenticated principal's id.
	UserID string
	// ActiveUserID is the principal the session currently acts as.
	ActiveUserID string
	// ExpiresAt is when the session stops being honored.
	ExpiresAt time.Time
}
