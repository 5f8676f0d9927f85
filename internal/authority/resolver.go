package authority

import (
	"time"

	"github.com/sparkyfit/authority/internal/models"
)

// CanRead reports whether a session authenticated as authenticatedID and
// acting as activeID may read capability c, given a grant snapshot keyed
// by grantor id. Acting on one's own behalf always grants full
// authority. Otherwise the active principal's grant must authorize c
// directly, with one inheritance rule: a grant authorizing reports also
// authorizes read-only diary and checkin access (not foodList). Absent
// principals, absent grants and expired grants all resolve to false.
func CanRead(authenticatedID, activeID string, grants map[string]models.Grant, c models.Capability, now time.Time) bool {
	if authenticatedID == "" || activeID == "" {
		return false
	}
	if activeID == authenticatedID {
		return true
	}
	g, ok := grants[activeID]
	if !ok || g.Expired(now) {
		return false
	}
	if g.Permissions.Allows(c) {
		return true
	}
	// reports implies read-only access to the diary and check-ins
	if g.Permissions.Reports &&
		(c == models.CapabilityDiary || c == models.CapabilityCheckin) {
		return true
	}
	return false
}

// CanWrite reports whether the session may write capability c. Acting on
// one's own behalf always grants full authority; otherwise only a direct
// grant of c suffices. The reports inheritance never confers write
// access.
func CanWrite(authenticatedID, activeID string, grants map[string]models.Grant, c models.Capability, now time.Time) bool {
	if authenticatedID == "" || activeID == "" {
		return false
	}
	if activeID == authenticatedID {
		return true
	}
	g, ok := grants[activeID]
	if !ok || g.Expired(now) {
		return false
	}
	return g.Permissions.Allows(c)
}
