package authority

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sparkyfit/authority/internal/models"
)

// capabilityAliases maps every permission flag name the backend has ever
// emitted to its canonical capability. Older and newer payload shapes
// must resolve identically; extend this table when a new alias appears
// instead of special-casing callers.
var capabilityAliases = map[string]models.Capability{
	"diary":          models.CapabilityDiary,
	"calorie":        models.CapabilityDiary,
	"can_view_diary": models.CapabilityDiary,

	"checkin":          models.CapabilityCheckin,
	"can_view_checkin": models.CapabilityCheckin,

	"reports":          models.CapabilityReports,
	"can_view_reports": models.CapabilityReports,

	"food_list":          models.CapabilityFoodList,
	"foodList":           models.CapabilityFoodList,
	"can_view_food_list": models.CapabilityFoodList,
}

// CanonicalPermissions normalizes a raw permission flag map into the
// canonical set. A capability is granted when any of its aliases is
// true; false or unknown flags never revoke what another alias granted.
func CanonicalPermissions(raw map[string]bool) models.PermissionSet {
	var set models.PermissionSet
	for field, granted := range raw {
		if !granted {
			continue
		}
		switch capabilityAliases[field] {
		case models.CapabilityDiary:
			set.Diary = true
		case models.CapabilityCheckin:
			set.Checkin = true
		case models.CapabilityReports:
			set.Reports = true
		case models.CapabilityFoodList:
			set.FoodList = true
		}
	}
	return set
}

// DelegationDirectory caches the set of principals who granted the
// authenticated principal some access. The cache is replaced wholesale
// on every successful refresh; a failed fetch keeps the last-known
// snapshot, since a stale permission set is safer than none.
type DelegationDirectory struct {
	api IdentityAPI
	log *zap.Logger

	mu     sync.Mutex
	grants map[string]models.Grant // keyed by grantor principal id
}

// NewDelegationDirectory constructs an empty directory backed by api.
func NewDelegationDirectory(api IdentityAPI, log *zap.Logger) *DelegationDirectory {
	if log == nil {
		log = zap.NewNop()
	}
	return &DelegationDirectory{
		api:    api,
		log:    log,
		grants: map[string]models.Grant{},
	}
}

// Refresh fetches the grant list for the authenticated principal and
// replaces the cached set wholesale, canonicalizing legacy permission
// aliases on the way in. An empty authenticatedID (not signed in) is a
// no-op. Fetch errors are logged and leave the previous snapshot in
// place.
func (d *DelegationDirectory) Refresh(ctx context.Context, authenticatedID string) {
	if authenticatedID == "" {
		return
	}

	users, err := d.api.AccessibleUsers(ctx)
	if err != nil {
		d.log.Error("accessible-users fetch failed, keeping last-known directory",
			zap.Error(err))
		return
	}

	grants := make(map[string]models.Grant, len(users))
	for _, u := range users {
		grants[u.UserID] = models.Grant{
			GranteePrincipalID: authenticatedID,
			GrantorPrincipalID: u.UserID,
			GrantorDisplayName: u.FullName,
			GrantorEmail:       u.Email,
			Permissions:        CanonicalPermissions(u.Permissions),
			ExpiresAt:          u.AccessEndDate,
		}
	}

	d.mu.Lock()
	d.grants = grants
	d.mu.Unlock()
	d.log.Debug("delegation directory refreshed", zap.Int("grants", len(grants)))
}

// Grant returns the grant whose grantor is grantorID, if present.
func (d *DelegationDirectory) Grant(grantorID string) (models.Grant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.grants[grantorID]
	return g, ok
}

// Snapshot returns a copy of the current grant set keyed by grantor id.
func (d *DelegationDirectory) Snapshot() map[string]models.Grant {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]models.Grant, len(d.grants))
	for id, g := range d.grants {
		out[id] = g
	}
	return out
}

// Clear drops all cached grants (sign-out path).
func (d *DelegationDirectory) Clear() {
	d.mu.Lock()
	d.grants = map[string]models.Grant{}
	d.mu.Unlock()
}
