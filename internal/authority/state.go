package authority

import (
	"sync"
	"time"

	"github.com/sparkyfit/authority/internal/models"
)

// DefaultStickyWindow is how long after a manual sign-in a session-loss
// notification is treated as a stale read and ignored. Immediately after
// a manual sign-in the externally polled session may not have propagated
// yet; without this guard the user is bounced back to signed-out by a
// slow background re-poll. Tunable via Config.StickyWindow for
// environments with higher latency variance.
const DefaultStickyWindow = 2 * time.Second

// Status is the logical signed-in state of the client session.
type Status int

const (
	// StatusSignedOut means no authenticated principal is held.
	StatusSignedOut Status = iota
	// StatusSyncing means local state is unknown and the first
	// authoritative resolution has not completed yet.
	StatusSyncing
	// StatusSignedIn means an authenticated principal is held.
	StatusSignedIn
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed_out"
	case StatusSyncing:
		return "syncing"
	case StatusSignedIn:
		return "signed_in"
	}
	return "unknown"
}

// AuthorityState is the authenticated-principal state machine. It owns
// the local AuthoritySession and the sticky-window bookkeeping that
// protects a fresh manual sign-in from being undone by an out-of-order
// session-loss notification.
type AuthorityState struct {
	mu           sync.Mutex
	now          func() time.Time
	stickyWindow time.Duration

	status           Status
	principal        *models.Principal
	session          *models.AuthoritySession
	lastManualSignIn time.Time
}

// NewAuthorityState constructs the state machine. stickyWindow <= 0
// selects DefaultStickyWindow. The machine starts in StatusSyncing:
// local state is unknown until the first resolution.
func NewAuthorityState(stickyWindow time.Duration) *AuthorityState {
	if stickyWindow <= 0 {
		stickyWindow = DefaultStickyWindow
	}
	return &AuthorityState{
		now:          time.Now,
		stickyWindow: stickyWindow,
		status:       StatusSyncing,
	}
}

// Status returns the current logical signed-in state.
func (s *AuthorityState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Adopt installs p as the authenticated principal and moves to
// StatusSignedIn. It returns true when the principal identity changed
// (none was held, or a different one); re-adopting the same principal
// keeps the existing session and returns false.
func (s *AuthorityState) Adopt(p models.Principal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adoptLocked(p)
}

func (s *AuthorityState) adoptLocked(p models.Principal) bool {
	changed := s.principal == nil || s.principal.ID != p.ID
	s.principal = &p
	if s.session == nil || changed {
		s.session = &models.AuthoritySession{
			AuthenticatedPrincipalID: p.ID,
			ActivePrincipalID:        p.ID,
			DisplayName:              p.DisplayName,
		}
	}
	s.session.IsSyncing = false
	s.status = StatusSignedIn
	return changed
}

// SignInManually adopts p optimistically, without waiting for the
// external session to confirm, and records the sign-in instant for the
// sticky-window check. It never fails; a later authoritative sync
// corrects any mismatch.
func (s *AuthorityState) SignInManually(p models.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastManualSignIn = s.now()
	s.adoptLocked(p)
}

// SessionLost applies a session-loss notification. It returns false
// when the loss falls inside the sticky window after a manual sign-in,
// in which case it is a stale read and no state changes; otherwise it
// clears local state and returns true.
func (s *AuthorityState) SessionLost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastManualSignIn.IsZero() && s.now().Sub(s.lastManualSignIn) < s.stickyWindow {
		return false
	}
	s.clearLocked()
	return true
}

// Clear drops the principal and session unconditionally (sign-out path).
func (s *AuthorityState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *AuthorityState) clearLocked() {
	s.principal = nil
	s.session = nil
	s.status = StatusSignedOut
}

// SetSyncing raises or clears the syncing flag. While no session is
// held the flag maps onto the machine status instead; clearing it with
// nothing resolved settles on StatusSignedOut so the flag can never
// stay raised indefinitely.
func (s *AuthorityState) SetSyncing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.IsSyncing = v
		return
	}
	if v {
		s.status = StatusSyncing
	} else if s.status == StatusSyncing {
		s.status = StatusSignedOut
	}
}

// MergeIdentity applies the authoritative identity fetch result. The
// result is merged only when it differs from the local view; the return
// value tells the caller whether anything changed, so redundant
// downstream refreshes can be skipped. A merge with no session held is
// a no-op.
func (s *AuthorityState) MergeIdentity(activeID, displayName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || activeID == "" {
		return false
	}
	if s.session.ActivePrincipalID == activeID &&
		(displayName == "" || s.session.DisplayName == displayName) {
		return false
	}
	s.session.ActivePrincipalID = activeID
	if displayName != "" {
		s.session.DisplayName = displayName
	}
	return true
}

// SetActive records the server-confirmed active principal after a
// context switch. No-op when signed out.
func (s *AuthorityState) SetActive(id, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || id == "" {
		return
	}
	s.session.ActivePrincipalID = id
	if displayName != "" {
		s.session.DisplayName = displayName
	}
}

// AuthenticatedPrincipal returns the held principal, if any.
func (s *AuthorityState) AuthenticatedPrincipal() (models.Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return models.Principal{}, false
	}
	return *s.principal, true
}

// Snapshot returns a copy of the current session. ok is false when
// signed out.
func (s *AuthorityState) Snapshot() (session models.AuthoritySession, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.AuthoritySession{}, false
	}
	return *s.session, true
}
