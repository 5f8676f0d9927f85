package authority

import (
	"sync"

	"github.com/sparkyfit/authority/internal/models"
)

// SessionMirror holds a read-mostly local mirror of the externally
// issued session and tracks whether an authoritative identity
// resolution is in flight. Same-principal re-polls are no-ops so that
// downstream refreshes only run when the session identity actually
// changed.
type SessionMirror struct {
	mu        sync.Mutex
	session   *models.ProviderSession
	resolving bool
}

// Observe records the latest provider-reported session (nil means
// signed out). It returns true when the observed principal identity
// differs from the previous one; re-polls of the same principal return
// false and must be treated as no-ops downstream.
func (m *SessionMirror) Observe(s *models.ProviderSession) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prev, next string
	if m.session != nil {
		prev = m.session.User.ID
	}
	if s != nil {
		next = s.User.ID
	}
	m.session = s
	return prev != next
}

// Current returns the last observed session, or nil when signed out.
func (m *SessionMirror) Current() *models.ProviderSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// PrincipalID returns the id of the last observed session's principal,
// or the empty string when signed out. An in-flight resolution compares
// against this value when it completes; a mismatch marks it stale.
func (m *SessionMirror) PrincipalID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.User.ID
}

// BeginResolution marks an authoritative identity fetch as in flight.
func (m *SessionMirror) BeginResolution() {
	m.mu.Lock()
	m.resolving = true
	m.mu.Unlock()
}

// EndResolution clears the in-flight marker.
func (m *SessionMirror) EndResolution() {
	m.mu.Lock()
	m.resolving = false
	m.mu.Unlock()
}

// Resolving reports whether an authoritative identity fetch is in
// flight. Session-loss events are ignored while it returns true.
func (m *SessionMirror) Resolving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolving
}
