package authority

import (
	"testing"

	"github.com/sparkyfit/authority/internal/models"
)

func TestSessionMirror_Observe(t *testing.T) {
	m := &SessionMirror{}

	alice := &models.ProviderSession{User: models.Principal{ID: "alice"}}
	if !m.Observe(alice) {
		t.Error("first observation should report a change")
	}
	if m.Observe(alice) {
		t.Error("same-principal re-poll should be a no-op")
	}
	if m.PrincipalID() != "alice" {
		t.Errorf("PrincipalID = %q; want alice", m.PrincipalID())
	}

	bob := &models.ProviderSession{User: models.Principal{ID: "bob"}}
	if !m.Observe(bob) {
		t.Error("new principal should report a change")
	}

	if !m.Observe(nil) {
		t.Error("session disappearing should report a change")
	}
	if m.Current() != nil {
		t.Error("Current should be nil after observing absence")
	}
	if m.Observe(nil) {
		t.Error("repeated absence should be a no-op")
	}
}

func TestSessionMirror_ResolutionFlag(t *testing.T) {
	m := &SessionMirror{}

	if m.Resolving() {
		t.Error("new mirror should not be resolving")
	}
	m.BeginResolution()
	if !m.Resolving() {
		t.Error("BeginResolution did not raise the flag")
	}
	m.EndResolution()
	if m.Resolving() {
		t.Error("EndResolution did not clear the flag")
	}
}
