package authority

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sparkyfit/authority/internal/models"
)

// fakeBackend emulates the identity service and the session provider
// with shared state, so a context switch is visible to the next
// authoritative refresh the way it is against a real server.
type fakeBackend struct {
	session   *models.ProviderSession
	activeID  string
	names     map[string]string
	users     []AccessibleUser
	switchErr error
}

func (b *fakeBackend) api() *mockIdentityAPI {
	return &mockIdentityAPI{
		ActiveIdentityFunc: func(ctx context.Context) (*ActiveIdentity, error) {
			return &ActiveIdentity{
				ActiveUserID:       b.activeID,
				ActiveUserFullName: b.names[b.activeID],
			}, nil
		},
		AccessibleUsersFunc: func(ctx context.Context) ([]AccessibleUser, error) {
			return b.users, nil
		},
		SwitchContextFunc: func(ctx context.Context, targetUserID string) (string, error) {
			if b.switchErr != nil {
				return "", b.switchErr
			}
			b.activeID = targetUserID
			return targetUserID, nil
		},
	}
}

func (b *fakeBackend) provider() *mockProvider {
	return &mockProvider{
		GetSessionFunc: func(ctx context.Context) (*models.ProviderSession, error) {
			return b.session, nil
		},
	}
}

func aliceBackend() *fakeBackend {
	return &fakeBackend{
		session:  &models.ProviderSession{User: models.Principal{ID: "alice", DisplayName: "Alice"}},
		activeID: "alice",
		names:    map[string]string{"alice": "Alice Example", "bob": "Bob Example"},
		users: []AccessibleUser{
			{UserID: "bob", FullName: "Bob Example", Permissions: map[string]bool{"checkin": true}},
		},
	}
}

func TestEngine_CheckinOnlyDelegationScenario(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	e := NewEngine(b.provider(), b.api(), Config{}, nil)

	e.HandleSessionChange(ctx, b.session)

	if e.Status() != StatusSignedIn {
		t.Fatalf("status = %v; want signed in", e.Status())
	}
	if e.IsActingOnBehalf() {
		t.Fatal("fresh session should act on its own behalf")
	}

	if err := e.SwitchActivePrincipal(ctx, "bob"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	active, ok := e.CurrentActivePrincipal()
	if !ok || active.ID != "bob" {
		t.Fatalf("active principal = %+v; want bob", active)
	}
	if !e.IsActingOnBehalf() {
		t.Error("IsActingOnBehalf = false after switching to bob")
	}

	if !e.CanWrite(models.CapabilityCheckin) {
		t.Error("CanWrite(checkin) = false; grant authorizes it")
	}
	if e.CanWrite(models.CapabilityDiary) {
		t.Error("CanWrite(diary) = true; grant does not authorize it")
	}
	if e.CanRead(models.CapabilityDiary) {
		t.Error("CanRead(diary) = true; reports is not granted")
	}
}

func TestEngine_SamePrincipalRepollIsNoop(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()

	fetches := 0
	api := b.api()
	inner := api.ActiveIdentityFunc
	api.ActiveIdentityFunc = func(ctx context.Context) (*ActiveIdentity, error) {
		fetches++
		return inner(ctx)
	}
	e := NewEngine(b.provider(), api, Config{}, nil)

	e.HandleSessionChange(ctx, b.session)
	e.HandleSessionChange(ctx, b.session)
	e.HandleSessionChange(ctx, b.session)

	if fetches != 1 {
		t.Errorf("authoritative fetches = %d; want exactly 1 per new principal", fetches)
	}
}

func TestEngine_StickyWindowProtectsManualSignIn(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	e := NewEngine(b.provider(), b.api(), Config{StickyWindow: 2 * time.Second}, nil)

	base := time.Now()
	e.state.now = fixedClock(base)
	e.SignInManually(ctx, models.Principal{ID: "alice", DisplayName: "Alice"})

	// a stale loss right after the manual sign-in must be ignored
	e.state.now = fixedClock(base.Add(500 * time.Millisecond))
	e.HandleSessionChange(ctx, nil)
	if e.Status() != StatusSignedIn {
		t.Fatalf("status = %v; stale loss bounced the user out", e.Status())
	}

	// the same loss past the window signs out
	e.state.now = fixedClock(base.Add(3 * time.Second))
	e.HandleSessionChange(ctx, nil)
	if e.Status() != StatusSignedOut {
		t.Fatalf("status = %v; want signed out", e.Status())
	}
	if len(e.Snapshot().Grants) != 0 {
		t.Error("directory not cleared on sign-out")
	}
}

func TestEngine_ManualSignInResolvesAuthoritativeIdentity(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	b.activeID = "bob" // a context switch persisted server-side

	fetches := 0
	api := b.api()
	inner := api.ActiveIdentityFunc
	api.ActiveIdentityFunc = func(ctx context.Context) (*ActiveIdentity, error) {
		fetches++
		return inner(ctx)
	}
	e := NewEngine(b.provider(), api, Config{}, nil)

	e.SignInManually(ctx, models.Principal{ID: "alice", DisplayName: "Alice"})

	if fetches != 1 {
		t.Fatalf("authoritative fetches = %d; want exactly 1", fetches)
	}
	active, ok := e.CurrentActivePrincipal()
	if !ok || active.ID != "bob" {
		t.Errorf("active = %q; want the server-side active principal merged", active.ID)
	}

	// the provider's confirming session event stays a no-op
	e.HandleSessionChange(ctx, b.session)
	if fetches != 1 {
		t.Errorf("authoritative fetches = %d after session event; want still 1", fetches)
	}
	if e.Status() != StatusSignedIn {
		t.Errorf("status = %v; want signed in", e.Status())
	}
}

func TestEngine_SessionLossIgnoredWhileResolutionPending(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	e := NewEngine(b.provider(), b.api(), Config{}, nil)
	e.HandleSessionChange(ctx, b.session)

	e.mirror.BeginResolution()
	e.HandleSessionChange(ctx, nil)
	e.mirror.EndResolution()

	if e.Status() != StatusSignedIn {
		t.Errorf("status = %v; loss during pending resolution must be ignored", e.Status())
	}
}

func TestEngine_StaleIdentityResolutionDropped(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()

	e := NewEngine(b.provider(), b.api(), Config{}, nil)

	// While the fetch for alice is in flight, a newer session event
	// supersedes it; the completed resolution must be dropped.
	api := b.api()
	api.ActiveIdentityFunc = func(ctx context.Context) (*ActiveIdentity, error) {
		e.mirror.Observe(&models.ProviderSession{User: models.Principal{ID: "carol"}})
		return &ActiveIdentity{ActiveUserID: "alice", ActiveUserFullName: "Stale Alice"}, nil
	}
	e.api = api

	e.state.Adopt(models.Principal{ID: "alice", DisplayName: "Alice"})
	e.mirror.Observe(b.session)
	e.resolveIdentity(ctx, "alice")

	sess, _ := e.state.Snapshot()
	if sess.DisplayName == "Stale Alice" {
		t.Error("stale identity resolution was merged")
	}
}

func TestEngine_SwitchFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	b.switchErr = &ContextSwitchError{Message: "access revoked", StatusCode: 403}
	e := NewEngine(b.provider(), b.api(), Config{}, nil)
	e.HandleSessionChange(ctx, b.session)

	err := e.SwitchActivePrincipal(ctx, "bob")
	if err == nil {
		t.Fatal("expected switch to fail")
	}
	var switchErr *ContextSwitchError
	if !errors.As(err, &switchErr) {
		t.Fatalf("error = %T; want *ContextSwitchError", err)
	}
	if switchErr.Message != "access revoked" {
		t.Errorf("message = %q; want server-provided reason", switchErr.Message)
	}

	active, _ := e.CurrentActivePrincipal()
	if active.ID != "alice" {
		t.Errorf("active = %q after failed switch; want alice", active.ID)
	}
}

func TestEngine_RefreshFailureKeepsStateAndClearsSyncing(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	provider := b.provider()
	e := NewEngine(provider, b.api(), Config{}, nil)
	e.HandleSessionChange(ctx, b.session)

	provider.GetSessionFunc = func(ctx context.Context) (*models.ProviderSession, error) {
		return nil, errors.New("provider unreachable")
	}
	e.Refresh(ctx)

	if e.Status() != StatusSignedIn {
		t.Errorf("status = %v; refresh failure must leave prior state intact", e.Status())
	}
	sess, _ := e.state.Snapshot()
	if sess.IsSyncing {
		t.Error("IsSyncing still raised after failed refresh")
	}
}

func TestEngine_SignOutClearsLocallyDespiteProviderError(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	provider := b.provider()
	provider.SignOutFunc = func(ctx context.Context) error {
		return errors.New("provider unreachable")
	}

	reloaded := false
	e := NewEngine(provider, b.api(), Config{Reload: func() { reloaded = true }}, nil)
	e.HandleSessionChange(ctx, b.session)

	e.SignOut(ctx)

	if e.Status() != StatusSignedOut {
		t.Errorf("status = %v; local state must clear regardless of provider errors", e.Status())
	}
	if _, ok := e.CurrentAuthenticatedPrincipal(); ok {
		t.Error("authenticated principal still held after sign-out")
	}
	if !reloaded {
		t.Error("reload hook not invoked")
	}
}

func TestEngine_ObserversNotified(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	e := NewEngine(b.provider(), b.api(), Config{}, nil)

	var last Snapshot
	seen := 0
	cancel := e.Subscribe(func(s Snapshot) {
		seen++
		last = s
	})

	e.HandleSessionChange(ctx, b.session)
	if seen == 0 {
		t.Fatal("observer never notified")
	}
	if last.Status != StatusSignedIn || last.Session.AuthenticatedPrincipalID != "alice" {
		t.Errorf("unexpected snapshot %+v", last)
	}
	if len(last.Grants) != 1 {
		t.Errorf("grants in snapshot = %d; want 1", len(last.Grants))
	}

	cancel()
	before := seen
	e.Refresh(ctx)
	if seen != before {
		t.Error("observer notified after cancel")
	}
}

func TestEngine_SwitchFallsBackToRequestedID(t *testing.T) {
	ctx := context.Background()
	b := aliceBackend()
	api := b.api()
	api.SwitchContextFunc = func(ctx context.Context, targetUserID string) (string, error) {
		b.activeID = targetUserID
		return "", nil // response omitted the active id
	}
	e := NewEngine(b.provider(), api, Config{}, nil)
	e.HandleSessionChange(ctx, b.session)

	if err := e.SwitchActivePrincipal(ctx, "bob"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	active, _ := e.CurrentActivePrincipal()
	if active.ID != "bob" {
		t.Errorf("active = %q; want requested id as fallback", active.ID)
	}
}
