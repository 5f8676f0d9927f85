package authority

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sparkyfit/authority/internal/models"
)

// Config holds the engine tunables.
type Config struct {
	// StickyWindow overrides DefaultStickyWindow when positive.
	StickyWindow time.Duration
	// Reload, when non-nil, runs after sign-out completes so the
	// embedding client can drop all derived and cached state.
	Reload func()
}

// ActivePrincipal identifies whose data the session currently operates
// on. DisplayName may lag the server briefly until the next
// authoritative refresh.
type ActivePrincipal struct {
	ID          string
	DisplayName string
}

// Snapshot is the immutable view handed to observers on every state
// change.
type Snapshot struct {
	// Status is the logical signed-in state.
	Status Status
	// Session is the current session; the zero value when signed out.
	Session models.AuthoritySession
	// ActingOnBehalf is true when the active principal differs from the
	// authenticated one.
	ActingOnBehalf bool
	// Grants is the delegation directory snapshot keyed by grantor id.
	Grants map[string]models.Grant
}

// Engine wires the session mirror, authority state machine, delegation
// directory and resolver behind the interface feature code consumes.
// All methods are safe for concurrent use.
type Engine struct {
	provider SessionProvider
	api      IdentityAPI
	log      *zap.Logger
	now      func() time.Time

	state     *AuthorityState
	mirror    *SessionMirror
	directory *DelegationDirectory
	reload    func()

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewEngine constructs an engine over the given provider and identity
// service. log may be nil.
func NewEngine(provider SessionProvider, api IdentityAPI, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		provider:  provider,
		api:       api,
		log:       log,
		now:       time.Now,
		state:     NewAuthorityState(cfg.StickyWindow),
		mirror:    &SessionMirror{},
		directory: NewDelegationDirectory(api, log),
		reload:    cfg.Reload,
		observers: map[int]func(Snapshot){},
	}
}

// Subscribe registers an observer invoked with a fresh Snapshot after
// every state change. The returned function cancels the subscription.
func (e *Engine) Subscribe(fn func(Snapshot)) (cancel func()) {
	e.obsMu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.obsMu.Unlock()
	return func() {
		e.obsMu.Lock()
		delete(e.observers, id)
		e.obsMu.Unlock()
	}
}

func (e *Engine) notify() {
	snap := e.Snapshot()
	e.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// HandleSessionChange feeds one provider session snapshot into the
// engine; callers wire it to their session-change subscription. A nil
// session is a loss notification: it is ignored while an authoritative
// resolution is pending or inside the sticky window after a manual
// sign-in, and signs the user out otherwise. Re-polls of the already
// known principal are no-ops.
func (e *Engine) HandleSessionChange(ctx context.Context, s *models.ProviderSession) {
	if s == nil {
		e.handleSessionLoss()
		return
	}
	if !e.mirror.Observe(s) {
		return
	}
	e.adoptSession(ctx, s.User)
}

func (e *Engine) handleSessionLoss() {
	if e.mirror.Resolving() {
		e.log.Debug("session loss ignored, resolution pending")
		return
	}
	if !e.state.SessionLost() {
		e.log.Debug("session loss ignored inside sticky window")
		return
	}
	e.mirror.Observe(nil)
	e.directory.Clear()
	e.log.Info("signed out by session loss")
	e.notify()
}

// adoptSession installs a newly observed principal, then runs the one
// authoritative identity fetch and a directory refresh for it.
func (e *Engine) adoptSession(ctx context.Context, p models.Principal) {
	e.state.Adopt(p)
	e.log.Info("session adopted", zap.String("principal", p.ID))
	e.notify()

	e.resolveIdentity(ctx, p.ID)
	e.directory.Refresh(ctx, p.ID)
	e.notify()
}

// resolveIdentity performs the authoritative identity fetch for the
// given principal and merges the result only if it differs from local
// state. A result arriving after the observed principal changed is
// stale and dropped.
func (e *Engine) resolveIdentity(ctx context.Context, principalID string) {
	e.mirror.BeginResolution()
	defer e.mirror.EndResolution()

	info, err := e.api.ActiveIdentity(ctx)
	if err != nil {
		e.log.Error("authoritative identity fetch failed", zap.Error(err))
		return
	}
	if info == nil {
		return
	}
	if e.mirror.PrincipalID() != principalID {
		e.log.Debug("dropping stale identity resolution",
			zap.String("resolved_for", principalID))
		return
	}
	if e.state.MergeIdentity(info.ActiveUserID, info.ActiveUserFullName) {
		e.notify()
	}
}

// SignInManually adopts p optimistically without waiting for the
// external session to confirm, records the sticky-window timestamp and
// runs the authoritative identity fetch and a directory refresh for p.
// The fetch must happen here: seeding the mirror makes the provider's
// confirming session event for p a no-op downstream. It never fails.
func (e *Engine) SignInManually(ctx context.Context, p models.Principal) {
	e.state.SignInManually(p)
	e.mirror.Observe(&models.ProviderSession{User: p})
	e.log.Info("manual sign-in", zap.String("principal", p.ID))
	e.notify()

	e.resolveIdentity(ctx, p.ID)
	e.directory.Refresh(ctx, p.ID)
	e.notify()
}

// SignOut clears local state immediately, then revokes the provider
// session. Provider errors are logged, never fatal: the user always
// ends up signed out locally. The reload hook runs last.
func (e *Engine) SignOut(ctx context.Context) {
	e.state.Clear()
	e.mirror.Observe(nil)
	e.directory.Clear()
	e.log.Info("signed out")
	e.notify()

	if err := e.provider.SignOut(ctx); err != nil {
		e.log.Error("provider sign-out failed", zap.Error(err))
	}
	if e.reload != nil {
		e.reload()
	}
}

// Refresh re-requests the authoritative session and reconciles all
// derived fields. IsSyncing is raised for the duration and cleared on
// every path; failures are logged, never returned.
func (e *Engine) Refresh(ctx context.Context) {
	e.state.SetSyncing(true)
	e.notify()
	defer func() {
		e.state.SetSyncing(false)
		e.notify()
	}()

	s, err := e.provider.GetSession(ctx)
	if err != nil {
		e.log.Error("session refresh failed", zap.Error(err))
		return
	}
	if s == nil {
		e.handleSessionLoss()
		return
	}
	if e.mirror.Observe(s) {
		e.state.Adopt(s.User)
		e.notify()
	}
	e.resolveIdentity(ctx, s.User.ID)
	e.directory.Refresh(ctx, s.User.ID)
}

// SwitchActivePrincipal performs the context-switch round trip. On
// success the confirmed active id (or targetID when the response omits
// one) is adopted and a full authoritative refresh reconciles derived
// fields. On failure the typed error from the identity service is
// returned and no local state changes. Callers must not pipeline
// switches without awaiting the previous one; the protocol does not
// serialize concurrent calls.
func (e *Engine) SwitchActivePrincipal(ctx context.Context, targetID string) error {
	activeID, err := e.api.SwitchContext(ctx, targetID)
	if err != nil {
		e.log.Warn("context switch rejected",
			zap.String("target", targetID), zap.Error(err))
		return err
	}
	if activeID == "" {
		activeID = targetID
	}

	displayName := ""
	if p, ok := e.state.AuthenticatedPrincipal(); ok && p.ID == activeID {
		displayName = p.DisplayName
	} else if g, ok := e.directory.Grant(activeID); ok {
		displayName = g.GrantorDisplayName
	}
	e.state.SetActive(activeID, displayName)
	e.log.Info("active principal switched", zap.String("active", activeID))
	e.notify()

	// Reconcile display name, flags and newly granted or revoked access.
	e.Refresh(ctx)
	return nil
}

// CurrentAuthenticatedPrincipal returns the principal holding valid
// credentials for this session.
func (e *Engine) CurrentAuthenticatedPrincipal() (models.Principal, bool) {
	return e.state.AuthenticatedPrincipal()
}

// CurrentActivePrincipal returns whose data the session currently
// operates on.
func (e *Engine) CurrentActivePrincipal() (ActivePrincipal, bool) {
	s, ok := e.state.Snapshot()
	if !ok {
		return ActivePrincipal{}, false
	}
	return ActivePrincipal{ID: s.ActivePrincipalID, DisplayName: s.DisplayName}, true
}

// IsActingOnBehalf reports whether a delegation context switch is in
// effect.
func (e *Engine) IsActingOnBehalf() bool {
	s, ok := e.state.Snapshot()
	return ok && s.ActivePrincipalID != s.AuthenticatedPrincipalID
}

// CanRead reports whether the session may read capability c. It never
// fails: absent state resolves to false.
func (e *Engine) CanRead(c models.Capability) bool {
	s, ok := e.state.Snapshot()
	if !ok {
		return false
	}
	return CanRead(s.AuthenticatedPrincipalID, s.ActivePrincipalID,
		e.directory.Snapshot(), c, e.now())
}

// CanWrite reports whether the session may write capability c. It never
// fails: absent state resolves to false.
func (e *Engine) CanWrite(c models.Capability) bool {
	s, ok := e.state.Snapshot()
	if !ok {
		return false
	}
	return CanWrite(s.AuthenticatedPrincipalID, s.ActivePrincipalID,
		e.directory.Snapshot(), c, e.now())
}

// RefreshDirectory re-fetches the delegation directory on explicit
// caller request (e.g. after the grant management UI reports a change).
func (e *Engine) RefreshDirectory(ctx context.Context) {
	p, ok := e.state.AuthenticatedPrincipal()
	if !ok {
		return
	}
	e.directory.Refresh(ctx, p.ID)
	e.notify()
}

// Status returns the logical signed-in state.
func (e *Engine) Status() Status {
	return e.state.Status()
}

// Snapshot returns the current engine view.
func (e *Engine) Snapshot() Snapshot {
	session, ok := e.state.Snapshot()
	return Snapshot{
		Status:         e.state.Status(),
		Session:        session,
		ActingOnBehalf: ok && session.ActivePrincipalID != session.AuthenticatedPrincipalID,
		Grants:         e.directory.Snapshot(),
	}
}
