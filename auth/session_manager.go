package auth

import (
	"context"
	"sync"
	"time"

	"github.com/farca/storefront/model"
	"github.com/goliatone/go-errors"
)

// Phase is the session state machine phase
type Phase = string

const (
	// PhaseSignedOut no session, the entry state
	PhaseSignedOut Phase = "signed_out"
	// PhaseAuthenticating provider credential check in flight
	PhaseAuthenticating Phase = "authenticating"
	// PhaseSignedIn session established and guard-approved
	PhaseSignedIn Phase = "signed_in"
	// PhaseDenied credentials were valid but the guard refused access.
	// Transient, the UI routes back to an unauthenticated entry point.
	PhaseDenied Phase = "denied"
)

// SessionState is the externally visible state of the session machine
type SessionState struct {
	Phase   Phase
	Profile *model.Profile
	Token   string
	Reason  DenyReason
}

// SignedIn reports whether the state holds an authorized session
func (s SessionState) SignedIn() bool {
	return s.Phase == PhaseSignedIn
}

// SessionManager owns the mapping from a raw provider session to an
// authorized, status-checked profile. State is an explicit value with a
// subscribe/notify interface, there is no ambient singleton.
type SessionManager struct {
	provider Provider
	profiles Profiles
	logger   Logger
	sink     ActivitySink

	mu        sync.Mutex
	state     SessionState
	listeners map[int]func(SessionState)
	nextID    int
}

// NewSessionManager returns a session manager in the signed-out state.
func NewSessionManager(provider Provider, profiles Profiles) *SessionManager {
	return &SessionManager{
		provider:  provider,
		profiles:  profiles,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		state:     SessionState{Phase: PhaseSignedOut},
		listeners: map[int]func(SessionState){},
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (m *SessionManager) WithActivitySink(sink ActivitySink) *SessionManager {
	m.sink = normalizeActivitySink(sink)
	return m
}

// Current returns the present session state.
func (m *SessionManager) Current() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener notified on every state transition and
// returns an unsubscribe function.
func (m *SessionManager) Subscribe(fn func(SessionState)) func() {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SignIn delegates the credential check to the provider, then fetches the
// profile and applies the status guard before declaring the sign-in
// successful. A denied guard actively terminates the provider session so no
// valid token survives the denial.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (SessionState, error) {
	m.setState(SessionState{Phase: PhaseAuthenticating})

	token, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		m.logger.Warn("sign-in rejected by provider", "email", email, "error", err)
		m.emit(ctx, ActivityEvent{
			EventType: ActivityEventSignInFailure,
			Actor:     ActorRef{Type: "unknown"},
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		return m.setState(SessionState{Phase: PhaseSignedOut}), ErrCredentialRejected
	}

	profile, denyErr, err := m.authorize(ctx, token)
	if err != nil {
		m.forceSignOut(ctx, token)
		return m.setState(SessionState{Phase: PhaseSignedOut}), err
	}

	if denyErr != nil {
		reason := denyReasonOf(denyErr)
		m.forceSignOut(ctx, token)
		m.emit(ctx, ActivityEvent{
			EventType: ActivityEventSignInDenied,
			Actor:     ActorRef{Type: "user"},
			Metadata:  map[string]any{"email": email, "reason": string(reason)},
		})
		return m.setState(SessionState{Phase: PhaseDenied, Reason: reason}), denyErr
	}

	m.emit(ctx, ActivityEvent{
		EventType: ActivityEventSignInSuccess,
		Actor:     ActorRef{ID: profile.UserID.String(), Type: "user"},
		UserID:    profile.UserID.String(),
	})

	return m.setState(SessionState{
		Phase:   PhaseSignedIn,
		Profile: profile,
		Token:   token,
	}), nil
}

// Restore re-evaluates an existing token, e.g. at startup or on a token
// refresh. The guard runs again because an admin may have blocked the
// account while the token was still valid; a deny forces sign-out and the
// state goes back to signed out, never to signed in.
func (m *SessionManager) Restore(ctx context.Context, token string) (SessionState, error) {
	if token == "" {
		return m.setState(SessionState{Phase: PhaseSignedOut}), ErrNoSession
	}

	profile, denyErr, err := m.authorize(ctx, token)
	if err != nil {
		m.forceSignOut(ctx, token)
		return m.setState(SessionState{Phase: PhaseSignedOut}), err
	}

	if denyErr != nil {
		reason := denyReasonOf(denyErr)
		m.forceSignOut(ctx, token)
		m.emit(ctx, ActivityEvent{
			EventType: ActivityEventRestoreDenied,
			Actor:     ActorRef{Type: "user"},
			Metadata:  map[string]any{"reason": string(reason)},
		})
		return m.setState(SessionState{Phase: PhaseSignedOut, Reason: reason}), denyErr
	}

	return m.setState(SessionState{
		Phase:   PhaseSignedIn,
		Profile: profile,
		Token:   token,
	}), nil
}

// SignOut terminates the session. Local state always clears even when the
// provider call fails; the failure is returned for reporting only.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	token := m.state.Token
	m.mu.Unlock()

	var provErr error
	if token != "" {
		if provErr = m.provider.SignOut(ctx, token); provErr != nil {
			m.logger.Warn("provider sign-out failed, clearing local state anyway", "error", provErr)
		}
	}

	m.setState(SessionState{Phase: PhaseSignedOut})
	m.emit(ctx, ActivityEvent{EventType: ActivityEventSignOut, Actor: ActorRef{Type: "user"}})

	return provErr
}

// authorize resolves token -> session -> profile -> guard decision. The
// second return value carries a guard denial, the third an internal failure.
func (m *SessionManager) authorize(ctx context.Context, token string) (*model.Profile, error, error) {
	session, err := m.provider.SessionFromToken(token)
	if err != nil {
		m.logger.Warn("session validation failed", "error", err)
		return nil, nil, ErrNoSession
	}

	uid, err := session.GetUserUUID()
	if err != nil {
		m.logger.Error("session carries a malformed user id", "user_id", session.GetUserID())
		return nil, nil, ErrNoSession
	}

	profile, err := m.profiles.GetByUserID(ctx, uid)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, EvaluateProfile(nil).AuthError(), nil
		}
		m.logger.Error("profile fetch failed during authorization", "user_id", uid.String(), "error", err)
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "unable to load profile")
	}

	if decision := EvaluateProfile(profile); !decision.Allowed {
		return nil, decision.AuthError(), nil
	}

	return profile, nil, nil
}

// forceSignOut terminates the provider session after a denied guard check so
// the error state and the actual authentication state never diverge.
func (m *SessionManager) forceSignOut(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := m.provider.SignOut(ctx, token); err != nil {
		m.logger.Warn("corrective provider sign-out failed", "error", err)
	}
}

func (m *SessionManager) setState(next SessionState) SessionState {
	m.mu.Lock()
	m.state = next
	fns := make([]func(SessionState), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	// listeners run outside the lock, they may call back into the manager
	for _, fn := range fns {
		fn(next)
	}

	return next
}

func (m *SessionManager) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func denyReasonOf(err error) DenyReason {
	switch {
	case errors.Is(err, ErrAccountBlocked):
		return DenyBlocked
	case errors.Is(err, ErrAccountDeleted):
		return DenyDeleted
	default:
		return DenyNotFound
	}
}
