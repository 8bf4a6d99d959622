package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/farca/storefront/model"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds the attributes of a live auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

// Identity is what the auth provider knows about an account. Credentials
// never leave the provider.
type Identity interface {
	ID() string
	Email() string
}

// Provider is the external authentication collaborator contract. The core
// consumes only this interface; provider/local carries the in-process
// implementation.
type Provider interface {
	// SignIn verifies credentials and returns a raw session token.
	SignIn(ctx context.Context, email, password string) (string, error)
	// SignUp registers the email, or returns the pre-existing identity when
	// the email is already known and the password matches. A non-empty token
	// means the provider left a live session behind that the caller owns.
	SignUp(ctx context.Context, email, password string) (SignUpResult, error)
	// SignOut terminates the session held by token at the provider.
	SignOut(ctx context.Context, token string) error
	// SessionFromToken validates a raw token and returns the session it
	// represents.
	SessionFromToken(raw string) (Session, error)
	// OnChange registers a listener invoked on every provider-side session
	// transition, with nil on sign-out.
	OnChange(listener func(Session))
}

// SignUpResult is the outcome of a provider registration call
type SignUpResult struct {
	Identity Identity
	// Existed is true when the email was already registered at the provider
	Existed bool
	// Token is the session the provider opened during sign-up, empty if none
	Token string
}

// Profiles is the slice of the profile store the core depends on. The
// backing table distinguishes "no row" errors (IsNotFound) from failures.
type Profiles interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	Create(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProfileStatus) (*model.Profile, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
