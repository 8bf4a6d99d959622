package auth

import (
	"context"
	"time"

	"github.com/farca/storefront/model"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignInSuccess        ActivityEventType = "auth.signin.success"
	ActivityEventSignInDenied         ActivityEventType = "auth.signin.denied"
	ActivityEventSignInFailure        ActivityEventType = "auth.signin.failure"
	ActivityEventSignOut              ActivityEventType = "auth.signout"
	ActivityEventRestoreDenied        ActivityEventType = "auth.restore.denied"
	ActivityEventProfileProvisioned   ActivityEventType = "profile.provisioned"
	ActivityEventProfileReactivated   ActivityEventType = "profile.reactivated"
	ActivityEventProfileStatusChanged ActivityEventType = "profile.status.changed"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus model.ProfileStatus
	ToStatus   model.ProfileStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
