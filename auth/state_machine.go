package auth

import (
	"context"
	"time"

	"github.com/farca/storefront/model"
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_PROFILE_STATUS_TRANSITION"
	textCodeTerminalState     = "TERMINAL_PROFILE_STATUS"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid profile status transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move a deleted profile.
// Only the provisioning reactivation path leaves the deleted status.
var ErrTerminalState = goerrors.New("profile status is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition event.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses validation rules (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// ProfileStateMachine defines admin-driven lifecycle operations for profiles.
type ProfileStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, profile *model.Profile, target model.ProfileStatus, opts ...TransitionOption) (*model.Profile, error)
	CurrentStatus(profile *model.Profile) model.ProfileStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*profileStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *profileStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the sink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *profileStateMachine) {
		sm.sink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *profileStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewProfileStateMachine returns the default implementation backed by the
// provided profile store. Deletion is a transition like any other; rows are
// never removed, which keeps historical orders and documents referencable.
func NewProfileStateMachine(profiles Profiles, opts ...StateMachineOption) ProfileStateMachine {
	sm := &profileStateMachine{
		profiles: profiles,
		transitions: map[model.ProfileStatus]map[model.ProfileStatus]struct{}{
			model.StatusActive: {
				model.StatusInactive: {},
				model.StatusBlocked:  {},
				model.StatusDeleted:  {},
			},
			model.StatusInactive: {
				model.StatusActive:  {},
				model.StatusBlocked: {},
				model.StatusDeleted: {},
			},
			model.StatusBlocked: {
				model.StatusActive:   {},
				model.StatusInactive: {},
				model.StatusDeleted:  {},
			},
		},
		now:    time.Now,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type profileStateMachine struct {
	profiles    Profiles
	transitions map[model.ProfileStatus]map[model.ProfileStatus]struct{}
	now         func() time.Time
	sink        ActivitySink
	logger      Logger
}

type transitionOptions struct {
	metadata TransitionMetadata
	force    bool
}

func (sm *profileStateMachine) Transition(ctx context.Context, actor ActorRef, profile *model.Profile, target model.ProfileStatus, opts ...TransitionOption) (*model.Profile, error) {
	if profile == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "profile is nil",
		})
	}

	profile.EnsureStatus()
	from := profile.Status

	if !model.ValidStatus(target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "unknown target status",
		})
	}

	if from == target {
		return profile, nil
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if from == model.StatusDeleted && !options.force {
		return nil, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !options.force && !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	updated, err := sm.profiles.UpdateStatus(ctx, profile.ID, target)
	if err != nil {
		return nil, err
	}

	if updated != nil && updated.Status != "" {
		profile.Status = updated.Status
	} else {
		profile.Status = target
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventProfileStatusChanged,
		Actor:      actor,
		UserID:     profile.UserID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(options.metadata),
	})

	return profile, nil
}

func (sm *profileStateMachine) CurrentStatus(profile *model.Profile) model.ProfileStatus {
	if profile == nil {
		return ""
	}
	profile.EnsureStatus()
	return profile.Status
}

func (sm *profileStateMachine) canTransition(from, to model.ProfileStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *profileStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	if err := sm.sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func (sm *profileStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
