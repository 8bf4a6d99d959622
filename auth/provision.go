package auth

import (
	"context"
	"time"

	"github.com/farca/storefront/model"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// ProvisionOutcome describes what EnsureProfile did
type ProvisionOutcome string

const (
	// ProvisionCreated a new profile row was inserted
	ProvisionCreated ProvisionOutcome = "created"
	// ProvisionReactivated a soft-deleted profile was brought back
	ProvisionReactivated ProvisionOutcome = "reactivated"
)

// ProvisionInput carries the fields submitted at registration
type ProvisionInput struct {
	FullName string
	Phone    string
}

// DefaultPhoneRegion is used to normalize phone numbers submitted without a
// country prefix.
var DefaultPhoneRegion = "IT"

// Provisioner reconciles the authentication identity with the profile
// record. Profile creation is an explicit, idempotent step owned here; no
// database trigger is involved.
type Provisioner struct {
	provider Provider
	profiles Profiles
	logger   Logger
	sink     ActivitySink
	now      func() time.Time
}

// NewProvisioner returns a Provisioner backed by the given provider and
// profile store.
func NewProvisioner(provider Provider, profiles Profiles) *Provisioner {
	return &Provisioner{
		provider: provider,
		profiles: profiles,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		now:      time.Now,
	}
}

func (p *Provisioner) WithLogger(logger Logger) *Provisioner {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithActivitySink configures an ActivitySink for provisioning events.
func (p *Provisioner) WithActivitySink(sink ActivitySink) *Provisioner {
	p.sink = normalizeActivitySink(sink)
	return p
}

// WithClock injects a custom clock (useful for tests).
func (p *Provisioner) WithClock(clock func() time.Time) *Provisioner {
	if clock != nil {
		p.now = clock
	}
	return p
}

// Register runs the full registration flow: provider sign-up, then
// EnsureProfile. Whatever happens, the user proceeds through the normal
// sign-in flow afterwards, so any session the provider opened during
// sign-up is terminated before returning.
func (p *Provisioner) Register(ctx context.Context, email, password string, input ProvisionInput) (ProvisionOutcome, *model.Profile, error) {
	res, err := p.provider.SignUp(ctx, email, password)
	if err != nil {
		p.logger.Warn("provider sign-up failed", "email", email, "error", err)
		return "", nil, err
	}

	if res.Token != "" {
		defer func() {
			if err := p.provider.SignOut(ctx, res.Token); err != nil {
				p.logger.Warn("post-registration sign-out failed", "error", err)
			}
		}()
	}

	return p.EnsureProfile(ctx, res.Identity, email, input)
}

// EnsureProfile guarantees a profile row exists and is consistent with the
// identity. Cases in priority order: missing profile is created (also the
// self-heal path for partial prior failures), a deleted profile is
// reactivated with the freshly submitted name and phone, and any other
// existing profile is a registration collision.
func (p *Provisioner) EnsureProfile(ctx context.Context, identity Identity, email string, input ProvisionInput) (ProvisionOutcome, *model.Profile, error) {
	if identity == nil {
		return "", nil, ErrProvisioningFailed
	}

	uid, err := uuid.Parse(identity.ID())
	if err != nil {
		p.logger.Error("identity has a malformed id", "id", identity.ID())
		return "", nil, ErrProvisioningFailed
	}

	existing, err := p.profiles.GetByUserID(ctx, uid)
	if err != nil && !errors.IsNotFound(err) {
		p.logger.Error("profile lookup failed during provisioning", "user_id", uid.String(), "error", err)
		return "", nil, ErrProvisioningFailed
	}

	if existing == nil {
		return p.createProfile(ctx, uid, email, input)
	}

	if existing.IsDeleted() {
		return p.reactivateProfile(ctx, existing, input)
	}

	// any non-deleted status: the account is live, use sign-in instead
	return "", nil, ErrAlreadyExists
}

func (p *Provisioner) createProfile(ctx context.Context, uid uuid.UUID, email string, input ProvisionInput) (ProvisionOutcome, *model.Profile, error) {
	record := &model.Profile{
		UserID:   uid,
		Email:    email,
		FullName: input.FullName,
		Phone:    NormalizePhone(input.Phone),
		Role:     model.RoleClient,
		Status:   model.StatusActive,
	}

	// deterministic id from the identity reference keeps concurrent inserts
	// pointed at the same primary key
	if id, err := hashid.NewUUID(uid.String()); err == nil {
		record.ID = id
	}

	created, err := p.profiles.Create(ctx, record)
	if err != nil {
		if IsUniqueViolation(err) {
			// another concurrent registration won the insert race; the row
			// exists, so this caller is a collision, not a failure
			p.logger.Info("concurrent registration detected", "user_id", uid.String())
			return "", nil, ErrAlreadyExists
		}
		p.logger.Error("profile insert failed", "user_id", uid.String(), "error", err)
		return "", nil, ErrProvisioningFailed
	}

	p.emit(ctx, ActivityEvent{
		EventType: ActivityEventProfileProvisioned,
		Actor:     ActorRef{ID: uid.String(), Type: "user"},
		UserID:    uid.String(),
		ToStatus:  model.StatusActive,
	})

	return ProvisionCreated, created, nil
}

func (p *Provisioner) reactivateProfile(ctx context.Context, existing *model.Profile, input ProvisionInput) (ProvisionOutcome, *model.Profile, error) {
	now := p.now()
	record := &model.Profile{
		ID:        existing.ID,
		UserID:    existing.UserID,
		Email:     existing.Email,
		FullName:  input.FullName,
		Phone:     NormalizePhone(input.Phone),
		Role:      existing.Role,
		Status:    model.StatusActive,
		UpdatedAt: &now,
	}

	updated, err := p.profiles.Update(ctx, record)
	if err != nil {
		p.logger.Error("profile reactivation failed", "user_id", existing.UserID.String(), "error", err)
		return "", nil, ErrProvisioningFailed
	}

	p.emit(ctx, ActivityEvent{
		EventType:  ActivityEventProfileReactivated,
		Actor:      ActorRef{ID: existing.UserID.String(), Type: "user"},
		UserID:     existing.UserID.String(),
		FromStatus: model.StatusDeleted,
		ToStatus:   model.StatusActive,
	})

	return ProvisionReactivated, updated, nil
}

func (p *Provisioner) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}
	if err := p.sink.Record(ctx, event); err != nil {
		p.logger.Warn("activity sink record error: %v", err)
	}
}

// NormalizePhone formats a submitted phone number to E.164 when it parses,
// and keeps the raw input otherwise. An unparseable phone is not a reason to
// fail registration.
func NormalizePhone(raw string) string {
	if raw == "" {
		return ""
	}

	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
