package auth_test

import (
	"context"
	"time"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProvider implements auth.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, email, password string) (auth.SignUpResult, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.SignUpResult), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockProvider) SessionFromToken(raw string) (auth.Session, error) {
	args := m.Called(raw)
	var session auth.Session
	if v := args.Get(0); v != nil {
		session = v.(auth.Session)
	}
	return session, args.Error(1)
}

func (m *MockProvider) OnChange(listener func(auth.Session)) {
	m.Called(listener)
}

// MockProfiles implements auth.Profiles
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, userID)
	var profile *model.Profile
	if v := args.Get(0); v != nil {
		profile = v.(*model.Profile)
	}
	return profile, args.Error(1)
}

func (m *MockProfiles) Create(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	args := m.Called(ctx, profile)
	var created *model.Profile
	if v := args.Get(0); v != nil {
		created = v.(*model.Profile)
	}
	return created, args.Error(1)
}

func (m *MockProfiles) Update(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	args := m.Called(ctx, profile)
	var updated *model.Profile
	if v := args.Get(0); v != nil {
		updated = v.(*model.Profile)
	}
	return updated, args.Error(1)
}

func (m *MockProfiles) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProfileStatus) (*model.Profile, error) {
	args := m.Called(ctx, id, status)
	var updated *model.Profile
	if v := args.Get(0); v != nil {
		updated = v.(*model.Profile)
	}
	return updated, args.Error(1)
}

// sessionStub implements auth.Session for tests
type sessionStub struct {
	userID string
	email  string
}

func (s sessionStub) GetUserID() string { return s.userID }

func (s sessionStub) GetUserUUID() (uuid.UUID, error) { return uuid.Parse(s.userID) }

func (s sessionStub) GetEmail() string { return s.email }

func (s sessionStub) GetIssuedAt() *time.Time { return nil }

func (s sessionStub) GetExpiration() *time.Time { return nil }

// identityStub implements auth.Identity for tests
type identityStub struct {
	id    string
	email string
}

func (i identityStub) ID() string { return i.id }

func (i identityStub) Email() string { return i.email }
