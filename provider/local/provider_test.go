package local

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farca/storefront/auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memCredentials is an in-memory Credentials store for provider tests
type memCredentials struct {
	mu      sync.Mutex
	byEmail map[string]*Credential
}

func newMemCredentials() *memCredentials {
	return &memCredentials{byEmail: map[string]*Credential{}}
}

func (m *memCredentials) GetByEmail(_ context.Context, email string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	clone := *record
	return &clone, nil
}

func (m *memCredentials) Create(_ context.Context, record *Credential) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = strings.ToLower(record.Email)
	m.byEmail[record.Email] = record
	clone := *record
	return &clone, nil
}

func (m *memCredentials) TrackAttemptedLogin(_ context.Context, record *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.byEmail[record.Email]
	stored.LoginAttempts++
	now := time.Now()
	stored.LoginAttemptAt = &now
	return nil
}

func (m *memCredentials) TrackSuccessfulLogin(_ context.Context, record *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.byEmail[record.Email]
	stored.LoginAttempts = 0
	stored.LoginAttemptAt = nil
	now := time.Now()
	stored.LoggedInAt = &now
	return nil
}

func newTestProvider(t *testing.T) (*Provider, *memCredentials) {
	t.Helper()
	orig := BcryptCost
	BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { BcryptCost = orig })

	store := newMemCredentials()
	provider := NewProvider(store, Config{
		SigningKey:       []byte("test-signing-key"),
		TokenExpiration:  1,
		Issuer:           "storefront",
		Audience:         []string{"storefront"},
		MaxLoginAttempts: 3,
		CoolDownPeriod:   time.Minute,
	})
	return provider, store
}

func seedCredential(t *testing.T, store *memCredentials, email, password string) *Credential {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	record, err := store.Create(context.Background(), &Credential{Email: email, PasswordHash: hash})
	require.NoError(t, err)
	return record
}

func TestProviderSignIn(t *testing.T) {
	provider, store := newTestProvider(t)
	record := seedCredential(t, store, "user@example.com", "secret123")

	token, err := provider.SignIn(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := provider.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, record.ID.String(), session.GetUserID())
	assert.Equal(t, "user@example.com", session.GetEmail())

	uid, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, record.ID, uid)
}

func TestProviderSignInWrongPassword(t *testing.T) {
	provider, store := newTestProvider(t)
	seedCredential(t, store, "user@example.com", "secret123")

	_, err := provider.SignIn(context.Background(), "user@example.com", "nope")
	assert.ErrorIs(t, err, ErrMismatchedHashAndPassword)

	stored, err := store.GetByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginAttempts)
}

func TestProviderSignInUnknownEmail(t *testing.T) {
	provider, _ := newTestProvider(t)

	// indistinguishable from a wrong password
	_, err := provider.SignIn(context.Background(), "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrMismatchedHashAndPassword)
}

func TestProviderSignInCoolDown(t *testing.T) {
	provider, store := newTestProvider(t)
	seedCredential(t, store, "user@example.com", "secret123")

	for i := 0; i < 3; i++ {
		_, err := provider.SignIn(context.Background(), "user@example.com", "nope")
		assert.ErrorIs(t, err, ErrMismatchedHashAndPassword)
	}

	// the right password no longer helps until the cooldown lapses
	_, err := provider.SignIn(context.Background(), "user@example.com", "secret123")
	assert.ErrorIs(t, err, ErrTooManyLoginAttempts)
}

func TestProviderSignInSuccessResetsAttempts(t *testing.T) {
	provider, store := newTestProvider(t)
	seedCredential(t, store, "user@example.com", "secret123")

	_, err := provider.SignIn(context.Background(), "user@example.com", "nope")
	require.ErrorIs(t, err, ErrMismatchedHashAndPassword)

	_, err = provider.SignIn(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)

	stored, err := store.GetByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LoginAttempts)
	assert.NotNil(t, stored.LoggedInAt)
}

func TestProviderSignUp(t *testing.T) {
	provider, _ := newTestProvider(t)

	result, err := provider.SignUp(context.Background(), "New@Example.com", "secret123")
	require.NoError(t, err)
	assert.False(t, result.Existed)
	assert.Empty(t, result.Token)
	assert.Equal(t, "new@example.com", result.Identity.Email())
	require.NotEmpty(t, result.Identity.ID())
	_, err = uuid.Parse(result.Identity.ID())
	assert.NoError(t, err)
}

func TestProviderSignUpExistingMatchingPassword(t *testing.T) {
	provider, store := newTestProvider(t)
	record := seedCredential(t, store, "user@example.com", "secret123")

	result, err := provider.SignUp(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.Empty(t, result.Token)
	assert.Equal(t, record.ID.String(), result.Identity.ID())
}

func TestProviderSignUpExistingWrongPassword(t *testing.T) {
	provider, store := newTestProvider(t)
	seedCredential(t, store, "user@example.com", "secret123")

	_, err := provider.SignUp(context.Background(), "user@example.com", "different")
	assert.ErrorIs(t, err, ErrMismatchedHashAndPassword)
}

func TestProviderSignOutRevokesToken(t *testing.T) {
	provider, store := newTestProvider(t)
	seedCredential(t, store, "user@example.com", "secret123")

	token, err := provider.SignIn(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, provider.SignOut(context.Background(), token))

	_, err = provider.SessionFromToken(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// a fresh sign-in is unaffected
	next, err := provider.SignIn(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	_, err = provider.SessionFromToken(next)
	assert.NoError(t, err)
}

func TestProviderOnChange(t *testing.T) {
	provider, store := newTestProvider(t)
	seedCredential(t, store, "user@example.com", "secret123")

	var mu sync.Mutex
	var events []auth.Session
	provider.OnChange(func(s auth.Session) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	})

	token, err := provider.SignIn(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, provider.SignOut(context.Background(), token))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	require.NotNil(t, events[0])
	assert.Equal(t, "user@example.com", events[0].GetEmail())
	assert.Nil(t, events[1])
}
