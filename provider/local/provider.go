package local

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/farca/storefront/auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Config carries the tunables for the in-process auth provider
type Config struct {
	// SigningKey signs session tokens, required
	SigningKey []byte
	// TokenExpiration is the session lifetime in hours, defaults to 72
	TokenExpiration int
	// Issuer is stamped and verified on every token
	Issuer string
	// Audience is stamped and verified on every token
	Audience []string
	// MaxLoginAttempts before the cooldown window engages, defaults to 5
	MaxLoginAttempts int
	// CoolDownPeriod is how long failed attempts lock the account out
	CoolDownPeriod time.Duration
}

func (c Config) withDefaults() Config {
	if c.TokenExpiration == 0 {
		c.TokenExpiration = 72
	}
	if c.MaxLoginAttempts == 0 {
		c.MaxLoginAttempts = 5
	}
	if c.CoolDownPeriod == 0 {
		c.CoolDownPeriod = 15 * time.Minute
	}
	return c
}

// identity adapts a credential record to auth.Identity
type identity struct {
	id    string
	email string
}

func (i identity) ID() string    { return i.id }
func (i identity) Email() string { return i.email }

// Provider is an in-process auth.Provider backed by a credentials table
// and HS256 session tokens. Sign-out revokes the token id until its natural
// expiry so a terminated session cannot be replayed.
type Provider struct {
	credentials Credentials
	tokens      *TokenService
	logger      auth.Logger

	maxLoginAttempts int
	coolDownPeriod   time.Duration

	mu        sync.Mutex
	revoked   map[string]time.Time
	listeners []func(auth.Session)
}

var _ auth.Provider = (*Provider)(nil)

// NewProvider creates a local auth provider.
func NewProvider(credentials Credentials, config Config) *Provider {
	config = config.withDefaults()
	logger := auth.Logger(defProviderLogger{})

	return &Provider{
		credentials:      credentials,
		tokens:           NewTokenService(config.SigningKey, config.TokenExpiration, config.Issuer, config.Audience, logger),
		logger:           logger,
		maxLoginAttempts: config.MaxLoginAttempts,
		coolDownPeriod:   config.CoolDownPeriod,
		revoked:          map[string]time.Time{},
	}
}

// WithLogger sets the provider logger.
func (p *Provider) WithLogger(logger auth.Logger) *Provider {
	if logger != nil {
		p.logger = logger
		p.tokens.logger = logger
	}
	return p
}

// SignIn verifies the password against the stored hash and returns a fresh
// session token. Unknown emails and bad passwords fail identically.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	record, err := p.credentials.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrMismatchedHashAndPassword
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "credential lookup failed")
	}

	if p.inCoolDown(record) {
		p.logger.Warn("sign-in refused during cooldown", "email", record.Email, "attempts", record.LoginAttempts)
		return "", ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		if terr := p.credentials.TrackAttemptedLogin(ctx, record); terr != nil {
			p.logger.Error("failed to track login attempt", "email", record.Email, "error", terr)
		}
		return "", err
	}

	token, err := p.tokens.Generate(record)
	if err != nil {
		return "", err
	}

	if terr := p.credentials.TrackSuccessfulLogin(ctx, record); terr != nil {
		p.logger.Error("failed to track successful login", "email", record.Email, "error", terr)
	}

	if session, err := p.SessionFromToken(token); err == nil {
		p.notify(session)
	}

	return token, nil
}

// SignUp registers the email. When the email already exists the password is
// checked against the stored hash: a match returns the existing identity
// with Existed set, a mismatch is a credential rejection. No session is
// left open either way.
func (p *Provider) SignUp(ctx context.Context, email, password string) (auth.SignUpResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	existing, err := p.credentials.GetByEmail(ctx, email)
	if err == nil {
		if err := ComparePasswordAndHash(password, existing.PasswordHash); err != nil {
			return auth.SignUpResult{}, err
		}
		return auth.SignUpResult{
			Identity: identity{id: existing.ID.String(), email: existing.Email},
			Existed:  true,
		}, nil
	}

	if !repository.IsRecordNotFound(err) {
		return auth.SignUpResult{}, errors.Wrap(err, errors.CategoryInternal, "credential lookup failed")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return auth.SignUpResult{}, err
	}

	record, err := p.credentials.Create(ctx, &Credential{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return auth.SignUpResult{}, errors.Wrap(err, errors.CategoryInternal, "credential create failed")
	}

	return auth.SignUpResult{
		Identity: identity{id: record.ID.String(), email: record.Email},
		Existed:  false,
	}, nil
}

// SignOut revokes the token id carried by the session token. An already
// invalid token is a no-op.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil
		}
		return err
	}

	expiry := time.Now().Add(time.Duration(p.tokens.tokenExpiration) * time.Hour)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	p.mu.Lock()
	p.revoked[claims.ID] = expiry
	for jti, exp := range p.revoked {
		if time.Now().After(exp) {
			delete(p.revoked, jti)
		}
	}
	p.mu.Unlock()

	p.notify(nil)

	return nil
}

// SessionFromToken validates the raw token and rejects revoked sessions.
func (p *Provider) SessionFromToken(raw string) (auth.Session, error) {
	claims, err := p.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	_, revoked := p.revoked[claims.ID]
	p.mu.Unlock()

	if revoked {
		return nil, ErrTokenRevoked
	}

	return &sessionObject{claims: claims}, nil
}

// OnChange registers a session transition listener. Listeners get the new
// session on sign-in and nil on sign-out.
func (p *Provider) OnChange(listener func(auth.Session)) {
	if listener == nil {
		return
	}
	p.mu.Lock()
	p.listeners = append(p.listeners, listener)
	p.mu.Unlock()
}

func (p *Provider) notify(session auth.Session) {
	p.mu.Lock()
	fns := make([]func(auth.Session), len(p.listeners))
	copy(fns, p.listeners)
	p.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}

func (p *Provider) inCoolDown(record *Credential) bool {
	if record.LoginAttempts < p.maxLoginAttempts {
		return false
	}
	if record.LoginAttemptAt == nil {
		return false
	}
	return time.Since(*record.LoginAttemptAt) < p.coolDownPeriod
}

type defProviderLogger struct{}

func (d defProviderLogger) Error(format string, args ...any) {}
func (d defProviderLogger) Warn(format string, args ...any)  {}
func (d defProviderLogger) Info(format string, args ...any)  {}
func (d defProviderLogger) Debug(format string, args ...any) {}
