package local

import (
	"time"

	"github.com/farca/storefront/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the JWT payload a local session token carries
type SessionClaims struct {
	jwt.RegisteredClaims
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
}

// UserID returns the user id, falling back to the subject claim
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// sessionObject adapts SessionClaims to auth.Session
type sessionObject struct {
	claims *SessionClaims
}

var _ auth.Session = (*sessionObject)(nil)

func (s *sessionObject) GetUserID() string {
	return s.claims.UserID()
}

func (s *sessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.claims.UserID())
}

func (s *sessionObject) GetEmail() string {
	return s.claims.Email
}

func (s *sessionObject) GetIssuedAt() *time.Time {
	if s.claims.RegisteredClaims.IssuedAt == nil {
		return nil
	}
	t := s.claims.RegisteredClaims.IssuedAt.Time
	return &t
}

func (s *sessionObject) GetExpiration() *time.Time {
	if s.claims.RegisteredClaims.ExpiresAt == nil {
		return nil
	}
	t := s.claims.RegisteredClaims.ExpiresAt.Time
	return &t
}
