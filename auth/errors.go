package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrCredentialRejected is returned for a bad password or unknown email.
// Recoverable, the user retries.
var ErrCredentialRejected = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode("CREDENTIAL_REJECTED").
	WithCode(errors.CodeUnauthorized)

// ErrAccountBlocked means an administrator blocked the account.
var ErrAccountBlocked = errors.New("account has been blocked, contact support", errors.CategoryAuthz).
	WithTextCode("ACCOUNT_BLOCKED").
	WithCode(errors.CodeForbidden)

// ErrAccountDeleted means the account was soft deleted.
var ErrAccountDeleted = errors.New("account has been removed, contact support", errors.CategoryAuthz).
	WithTextCode("ACCOUNT_DELETED").
	WithCode(errors.CodeForbidden)

// ErrAccountMissing means the identity has no profile row, either never
// provisioned or removed out of band.
var ErrAccountMissing = errors.New("no account found for this identity, contact support", errors.CategoryAuthz).
	WithTextCode("ACCOUNT_MISSING").
	WithCode(errors.CodeForbidden)

// ErrAlreadyExists is the registration collision, the caller should use
// sign-in instead.
var ErrAlreadyExists = errors.New("account already registered, sign in instead", errors.CategoryConflict).
	WithTextCode("ALREADY_EXISTS").
	WithCode(errors.CodeConflict)

// ErrProvisioningFailed wraps unexpected store failures during profile
// creation. The raw cause is logged, never surfaced.
var ErrProvisioningFailed = errors.New("unable to complete registration", errors.CategoryInternal).
	WithTextCode("PROVISIONING_FAILED").
	WithCode(errors.CodeInternal)

// ErrNoSession is returned when a restore is attempted without a usable token.
var ErrNoSession = errors.New("no active session", errors.CategoryAuth).
	WithTextCode("NO_SESSION").
	WithCode(errors.CodeUnauthorized)

// IsUniqueViolation checks for unique-constraint errors across the dialects
// we run on. Concurrent duplicate registration surfaces as one of these and
// is handled, not propagated.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE=23505")
}
