package auth

import "github.com/farca/storefront/model"

// DenyReason explains why the status guard refused access
type DenyReason string

const (
	// DenyNotFound identity has no profile row
	DenyNotFound DenyReason = "not_found"
	// DenyBlocked profile status is blocked
	DenyBlocked DenyReason = "blocked"
	// DenyDeleted profile status is deleted
	DenyDeleted DenyReason = "deleted"
)

// Decision is the outcome of the status guard
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// EvaluateProfile decides whether a profile may hold a session. Admins are
// exempt from status gating, a missing profile is always denied, and of the
// client statuses only blocked and deleted deny access.
//
// The guard runs at two points: right after a successful credential check,
// and on every passive session restore. Credential validity and application
// status are independently mutable facts, so both checks are required.
func EvaluateProfile(profile *model.Profile) Decision {
	if profile == nil {
		return Decision{Reason: DenyNotFound}
	}

	if profile.IsAdmin() {
		return Decision{Allowed: true}
	}

	profile.EnsureStatus()

	switch profile.Status {
	case model.StatusBlocked:
		return Decision{Reason: DenyBlocked}
	case model.StatusDeleted:
		return Decision{Reason: DenyDeleted}
	default:
		return Decision{Allowed: true}
	}
}

// AuthError maps a deny decision onto the error taxonomy. Allowed decisions
// map to nil.
func (d Decision) AuthError() error {
	if d.Allowed {
		return nil
	}

	switch d.Reason {
	case DenyBlocked:
		return ErrAccountBlocked
	case DenyDeleted:
		return ErrAccountDeleted
	default:
		return ErrAccountMissing
	}
}
