package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileRole is the application-level role of a profile
type ProfileRole = string

const (
	// RoleClient is a regular storefront client
	RoleClient ProfileRole = "client"
	// RoleAdmin is a back-office administrator
	RoleAdmin ProfileRole = "admin"
)

// ProfileStatus is the lifecycle status of a profile
type ProfileStatus = string

const (
	// StatusActive client may sign in and use the storefront
	StatusActive ProfileStatus = "active"
	// StatusInactive client is dormant but may still sign in
	StatusInactive ProfileStatus = "inactive"
	// StatusBlocked client is denied access until an admin unblocks
	StatusBlocked ProfileStatus = "blocked"
	// StatusDeleted soft-deleted, row kept for order/document history
	StatusDeleted ProfileStatus = "deleted"
)

// Profile is the application account record, distinct from the
// authentication identity it references through UserID.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID     `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Email         string        `bun:"email,notnull" json:"email,omitempty"`
	FullName      string        `bun:"full_name,notnull" json:"full_name,omitempty"`
	Phone         string        `bun:"phone" json:"phone,omitempty"`
	Role          ProfileRole   `bun:"role,notnull" json:"role,omitempty"`
	Status        ProfileStatus `bun:"client_status,notnull" json:"client_status,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus normalizes the zero value to active
func (p *Profile) EnsureStatus() {
	if p.Status == "" {
		p.Status = StatusActive
	}
}

// IsAdmin reports whether the profile carries the admin role
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// IsDeleted reports whether the profile is soft deleted
func (p *Profile) IsDeleted() bool {
	return p != nil && p.Status == StatusDeleted
}

// IsBlocked reports whether the profile is blocked
func (p *Profile) IsBlocked() bool {
	return p != nil && p.Status == StatusBlocked
}

// ValidStatus checks the status against the known enum
func ValidStatus(s ProfileStatus) bool {
	switch s {
	case StatusActive, StatusInactive, StatusBlocked, StatusDeleted:
		return true
	default:
		return false
	}
}

// ValidRole checks the role against the known enum
func ValidRole(r ProfileRole) bool {
	switch r {
	case RoleClient, RoleAdmin:
		return true
	default:
		return false
	}
}
