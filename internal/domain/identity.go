package domain

import (
	"fmt"
	"time"
)

// Role is the partition an account belongs to. Closed set; construct via ParseRole.
type Role string

const (
	RoleUser       Role = "user"
	RoleLabour     Role = "labour"
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleLabour, RoleContractor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q: %w", s, ErrBadRequest)
}

// EntityType is a role subject to verification (every role except admin).
type EntityType string

const (
	EntityUser       EntityType = "user"
	EntityLabour     EntityType = "labour"
	EntityContractor EntityType = "contractor"
)

func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityUser, EntityLabour, EntityContractor:
		return EntityType(s), nil
	}
	return "", fmt.Errorf("unknown entity type %q: %w", s, ErrBadRequest)
}

// Role returns the role partition an entity type maps to.
func (e EntityType) Role() Role { return Role(e) }

// AdminTier orders admin privilege levels. Zero value means "not an admin".
type AdminTier string

const (
	TierNone       AdminTier = ""
	TierAdmin      AdminTier = "ADMIN"
	TierSuperAdmin AdminTier = "SUPER_ADMIN"
)

// Meets reports whether the tier satisfies the required tier.
// SUPER_ADMIN satisfies everything; ADMIN satisfies ADMIN.
func (t AdminTier) Meets(required AdminTier) bool {
	if required == TierNone {
		return t != TierNone
	}
	if t == TierSuperAdmin {
		return true
	}
	return t == required
}

// VerificationStatus is the trust state of an entity's identity claims.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
	StatusRejected   VerificationStatus = "rejected"
)

// IdentityRecord is the canonical role + verification state carried by every caller.
// AdminTier is set iff Role == RoleAdmin. VerificationStatus is mutated only by the
// verification workflow's decision step; other components read it.
type IdentityRecord struct {
	EntityKey          string             `json:"entity_key" dynamodbav:"entity_key"` // "<role>#<entity_id>"
	EntityID           string             `json:"entity_id" dynamodbav:"entity_id"`
	Role               Role               `json:"role" dynamodbav:"role"`
	AdminTier          AdminTier          `json:"admin_tier,omitempty" dynamodbav:"admin_tier"`
	VerificationStatus VerificationStatus `json:"verification_status" dynamodbav:"verification_status"`
	Name               string             `json:"name" dynamodbav:"name"`
	Email              string             `json:"email" dynamodbav:"email"`
	Phone              *string            `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash       string             `json:"-" dynamodbav:"password_hash"`
	Enable             bool               `json:"enable" dynamodbav:"enable"`
	CreatedAt          time.Time          `json:"created" dynamodbav:"created_at"`
	UpdatedAt          time.Time          `json:"updated" dynamodbav:"updated_at"`
}

// IsAdmin reports whether the identity sits in the admin partition.
func (i *IdentityRecord) IsAdmin() bool { return i.Role == RoleAdmin }

// EntityKey builds the canonical identity key for a role + id pair.
func BuildEntityKey(role Role, entityID string) string {
	return string(role) + "#" + entityID
}

// RegisterRequest creates an account. Admins are provisioned out of band, so the
// role here is limited to the verifiable entity types.
type RegisterRequest struct {
	Role     string  `json:"role" validate:"required,oneof=user labour contractor"`
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest authenticates an account by role + email.
type LoginRequest struct {
	Role     string `json:"role" validate:"required,oneof=user labour contractor admin"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
