// Package authz decides, per operation, whether a caller identity may exercise
// a capability. Decisions are pure values; callers reject or proceed based on
// the result and a Deny never downgrades to a partial success.
package authz

import (
	"fmt"

	"github.com/worklink-api/internal/domain"
)

// DenyReason is the machine-readable cause carried by every Deny.
type DenyReason string

const (
	ReasonNotAdmin         DenyReason = "not_admin"
	ReasonInsufficientTier DenyReason = "insufficient_tier"
	ReasonNotOwner         DenyReason = "not_owner"
	ReasonWrongRole        DenyReason = "wrong_role"
	ReasonNotVerified      DenyReason = "not_verified"
	ReasonUnknown          DenyReason = "unknown_capability"
)

// Decision is the guard's verdict.
type Decision struct {
	Allowed bool
	Reason  DenyReason // empty on Allow
}

func allow() Decision                  { return Decision{Allowed: true} }
func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Err converts a Deny into a domain error carrying the reason code.
// Returns nil on Allow.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%s: %w", d.Reason, domain.ErrForbidden)
}

// Target names the resource an owner-scoped capability acts on.
type Target struct {
	OwnerKey string // entity key of the resource owner; empty when not owner-scoped
}

// Authorize evaluates the capability's rules in order; the first matching rule
// decides. Rule order: admin scope, admin tier, ownership, role, verification.
func Authorize(caller *domain.IdentityRecord, cap Capability, target Target) Decision {
	req, ok := requirements[cap]
	if !ok {
		return deny(ReasonUnknown)
	}
	if req.adminOnly {
		if !caller.IsAdmin() {
			return deny(ReasonNotAdmin)
		}
		if req.minTier != domain.TierNone && !caller.AdminTier.Meets(req.minTier) {
			return deny(ReasonInsufficientTier)
		}
		return allow()
	}
	if req.ownerScoped {
		if caller.IsAdmin() {
			return allow()
		}
		if target.OwnerKey != caller.EntityKey {
			return deny(ReasonNotOwner)
		}
		return allow()
	}
	if req.role != "" && caller.Role != req.role {
		return deny(ReasonWrongRole)
	}
	if req.needVerified && caller.VerificationStatus != domain.StatusVerified {
		return deny(ReasonNotVerified)
	}
	return allow()
}
