package authz

import "github.com/worklink-api/internal/domain"

// Capability is a named permission checked by the guard.
type Capability string

const (
	CapReviewVerification Capability = "review_verification"
	CapListVerifications  Capability = "list_verifications"
	CapPublishBroadcast   Capability = "publish_broadcast"
	CapViewAllContent     Capability = "view_all_content"
	CapDeleteAccount      Capability = "delete_account"
	CapPublishJobListing  Capability = "publish_job_listing"
	CapDeactivateContent  Capability = "deactivate_content"
	CapReadOwnResource    Capability = "read_own_resource"
)

// requirement declares what a capability demands of a caller.
type requirement struct {
	adminOnly    bool
	minTier      domain.AdminTier // only meaningful when adminOnly
	role         domain.Role      // non-empty: restricted to this role
	ownerScoped  bool             // caller must own the target resource (admins exempt)
	needVerified bool             // caller's identity must be Verified
}

var requirements = map[Capability]requirement{
	CapReviewVerification: {adminOnly: true},
	CapListVerifications:  {adminOnly: true},
	CapPublishBroadcast:   {adminOnly: true},
	CapViewAllContent:     {adminOnly: true},
	CapDeleteAccount:      {adminOnly: true, minTier: domain.TierSuperAdmin},
	CapPublishJobListing:  {role: domain.RoleContractor, needVerified: true},
	CapDeactivateContent:  {ownerScoped: true},
	CapReadOwnResource:    {ownerScoped: true},
}
