// Package audience resolves which role partitions may see a targeted content item.
// It is pure: no storage and no clock of its own; callers inject the items and now.
package audience

import (
	"time"

	"github.com/worklink-api/internal/domain"
)

// audienceForRole maps a viewer role to the audience partition that targets it
// exclusively. Admin has no partition here; admins bypass this engine entirely
// through the capability-gated unfiltered view.
func audienceForRole(role domain.Role) (domain.TargetAudience, bool) {
	switch role {
	case domain.RoleUser:
		return domain.AudienceUsers, true
	case domain.RoleLabour:
		return domain.AudienceLabour, true
	case domain.RoleContractor:
		return domain.AudienceContractors, true
	}
	return "", false
}

// IsVisible reports whether a viewer role may see the item's audience.
// ALL is visible to every non-admin role; the role-specific audiences are
// visible to exactly that role. This is a correctness property, not a UI
// convenience: a USERS item must never reach a labour caller and vice versa.
func IsVisible(item domain.ContentItem, viewer domain.Role) bool {
	if item.TargetAudience == domain.AudienceAll {
		return viewer == domain.RoleUser || viewer == domain.RoleLabour || viewer == domain.RoleContractor
	}
	own, ok := audienceForRole(viewer)
	return ok && item.TargetAudience == own
}

// IsActive reports whether the item is live at now: not deactivated and not past
// its expiry. An item whose ExpiresAt is in the past is excluded regardless of
// any other field.
func IsActive(item domain.ContentItem, now time.Time) bool {
	if !item.Active {
		return false
	}
	return item.ExpiresAt == nil || item.ExpiresAt.After(now)
}

// FilterActive returns the subsequence of items visible to the viewer role and
// active at now. Relative input order is preserved, so repeated calls with the
// same now are idempotent.
func FilterActive(items []domain.ContentItem, viewer domain.Role, now time.Time) []domain.ContentItem {
	out := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if IsVisible(item, viewer) && IsActive(item, now) {
			out = append(out, item)
		}
	}
	return out
}
