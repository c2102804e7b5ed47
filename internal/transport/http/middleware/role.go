package middleware

import (
	"net/http"

	"github.com/worklink-api/internal/domain"
)

// RequireRole returns middleware that allows access only to callers whose
// identity role matches one of the provided roles (e.g. domain.RoleAdmin).
// Route-level coarse gate; the fine-grained capability checks live in the
// services and are never skipped.
func RequireRole(allowedRoles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			for _, role := range allowedRoles {
				if rec.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		})
	}
}
