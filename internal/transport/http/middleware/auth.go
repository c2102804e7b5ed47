package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/worklink-api/internal/domain"
	jwtinfra "github.com/worklink-api/internal/infrastructure/jwt"
)

type contextKey string

const identityKey contextKey = "identity"

type identityStore interface {
	Get(ctx context.Context, entityKey string) (*domain.IdentityRecord, error)
}

// Auth returns middleware that validates the Bearer JWT, then re-reads the
// caller's IdentityRecord from storage and injects it into context. The token
// only names the entity; role, tier and verification state always come from
// the store, and the snapshot taken here is authoritative for the request.
func Auth(provider *jwtinfra.Provider, identities identityStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, `{"error":"missing or invalid authorization header"}`, http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			rec, err := identities.Get(r.Context(), claims.EntityKey)
			if err != nil || !rec.Enable {
				http.Error(w, `{"error":"unknown or disabled identity"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the caller identity from the request context.
func IdentityFromContext(ctx context.Context) (*domain.IdentityRecord, bool) {
	rec, ok := ctx.Value(identityKey).(*domain.IdentityRecord)
	return rec, ok
}

// WithIdentity injects an identity into a context. Test helper and internal use.
func WithIdentity(ctx context.Context, rec *domain.IdentityRecord) context.Context {
	return context.WithValue(ctx, identityKey, rec)
}
