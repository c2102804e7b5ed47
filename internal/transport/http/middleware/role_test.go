package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/worklink-api/internal/domain"
)

func identityReq(role domain.Role) *http.Request {
	rec := &domain.IdentityRecord{EntityKey: domain.BuildEntityKey(role, "e1"), Role: role}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(WithIdentity(req.Context(), rec))
}

func TestRequireRole_NoIdentityInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole_WrongRole(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(rr, identityReq(domain.RoleLabour))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireRole_CorrectRole(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(rr, identityReq(domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireRole_MultipleAllowedRoles(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin, domain.RoleContractor)(http.HandlerFunc(okHandler)).
		ServeHTTP(rr, identityReq(domain.RoleContractor))
	assert.Equal(t, http.StatusOK, rr.Code)
}
