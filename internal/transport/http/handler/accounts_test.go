package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/worklink-api/internal/domain"
	"github.com/worklink-api/internal/transport/http/middleware"
)

// --- mock ---

type mockIdentitySvc struct{ mock.Mock }

func (m *mockIdentitySvc) Register(ctx context.Context, req domain.RegisterRequest) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, req)
	if rec, _ := args.Get(0).(*domain.IdentityRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentitySvc) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.IdentityRecord, error) {
	args := m.Called(ctx, req)
	if rec, _ := args.Get(1).(*domain.IdentityRecord); rec != nil {
		return args.String(0), rec, args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

func (m *mockIdentitySvc) Get(ctx context.Context, caller *domain.IdentityRecord, entityKey string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, caller, entityKey)
	if rec, _ := args.Get(0).(*domain.IdentityRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentitySvc) Delete(ctx context.Context, caller *domain.IdentityRecord, entityKey string) error {
	return m.Called(ctx, caller, entityKey).Error(0)
}

// --- helpers ---

// withIdentity injects a caller identity, as middleware.Auth would after
// verifying the token and loading the record.
func withIdentity(r *http.Request, rec *domain.IdentityRecord) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), rec))
}

// withChiParam injects a chi URL param into the request context.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func validRegisterBody() []byte {
	b, _ := json.Marshal(domain.RegisterRequest{
		Role:     "labour",
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "password123",
	})
	return b
}

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	h := NewAccountHandler(&mockIdentitySvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ValidationFailure(t *testing.T) {
	h := NewAccountHandler(&mockIdentitySvc{})
	body, _ := json.Marshal(domain.RegisterRequest{Role: "labour"}) // missing required fields
	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ServiceConflict(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)
	h := NewAccountHandler(svc)

	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(validRegisterBody()))
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestRegister_HappyPath(t *testing.T) {
	svc := &mockIdentitySvc{}
	rec := &domain.IdentityRecord{
		EntityKey:          "labour#l1",
		EntityID:           "l1",
		Role:               domain.RoleLabour,
		VerificationStatus: domain.StatusUnverified,
		Name:               "Asha",
	}
	svc.On("Register", mock.Anything, mock.Anything).Return(rec, nil)
	h := NewAccountHandler(svc)

	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(validRegisterBody()))
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp domain.IdentityRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "labour#l1", resp.EntityKey)
	assert.Equal(t, domain.StatusUnverified, resp.VerificationStatus)
	svc.AssertExpectations(t)
}

// --- Login tests ---

func TestLogin_HappyPath(t *testing.T) {
	svc := &mockIdentitySvc{}
	rec := &domain.IdentityRecord{EntityKey: "labour#l1", Role: domain.RoleLabour}
	svc.On("Login", mock.Anything, mock.Anything).Return("a-token", rec, nil)
	h := NewAccountHandler(svc)

	body, _ := json.Marshal(domain.LoginRequest{Role: "labour", Email: "asha@example.com", Password: "password123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/sessions/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "a-token", resp.Bearer)
	require.NotNil(t, resp.Identity)
	assert.Equal(t, "labour#l1", resp.Identity.EntityKey)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := &mockIdentitySvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return("", nil, domain.ErrUnauthorized)
	h := NewAccountHandler(svc)

	body, _ := json.Marshal(domain.LoginRequest{Role: "labour", Email: "asha@example.com", Password: "wrong-pass"})
	r := httptest.NewRequest(http.MethodPost, "/v1/sessions/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- Get / Delete tests ---

func TestGet_MissingIdentity(t *testing.T) {
	h := NewAccountHandler(&mockIdentitySvc{})
	r := withChiParam(httptest.NewRequest(http.MethodGet, "/v1/identities/labour%23l1", nil), "key", "labour#l1")
	rr := httptest.NewRecorder()
	h.Get(rr, r) // no identity in context
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGet_ForbiddenForNonOwner(t *testing.T) {
	svc := &mockIdentitySvc{}
	caller := &domain.IdentityRecord{EntityKey: "labour#l1", Role: domain.RoleLabour}
	svc.On("Get", mock.Anything, caller, "labour#other").Return(nil, domain.ErrForbidden)
	h := NewAccountHandler(svc)

	r := httptest.NewRequest(http.MethodGet, "/v1/identities/labour%23other", nil)
	r = withIdentity(withChiParam(r, "key", "labour#other"), caller)
	rr := httptest.NewRecorder()
	h.Get(rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDelete_HappyPath(t *testing.T) {
	svc := &mockIdentitySvc{}
	caller := &domain.IdentityRecord{EntityKey: "admin#a1", Role: domain.RoleAdmin, AdminTier: domain.TierSuperAdmin}
	svc.On("Delete", mock.Anything, caller, "labour#l1").Return(nil)
	h := NewAccountHandler(svc)

	r := httptest.NewRequest(http.MethodDelete, "/v1/accounts/labour%23l1", nil)
	r = withIdentity(withChiParam(r, "key", "labour#l1"), caller)
	rr := httptest.NewRecorder()
	h.Delete(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
