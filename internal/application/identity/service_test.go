package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/worklink-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockIdentityStore struct{ mock.Mock }

func (m *mockIdentityStore) Put(ctx context.Context, rec *domain.IdentityRecord) error {
	return m.Called(ctx, rec).Error(0)
}
func (m *mockIdentityStore) Get(ctx context.Context, entityKey string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, entityKey)
	if rec, _ := args.Get(0).(*domain.IdentityRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityStore) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, role, email)
	if rec, _ := args.Get(0).(*domain.IdentityRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentityStore) SoftDelete(ctx context.Context, entityKey string) error {
	return m.Called(ctx, entityKey).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(entityKey, role string) (string, error) {
	args := m.Called(entityKey, role)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func baseReq() domain.RegisterRequest {
	return domain.RegisterRequest{
		Role:     "labour",
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "password123",
	}
}

// --- Register tests ---

func TestRegister_HappyPath(t *testing.T) {
	is := &mockIdentityStore{}
	is.On("GetByEmail", mock.Anything, domain.RoleLabour, "asha@example.com").Return(nil, domain.ErrNotFound)
	is.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{IdentityRepo: is})
	rec, err := svc.Register(context.Background(), baseReq())

	require.NoError(t, err)
	assert.Equal(t, domain.RoleLabour, rec.Role)
	assert.Equal(t, domain.StatusUnverified, rec.VerificationStatus)
	assert.True(t, rec.Enable)
	assert.Equal(t, domain.BuildEntityKey(domain.RoleLabour, rec.EntityID), rec.EntityKey)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("password123")))
	is.AssertExpectations(t)
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	is := &mockIdentityStore{}
	req := baseReq()
	req.Role = "admin"

	svc := NewService(ServiceDeps{IdentityRepo: is})
	_, err := svc.Register(context.Background(), req)

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	is.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_UnknownRole(t *testing.T) {
	req := baseReq()
	req.Role = "overlord"

	svc := NewService(ServiceDeps{IdentityRepo: &mockIdentityStore{}})
	_, err := svc.Register(context.Background(), req)

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_EmailConflict(t *testing.T) {
	is := &mockIdentityStore{}
	is.On("GetByEmail", mock.Anything, domain.RoleLabour, "asha@example.com").
		Return(&domain.IdentityRecord{}, nil)

	svc := NewService(ServiceDeps{IdentityRepo: is})
	_, err := svc.Register(context.Background(), baseReq())

	assert.True(t, errors.Is(err, domain.ErrConflict))
	is.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- Login tests ---

func storedRecord(t *testing.T, password string) *domain.IdentityRecord {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.IdentityRecord{
		EntityKey:    "labour#l1",
		EntityID:     "l1",
		Role:         domain.RoleLabour,
		Email:        "asha@example.com",
		PasswordHash: string(hash),
		Enable:       true,
	}
}

func TestLogin_HappyPath(t *testing.T) {
	is := &mockIdentityStore{}
	jwt := &mockJWTSigner{}
	is.On("GetByEmail", mock.Anything, domain.RoleLabour, "asha@example.com").Return(storedRecord(t, "password123"), nil)
	jwt.On("Sign", "labour#l1", "labour").Return("a-token", nil)

	svc := NewService(ServiceDeps{IdentityRepo: is, JWTProvider: jwt})
	bearer, rec, err := svc.Login(context.Background(), domain.LoginRequest{
		Role: "labour", Email: "asha@example.com", Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "a-token", bearer)
	assert.Equal(t, "labour#l1", rec.EntityKey)
	jwt.AssertExpectations(t)
}

func TestLogin_WrongPassword(t *testing.T) {
	is := &mockIdentityStore{}
	is.On("GetByEmail", mock.Anything, domain.RoleLabour, "asha@example.com").Return(storedRecord(t, "password123"), nil)

	svc := NewService(ServiceDeps{IdentityRepo: is})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		Role: "labour", Email: "asha@example.com", Password: "wrong",
	})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_UnknownEmail(t *testing.T) {
	is := &mockIdentityStore{}
	is.On("GetByEmail", mock.Anything, domain.RoleLabour, "nobody@example.com").Return(nil, domain.ErrNotFound)

	svc := NewService(ServiceDeps{IdentityRepo: is})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		Role: "labour", Email: "nobody@example.com", Password: "password123",
	})

	// NotFound must not leak; invalid credentials either way.
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_DisabledAccount(t *testing.T) {
	is := &mockIdentityStore{}
	rec := storedRecord(t, "password123")
	rec.Enable = false
	is.On("GetByEmail", mock.Anything, domain.RoleLabour, "asha@example.com").Return(rec, nil)

	svc := NewService(ServiceDeps{IdentityRepo: is})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		Role: "labour", Email: "asha@example.com", Password: "password123",
	})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// --- Get / Delete tests ---

func TestGet_OwnerOnly(t *testing.T) {
	is := &mockIdentityStore{}
	owner := &domain.IdentityRecord{EntityKey: "labour#l1", Role: domain.RoleLabour}
	is.On("Get", mock.Anything, "labour#l1").Return(owner, nil)

	svc := NewService(ServiceDeps{IdentityRepo: is})
	rec, err := svc.Get(context.Background(), owner, "labour#l1")
	require.NoError(t, err)
	assert.Equal(t, owner, rec)

	_, err = svc.Get(context.Background(), owner, "labour#other")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestDelete_RequiresSuperAdmin(t *testing.T) {
	is := &mockIdentityStore{}
	plainAdmin := &domain.IdentityRecord{EntityKey: "admin#a1", Role: domain.RoleAdmin, AdminTier: domain.TierAdmin}

	svc := NewService(ServiceDeps{IdentityRepo: is})
	err := svc.Delete(context.Background(), plainAdmin, "labour#l1")

	assert.True(t, errors.Is(err, domain.ErrForbidden))
	is.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestDelete_SuperAdmin(t *testing.T) {
	is := &mockIdentityStore{}
	is.On("SoftDelete", mock.Anything, "labour#l1").Return(nil)
	super := &domain.IdentityRecord{EntityKey: "admin#a1", Role: domain.RoleAdmin, AdminTier: domain.TierSuperAdmin}

	svc := NewService(ServiceDeps{IdentityRepo: is})
	err := svc.Delete(context.Background(), super, "labour#l1")

	require.NoError(t, err)
	is.AssertExpectations(t)
}
