package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/worklink-api/internal/authz"
	"github.com/worklink-api/internal/domain"
	"github.com/worklink-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// Service issues and resolves server-verified identities. Registration creates
// the IdentityRecord Unverified; only the verification workflow moves it from
// there.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.IdentityRecord, error)
	Login(ctx context.Context, req domain.LoginRequest) (string, *domain.IdentityRecord, error)
	Get(ctx context.Context, caller *domain.IdentityRecord, entityKey string) (*domain.IdentityRecord, error)
	Delete(ctx context.Context, caller *domain.IdentityRecord, entityKey string) error
}

type identityStore interface {
	Put(ctx context.Context, rec *domain.IdentityRecord) error
	Get(ctx context.Context, entityKey string) (*domain.IdentityRecord, error)
	GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.IdentityRecord, error)
	SoftDelete(ctx context.Context, entityKey string) error
}

type jwtSigner interface {
	Sign(entityKey, role string) (string, error)
}

type service struct {
	repo    identityStore
	jwt     jwtSigner
	timeout time.Duration
}

type ServiceDeps struct {
	IdentityRepo identityStore
	JWTProvider  jwtSigner
	Timeout      time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.IdentityRepo, jwt: deps.JWTProvider, timeout: deps.Timeout}
}

// opCtx bounds a persistence operation; past the deadline the store reports
// the retryable unavailable error.
func (s *service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.IdentityRecord, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin {
		return nil, fmt.Errorf("admins are provisioned out of band: %w", domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	entityID := id.New()
	rec := &domain.IdentityRecord{
		EntityKey:          domain.BuildEntityKey(role, entityID),
		EntityID:           entityID,
		Role:               role,
		VerificationStatus: domain.StatusUnverified,
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		PasswordHash:       string(hash),
		Enable:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	if _, err := s.repo.GetByEmail(ctx, role, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered for role %s: %w", role, domain.ErrConflict)
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.IdentityRecord, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return "", nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	rec, err := s.repo.GetByEmail(ctx, role, req.Email)
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !rec.Enable {
		return "", nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, err := s.jwt.Sign(rec.EntityKey, string(rec.Role))
	if err != nil {
		return "", nil, err
	}
	return bearer, rec, nil
}

func (s *service) Get(ctx context.Context, caller *domain.IdentityRecord, entityKey string) (*domain.IdentityRecord, error) {
	if d := authz.Authorize(caller, authz.CapReadOwnResource, authz.Target{OwnerKey: entityKey}); !d.Allowed {
		return nil, d.Err()
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.Get(ctx, entityKey)
}

// Delete disables an account. Requires SUPER_ADMIN; the record is retained.
func (s *service) Delete(ctx context.Context, caller *domain.IdentityRecord, entityKey string) error {
	if d := authz.Authorize(caller, authz.CapDeleteAccount, authz.Target{}); !d.Allowed {
		return d.Err()
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.SoftDelete(ctx, entityKey)
}
