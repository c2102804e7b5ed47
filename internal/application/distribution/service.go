// Package distribution is the façade publish-time operations go through. Every
// operation consults the authorization guard before touching content or
// delegating to the verification workflow, so callers cannot bypass it.
package distribution

import (
	"context"
	"log/slog"
	"time"

	"github.com/worklink-api/internal/audience"
	"github.com/worklink-api/internal/authz"
	"github.com/worklink-api/internal/domain"
	"github.com/worklink-api/internal/pkg/id"
)

type Service interface {
	PublishBroadcast(ctx context.Context, caller *domain.IdentityRecord, req domain.PublishContentRequest) (*domain.ContentItem, error)
	PublishJobListing(ctx context.Context, caller *domain.IdentityRecord, req domain.PublishContentRequest) (*domain.ContentItem, error)
	GetActiveFor(ctx context.Context, caller *domain.IdentityRecord, kind domain.ContentKind, now time.Time) ([]domain.ContentItem, error)
	ListAll(ctx context.Context, caller *domain.IdentityRecord, kind domain.ContentKind) ([]domain.ContentItem, error)
	Deactivate(ctx context.Context, caller *domain.IdentityRecord, itemID string) error
	ReviewVerification(ctx context.Context, caller *domain.IdentityRecord, requestID string, req domain.DecideVerificationRequest) (*domain.VerificationRequest, error)
	GetVerification(ctx context.Context, caller *domain.IdentityRecord, requestID string) (*domain.VerificationRequest, error)
	ListVerifications(ctx context.Context, caller *domain.IdentityRecord, entityType domain.EntityType, statusFilter domain.RequestStatus, limit int, cursor string) ([]domain.VerificationRequest, string, error)
}

type contentStore interface {
	Put(ctx context.Context, item *domain.ContentItem) error
	Get(ctx context.Context, itemID string) (*domain.ContentItem, error)
	ListByAudiences(ctx context.Context, kind domain.ContentKind, audiences []domain.TargetAudience) ([]domain.ContentItem, error)
	ScanAll(ctx context.Context, kind domain.ContentKind) ([]domain.ContentItem, error)
	Deactivate(ctx context.Context, itemID string) error
}

type verificationWorkflow interface {
	Get(ctx context.Context, requestID string) (*domain.VerificationRequest, error)
	Decide(ctx context.Context, requestID string, decision domain.RequestStatus, deciderKey, notes string) (*domain.VerificationRequest, error)
	ListByEntityType(ctx context.Context, entityType domain.EntityType, statusFilter domain.RequestStatus, limit int, cursor string) ([]domain.VerificationRequest, string, error)
}

type broadcastPublisher interface {
	PublishBroadcast(ctx context.Context, audience, subject, message string) error
}

type service struct {
	content  contentStore
	workflow verificationWorkflow
	fanout   broadcastPublisher
	timeout  time.Duration
}

type ServiceDeps struct {
	ContentRepo contentStore
	Workflow    verificationWorkflow
	Fanout      broadcastPublisher
	Timeout     time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		content:  deps.ContentRepo,
		workflow: deps.Workflow,
		fanout:   deps.Fanout,
		timeout:  deps.Timeout,
	}
}

func (s *service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// denied logs the refusal for the audit trail and returns the guard error.
func denied(d authz.Decision, op string, caller *domain.IdentityRecord) error {
	slog.Warn("authorization denied", "op", op, "reason", d.Reason, "caller", caller.EntityKey)
	return d.Err()
}

func (s *service) PublishBroadcast(ctx context.Context, caller *domain.IdentityRecord, req domain.PublishContentRequest) (*domain.ContentItem, error) {
	if d := authz.Authorize(caller, authz.CapPublishBroadcast, authz.Target{}); !d.Allowed {
		return nil, denied(d, "publish_broadcast", caller)
	}
	item, err := s.publish(ctx, caller, domain.KindBroadcast, req)
	if err != nil {
		return nil, err
	}
	if s.fanout != nil {
		if err := s.fanout.PublishBroadcast(ctx, string(item.TargetAudience), item.Title, item.Message); err != nil {
			slog.Warn("broadcast fan-out failed", "item", item.ItemID, "err", err)
		}
	}
	return item, nil
}

func (s *service) PublishJobListing(ctx context.Context, caller *domain.IdentityRecord, req domain.PublishContentRequest) (*domain.ContentItem, error) {
	if d := authz.Authorize(caller, authz.CapPublishJobListing, authz.Target{}); !d.Allowed {
		return nil, denied(d, "publish_job_listing", caller)
	}
	return s.publish(ctx, caller, domain.KindJobListing, req)
}

func (s *service) publish(ctx context.Context, caller *domain.IdentityRecord, kind domain.ContentKind, req domain.PublishContentRequest) (*domain.ContentItem, error) {
	target, err := domain.ParseTargetAudience(req.TargetAudience)
	if err != nil {
		return nil, err
	}
	item := &domain.ContentItem{
		ItemID:         id.New(),
		Kind:           kind,
		Title:          req.Title,
		Message:        req.Message,
		TargetAudience: target,
		Priority:       req.Priority,
		Active:         true,
		CreatedBy:      caller.EntityKey,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      req.ExpiresAt,
	}
	octx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.content.Put(octx, item); err != nil {
		return nil, err
	}
	slog.Info("content published", "item", item.ItemID, "kind", kind, "audience", target, "by", caller.EntityKey)
	return item, nil
}

// GetActiveFor returns the active items the caller's role may see, newest
// first. Admins have no audience partition; they use ListAll instead.
func (s *service) GetActiveFor(ctx context.Context, caller *domain.IdentityRecord, kind domain.ContentKind, now time.Time) ([]domain.ContentItem, error) {
	audiences := []domain.TargetAudience{domain.AudienceAll}
	switch caller.Role {
	case domain.RoleUser:
		audiences = append(audiences, domain.AudienceUsers)
	case domain.RoleLabour:
		audiences = append(audiences, domain.AudienceLabour)
	case domain.RoleContractor:
		audiences = append(audiences, domain.AudienceContractors)
	}
	octx, cancel := s.opCtx(ctx)
	defer cancel()
	items, err := s.content.ListByAudiences(octx, kind, audiences)
	if err != nil {
		return nil, err
	}
	return audience.FilterActive(items, caller.Role, now), nil
}

// ListAll is the capability-gated unfiltered view: every item of the kind,
// including expired and deactivated ones.
func (s *service) ListAll(ctx context.Context, caller *domain.IdentityRecord, kind domain.ContentKind) ([]domain.ContentItem, error) {
	if d := authz.Authorize(caller, authz.CapViewAllContent, authz.Target{}); !d.Allowed {
		return nil, denied(d, "view_all_content", caller)
	}
	octx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.content.ScanAll(octx, kind)
}

// Deactivate terminates an item early. Owner or admin only.
func (s *service) Deactivate(ctx context.Context, caller *domain.IdentityRecord, itemID string) error {
	octx, cancel := s.opCtx(ctx)
	defer cancel()
	item, err := s.content.Get(octx, itemID)
	if err != nil {
		return err
	}
	if d := authz.Authorize(caller, authz.CapDeactivateContent, authz.Target{OwnerKey: item.CreatedBy}); !d.Allowed {
		return denied(d, "deactivate_content", caller)
	}
	return s.content.Deactivate(octx, itemID)
}

// ReviewVerification gates the admin decision path and delegates to the workflow.
func (s *service) ReviewVerification(ctx context.Context, caller *domain.IdentityRecord, requestID string, req domain.DecideVerificationRequest) (*domain.VerificationRequest, error) {
	if d := authz.Authorize(caller, authz.CapReviewVerification, authz.Target{}); !d.Allowed {
		return nil, denied(d, "review_verification", caller)
	}
	decision, err := domain.ParseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	return s.workflow.Decide(ctx, requestID, decision, caller.EntityKey, req.Notes)
}

// GetVerification gates the single-request review view, documents presigned.
func (s *service) GetVerification(ctx context.Context, caller *domain.IdentityRecord, requestID string) (*domain.VerificationRequest, error) {
	if d := authz.Authorize(caller, authz.CapReviewVerification, authz.Target{}); !d.Allowed {
		return nil, denied(d, "get_verification", caller)
	}
	return s.workflow.Get(ctx, requestID)
}

// ListVerifications gates the admin review listing and delegates to the workflow.
func (s *service) ListVerifications(ctx context.Context, caller *domain.IdentityRecord, entityType domain.EntityType, statusFilter domain.RequestStatus, limit int, cursor string) ([]domain.VerificationRequest, string, error) {
	if d := authz.Authorize(caller, authz.CapListVerifications, authz.Target{}); !d.Allowed {
		return nil, "", denied(d, "list_verifications", caller)
	}
	return s.workflow.ListByEntityType(ctx, entityType, statusFilter, limit, cursor)
}
