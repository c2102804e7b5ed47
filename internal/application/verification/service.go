// Package verification implements the KYC review workflow: submissions enter
// pending, an admin decision moves them to a terminal state, and the decision
// step is the single write path to an identity's verification status.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/worklink-api/internal/domain"
	"github.com/worklink-api/internal/pkg/id"
)

type Service interface {
	Submit(ctx context.Context, entityType domain.EntityType, entityID string, req domain.SubmitVerificationRequest) (*domain.VerificationRequest, error)
	Get(ctx context.Context, requestID string) (*domain.VerificationRequest, error)
	Decide(ctx context.Context, requestID string, decision domain.RequestStatus, deciderKey, notes string) (*domain.VerificationRequest, error)
	ListByEntityType(ctx context.Context, entityType domain.EntityType, statusFilter domain.RequestStatus, limit int, cursor string) ([]domain.VerificationRequest, string, error)
}

type requestStore interface {
	Create(ctx context.Context, req *domain.VerificationRequest) error
	Get(ctx context.Context, requestID string) (*domain.VerificationRequest, error)
	Decide(ctx context.Context, requestID, entityKey string, decision domain.RequestStatus, newStatus domain.VerificationStatus, deciderKey string, decidedAt time.Time, notes string) error
	ListByEntityType(ctx context.Context, entityType domain.EntityType, statusFilter domain.RequestStatus, limit int32, cursor string) ([]domain.VerificationRequest, string, error)
}

type identityStore interface {
	Get(ctx context.Context, entityKey string) (*domain.IdentityRecord, error)
}

type documentStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	Delete(ctx context.Context, key string) error
	PresignStored(ctx context.Context, storedURL string, ttl time.Duration) (string, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	requests      requestStore
	identities    identityStore
	documents     documentStore
	notifications notificationStore
	mailer        mailer
	sms           smsSender
	timeout       time.Duration
}

type ServiceDeps struct {
	RequestRepo      requestStore
	IdentityRepo     identityStore
	DocumentStore    documentStore
	NotificationRepo notificationStore
	Mailer           mailer
	SMSSender        smsSender
	Timeout          time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		requests:      deps.RequestRepo,
		identities:    deps.IdentityRepo,
		documents:     deps.DocumentStore,
		notifications: deps.NotificationRepo,
		mailer:        deps.Mailer,
		sms:           deps.SMSSender,
		timeout:       deps.Timeout,
	}
}

func (s *service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Submit uploads the documents and creates a pending request. The store rejects
// the write when a pending request already exists for the entity, so a raced
// double submission surfaces as ErrConflict without touching the first request.
// The entity's IdentityRecord is not modified here.
func (s *service) Submit(ctx context.Context, entityType domain.EntityType, entityID string, req domain.SubmitVerificationRequest) (*domain.VerificationRequest, error) {
	entityKey := domain.BuildEntityKey(entityType.Role(), entityID)
	requestID := id.New()

	docs := make([]domain.SubmittedDocument, 0, len(req.Documents))
	keys := make([]string, 0, len(req.Documents))
	for _, upload := range req.Documents {
		key := fmt.Sprintf("verifications/%s/%s/%s", entityKey, requestID, upload.FileName)
		url, err := s.documents.UploadBase64(ctx, key, upload.Base64)
		if err != nil {
			return nil, fmt.Errorf("store document %s: %w", upload.FileName, err)
		}
		docs = append(docs, domain.SubmittedDocument{Type: upload.Type, URL: url})
		keys = append(keys, key)
	}

	vr := &domain.VerificationRequest{
		RequestID:  requestID,
		EntityType: entityType,
		EntityID:   entityID,
		EntityKey:  entityKey,
		Documents:  docs,
		Status:     domain.RequestPending,
		CreatedAt:  time.Now().UTC(),
	}
	octx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.requests.Create(octx, vr); err != nil {
		slog.Warn("verification submit rejected", "entity", entityKey, "err", err)
		// The request was never admitted, so its uploaded documents are
		// orphans. Removal is best effort.
		for _, key := range keys {
			if derr := s.documents.Delete(ctx, key); derr != nil {
				slog.Warn("orphan document not removed", "key", key, "err", derr)
			}
		}
		return nil, err
	}
	slog.Info("verification request submitted", "request", requestID, "entity", entityKey)
	return vr, nil
}

// Get loads a single request with its document URLs replaced by time-limited
// presigned links, so a reviewer can open the blobs directly. A presign failure
// leaves the stored URL in place rather than failing the whole read.
func (s *service) Get(ctx context.Context, requestID string) (*domain.VerificationRequest, error) {
	octx, cancel := s.opCtx(ctx)
	defer cancel()
	vr, err := s.requests.Get(octx, requestID)
	if err != nil {
		return nil, err
	}
	for i := range vr.Documents {
		url, err := s.documents.PresignStored(ctx, vr.Documents[i].URL, 15*time.Minute)
		if err != nil {
			slog.Warn("could not presign document", "request", requestID, "err", err)
			continue
		}
		vr.Documents[i].URL = url
	}
	return vr, nil
}

// Decide moves a pending request to its terminal status and propagates the
// outcome to the entity's IdentityRecord in the same storage transaction, so
// the request and the identity never disagree and a failed decision is safe to
// retry. Decisions are final: a second call for the same request fails with
// ErrInvalidState and changes nothing.
func (s *service) Decide(ctx context.Context, requestID string, decision domain.RequestStatus, deciderKey, notes string) (*domain.VerificationRequest, error) {
	octx, cancel := s.opCtx(ctx)
	defer cancel()

	vr, err := s.requests.Get(octx, requestID)
	if err != nil {
		return nil, err
	}
	if vr.Status != domain.RequestPending {
		return nil, fmt.Errorf("request %s already %s: %w", requestID, vr.Status, domain.ErrInvalidState)
	}

	status := domain.StatusRejected
	if decision == domain.RequestApproved {
		status = domain.StatusVerified
	}
	decidedAt := time.Now().UTC()
	if err := s.requests.Decide(octx, requestID, vr.EntityKey, decision, status, deciderKey, decidedAt, notes); err != nil {
		slog.Warn("verification decision not applied", "request", requestID, "err", err)
		return nil, err
	}

	vr.Status = decision
	vr.DecidedBy = &deciderKey
	vr.DecidedAt = &decidedAt
	vr.Notes = notes

	slog.Info("verification decided", "request", requestID, "entity", vr.EntityKey, "decision", decision, "decider", deciderKey)
	s.notifyDecision(ctx, vr)
	return vr, nil
}

func (s *service) ListByEntityType(ctx context.Context, entityType domain.EntityType, statusFilter domain.RequestStatus, limit int, cursor string) ([]domain.VerificationRequest, string, error) {
	if limit < 1 {
		limit = 50
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.requests.ListByEntityType(ctx, entityType, statusFilter, int32(limit), cursor)
}

// notifyDecision writes the stored notification and sends best-effort email and
// SMS. Delivery failures are logged, never surfaced: the decision itself is
// already durable.
func (s *service) notifyDecision(ctx context.Context, vr *domain.VerificationRequest) {
	msg := fmt.Sprintf("Your identity verification request was %s.", vr.Status)

	nctx, cancel := s.opCtx(ctx)
	defer cancel()
	n := &domain.Notification{
		NotificationID: id.New(),
		EntityKey:      vr.EntityKey,
		Message:        msg,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.notifications.Put(nctx, n); err != nil {
		slog.Warn("could not store decision notification", "entity", vr.EntityKey, "err", err)
	}

	rec, err := s.identities.Get(nctx, vr.EntityKey)
	if err != nil {
		slog.Warn("could not load identity for decision delivery", "entity", vr.EntityKey, "err", err)
		return
	}
	if s.mailer != nil && rec.Email != "" {
		if err := s.mailer.SendEmail(rec.Email, "Verification decision", msg); err != nil {
			slog.Warn("decision email failed", "entity", vr.EntityKey, "err", err)
		}
	}
	if s.sms != nil && rec.Phone != nil {
		if err := s.sms.SendSMS(nctx, *rec.Phone, msg); err != nil {
			slog.Warn("decision sms failed", "entity", vr.EntityKey, "err", err)
		}
	}
}
