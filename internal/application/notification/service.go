package notification

import (
	"context"
	"fmt"

	"github.com/worklink-api/internal/domain"
)

type Service interface {
	ListUnread(ctx context.Context, entityKey string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, entityKey string) (*domain.Notification, error)
}

type notificationStore interface {
	ListUnread(ctx context.Context, entityKey string) ([]domain.Notification, error)
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

type service struct {
	repo notificationStore
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo}
}

func (s *service) ListUnread(ctx context.Context, entityKey string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, entityKey)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, entityKey string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.EntityKey != entityKey {
		return nil, fmt.Errorf("notification belongs to another entity: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}
