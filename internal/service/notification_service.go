package service

import (
	"context"
	"fmt"

	"zoombid/internal/domain"
	"zoombid/internal/repository"

	"github.com/google/uuid"
)

// NotificationService exposes a user's own notifications
type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type notificationService struct {
	notifications repository.NotificationRepository
}

// NewNotificationService creates a new instance of NotificationService
func NewNotificationService(notifications repository.NotificationRepository) NotificationService {
	return &notificationService{notifications: notifications}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	notifications, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags one notification as read. Notifications of other users
// are reported as not found.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		return notFound(err, "notification", notificationID, "failed to mark notification read")
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}
