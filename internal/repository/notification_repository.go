package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zoombid/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrNotificationNotFound = fmt.Errorf("notification %w", domain.ErrNotFound)
)

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db      DBTX
	timeout time.Duration
}

// NewNotificationRepository creates a new instance of NotificationRepository
func NewNotificationRepository(db DBTX, timeout time.Duration) NotificationRepository {
	return &notificationRepository{db: db, timeout: timeout}
}

// Create inserts a notification
func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO notifications (id, user_id, title, message, on_click, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.OnClick,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return ErrUserNotFound
		}
		return storeError("failed to create notification", err)
	}

	return nil
}

// ListByUser returns the notifications addressed to userID, newest first
func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, user_id, title, message, on_click, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeError("failed to list notifications", err)
	}
	defer rows.Close()

	notifications := []*domain.Notification{}
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.OnClick, &n.Read, &n.CreatedAt); err != nil {
			return nil, storeError("failed to scan notification", err)
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, storeError("error iterating notifications", err)
	}

	return notifications, nil
}

// CountUnread returns how many notifications of userID are unread
func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, storeError("failed to count unread notifications", err)
	}

	return count, nil
}

// MarkRead flags one notification of userID as read
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	var marked uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2 RETURNING id`,
		id, userID,
	).Scan(&marked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotificationNotFound
		}
		return storeError("failed to mark notification read", err)
	}

	return nil
}

// MarkAllRead flags every unread notification of userID as read
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, storeError("failed to mark notifications read", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, storeError("failed to get rows affected", err)
	}

	return updated, nil
}
