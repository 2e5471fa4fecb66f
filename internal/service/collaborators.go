package service

import (
	"context"
	"errors"
	"fmt"

	"zoombid/internal/domain"

	"github.com/google/uuid"
)

// EventPublisher announces committed lifecycle events to other services
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// MediaStore persists uploaded product images and returns their public reference
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Mailer sends password reset codes
type Mailer interface {
	SendPasswordResetOTP(ctx context.Context, to, name, otp string) error
}

// ViewGuard reports whether a view with the given key is seen for the first time.
// Forget releases a key whose view could not be stored.
type ViewGuard interface {
	FirstView(ctx context.Context, productID uuid.UUID, key string) (bool, error)
	Forget(ctx context.Context, productID uuid.UUID, key string) error
}

// DispatchObserver records fan-out results
type DispatchObserver interface {
	ObserveDispatch(kind domain.EventKind, delivered, failed int)
}

// notFound converts a repository not-found error into a typed NotFoundError
// and passes every other error through wrapped with msg
func notFound(err error, entity string, id uuid.UUID, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
