package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"zoombid/internal/domain"
	"zoombid/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NotificationDispatcher turns lifecycle events into stored notifications
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event *domain.Event) (DispatchReport, error)
}

// DispatchReport summarizes one fan-out
type DispatchReport struct {
	Kind      domain.EventKind
	Delivered int
	Failed    int
}

// DispatcherOptions bounds fan-out work
type DispatcherOptions struct {
	Parallelism int
	Timeout     time.Duration
}

type notificationDispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	observer      DispatchObserver
	opts          DispatcherOptions
	logger        *zap.Logger
}

// NewNotificationDispatcher creates a new instance of NotificationDispatcher. observer may be nil.
func NewNotificationDispatcher(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	observer DispatchObserver,
	opts DispatcherOptions,
	logger *zap.Logger,
) NotificationDispatcher {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	return &notificationDispatcher{
		notifications: notifications,
		users:         users,
		observer:      observer,
		opts:          opts,
		logger:        logger,
	}
}

// Dispatch writes every notification the event calls for. Individual write
// failures do not stop the others and are returned as a *domain.DeliveryError.
func (d *notificationDispatcher) Dispatch(ctx context.Context, event *domain.Event) (DispatchReport, error) {
	report := DispatchReport{Kind: event.Kind}

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	batch, err := d.compose(ctx, event)
	if err != nil {
		d.observe(report)
		return report, &domain.DeliveryError{Kind: event.Kind, Err: err}
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(d.opts.Parallelism)

	for _, n := range batch {
		g.Go(func() error {
			if err := d.notifications.Create(ctx, n); err != nil {
				mu.Lock()
				multierr.AppendInto(&errs, fmt.Errorf("recipient %s: %w", n.UserID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Failed = len(multierr.Errors(errs))
	report.Delivered = len(batch) - report.Failed
	d.observe(report)

	if errs != nil {
		return report, &domain.DeliveryError{
			Kind:   event.Kind,
			Failed: report.Failed,
			Total:  len(batch),
			Err:    errs,
		}
	}

	d.logger.Debug("notifications delivered",
		zap.String("kind", string(event.Kind)),
		zap.Int("count", report.Delivered),
	)
	return report, nil
}

// compose builds the notifications for an event without storing them
func (d *notificationDispatcher) compose(ctx context.Context, event *domain.Event) ([]*domain.Notification, error) {
	if event.Product == nil {
		return nil, errors.New("event has no product")
	}
	product := event.Product

	switch event.Kind {
	case domain.EventProductSubmitted:
		admins, err := d.users.FindByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve admin recipients: %w", err)
		}
		sellerName := ""
		switch {
		case event.Seller != nil:
			sellerName = event.Seller.Name
		case product.Seller != nil:
			sellerName = product.Seller.Name
		}
		batch := make([]*domain.Notification, 0, len(admins))
		for _, admin := range admins {
			if admin.ID == product.SellerID {
				continue
			}
			batch = append(batch, newNotification(
				admin.ID,
				"New Product Added!",
				fmt.Sprintf("%s added a new product. Take a time to review it", sellerName),
				domain.OnClickAdminReview,
			))
		}
		return batch, nil

	case domain.EventProductStatusChanged:
		message := fmt.Sprintf("Your product %s has been %s", product.Name, product.Status)
		if product.Status == domain.ProductStatusApproved {
			message = "Congratulations! " + message
		}
		return []*domain.Notification{newNotification(
			product.SellerID,
			fmt.Sprintf("Product %s", product.Status),
			message,
			domain.OnClickSellerDashboard,
		)}, nil

	case domain.EventBidStatusChanged:
		if event.Bid == nil {
			return nil, errors.New("bid event has no bid")
		}
		message := fmt.Sprintf("Your bid for %s has been %s", product.Name, event.Bid.Status)
		if event.Bid.Status == domain.BidStatusAccepted {
			message = "Congratulations! " + message
		}
		return []*domain.Notification{newNotification(
			event.Bid.BuyerID,
			fmt.Sprintf("Bid %s", event.Bid.Status),
			message,
			domain.OnClickSellerDashboard,
		)}, nil
	}

	return nil, fmt.Errorf("unknown event kind %q", event.Kind)
}

func (d *notificationDispatcher) observe(report DispatchReport) {
	if d.observer != nil {
		d.observer.ObserveDispatch(report.Kind, report.Delivered, report.Failed)
	}
}

func newNotification(userID uuid.UUID, title, message, onClick string) *domain.Notification {
	return &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		OnClick:   onClick,
		CreatedAt: time.Now().UTC(),
	}
}
