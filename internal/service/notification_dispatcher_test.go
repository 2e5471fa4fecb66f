package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"zoombid/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingObserver struct {
	mu        sync.Mutex
	delivered int
	failed    int
}

func (o *countingObserver) ObserveDispatch(kind domain.EventKind, delivered, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered += delivered
	o.failed += failed
}

func TestProperty_SubmissionNotifiesEveryAdminOnce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("N admins receive exactly N notifications", prop.ForAll(
		func(admins int, parallelism int) bool {
			store := newMemStore()
			seller := store.addUser("seller", domain.RoleUser)
			adminIDs := make(map[uuid.UUID]bool)
			for i := 0; i < admins; i++ {
				adminIDs[store.addUser(uuid.NewString()[:8], domain.RoleAdmin).ID] = true
			}
			product := store.addProduct(seller, domain.ProductStatusPending)

			d := NewNotificationDispatcher(store.notificationRepo(), store.userRepo(), nil,
				DispatcherOptions{Parallelism: parallelism}, zap.NewNop())

			report, err := d.Dispatch(context.Background(), domain.NewProductSubmitted(product, seller))
			if err != nil || report.Delivered != admins {
				t.Logf("FAIL: delivered %d of %d: %v", report.Delivered, admins, err)
				return false
			}

			recipients := make(map[uuid.UUID]bool)
			for _, n := range store.notifications {
				if !adminIDs[n.UserID] || recipients[n.UserID] || n.UserID == seller.ID {
					return false
				}
				recipients[n.UserID] = true
				if n.Title != "New Product Added!" || n.OnClick != domain.OnClickAdminReview ||
					n.Message != "seller added a new product. Take a time to review it" {
					return false
				}
			}
			return len(recipients) == admins
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDispatcher_SellerWhoIsAdminIsNotNotified(t *testing.T) {
	store := newMemStore()
	seller := store.addUser("boss", domain.RoleAdmin)
	other := store.addUser("other", domain.RoleAdmin)
	product := store.addProduct(seller, domain.ProductStatusPending)

	d := NewNotificationDispatcher(store.notificationRepo(), store.userRepo(), nil, DispatcherOptions{}, zap.NewNop())
	report, err := d.Dispatch(context.Background(), domain.NewProductSubmitted(product, seller))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Delivered)
	assert.Len(t, store.notificationsFor(other.ID), 1)
	assert.Empty(t, store.notificationsFor(seller.ID))
}

func TestDispatcher_PartialFailureIsAggregated(t *testing.T) {
	store := newMemStore()
	seller := store.addUser("seller", domain.RoleUser)
	var failing []uuid.UUID
	for i := 0; i < 5; i++ {
		admin := store.addUser(uuid.NewString()[:8], domain.RoleAdmin)
		if i < 2 {
			failing = append(failing, admin.ID)
		}
	}
	store.failNotification = func(n *domain.Notification) error {
		for _, id := range failing {
			if n.UserID == id {
				return errors.New("disk full")
			}
		}
		return nil
	}
	product := store.addProduct(seller, domain.ProductStatusPending)
	observer := &countingObserver{}

	d := NewNotificationDispatcher(store.notificationRepo(), store.userRepo(), observer,
		DispatcherOptions{Parallelism: 3}, zap.NewNop())
	report, err := d.Dispatch(context.Background(), domain.NewProductSubmitted(product, seller))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotificationDelivery)

	var derr *domain.DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 2, derr.Failed)
	assert.Equal(t, 5, derr.Total)
	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, 3, store.notificationCount())
	assert.Equal(t, 3, observer.delivered)
	assert.Equal(t, 2, observer.failed)
	assert.Equal(t, 2, strings.Count(err.Error(), "disk full"))
}

func TestDispatcher_StatusChangeMessages(t *testing.T) {
	tests := []struct {
		name    string
		event   func(seller, buyer *domain.User, product *domain.Product) *domain.Event
		to      string
		title   string
		message string
	}{
		{
			name: "product approved",
			event: func(seller, buyer *domain.User, p *domain.Product) *domain.Event {
				p.Status = domain.ProductStatusApproved
				return domain.NewProductStatusChanged(p, uuid.New())
			},
			to:      "seller",
			title:   "Product approved",
			message: "Congratulations! Your product Camera has been approved",
		},
		{
			name: "product rejected",
			event: func(seller, buyer *domain.User, p *domain.Product) *domain.Event {
				p.Status = domain.ProductStatusRejected
				return domain.NewProductStatusChanged(p, uuid.New())
			},
			to:      "seller",
			title:   "Product rejected",
			message: "Your product Camera has been rejected",
		},
		{
			name: "bid accepted",
			event: func(seller, buyer *domain.User, p *domain.Product) *domain.Event {
				bid := &domain.Bid{ID: uuid.New(), ProductID: p.ID, BuyerID: buyer.ID, SellerID: seller.ID, Status: domain.BidStatusAccepted}
				return domain.NewBidStatusChanged(bid, p, seller.ID)
			},
			to:      "buyer",
			title:   "Bid accepted",
			message: "Congratulations! Your bid for Camera has been accepted",
		},
		{
			name: "bid rejected",
			event: func(seller, buyer *domain.User, p *domain.Product) *domain.Event {
				bid := &domain.Bid{ID: uuid.New(), ProductID: p.ID, BuyerID: buyer.ID, SellerID: seller.ID, Status: domain.BidStatusRejected}
				return domain.NewBidStatusChanged(bid, p, seller.ID)
			},
			to:      "buyer",
			title:   "Bid rejected",
			message: "Your bid for Camera has been rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			seller := store.addUser("seller", domain.RoleUser)
			buyer := store.addUser("buyer", domain.RoleUser)
			store.addUser("admin", domain.RoleAdmin)
			product := store.addProduct(seller, domain.ProductStatusPending)

			d := NewNotificationDispatcher(store.notificationRepo(), store.userRepo(), nil, DispatcherOptions{}, zap.NewNop())
			report, err := d.Dispatch(context.Background(), tt.event(seller, buyer, product))
			require.NoError(t, err)
			assert.Equal(t, 1, report.Delivered)
			require.Equal(t, 1, store.notificationCount())

			recipient, bystander := seller, buyer
			if tt.to == "buyer" {
				recipient, bystander = buyer, seller
			}
			got := store.notificationsFor(recipient.ID)
			require.Len(t, got, 1)
			assert.Empty(t, store.notificationsFor(bystander.ID))
			assert.Equal(t, tt.title, got[0].Title)
			assert.Equal(t, tt.message, got[0].Message)
			assert.Equal(t, domain.OnClickSellerDashboard, got[0].OnClick)
			assert.False(t, got[0].Read)
		})
	}
}

func TestDispatcher_MalformedEvents(t *testing.T) {
	store := newMemStore()
	d := NewNotificationDispatcher(store.notificationRepo(), store.userRepo(), nil, DispatcherOptions{}, zap.NewNop())

	_, err := d.Dispatch(context.Background(), &domain.Event{Kind: domain.EventProductStatusChanged})
	assert.ErrorIs(t, err, domain.ErrNotificationDelivery)

	_, err = d.Dispatch(context.Background(), &domain.Event{Kind: domain.EventBidStatusChanged, Product: &domain.Product{}})
	assert.ErrorIs(t, err, domain.ErrNotificationDelivery)

	_, err = d.Dispatch(context.Background(), &domain.Event{Kind: "product.sold", Product: &domain.Product{}})
	assert.ErrorIs(t, err, domain.ErrNotificationDelivery)
	assert.NotContains(t, err.Error(), "0 of 0")
	assert.Equal(t, 0, store.notificationCount())
}

func TestNotificationService_OwnInbox(t *testing.T) {
	store := newMemStore()
	svc := NewNotificationService(store.notificationRepo())
	user := store.addUser("user", domain.RoleUser)
	other := store.addUser("other", domain.RoleUser)
	ctx := context.Background()

	repo := store.notificationRepo()
	first := newNotification(user.ID, "a", "a", "")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, newNotification(user.ID, "b", "b", "")))

	count, err := svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = svc.MarkRead(ctx, first.ID, other.ID)
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "notification", nf.Entity)

	require.NoError(t, svc.MarkRead(ctx, first.ID, user.ID))
	n, err := svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
