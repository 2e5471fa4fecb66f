package transport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"zoombid/internal/domain"
	"zoombid/internal/middleware"
	"zoombid/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fakeWorkflow struct {
	submit       func(draft domain.ProductDraft, sellerID uuid.UUID) (service.Outcome[*domain.Product], error)
	changeStatus func(id uuid.UUID, status domain.ProductStatus, actorID uuid.UUID) (service.Outcome[*domain.Product], error)
	recordView   func(id uuid.UUID, key string) (int, error)
	placeBid     func(draft domain.BidDraft, buyerID uuid.UUID) (*domain.Bid, error)
	changeBid    func(id uuid.UUID, status domain.BidStatus, actor domain.Actor) (service.Outcome[*domain.Bid], error)
	deleteBid    func(id uuid.UUID, actor domain.Actor) error
}

func (f *fakeWorkflow) SubmitProduct(ctx context.Context, draft domain.ProductDraft, sellerID uuid.UUID) (service.Outcome[*domain.Product], error) {
	return f.submit(draft, sellerID)
}

func (f *fakeWorkflow) ChangeProductStatus(ctx context.Context, id uuid.UUID, status domain.ProductStatus, actorID uuid.UUID) (service.Outcome[*domain.Product], error) {
	return f.changeStatus(id, status, actorID)
}

func (f *fakeWorkflow) RecordView(ctx context.Context, id uuid.UUID, key string) (int, error) {
	return f.recordView(id, key)
}

func (f *fakeWorkflow) PlaceBid(ctx context.Context, draft domain.BidDraft, buyerID uuid.UUID) (*domain.Bid, error) {
	return f.placeBid(draft, buyerID)
}

func (f *fakeWorkflow) ChangeBidStatus(ctx context.Context, id uuid.UUID, status domain.BidStatus, actor domain.Actor) (service.Outcome[*domain.Bid], error) {
	return f.changeBid(id, status, actor)
}

func (f *fakeWorkflow) DeleteBid(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	return f.deleteBid(id, actor)
}

// fakeProductService serves the read and edit routes. Lifecycle methods
// go through the workflow and are never called by handlers.
type fakeProductService struct {
	service.ProductService

	list   func(filter domain.ProductFilter) ([]*domain.Product, error)
	get    func(id uuid.UUID) (*domain.Product, error)
	update func(id uuid.UUID, update domain.ProductUpdate, actor domain.Actor) (*domain.Product, error)
	remove func(id uuid.UUID, actor domain.Actor) error
	attach func(id uuid.UUID, actor domain.Actor, filename string, data []byte) (*domain.Product, error)
}

func (f *fakeProductService) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	return f.list(filter)
}

func (f *fakeProductService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return f.get(id)
}

func (f *fakeProductService) Update(ctx context.Context, id uuid.UUID, update domain.ProductUpdate, actor domain.Actor) (*domain.Product, error) {
	return f.update(id, update, actor)
}

func (f *fakeProductService) Delete(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	return f.remove(id, actor)
}

func (f *fakeProductService) AttachImage(ctx context.Context, id uuid.UUID, actor domain.Actor, filename string, data []byte) (*domain.Product, error) {
	return f.attach(id, actor, filename, data)
}

type fakeBidService struct {
	service.BidService

	list func(filter domain.BidFilter) ([]*domain.BidView, error)
}

func (f *fakeBidService) List(ctx context.Context, filter domain.BidFilter) ([]*domain.BidView, error) {
	return f.list(filter)
}

type fakeNotificationService struct {
	inbox  map[uuid.UUID][]*domain.Notification
	readBy map[uuid.UUID]uuid.UUID
}

func newFakeNotificationService() *fakeNotificationService {
	return &fakeNotificationService{
		inbox:  make(map[uuid.UUID][]*domain.Notification),
		readBy: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeNotificationService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return f.inbox[userID], nil
}

func (f *fakeNotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	for _, n := range f.inbox[userID] {
		if n.ID == id {
			n.Read = true
			f.readBy[id] = userID
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "notification", ID: id}
}

func (f *fakeNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	var updated int64
	for _, n := range f.inbox[userID] {
		if !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range f.inbox[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

type routes interface {
	RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
}

func newRouter(handlers ...routes) http.Handler {
	r := chi.NewRouter()
	auth := middleware.AuthMiddleware(testSecret, zap.NewNop())
	for _, h := range handlers {
		h.RegisterRoutes(r, auth)
	}
	return r
}

func bearer(t *testing.T, actor domain.Actor) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": actor.ID.String(),
		"role":    string(actor.Role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func newActor(role domain.Role) domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: role}
}
