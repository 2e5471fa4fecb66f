package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"zoombid/internal/domain"
	"zoombid/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore is an in-memory entity store shared by the mock repositories
type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*domain.User
	products      map[uuid.UUID]*domain.Product
	bids          map[uuid.UUID]*domain.Bid
	notifications []*domain.Notification

	// failNotification makes notification writes fail for matching recipients
	failNotification func(n *domain.Notification) error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]*domain.User),
		products: make(map[uuid.UUID]*domain.Product),
		bids:     make(map[uuid.UUID]*domain.Bid),
	}
}

func (s *memStore) userRepo() *mockUserRepository { return &mockUserRepository{s} }
func (s *memStore) productRepo() *mockProductRepository { return &mockProductRepository{s} }
func (s *memStore) bidRepo() *mockBidRepository { return &mockBidRepository{s} }
func (s *memStore) notificationRepo() *mockNotificationRepository { return &mockNotificationRepository{s} }

func (s *memStore) addUser(name string, role domain.Role) *domain.User {
	u := &domain.User{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@zoombid.test",
		Role:   role,
		Status: domain.UserStatusActive,
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return u
}

func (s *memStore) addProduct(seller *domain.User, status domain.ProductStatus) *domain.Product {
	p := &domain.Product{
		ID:       uuid.New(),
		Name:     "Camera",
		SellerID: seller.ID,
		Status:   status,
		Images:   []string{},
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return p
}

func (s *memStore) notificationsFor(userID uuid.UUID) []*domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *memStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func copyProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Images = append([]string{}, p.Images...)
	return &c
}

// Mock repositories for testing
type mockUserRepository struct{ s *memStore }

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	c := *user
	m.s.users[user.ID] = &c
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *mockUserRepository) FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.User
	for _, u := range m.s.users {
		if u.Role == role {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*domain.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

func (m *mockUserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	return nil
}

func (m *mockUserRepository) SetOTPSecret(ctx context.Context, id uuid.UUID, secret *string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.OTPSecret = secret
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.OTPSecret = nil
	return nil
}

type mockProductRepository struct{ s *memStore }

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[product.SellerID]; !ok {
		return repository.ErrSellerNotFound
	}
	m.s.products[product.ID] = copyProduct(product)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.Product
	for _, p := range m.s.products {
		if filter.SellerID != nil && p.SellerID != *filter.SellerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	status, views, images := p.Status, p.ViewCount, p.Images
	updated := copyProduct(product)
	updated.Status, updated.ViewCount, updated.Images = status, views, images
	m.s.products[product.ID] = updated
	return nil
}

func (m *mockProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ProductStatus) (*domain.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products[id]
	if !ok || p.Status != from {
		return nil, repository.ErrStatusChanged
	}
	p.Status = to
	return copyProduct(p), nil
}

func (m *mockProductRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	p.ViewCount++
	return p.ViewCount, nil
}

func (m *mockProductRepository) AppendImage(ctx context.Context, id uuid.UUID, ref string) (*domain.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p.Images = append(p.Images, ref)
	return copyProduct(p), nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.s.products, id)
	for bidID, b := range m.s.bids {
		if b.ProductID == id {
			delete(m.s.bids, bidID)
		}
	}
	return nil
}

type mockBidRepository struct{ s *memStore }

func (m *mockBidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.products[bid.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	if _, ok := m.s.users[bid.BuyerID]; !ok {
		return repository.ErrUserNotFound
	}
	c := *bid
	m.s.bids[bid.ID] = &c
	return nil
}

func (m *mockBidRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.bids[id]
	if !ok {
		return nil, repository.ErrBidNotFound
	}
	c := *b
	return &c, nil
}

func (m *mockBidRepository) List(ctx context.Context, filter domain.BidFilter) ([]*domain.BidView, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.BidView
	for _, b := range m.s.bids {
		if filter.ProductID != nil && b.ProductID != *filter.ProductID {
			continue
		}
		if filter.SellerID != nil && b.SellerID != *filter.SellerID {
			continue
		}
		if filter.BuyerID != nil && b.BuyerID != *filter.BuyerID {
			continue
		}
		view := &domain.BidView{Bid: *b}
		if p, ok := m.s.products[b.ProductID]; ok {
			view.Product = p.Summary()
		}
		if u, ok := m.s.users[b.BuyerID]; ok {
			view.Buyer = u.Summary()
		}
		if u, ok := m.s.users[b.SellerID]; ok {
			view.Seller = u.Summary()
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockBidRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BidStatus) (*domain.Bid, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.bids[id]
	if !ok || b.Status != from {
		return nil, repository.ErrStatusChanged
	}
	b.Status = to
	c := *b
	return &c, nil
}

func (m *mockBidRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.bids[id]; !ok {
		return repository.ErrBidNotFound
	}
	delete(m.s.bids, id)
	return nil
}

type mockNotificationRepository struct{ s *memStore }

func (m *mockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failNotification != nil {
		if err := m.s.failNotification(n); err != nil {
			return err
		}
	}
	c := *n
	m.s.notifications = append(m.s.notifications, &c)
	return nil
}

func (m *mockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return m.s.notificationsFor(userID), nil
}

func (m *mockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.s.notificationsFor(userID) {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, n := range m.s.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (m *mockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var count int64
	for _, n := range m.s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

// recordingMailer captures sent codes
type recordingMailer struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(map[string]string)}
}

func (m *recordingMailer) SendPasswordResetOTP(ctx context.Context, to, name, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent[to] = otp
	return nil
}

func (m *recordingMailer) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[to]
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

// testEnv wires the services over one memStore
type testEnv struct {
	store      *memStore
	products   ProductService
	bids       BidService
	dispatcher NotificationDispatcher
	publisher  *recordingPublisher
	workflow   *Workflow
}

func newTestEnv(productOpts ProductOptions, bidOpts BidOptions) *testEnv {
	store := newMemStore()
	logger := zap.NewNop()

	products := NewProductService(store.productRepo(), store.userRepo(), nil, nil, productOpts, logger)
	bids := NewBidService(store.bidRepo(), store.productRepo(), bidOpts)
	dispatcher := NewNotificationDispatcher(store.notificationRepo(), store.userRepo(), nil,
		DispatcherOptions{Parallelism: 4}, logger)
	publisher := &recordingPublisher{}

	return &testEnv{
		store:      store,
		products:   products,
		bids:       bids,
		dispatcher: dispatcher,
		publisher:  publisher,
		workflow: NewWorkflow(products, bids, dispatcher, publisher,
			WorkflowOptions{FanOutWait: 2 * time.Second}, logger),
	}
}
