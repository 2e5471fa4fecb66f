package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"zoombid/internal/domain"
	"zoombid/internal/repository"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageSize is the largest accepted product image upload
const MaxImageSize = 5 << 20

// ProductService defines the product lifecycle and listing operations
type ProductService interface {
	Submit(ctx context.Context, draft domain.ProductDraft, sellerID uuid.UUID) (*domain.Event, error)
	ChangeStatus(ctx context.Context, productID uuid.UUID, status domain.ProductStatus, actorID uuid.UUID) (*domain.Event, error)
	RecordView(ctx context.Context, productID uuid.UUID, key string) (int, error)
	GetByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Update(ctx context.Context, productID uuid.UUID, update domain.ProductUpdate, actor domain.Actor) (*domain.Product, error)
	Delete(ctx context.Context, productID uuid.UUID, actor domain.Actor) error
	AttachImage(ctx context.Context, productID uuid.UUID, actor domain.Actor, filename string, data []byte) (*domain.Product, error)
}

// ProductOptions tunes product review rules
type ProductOptions struct {
	AllowReReview bool
}

type productService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	media    MediaStore
	views    ViewGuard
	opts     ProductOptions
	logger   *zap.Logger
}

// NewProductService creates a new instance of ProductService. media and views may be nil.
func NewProductService(
	products repository.ProductRepository,
	users repository.UserRepository,
	media MediaStore,
	views ViewGuard,
	opts ProductOptions,
	logger *zap.Logger,
) ProductService {
	return &productService{
		products: products,
		users:    users,
		media:    media,
		views:    views,
		opts:     opts,
		logger:   logger,
	}
}

// Submit stores a new listing as pending and returns the submission event
func (s *productService) Submit(ctx context.Context, draft domain.ProductDraft, sellerID uuid.UUID) (*domain.Event, error) {
	if err := domain.Validate(draft); err != nil {
		return nil, err
	}

	seller, err := s.users.FindByID(ctx, sellerID)
	if err != nil {
		return nil, notFound(err, "user", sellerID, "failed to load seller")
	}

	showBids := true
	if draft.ShowProductBids != nil {
		showBids = *draft.ShowProductBids
	}
	images := draft.Images
	if images == nil {
		images = []string{}
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:              uuid.New(),
		Name:            draft.Name,
		Description:     draft.Description,
		Price:           draft.Price,
		Category:        draft.Category,
		Condition:       draft.Condition,
		Images:          images,
		PapersAvailable: draft.PapersAvailable,
		ShowProductBids: showBids,
		SellerID:        seller.ID,
		Status:          domain.ProductStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, notFound(err, "user", sellerID, "failed to create product")
	}

	summary := seller.Summary()
	product.Seller = &summary

	return domain.NewProductSubmitted(product, seller), nil
}

// ChangeStatus applies an admin review decision
func (s *productService) ChangeStatus(ctx context.Context, productID uuid.UUID, status domain.ProductStatus, actorID uuid.UUID) (*domain.Event, error) {
	if !status.IsDecision() {
		return nil, domain.NewValidationError("status", "Status must be approved or rejected")
	}

	current, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID, "failed to load product")
	}

	if !domain.CanTransitionProduct(current.Status, status, s.opts.AllowReReview) {
		return nil, productTransitionError(current.Status, status)
	}

	updated, err := s.products.UpdateStatus(ctx, productID, current.Status, status)
	if errors.Is(err, repository.ErrStatusChanged) {
		// lost a race with another reviewer; report against what is stored now
		latest, ferr := s.products.FindByID(ctx, productID)
		if ferr != nil {
			return nil, notFound(ferr, "product", productID, "failed to reload product")
		}
		return nil, productTransitionError(latest.Status, status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product status: %w", err)
	}

	return domain.NewProductStatusChanged(updated, actorID), nil
}

// RecordView counts one view. A repeated non-empty key is not counted again.
func (s *productService) RecordView(ctx context.Context, productID uuid.UUID, key string) (int, error) {
	guarded := false
	if key != "" && s.views != nil {
		first, err := s.views.FirstView(ctx, productID, key)
		if err != nil {
			s.logger.Warn("view guard unavailable, counting view",
				zap.String("product_id", productID.String()), zap.Error(err))
		} else if first {
			guarded = true
		} else {
			product, err := s.products.FindByID(ctx, productID)
			if err != nil {
				return 0, notFound(err, "product", productID, "failed to load product")
			}
			return product.ViewCount, nil
		}
	}

	count, err := s.products.IncrementViews(ctx, productID)
	if err != nil {
		if guarded {
			// the key must not outlive a view that was never stored
			if ferr := s.views.Forget(context.WithoutCancel(ctx), productID, key); ferr != nil {
				s.logger.Warn("failed to release view key",
					zap.String("product_id", productID.String()), zap.Error(ferr))
			}
		}
		return 0, notFound(err, "product", productID, "failed to record view")
	}
	return count, nil
}

// GetByID retrieves a product with its seller summary
func (s *productService) GetByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID, "failed to get product")
	}
	return product, nil
}

// List returns products matching filter, newest first
func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "Unknown product status")
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, domain.NewValidationError("min_price", "Minimum price exceeds maximum price")
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Update edits the seller controlled fields. Status and view count are kept.
func (s *productService) Update(ctx context.Context, productID uuid.UUID, update domain.ProductUpdate, actor domain.Actor) (*domain.Product, error) {
	if err := domain.Validate(update); err != nil {
		return nil, err
	}

	product, err := s.ownedProduct(ctx, productID, actor, false)
	if err != nil {
		return nil, err
	}

	product.Name = update.Name
	product.Description = update.Description
	product.Price = update.Price
	product.Category = update.Category
	product.Condition = update.Condition
	product.PapersAvailable = update.PapersAvailable
	product.ShowProductBids = update.ShowProductBids
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, notFound(err, "product", productID, "failed to update product")
	}
	return product, nil
}

// Delete removes a product. Its bids go with it.
func (s *productService) Delete(ctx context.Context, productID uuid.UUID, actor domain.Actor) error {
	if _, err := s.ownedProduct(ctx, productID, actor, true); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return notFound(err, "product", productID, "failed to delete product")
	}
	return nil
}

// AttachImage uploads an image to the media store and appends its reference
func (s *productService) AttachImage(ctx context.Context, productID uuid.UUID, actor domain.Actor, filename string, data []byte) (*domain.Product, error) {
	if s.media == nil {
		return nil, errors.New("media store is not configured")
	}
	if len(data) == 0 {
		return nil, domain.NewValidationError("image", "This field is required")
	}
	if len(data) > MaxImageSize {
		return nil, domain.NewValidationError("image", "Image must be at most 5MB")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, domain.NewValidationError("image", "File must be an image")
	}

	if _, err := s.ownedProduct(ctx, productID, actor, false); err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	key := fmt.Sprintf("products/%s/%s-%s%s", productID, uuid.NewString()[:8], base, mtype.Extension())

	ref, err := s.media.Upload(ctx, key, mtype.String(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	product, err := s.products.AppendImage(ctx, productID, ref)
	if err != nil {
		return nil, notFound(err, "product", productID, "failed to attach image")
	}
	return product, nil
}

// ownedProduct loads a product and checks that actor is its seller,
// or an admin when adminAllowed is set
func (s *productService) ownedProduct(ctx context.Context, productID uuid.UUID, actor domain.Actor, adminAllowed bool) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID, "failed to load product")
	}
	if product.SellerID != actor.ID && !(adminAllowed && actor.IsAdmin()) {
		return nil, domain.ErrForbidden
	}
	return product, nil
}

func productTransitionError(from, to domain.ProductStatus) error {
	return &domain.TransitionError{Entity: "product", From: string(from), To: string(to)}
}
