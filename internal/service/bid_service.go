package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zoombid/internal/domain"
	"zoombid/internal/repository"

	"github.com/google/uuid"
)

// BidService defines the bid lifecycle operations
type BidService interface {
	Place(ctx context.Context, draft domain.BidDraft, buyerID uuid.UUID) (*domain.Bid, error)
	List(ctx context.Context, filter domain.BidFilter) ([]*domain.BidView, error)
	ChangeStatus(ctx context.Context, bidID uuid.UUID, status domain.BidStatus, actor domain.Actor) (*domain.Event, error)
	Delete(ctx context.Context, bidID uuid.UUID, actor domain.Actor) error
}

// BidOptions tunes bid placement rules
type BidOptions struct {
	// RequireApprovedProduct refuses bids on products that are not approved
	RequireApprovedProduct bool
}

type bidService struct {
	bids     repository.BidRepository
	products repository.ProductRepository
	opts     BidOptions
}

// NewBidService creates a new instance of BidService
func NewBidService(bids repository.BidRepository, products repository.ProductRepository, opts BidOptions) BidService {
	return &bidService{
		bids:     bids,
		products: products,
		opts:     opts,
	}
}

// Place records a pending bid. The seller is copied from the product.
func (s *bidService) Place(ctx context.Context, draft domain.BidDraft, buyerID uuid.UUID) (*domain.Bid, error) {
	if err := domain.Validate(draft); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, draft.ProductID)
	if err != nil {
		return nil, notFound(err, "product", draft.ProductID, "failed to load product")
	}

	if s.opts.RequireApprovedProduct && product.Status != domain.ProductStatusApproved {
		return nil, fmt.Errorf("product %s is %s and not open for bidding: %w",
			product.ID, product.Status, domain.ErrInvalidTransition)
	}

	bid := &domain.Bid{
		ID:        uuid.New(),
		ProductID: product.ID,
		BuyerID:   buyerID,
		SellerID:  product.SellerID,
		Amount:    draft.Amount,
		Status:    domain.BidStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.bids.Create(ctx, bid); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, &domain.NotFoundError{Entity: "product", ID: product.ID}
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, &domain.NotFoundError{Entity: "user", ID: buyerID}
		}
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}

	return bid, nil
}

// List returns bids matching filter joined with their display summaries
func (s *bidService) List(ctx context.Context, filter domain.BidFilter) ([]*domain.BidView, error) {
	bids, err := s.bids.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

// ChangeStatus applies the seller's decision on a pending bid
func (s *bidService) ChangeStatus(ctx context.Context, bidID uuid.UUID, status domain.BidStatus, actor domain.Actor) (*domain.Event, error) {
	if !status.IsDecision() {
		return nil, domain.NewValidationError("status", "Status must be accepted or rejected")
	}

	bid, err := s.bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, notFound(err, "bid", bidID, "failed to load bid")
	}
	if bid.SellerID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	product, err := s.products.FindByID(ctx, bid.ProductID)
	if err != nil {
		return nil, notFound(err, "product", bid.ProductID, "failed to load product")
	}

	if !domain.CanTransitionBid(bid.Status, status) {
		return nil, bidTransitionError(bid.Status, status)
	}

	updated, err := s.bids.UpdateStatus(ctx, bidID, bid.Status, status)
	if errors.Is(err, repository.ErrStatusChanged) {
		latest, ferr := s.bids.FindByID(ctx, bidID)
		if ferr != nil {
			return nil, notFound(ferr, "bid", bidID, "failed to reload bid")
		}
		return nil, bidTransitionError(latest.Status, status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update bid status: %w", err)
	}

	return domain.NewBidStatusChanged(updated, product, actor.ID), nil
}

// Delete removes a bid. Only its buyer, its seller or an admin may do so.
func (s *bidService) Delete(ctx context.Context, bidID uuid.UUID, actor domain.Actor) error {
	bid, err := s.bids.FindByID(ctx, bidID)
	if err != nil {
		return notFound(err, "bid", bidID, "failed to load bid")
	}
	if bid.BuyerID != actor.ID && bid.SellerID != actor.ID && !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := s.bids.Delete(ctx, bidID); err != nil {
		return notFound(err, "bid", bidID, "failed to delete bid")
	}
	return nil
}

func bidTransitionError(from, to domain.BidStatus) error {
	return &domain.TransitionError{Entity: "bid", From: string(from), To: string(to)}
}
