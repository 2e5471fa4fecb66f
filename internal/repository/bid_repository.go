package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"zoombid/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ErrBidNotFound = fmt.Errorf("bid %w", domain.ErrNotFound)
)

// BidRepository defines the interface for bid data access
type BidRepository interface {
	Create(ctx context.Context, bid *domain.Bid) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Bid, error)
	List(ctx context.Context, filter domain.BidFilter) ([]*domain.BidView, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BidStatus) (*domain.Bid, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type bidRepository struct {
	db      DBTX
	timeout time.Duration
}

// NewBidRepository creates a new instance of BidRepository
func NewBidRepository(db DBTX, timeout time.Duration) BidRepository {
	return &bidRepository{db: db, timeout: timeout}
}

const bidColumns = `id, product_id, buyer_id, seller_id, amount, status, created_at`

func scanBid(row rowScanner) (*domain.Bid, error) {
	bid := &domain.Bid{}
	err := row.Scan(
		&bid.ID,
		&bid.ProductID,
		&bid.BuyerID,
		&bid.SellerID,
		&bid.Amount,
		&bid.Status,
		&bid.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// Create inserts a new bid. A dangling product or user reference surfaces
// as ErrProductNotFound or ErrUserNotFound.
func (r *bidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		bid.ID,
		bid.ProductID,
		bid.BuyerID,
		bid.SellerID,
		bid.Amount,
		bid.Status,
		bid.CreatedAt,
	)
	if err != nil {
		if constraint, ok := foreignKeyViolation(err); ok {
			if constraint == "bids_product_id_fkey" {
				return ErrProductNotFound
			}
			return ErrUserNotFound
		}
		return storeError("failed to create bid", err)
	}

	return nil
}

// FindByID retrieves a bid by ID
func (r *bidRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`

	bid, err := scanBid(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, storeError("failed to find bid by ID", err)
	}

	return bid, nil
}

// List returns every bid matching filter joined with its product, buyer and
// seller, newest first
func (r *bidRepository) List(ctx context.Context, filter domain.BidFilter) ([]*domain.BidView, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	conditions := []string{}
	args := []interface{}{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.ProductID != nil {
		add("b.product_id = $%d", *filter.ProductID)
	}
	if filter.SellerID != nil {
		add("b.seller_id = $%d", *filter.SellerID)
	}
	if filter.BuyerID != nil {
		add("b.buyer_id = $%d", *filter.BuyerID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := `
		SELECT b.id, b.product_id, b.buyer_id, b.seller_id, b.amount, b.status, b.created_at,
		       p.name, p.price, p.images, p.status,
		       buyer.name, buyer.email,
		       seller.name, seller.email
		FROM bids b
		JOIN products p ON p.id = b.product_id
		JOIN users buyer ON buyer.id = b.buyer_id
		JOIN users seller ON seller.id = b.seller_id
		` + whereClause + `
		ORDER BY b.created_at DESC, b.id
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("failed to list bids", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	views := []*domain.BidView{}
	for rows.Next() {
		view := &domain.BidView{}
		err := rows.Scan(
			&view.ID,
			&view.ProductID,
			&view.BuyerID,
			&view.SellerID,
			&view.Amount,
			&view.Status,
			&view.CreatedAt,
			&view.Product.Name,
			&view.Product.Price,
			m.SQLScanner(&view.Product.Images),
			&view.Product.Status,
			&view.Buyer.Name,
			&view.Buyer.Email,
			&view.Seller.Name,
			&view.Seller.Email,
		)
		if err != nil {
			return nil, storeError("failed to scan bid", err)
		}
		if view.Product.Images == nil {
			view.Product.Images = []string{}
		}
		view.Product.ID = view.ProductID
		view.Buyer.ID = view.BuyerID
		view.Seller.ID = view.SellerID
		views = append(views, view)
	}

	if err = rows.Err(); err != nil {
		return nil, storeError("error iterating bids", err)
	}

	return views, nil
}

// UpdateStatus moves a bid from one status to another only if it still holds
// from. Otherwise it returns ErrStatusChanged.
func (r *bidRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BidStatus) (*domain.Bid, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE bids SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING ` + bidColumns

	bid, err := scanBid(r.db.QueryRowContext(ctx, query, id, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, storeError("failed to update bid status", err)
	}

	return bid, nil
}

// Delete removes a bid. Notifications generated from it are kept.
func (r *bidRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM bids WHERE id = $1`, id)
	if err != nil {
		return storeError("failed to delete bid", err)
	}

	return expectOneRow(result, ErrBidNotFound)
}
