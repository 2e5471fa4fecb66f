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
	ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrSellerNotFound  = fmt.Errorf("seller %w", domain.ErrNotFound)
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ProductStatus) (*domain.Product, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (int, error)
	AppendImage(ctx context.Context, id uuid.UUID, ref string) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db      DBTX
	timeout time.Duration
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX, timeout time.Duration) ProductRepository {
	return &productRepository{db: db, timeout: timeout}
}

// productSelect reads a product joined with its seller. The FROM clause must
// expose the product row as p.
const productSelect = `
	SELECT p.id, p.name, p.description, p.price, p.category, p.condition, p.images,
	       p.papers_available, p.show_product_bids, p.seller_id, p.status, p.view_count,
	       p.created_at, p.updated_at, u.name, u.email
`

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	seller := &domain.UserSummary{}
	m := pgtype.NewMap()

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Category,
		&product.Condition,
		m.SQLScanner(&product.Images),
		&product.PapersAvailable,
		&product.ShowProductBids,
		&product.SellerID,
		&product.Status,
		&product.ViewCount,
		&product.CreatedAt,
		&product.UpdatedAt,
		&seller.Name,
		&seller.Email,
	)
	if err != nil {
		return nil, err
	}

	if product.Images == nil {
		product.Images = []string{}
	}
	seller.ID = product.SellerID
	product.Seller = seller
	return product, nil
}

// Create inserts a new product. A missing seller surfaces as ErrSellerNotFound.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO products (id, name, description, price, category, condition, images,
		                      papers_available, show_product_bids, seller_id, status, view_count,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	images := product.Images
	if images == nil {
		images = []string{}
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.Condition,
		images,
		product.PapersAvailable,
		product.ShowProductBids,
		product.SellerID,
		product.Status,
		product.ViewCount,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return ErrSellerNotFound
		}
		return storeError("failed to create product", err)
	}

	return nil
}

// FindByID retrieves a product and its seller summary
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := productSelect + `
		FROM products p
		JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, storeError("failed to find product by ID", err)
	}

	return product, nil
}

// List returns every product matching filter, newest first
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	conditions := []string{}
	args := []interface{}{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.SellerID != nil {
		add("p.seller_id = $%d", *filter.SellerID)
	}
	if filter.Status != "" {
		add("p.status = $%d", filter.Status)
	}
	if len(filter.Categories) > 0 {
		add("p.category = ANY($%d)", filter.Categories)
	}
	if len(filter.Conditions) > 0 {
		add("p.condition = ANY($%d)", filter.Conditions)
	}
	if filter.MinPrice != nil {
		add("p.price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("p.price <= $%d", *filter.MaxPrice)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("p.name ILIKE $%d", "%"+search+"%")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := productSelect + `
		FROM products p
		JOIN users u ON u.id = p.seller_id
		` + whereClause + `
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("failed to list products", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, storeError("failed to scan product", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, storeError("error iterating products", err)
	}

	return products, nil
}

// Update writes the seller editable fields. Status and view count are untouched.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, condition = $6,
		    papers_available = $7, show_product_bids = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.Condition,
		product.PapersAvailable,
		product.ShowProductBids,
	)
	if err != nil {
		return storeError("failed to update product", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// UpdateStatus moves a product from one status to another only if it still
// holds from. Otherwise it returns ErrStatusChanged.
func (r *productRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ProductStatus) (*domain.Product, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		WITH p AS (
			UPDATE products SET status = $3
			WHERE id = $1 AND status = $2
			RETURNING *
		)
	` + productSelect + `
		FROM p
		JOIN users u ON u.id = p.seller_id
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, storeError("failed to update product status", err)
	}

	return product, nil
}

// IncrementViews atomically adds one view and returns the new count
func (r *productRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `UPDATE products SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`

	var count int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, storeError("failed to increment view count", err)
	}

	return count, nil
}

// AppendImage adds a media reference to the end of the image list
func (r *productRepository) AppendImage(ctx context.Context, id uuid.UUID, ref string) (*domain.Product, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		WITH p AS (
			UPDATE products SET images = array_append(images, $2::text)
			WHERE id = $1
			RETURNING *
		)
	` + productSelect + `
		FROM p
		JOIN users u ON u.id = p.seller_id
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, storeError("failed to append product image", err)
	}

	return product, nil
}

// Delete removes a product
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return storeError("failed to delete product", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}
