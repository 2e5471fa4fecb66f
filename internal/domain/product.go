package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the approval state of a listing
type ProductStatus string

const (
	ProductStatusPending  ProductStatus = "pending"
	ProductStatusApproved ProductStatus = "approved"
	ProductStatusRejected ProductStatus = "rejected"
)

// productTransitions lists the decisions allowed from each status during normal review
var productTransitions = map[ProductStatus][]ProductStatus{
	ProductStatusPending:  {ProductStatusApproved, ProductStatusRejected},
	ProductStatusApproved: {},
	ProductStatusRejected: {},
}

// productReReviewTransitions extends productTransitions when re-review is enabled
var productReReviewTransitions = map[ProductStatus][]ProductStatus{
	ProductStatusPending:  {ProductStatusApproved, ProductStatusRejected},
	ProductStatusApproved: {ProductStatusRejected},
	ProductStatusRejected: {ProductStatusApproved},
}

// Valid reports whether s is a known product status
func (s ProductStatus) Valid() bool {
	_, ok := productTransitions[s]
	return ok
}

// IsDecision reports whether s is a status an admin may choose
func (s ProductStatus) IsDecision() bool {
	return s == ProductStatusApproved || s == ProductStatusRejected
}

// IsTerminal reports whether no further review transition is allowed from s
func (s ProductStatus) IsTerminal() bool {
	return s == ProductStatusApproved || s == ProductStatusRejected
}

// CanTransitionProduct reports whether a product may move from one status to another
func CanTransitionProduct(from, to ProductStatus, allowReReview bool) bool {
	table := productTransitions
	if allowReReview {
		table = productReReviewTransitions
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Product represents a listing submitted by a seller
type Product struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description" db:"description"`
	Price           decimal.Decimal `json:"price" db:"price"`
	Category        string          `json:"category" db:"category"`
	Condition       string          `json:"condition" db:"condition"`
	Images          []string        `json:"images" db:"images"`
	PapersAvailable bool            `json:"papers_available" db:"papers_available"`
	ShowProductBids bool            `json:"show_product_bids" db:"show_product_bids"`
	SellerID        uuid.UUID       `json:"seller_id" db:"seller_id"`
	Seller          *UserSummary    `json:"seller,omitempty"`
	Status          ProductStatus   `json:"status" db:"status"`
	ViewCount       int             `json:"view_count" db:"view_count"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Summary returns the display view of the product embedded in bids
func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price,
		Images: p.Images,
		Status: p.Status,
	}
}

// ProductSummary is the display view of a product joined onto a bid
type ProductSummary struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
	Status ProductStatus   `json:"status"`
}

// ProductDraft is the seller supplied payload for a new listing.
// Status is accepted for wire compatibility and always ignored.
type ProductDraft struct {
	Name            string          `json:"name" validate:"required"`
	Description     string          `json:"description" validate:"required"`
	Price           decimal.Decimal `json:"price" validate:"required,gt=0,money"`
	Category        string          `json:"category" validate:"required"`
	Condition       string          `json:"condition" validate:"required"`
	Images          []string        `json:"images"`
	PapersAvailable bool            `json:"papers_available"`
	ShowProductBids *bool           `json:"show_product_bids"`
	Status          ProductStatus   `json:"status,omitempty"`
}

// ProductUpdate carries the seller editable fields of a listing
type ProductUpdate struct {
	Name            string          `json:"name" validate:"required"`
	Description     string          `json:"description" validate:"required"`
	Price           decimal.Decimal `json:"price" validate:"required,gt=0,money"`
	Category        string          `json:"category" validate:"required"`
	Condition       string          `json:"condition" validate:"required"`
	PapersAvailable bool            `json:"papers_available"`
	ShowProductBids bool            `json:"show_product_bids"`
}

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	SellerID   *uuid.UUID
	Status     ProductStatus
	Categories []string
	Conditions []string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
}
