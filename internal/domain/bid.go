package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidStatus is the decision state of a bid
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

var bidTransitions = map[BidStatus][]BidStatus{
	BidStatusPending:  {BidStatusAccepted, BidStatusRejected},
	BidStatusAccepted: {},
	BidStatusRejected: {},
}

// Valid reports whether s is a known bid status
func (s BidStatus) Valid() bool {
	_, ok := bidTransitions[s]
	return ok
}

// IsDecision reports whether s is a status a seller may choose
func (s BidStatus) IsDecision() bool {
	return s == BidStatusAccepted || s == BidStatusRejected
}

// IsTerminal reports whether s is a final decision
func (s BidStatus) IsTerminal() bool {
	return len(bidTransitions[s]) == 0 && s.Valid()
}

// CanTransitionBid reports whether a bid may move from one status to another
func CanTransitionBid(from, to BidStatus) bool {
	for _, next := range bidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Bid is an offer by a buyer on a product. SellerID is copied from the
// product when the bid is placed.
type Bid struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	BuyerID   uuid.UUID       `json:"buyer_id" db:"buyer_id"`
	SellerID  uuid.UUID       `json:"seller_id" db:"seller_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    BidStatus       `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// BidDraft is the buyer supplied payload for a new bid
type BidDraft struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0,money"`
}

// BidView is a bid joined with its product, buyer and seller for display
type BidView struct {
	Bid
	Product ProductSummary `json:"product"`
	Buyer   UserSummary    `json:"buyer"`
	Seller  UserSummary    `json:"seller"`
}

// BidFilter narrows a bid listing. Nil fields do not filter.
type BidFilter struct {
	ProductID *uuid.UUID
	SellerID  *uuid.UUID
	BuyerID   *uuid.UUID
}
