package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a lifecycle event
type EventKind string

const (
	EventProductSubmitted     EventKind = "product.submitted"
	EventProductStatusChanged EventKind = "product.status_changed"
	EventBidStatusChanged     EventKind = "bid.status_changed"
)

// Event is emitted by a lifecycle manager after a committed mutation.
// Seller is set for submissions, Bid for bid decisions.
type Event struct {
	Kind       EventKind `json:"kind"`
	ActorID    uuid.UUID `json:"actor_id"`
	Product    *Product  `json:"product,omitempty"`
	Seller     *User     `json:"-"`
	Bid        *Bid      `json:"bid,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProductSubmitted builds the event for a freshly submitted product
func NewProductSubmitted(product *Product, seller *User) *Event {
	return &Event{
		Kind:       EventProductSubmitted,
		ActorID:    seller.ID,
		Product:    product,
		Seller:     seller,
		OccurredAt: time.Now().UTC(),
	}
}

// NewProductStatusChanged builds the event for an admin review decision
func NewProductStatusChanged(product *Product, actorID uuid.UUID) *Event {
	return &Event{
		Kind:       EventProductStatusChanged,
		ActorID:    actorID,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	}
}

// NewBidStatusChanged builds the event for a seller decision on a bid
func NewBidStatusChanged(bid *Bid, product *Product, actorID uuid.UUID) *Event {
	return &Event{
		Kind:       EventBidStatusChanged,
		ActorID:    actorID,
		Product:    product,
		Bid:        bid,
		OccurredAt: time.Now().UTC(),
	}
}
