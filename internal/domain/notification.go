package domain

import (
	"time"

	"github.com/google/uuid"
)

// Navigation hints attached to notifications. The client interprets them.
const (
	OnClickAdminReview     = "/admin"
	OnClickSellerDashboard = "/sellerdashboard"
)

// Notification is a message addressed to a single recipient
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	OnClick   string    `json:"on_click" db:"on_click"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
