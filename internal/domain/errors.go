package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotificationDelivery = errors.New("notification delivery failed")
	ErrForbidden            = errors.New("insufficient permissions")
	ErrStore                = errors.New("store failure")
)

// FieldError describes a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed or missing input
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError for one field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a referenced entity that does not exist
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransitionError reports a status change the transition table forbids
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// DeliveryError aggregates failed notification writes for one event
type DeliveryError struct {
	Kind   EventKind
	Failed int
	Total  int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Total == 0 {
		return fmt.Sprintf("%s: recipients for %s could not be resolved: %v",
			ErrNotificationDelivery, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %d of %d notifications for %s not stored: %v",
		ErrNotificationDelivery, e.Failed, e.Total, e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() []error { return []error{ErrNotificationDelivery, e.Err} }
