package transport

import (
	"net/http"
	"strings"

	"zoombid/internal/domain"
	"zoombid/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatusRequest is the payload of every status change route
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// deliveryStatus reports how the notifications of an action went. The
// action itself succeeded whenever it is rendered.
type deliveryStatus struct {
	Notified             int    `json:"notified"`
	NotificationError    string `json:"notification_error,omitempty"`
	NotificationsPending bool   `json:"notifications_pending,omitempty"`
}

func newDeliveryStatus(notified int, deliveryErr error, pending bool, logger *zap.Logger) deliveryStatus {
	ds := deliveryStatus{Notified: notified, NotificationsPending: pending}
	if deliveryErr != nil {
		logger.Warn("Action committed with notification failures", zap.Error(deliveryErr))
		ds.NotificationError = deliveryErr.Error()
	}
	return ds
}

// pathID parses the {id} URL parameter
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("id", "Invalid identifier")
	}
	return id, nil
}

// queryUUID parses an optional uuid query parameter
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "Invalid identifier")
	}
	return &id, nil
}

func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "Invalid number")
	}
	return &d, nil
}

// queryList accepts both repeated and comma separated values
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// actorFrom returns the authenticated caller or writes a 401
func actorFrom(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (domain.Actor, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		logger.Error("Actor not found in context", zap.String("path", r.URL.Path))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
	}
	return actor, ok
}
