package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"zoombid/internal/domain"

	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	RespondWithJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, fields []domain.FieldError) {
	details := map[string]interface{}{
		"validation_errors": fields,
	}
	RespondWithErrorDetails(w, http.StatusBadRequest, domain.ErrValidation.Error(), details)
}

// RespondWithDomainError maps a service error onto its HTTP status.
// Unclassified errors are logged and hidden behind a generic 500.
func RespondWithDomainError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var (
		verr *domain.ValidationError
		nerr *domain.NotFoundError
		terr *domain.TransitionError
	)

	switch {
	case errors.As(err, &verr):
		RespondWithValidationErrors(w, verr.Fields)
	case errors.Is(err, domain.ErrValidation):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &nerr):
		RespondWithErrorDetails(w, http.StatusNotFound, nerr.Error(), map[string]interface{}{
			"entity": nerr.Entity,
			"id":     nerr.ID.String(),
		})
	case errors.Is(err, domain.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &terr):
		RespondWithErrorDetails(w, http.StatusConflict, terr.Error(), map[string]interface{}{
			"entity": terr.Entity,
			"from":   terr.From,
			"to":     terr.To,
		})
	case errors.Is(err, domain.ErrInvalidTransition):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		RespondWithError(w, http.StatusForbidden, domain.ErrForbidden.Error())
	default:
		logger.Error("Request failed", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
