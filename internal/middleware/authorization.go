package middleware

import (
	"net/http"
	"slices"

	"zoombid/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]domain.Role{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				logger.Warn("Actor not found in context")
				RespondWithError(w, http.StatusForbidden, domain.ErrForbidden.Error())
				return
			}

			if !slices.Contains(allowedRoles, actor.Role) {
				logger.Warn("User role not authorized",
					zap.String("user_id", actor.ID.String()),
					zap.String("role", string(actor.Role)),
				)
				RespondWithError(w, http.StatusForbidden, domain.ErrForbidden.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
