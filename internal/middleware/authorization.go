package middleware

import (
	"net/http"

	"madera-precisa/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin lets only admin identities through. It must run after
// AuthMiddleware; a request without an identity gets 401, any other role 403.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, hasUser := GetUserID(r.Context())
			role, _ := GetUserRole(r.Context())

			switch {
			case !hasUser:
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
			case role != domain.RoleAdmin:
				logger.Warn("Admin route refused",
					zap.String("user_id", userID),
					zap.String("role", role),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "admin role required")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
