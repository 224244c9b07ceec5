package middleware

import (
	"net/http"

	"parkspot/backend/services/parking-service/internal/models"
)

// RequireRole rejects callers whose role fails allowed. It must run after AuthMiddleware.
func RequireRole(allowed func(models.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !allowed(identity.Role) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGateOperator admits guards and superadmins.
func RequireGateOperator() func(http.Handler) http.Handler {
	return RequireRole(models.Role.CanOperateGate)
}

// RequireLotManager admits superadmins.
func RequireLotManager() func(http.Handler) http.Handler {
	return RequireRole(models.Role.CanManageLots)
}
