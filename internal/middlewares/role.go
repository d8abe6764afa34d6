package middlewares

import (
	"net/http"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
)

// RequireRole returns a middleware admitting only callers whose role (set
// by AuthMiddleware) is in the allowed list. Others get 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRoleFromContext(r.Context())
			if _, ok := allowedSet[role]; !ok {
				logger.Log.Errorw("access denied", "role", role, "uri", r.RequestURI)
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
