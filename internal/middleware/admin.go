package middleware

import (
	"context"
	"net/http"

	"contractor-backend/internal/auth"
	"contractor-backend/internal/models"
	"contractor-backend/internal/transport"
)

type adminKey struct{}

// AdminAuth requires a valid admin access cookie.
func AdminAuth(manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
				return
			}

			cookie, err := r.Cookie(auth.AccessCookie)
			if err == nil && cookie.Value != "" {
				claims, err := manager.ParseAccess(cookie.Value)
				if err == nil && claims.Role == models.UserRoleAdmin {
					ctx := context.WithValue(r.Context(), adminKey{}, claims.Subject)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		})
	}
}

func AdminFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(adminKey{}).(string); ok {
		return v
	}
	return ""
}
