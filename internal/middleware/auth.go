package middleware

import (
	"net/http"
	"slices"
	"strings"

	"storefront-orders/internal/auth"
	"storefront-orders/internal/logger"
	"storefront-orders/internal/utils"

	"go.uber.org/zap"
)

// Authenticate attaches the caller identity when a valid token is present.
// Requests without one pass through anonymously; RequireUser and
// RequireAdmin decide what needs an identity.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("ignoring invalid token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits callers whose role is ADMIN or whose email is on
// the allow-list.
func RequireAdmin(adminEmails []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := utils.GetUserIDFromContext(ctx); !ok {
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			role := utils.GetUserRoleFromContext(ctx)
			email := strings.ToLower(utils.GetUserEmailFromContext(ctx))
			if !strings.EqualFold(role, utils.RoleAdmin) && !(email != "" && slices.Contains(adminEmails, email)) {
				logger.FromCtx(ctx).Warn("admin access denied", zap.String("email", email))
				utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
