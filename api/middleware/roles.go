package middleware

import (
	"net/http"
	"slices"

	"github.com/smartdot/storefront-backend/api/responses"
	"github.com/smartdot/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/logger"
)

// RequireRole admits requests whose token role is one of allowed. It must run after Auth;
// anonymous requests are rejected as unauthorized, signed-in ones with another role as forbidden.
func RequireRole(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := RoleFromContext(ctx)
			if raw == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			role, err := enums.ParseUserRole(raw)
			if err != nil || !slices.Contains(allowed, role) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
					WithDetails(map[string]any{"role": raw}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
