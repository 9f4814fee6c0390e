package cart

import (
	"net/http"

	"github.com/google/uuid"

	cartdto "github.com/smartdot/storefront-backend/api/controllers/cart/dto"
	"github.com/smartdot/storefront-backend/api/middleware"
	"github.com/smartdot/storefront-backend/api/responses"
	"github.com/smartdot/storefront-backend/api/validators"
	cartsvc "github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/internal/checkout"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/logger"
)

// Checkout turns the session cart into a pending order and returns the WhatsApp handoff link.
func Checkout(sessions Sessions, svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload cartdto.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkout.CheckoutInput{Shipping: payload.Shipping()}
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
				return
			}
			input.UserID = &userID
		}

		result, err := svc.Checkout(r.Context(), store, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	})
}
