package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	cartdto "github.com/smartdot/storefront-backend/api/controllers/cart/dto"
	"github.com/smartdot/storefront-backend/api/middleware"
	"github.com/smartdot/storefront-backend/api/responses"
	"github.com/smartdot/storefront-backend/api/validators"
	cartsvc "github.com/smartdot/storefront-backend/internal/cart"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/logger"
)

// Sessions hands out the per-session cart store.
type Sessions interface {
	Acquire(ctx context.Context, sessionID string) (*cartsvc.Store, func(), error)
}

// Catalog resolves a product id into the authoritative cart candidate.
type Catalog interface {
	Candidate(ctx context.Context, id uuid.UUID) (cartsvc.Candidate, error)
}

// Get returns the session cart.
func Get(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		responses.WriteSuccess(w, newCartResponse(store.Snapshot()))
	})
}

// AddItem resolves product_id through the catalog and adds it to the cart.
func AddItem(sessions Sessions, catalog Catalog, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := 1
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}

		candidate, err := catalog.Candidate(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := store.AddItem(r.Context(), candidate, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	})
}

// UpdateItem sets the quantity of a row already in the cart. Unknown rows leave the cart unchanged.
func UpdateItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartdto.UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := store.UpdateQuantity(r.Context(), itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	})
}

// RemoveItem drops a row. Removing an absent row succeeds with the unchanged cart.
func RemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := store.RemoveItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	})
}

// ItemStatus reports whether a product is in the cart.
func ItemStatus(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := cartdto.ItemStatus{ID: itemID, InCart: store.IsInCart(itemID)}
		if status.InCart {
			row, _ := store.Snapshot().Find(itemID)
			status.Quantity = row.Quantity
		}
		responses.WriteSuccess(w, status)
	})
}

// Clear empties the cart.
func Clear(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		responses.WriteSuccess(w, newCartResponse(store.Clear(r.Context())))
	})
}

type storeHandler func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store)

// withStore acquires the session store for the duration of the handler.
func withStore(sessions Sessions, logg *logger.Logger, fn storeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable"))
			return
		}
		sessionID := middleware.CartSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing"))
			return
		}
		store, release, err := sessions.Acquire(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer release()
		fn(w, r, store)
	}
}

func itemIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return id, nil
}
