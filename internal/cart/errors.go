package cart

import (
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
)

// Reason classifies why a cart mutation was rejected.
type Reason string

const (
	ReasonCartFull           Reason = "cart_full"
	ReasonInvalidItem        Reason = "invalid_item"
	ReasonPriceOutOfRange    Reason = "price_out_of_range"
	ReasonQuantityOutOfRange Reason = "quantity_out_of_range"
	ReasonExceedsStock       Reason = "exceeds_stock"
	ReasonExceedsItemCap     Reason = "exceeds_item_cap"
)

// ErrStoreNotInitialized is raised (as a panic) when a nil or closed store is used.
var ErrStoreNotInitialized = pkgerrors.New(pkgerrors.CodeMisuse, "cart store used before initialization or after close")

func reject(reason Reason, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{
		"reason": string(reason),
	})
}

// ReasonOf extracts the rejection reason from an error returned by the cart.
func ReasonOf(err error) (Reason, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return "", false
	}
	raw, ok := typed.Detail("reason")
	if !ok {
		return "", false
	}
	reason, ok := raw.(string)
	if !ok || reason == "" {
		return "", false
	}
	return Reason(reason), true
}
