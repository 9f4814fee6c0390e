package cartdto

import (
	"github.com/google/uuid"

	"github.com/smartdot/storefront-backend/pkg/types"
)

// AddItemRequest adds a catalog product to the session cart.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity,omitempty" validate:"omitempty,gte=1,max=999"`
}

// UpdateQuantityRequest sets the quantity of an existing row.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,max=999"`
}

// CheckoutRequest is the shipping form submitted with the cart.
type CheckoutRequest struct {
	FullName    string `json:"full_name" validate:"required,max=120"`
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Address     string `json:"address" validate:"required,max=300"`
	City        string `json:"city" validate:"required,max=120"`
	Note        string `json:"note,omitempty" validate:"max=500"`
}

// Shipping maps the form onto the order shipping snapshot.
func (r CheckoutRequest) Shipping() types.ShippingInfo {
	return types.ShippingInfo{
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Address:     r.Address,
		City:        r.City,
		Note:        r.Note,
	}
}

// Cart is the API view of a session cart.
type Cart struct {
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"item_count"`
}

// CartItem is one cart row with its computed line total.
type CartItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
	MaxStock  *int    `json:"max_stock,omitempty"`
	LineTotal float64 `json:"line_total"`
}

// ItemStatus answers the in-cart query for a single product.
type ItemStatus struct {
	ID       string `json:"id"`
	InCart   bool   `json:"in_cart"`
	Quantity int    `json:"quantity"`
}
