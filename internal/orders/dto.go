package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartdot/storefront-backend/pkg/db/models"
	"github.com/smartdot/storefront-backend/pkg/enums"
	"github.com/smartdot/storefront-backend/pkg/types"
)

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID           uuid.UUID          `json:"id"`
	Ref          string             `json:"order_ref"`
	UserID       *uuid.UUID         `json:"user_id,omitempty"`
	Total        float64            `json:"total"`
	Status       enums.OrderStatus  `json:"status"`
	ShippingInfo types.ShippingInfo `json:"shipping_info"`
	Items        []OrderItemDTO     `json:"items"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// OrderItemDTO is one priced line of an order.
type OrderItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	LineTotal float64   `json:"line_total"`
}

// Ref is the short customer-facing order reference: the last 8 characters of the id, upper-cased.
func Ref(id uuid.UUID) string {
	s := id.String()
	return strings.ToUpper(s[len(s)-8:])
}

// FromModel maps an order row and its items.
func FromModel(o *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
			LineTotal: item.Price.Mul(decimalFromInt(item.Quantity)).Round(2).InexactFloat64(),
		})
	}
	return OrderDTO{
		ID:           o.ID,
		Ref:          Ref(o.ID),
		UserID:       o.UserID,
		Total:        o.Total.InexactFloat64(),
		Status:       o.Status,
		ShippingInfo: o.ShippingInfo,
		Items:        items,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}
