package cart

import (
	cartdto "github.com/smartdot/storefront-backend/api/controllers/cart/dto"
	cartsvc "github.com/smartdot/storefront-backend/internal/cart"
)

func newCartResponse(state cartsvc.CartState) cartdto.Cart {
	items := make([]cartdto.CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, cartdto.CartItem{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
			MaxStock:  item.MaxStock,
			LineTotal: item.LineTotal(),
		})
	}
	return cartdto.Cart{
		Items:     items,
		Total:     state.Total,
		ItemCount: state.ItemCount,
	}
}
