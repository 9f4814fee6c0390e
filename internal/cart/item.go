package cart

import "github.com/shopspring/decimal"

// CartItem is one row of the cart. Names are always stored sanitized.
type CartItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
	MaxStock *int    `json:"maxStock,omitempty"`
}

// LineTotal returns price * quantity rounded to cents.
func (i CartItem) LineTotal() float64 {
	line := decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
	return line.Round(2).InexactFloat64()
}

// CartState is the full cart as observed by callers. Total and ItemCount are derived from Items.
type CartState struct {
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}

// Candidate is a purchasable item offered to AddItem, usually resolved from the catalog.
type Candidate struct {
	ID       string
	Name     string
	Price    float64
	Image    string
	MaxStock *int
}

// EmptyState returns a cart with no rows.
func EmptyState() CartState {
	return CartState{Items: []CartItem{}}
}

// IsEmpty reports whether the cart has no rows.
func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the row with the given id.
func (s CartState) Find(id string) (CartItem, bool) {
	if idx := s.indexOf(id); idx >= 0 {
		return s.Items[idx], true
	}
	return CartItem{}, false
}

func (s CartState) indexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// clone deep-copies the state so callers never share rows or stock pointers with the store.
func (s CartState) clone() CartState {
	out := CartState{
		Items:     make([]CartItem, len(s.Items)),
		Total:     s.Total,
		ItemCount: s.ItemCount,
	}
	for i, item := range s.Items {
		out.Items[i] = item
		out.Items[i].MaxStock = copyInt(item.MaxStock)
	}
	return out
}

func withDerived(items []CartItem) CartState {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return CartState{
		Items:     items,
		Total:     CalculateTotal(items),
		ItemCount: count,
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func intPtr(v int) *int {
	return &v
}
