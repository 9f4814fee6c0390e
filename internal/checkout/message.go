package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/pkg/types"
	"github.com/smartdot/storefront-backend/pkg/uri"
)

const waBaseURL = "https://wa.me/"

// MessageInput is everything rendered into the order message sent to the store admin.
type MessageInput struct {
	StoreName    string
	OrderRef     string
	Shipping     types.ShippingInfo
	Items        []cart.CartItem
	Total        float64
	ImageBaseURL string
}

// BuildMessage renders the WhatsApp order summary.
func BuildMessage(in MessageInput) string {
	var b strings.Builder
	b.WriteString("🌟 *NEW ORDER* 🌟\n")
	b.WriteString(in.StoreName + "\n")
	fmt.Fprintf(&b, "Order #%s\n\n", in.OrderRef)

	b.WriteString("👤 *Customer Details:*\n")
	fmt.Fprintf(&b, "Name: %s\n", in.Shipping.FullName)
	fmt.Fprintf(&b, "Phone: %s\n", in.Shipping.PhoneNumber)
	fmt.Fprintf(&b, "Address: %s, %s\n", in.Shipping.Address, in.Shipping.City)
	if note := strings.TrimSpace(in.Shipping.Note); note != "" {
		fmt.Fprintf(&b, "Note: %s\n", note)
	}

	b.WriteString("\n📦 *Order Summary:*\n")
	for i, item := range in.Items {
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, item.Name)
		fmt.Fprintf(&b, "   Qty: %d  |  $%s\n", item.Quantity, money(item.LineTotal()))
		if link := imageLink(in.ImageBaseURL, item.Image); link != "" {
			fmt.Fprintf(&b, "   🔗 [Image](%s)\n", link)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "💰 *TOTAL: $%s*\n", money(in.Total))
	b.WriteString("--------------------------------\n")
	return b.String()
}

// WhatsAppURL builds the wa.me deep link for number with message prefilled.
func WhatsAppURL(number, message string) string {
	return waBaseURL + digitsOnly(number) + "?text=" + uri.EscapeComponent(message)
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func imageLink(base, image string) string {
	image = strings.TrimSpace(image)
	if image == "" {
		return ""
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(image, "/") {
		image = "/" + image
	}
	return base + image
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
