package checkout

import (
	"net/url"
	"strings"
	"testing"

	"github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/pkg/types"
)

func TestBuildMessageLayout(t *testing.T) {
	got := BuildMessage(MessageInput{
		StoreName: "SmartDot Electronics",
		OrderRef:  "2E3D4C5B",
		Shipping: types.ShippingInfo{
			FullName:    "Jane Doe",
			PhoneNumber: "+250788000111",
			Address:     "KN 5 Rd",
			City:        "Kigali",
			Note:        "Call on arrival",
		},
		Items: []cart.CartItem{
			{ID: "a", Name: "Smartphone X", Price: 299.99, Quantity: 2, Image: "/images/phone.png"},
			{ID: "b", Name: "Phone Case", Price: 12.5, Quantity: 1, Image: "https://cdn.example.com/case.png"},
			{ID: "c", Name: "Sticker", Price: 0.1, Quantity: 3},
		},
		Total:        612.78,
		ImageBaseURL: "https://shop.example.com/",
	})

	want := "🌟 *NEW ORDER* 🌟\n" +
		"SmartDot Electronics\n" +
		"Order #2E3D4C5B\n\n" +
		"👤 *Customer Details:*\n" +
		"Name: Jane Doe\n" +
		"Phone: +250788000111\n" +
		"Address: KN 5 Rd, Kigali\n" +
		"Note: Call on arrival\n" +
		"\n📦 *Order Summary:*\n" +
		"1. *Smartphone X*\n" +
		"   Qty: 2  |  $599.98\n" +
		"   🔗 [Image](https://shop.example.com/images/phone.png)\n\n" +
		"2. *Phone Case*\n" +
		"   Qty: 1  |  $12.50\n" +
		"   🔗 [Image](https://cdn.example.com/case.png)\n\n" +
		"3. *Sticker*\n" +
		"   Qty: 3  |  $0.30\n\n" +
		"💰 *TOTAL: $612.78*\n" +
		"--------------------------------\n"
	if got != want {
		t.Fatalf("unexpected message:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildMessageOmitsEmptyNote(t *testing.T) {
	got := BuildMessage(MessageInput{
		StoreName: "Shop",
		OrderRef:  "ABCDEFGH",
		Shipping:  types.ShippingInfo{FullName: "A", PhoneNumber: "1", Address: "B", City: "C", Note: "  "},
		Items:     []cart.CartItem{{ID: "x", Name: "Thing", Price: 1, Quantity: 1, Image: "relative.png"}},
		Total:     1,
	})
	if strings.Contains(got, "Note:") {
		t.Fatalf("blank note should be omitted: %q", got)
	}
	if strings.Contains(got, "[Image]") {
		t.Fatalf("relative image without base URL should be omitted: %q", got)
	}
}

func TestWhatsAppURL(t *testing.T) {
	link := WhatsAppURL("+250 785-657-398", "Hi & welcome\n#1")
	if !strings.HasPrefix(link, "https://wa.me/250785657398?text=") {
		t.Fatalf("unexpected link %q", link)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if got := parsed.Query().Get("text"); got != "Hi & welcome\n#1" {
		t.Fatalf("text did not survive encoding: %q", got)
	}
}
