package cart

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	unsafeChars        = strings.NewReplacer("<", "", ">", "", "'", "", `"`, "")
)

// SanitizeString strips markup and quoting characters, trims, and caps the result at MaxNameLength runes.
func SanitizeString(input string) string {
	return truncateRunes(stripMarkup(input), MaxNameLength)
}

func stripMarkup(input string) string {
	out := scriptBlockPattern.ReplaceAllString(input, "")
	out = styleBlockPattern.ReplaceAllString(out, "")
	out = tagPattern.ReplaceAllString(out, "")
	out = unsafeChars.Replace(out)
	return strings.TrimSpace(out)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

// ValidateQuantity checks a requested quantity against the per-item bounds.
func ValidateQuantity(quantity int) error {
	if quantity < MinQuantity {
		return reject(ReasonQuantityOutOfRange, fmt.Sprintf("Minimum quantity is %d", MinQuantity))
	}
	if quantity > MaxQuantityPerItem {
		return reject(ReasonQuantityOutOfRange, fmt.Sprintf("Maximum quantity is %d", MaxQuantityPerItem))
	}
	return nil
}

// ValidatePrice checks that price is finite and inside [MinPrice, MaxPrice].
func ValidatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return reject(ReasonInvalidItem, "Invalid price")
	}
	if price < MinPrice || price > MaxPrice {
		return reject(ReasonPriceOutOfRange, fmt.Sprintf("Price must be between %.2f and %.2f", MinPrice, MaxPrice))
	}
	return nil
}

// ValidateItem checks a candidate about to become a new cart row.
// currentDistinct is the number of distinct ids already in the cart.
func ValidateItem(candidate Candidate, quantity, currentDistinct int) error {
	if currentDistinct >= MaxItems {
		return reject(ReasonCartFull, fmt.Sprintf("Cart is full. Maximum %d items allowed.", MaxItems))
	}
	if strings.TrimSpace(candidate.ID) == "" {
		return reject(ReasonInvalidItem, "Invalid item ID")
	}
	name := stripMarkup(candidate.Name)
	if name == "" {
		return reject(ReasonInvalidItem, "Invalid item name")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return reject(ReasonInvalidItem, "Item name too long")
	}
	if err := ValidatePrice(candidate.Price); err != nil {
		return err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	if candidate.MaxStock != nil {
		if *candidate.MaxStock < 0 {
			return reject(ReasonInvalidItem, "Invalid stock value")
		}
		if quantity > *candidate.MaxStock {
			return reject(ReasonExceedsStock, fmt.Sprintf("Only %d items available in stock", *candidate.MaxStock))
		}
	}
	return nil
}

// CalculateTotal sums price * quantity in decimal and rounds half away from zero to cents.
func CalculateTotal(items []CartItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum.Round(2).InexactFloat64()
}

// sanitizeItem returns a copy of item with the name re-sanitized and the stock ceiling detached.
func sanitizeItem(item CartItem) CartItem {
	out := item
	out.ID = strings.TrimSpace(item.ID)
	out.Name = SanitizeString(item.Name)
	out.Image = strings.TrimSpace(item.Image)
	out.MaxStock = copyInt(item.MaxStock)
	return out
}

// SanitizeState re-applies item sanitization and recomputes the derived fields.
func SanitizeState(state CartState) CartState {
	items := make([]CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, sanitizeItem(item))
	}
	return withDerived(items)
}
