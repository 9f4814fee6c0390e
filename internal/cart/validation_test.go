package cart

import (
	"strings"
	"testing"

	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "script block dropped with content", in: "<script>x</script>Evil", want: "Evil"},
		{name: "style block dropped", in: "<style>p{}</style> Lamp", want: "Lamp"},
		{name: "tags stripped text kept", in: "<b>Desk</b> <i>Lamp</i>", want: "Desk Lamp"},
		{name: "quotes and angles removed", in: `Say "hi" it's 5 > 4`, want: "Say hi its 5  4"},
		{name: "whitespace trimmed", in: "   USB Hub \n", want: "USB Hub"},
		{name: "unterminated tag chars removed", in: "a < b", want: "a  b"},
		{name: "empty stays empty", in: "", want: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tc.in); got != tc.want {
				t.Fatalf("SanitizeString(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeStringTruncatesRunes(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("é", MaxNameLength+25)
	got := SanitizeString(in)
	if n := len([]rune(got)); n != MaxNameLength {
		t.Fatalf("expected %d runes, got %d", MaxNameLength, n)
	}
}

func TestValidateQuantity(t *testing.T) {
	t.Parallel()

	for _, q := range []int{MinQuantity, 5, MaxQuantityPerItem} {
		if err := ValidateQuantity(q); err != nil {
			t.Fatalf("quantity %d should pass: %v", q, err)
		}
	}
	for _, q := range []int{-1, 0, MaxQuantityPerItem + 1} {
		err := ValidateQuantity(q)
		if reason, ok := ReasonOf(err); !ok || reason != ReasonQuantityOutOfRange {
			t.Fatalf("quantity %d: expected quantity_out_of_range, got %v", q, err)
		}
	}
}

func TestValidateItem(t *testing.T) {
	t.Parallel()

	valid := Candidate{ID: "p1", Name: "Lamp", Price: 10}
	cases := []struct {
		name      string
		candidate func() Candidate
		quantity  int
		distinct  int
		want      Reason
	}{
		{name: "ok", candidate: func() Candidate { return valid }, quantity: 1},
		{name: "cart full", candidate: func() Candidate { return valid }, quantity: 1, distinct: MaxItems, want: ReasonCartFull},
		{name: "blank id", candidate: func() Candidate { c := valid; c.ID = "  "; return c }, quantity: 1, want: ReasonInvalidItem},
		{name: "markup only name", candidate: func() Candidate { c := valid; c.Name = "<br/>"; return c }, quantity: 1, want: ReasonInvalidItem},
		{name: "name too long", candidate: func() Candidate { c := valid; c.Name = strings.Repeat("a", MaxNameLength+1); return c }, quantity: 1, want: ReasonInvalidItem},
		{name: "name at limit after stripping", candidate: func() Candidate { c := valid; c.Name = "<b>" + strings.Repeat("a", MaxNameLength) + "</b>"; return c }, quantity: 1},
		{name: "zero price", candidate: func() Candidate { c := valid; c.Price = 0; return c }, quantity: 1, want: ReasonPriceOutOfRange},
		{name: "min price", candidate: func() Candidate { c := valid; c.Price = MinPrice; return c }, quantity: 1},
		{name: "max price", candidate: func() Candidate { c := valid; c.Price = MaxPrice; return c }, quantity: 1},
		{name: "above max price", candidate: func() Candidate { c := valid; c.Price = 1000000; return c }, quantity: 1, want: ReasonPriceOutOfRange},
		{name: "zero quantity", candidate: func() Candidate { return valid }, quantity: 0, want: ReasonQuantityOutOfRange},
		{name: "negative stock", candidate: func() Candidate { c := valid; c.MaxStock = intPtr(-1); return c }, quantity: 1, want: ReasonInvalidItem},
		{name: "quantity above stock", candidate: func() Candidate { c := valid; c.MaxStock = intPtr(2); return c }, quantity: 3, want: ReasonExceedsStock},
		{name: "quantity equal to stock", candidate: func() Candidate { c := valid; c.MaxStock = intPtr(3); return c }, quantity: 3},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateItem(tc.candidate(), tc.quantity, tc.distinct)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			reason, ok := ReasonOf(err)
			if !ok || reason != tc.want {
				t.Fatalf("expected reason %s, got %v", tc.want, err)
			}
			if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %s", pkgerrors.CodeOf(err))
			}
		})
	}
}

func TestValidateItemDoesNotMutateCandidate(t *testing.T) {
	t.Parallel()

	stock := 4
	c := Candidate{ID: " p1 ", Name: "<b>Lamp</b>", Price: 3, MaxStock: &stock}
	_ = ValidateItem(c, 2, 0)
	if c.Name != "<b>Lamp</b>" || c.ID != " p1 " || *c.MaxStock != 4 {
		t.Fatalf("candidate was mutated: %+v", c)
	}
}

func TestCalculateTotal(t *testing.T) {
	t.Parallel()

	if got := CalculateTotal(nil); got != 0 {
		t.Fatalf("empty total should be 0, got %v", got)
	}

	items := []CartItem{{Price: 0.1, Quantity: 3}, {Price: 0.2, Quantity: 1}}
	if got := CalculateTotal(items); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}

	if got := CalculateTotal([]CartItem{{Price: 1.005, Quantity: 1}}); got != 1.01 {
		t.Fatalf("expected half away from zero rounding to 1.01, got %v", got)
	}

	many := make([]CartItem, 0, MaxItems)
	for i := 0; i < MaxItems; i++ {
		many = append(many, CartItem{Price: 0.01, Quantity: 1})
	}
	if got := CalculateTotal(many); got != 1 {
		t.Fatalf("expected exact 1.00 across %d items, got %v", MaxItems, got)
	}
}

func TestReasonOfIgnoresForeignErrors(t *testing.T) {
	t.Parallel()

	if _, ok := ReasonOf(nil); ok {
		t.Fatalf("nil error has no reason")
	}
	if _, ok := ReasonOf(pkgerrors.New(pkgerrors.CodeNotFound, "missing")); ok {
		t.Fatalf("non validation error has no reason")
	}
	if _, ok := ReasonOf(pkgerrors.New(pkgerrors.CodeValidation, "bare")); ok {
		t.Fatalf("validation error without details has no reason")
	}
}
