package types

import "testing"

func TestShippingInfoScanAcceptsTextAndBytes(t *testing.T) {
	in := ShippingInfo{FullName: "Aline U", PhoneNumber: "+250788000000", Address: "KN 5 Rd", City: "Kigali"}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var fromString ShippingInfo
	if err := fromString.Scan(v); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString != in {
		t.Fatalf("expected %+v, got %+v", in, fromString)
	}

	var fromBytes ShippingInfo
	if err := fromBytes.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if fromBytes.City != "Kigali" {
		t.Fatalf("unexpected city %q", fromBytes.City)
	}
}

func TestShippingInfoScanRejectsUnknownType(t *testing.T) {
	var s ShippingInfo
	if err := s.Scan(42); err == nil {
		t.Fatalf("expected error for int input")
	}
	if err := s.Scan(nil); err != nil {
		t.Fatalf("nil should reset: %v", err)
	}
}
