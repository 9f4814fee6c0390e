package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ShippingInfo is the delivery contact captured at checkout and stored on the order.
type ShippingInfo struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Note        string `json:"note,omitempty"`
}

// Value serializes ShippingInfo as JSON text.
func (s ShippingInfo) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a JSON column into ShippingInfo.
func (s *ShippingInfo) Scan(value interface{}) error {
	if value == nil {
		*s = ShippingInfo{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded ShippingInfo
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode shipping info: %w", err)
	}
	*s = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
