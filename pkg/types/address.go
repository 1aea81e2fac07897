package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DeliveryAddress is the selected drop-off address for home delivery. It is
// stored as a JSON document on the order row.
type DeliveryAddress struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	PostalCode string  `json:"postalCode" validate:"required"`
	Notes      *string `json:"notes,omitempty"`
}

// Missing returns the JSON names of required fields that are blank.
func (a DeliveryAddress) Missing() []string {
	missing := []string{}
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postalCode")
	}
	return missing
}

// Clone returns a deep copy.
func (a DeliveryAddress) Clone() DeliveryAddress {
	out := a
	if a.Line2 != nil {
		line2 := *a.Line2
		out.Line2 = &line2
	}
	if a.Notes != nil {
		notes := *a.Notes
		out.Notes = &notes
	}
	return out
}

// Value marshals the address into its JSON column representation.
func (a DeliveryAddress) Value() (driver.Value, error) {
	if missing := a.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("delivery address: missing %s", strings.Join(missing, ", "))
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes the JSON column representation.
func (a *DeliveryAddress) Scan(value interface{}) error {
	if value == nil {
		*a = DeliveryAddress{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("delivery address: unsupported Scan type %T", value)
	}
	return json.Unmarshal(raw, a)
}
