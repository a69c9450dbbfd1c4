package types

import (
	"database/sql/driver"
	"strings"
)

// Address is a delivery destination persisted as JSONB on orders.
type Address struct {
	Street1    string `json:"street1" validate:"required"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// Normalized trims and lowercases every field.
func (a Address) Normalized() Address {
	return Address{
		Street1:    normalize(a.Street1),
		Street2:    normalize(a.Street2),
		City:       normalize(a.City),
		State:      normalize(a.State),
		PostalCode: normalize(a.PostalCode),
		Country:    normalize(a.Country),
	}
}

// IsZero reports whether no field carries a value.
func (a Address) IsZero() bool {
	return a.Normalized() == Address{}
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Value serializes the address to JSON.
func (a Address) Value() (driver.Value, error) {
	return jsonValue(a)
}

// Scan decodes JSONB into the address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	return scanJSON(value, a)
}

// Recipient names the person receiving a delivery.
type Recipient struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// Value serializes the recipient to JSON.
func (r Recipient) Value() (driver.Value, error) {
	return jsonValue(r)
}

// Scan decodes JSONB into the recipient.
func (r *Recipient) Scan(value interface{}) error {
	if value == nil {
		*r = Recipient{}
		return nil
	}
	return scanJSON(value, r)
}
