package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	PredicateTypeLocation = "location"
	PredicateOperatorIn   = "inside"

	LocationTypeCity          = "city"
	LocationTypeState         = "state"
	LocationTypeCountry       = "country"
	LocationTypeInternational = "international"
)

// LocationPredicate matches a delivery address against a place. The bare JSON
// string "international" decodes to a predicate matching any foreign country.
type LocationPredicate struct {
	Type         string `json:"type"`
	Operator     string `json:"operator"`
	LocationType string `json:"locationType"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
}

// UnmarshalJSON accepts either the object form or the "international" token.
func (p *LocationPredicate) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var token string
		if err := json.Unmarshal(trimmed, &token); err != nil {
			return err
		}
		*p = LocationPredicate{
			Type:         PredicateTypeLocation,
			Operator:     PredicateOperatorIn,
			LocationType: token,
		}
		return nil
	}

	type plain LocationPredicate
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	*p = LocationPredicate(decoded)
	return nil
}

// CostModifiers is the closed set of adjustments applied to a base shipping cost.
// BaseCost is charged once per group unless BaseCostPerUnit is set, which is
// ignored when extra-item pricing is on.
type CostModifiers struct {
	BaseCostPerUnit     bool            `json:"baseCostPerUnit"`
	ExtraPerItemEnabled bool            `json:"extraPerItemEnabled"`
	FreeItemCount       int             `json:"freeItemCount"`
	ExtraPerItemCost    decimal.Decimal `json:"extraPerItemCost"`
	DiscountEnabled     bool            `json:"discountEnabled"`
	DiscountThreshold   decimal.Decimal `json:"discountThreshold"`
	DiscountPercentage  decimal.Decimal `json:"discountPercentage"`
	CapEnabled          bool            `json:"capEnabled"`
	CapAmount           decimal.Decimal `json:"capAmount"`
}

// ShippingCondition prices a group when every predicate in When holds.
// An empty When is the catch-all.
type ShippingCondition struct {
	When          []LocationPredicate `json:"when"`
	BaseCost      decimal.Decimal     `json:"baseCost"`
	CostModifiers CostModifiers       `json:"costModifiers"`
}

// ShippingConditions is the ordered condition list of a shipping rule.
type ShippingConditions []ShippingCondition

// Value serializes the conditions to JSON.
func (c ShippingConditions) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return jsonValue(c)
}

// Scan decodes JSONB into the conditions.
func (c *ShippingConditions) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	var decoded ShippingConditions
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}
