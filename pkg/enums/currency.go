package enums

import "strings"

// Currency is an ISO 4217 settlement currency the marketplace charges in.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

var currencies = set[Currency]{CurrencyINR, CurrencyUSD}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return currencies.has(c) }

// ParseCurrency accepts any casing and surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	return currencies.parse("currency", strings.ToUpper(strings.TrimSpace(value)))
}
