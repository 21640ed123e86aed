package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BillThreshold separates bills from coins: values at or above it are bills.
var BillThreshold = decimal.NewFromInt(1)

// Denomination is one entry of the supported cash catalog.
type Denomination struct {
	Label string
	Value decimal.Decimal
}

// Key returns the canonical breakdown key for the denomination.
func (d Denomination) Key() string {
	return DenominationKey(d.Value)
}

// IsBill reports whether the denomination counts towards the bills total.
func (d Denomination) IsBill() bool {
	return d.Value.GreaterThanOrEqual(BillThreshold)
}

// Denominations is the fixed catalog shown on the cash count form, largest first.
var Denominations = []Denomination{
	{Label: "$100", Value: decimal.NewFromInt(100)},
	{Label: "$50", Value: decimal.NewFromInt(50)},
	{Label: "$20", Value: decimal.NewFromInt(20)},
	{Label: "$10", Value: decimal.NewFromInt(10)},
	{Label: "$5", Value: decimal.NewFromInt(5)},
	{Label: "$1", Value: decimal.NewFromInt(1)},
	{Label: "25¢", Value: decimal.RequireFromString("0.25")},
	{Label: "10¢", Value: decimal.RequireFromString("0.10")},
	{Label: "5¢", Value: decimal.RequireFromString("0.05")},
	{Label: "1¢", Value: decimal.RequireFromString("0.01")},
}

// DenominationKey renders a denomination value as a fixed two-decimal key ("100.00", "0.25").
func DenominationKey(value decimal.Decimal) string {
	return value.StringFixed(2)
}

// ParseDenomination parses a denomination value such as "100", "0.25" or
// "1.00". Negative values, exponents and more than two decimals are
// ErrInvalidDenomination.
func ParseDenomination(s string) (decimal.Decimal, error) {
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDenomination, s)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDenomination, s)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidDenomination, s)
	}
	if !v.Equal(v.Round(2)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidDenomination, s)
	}
	return v, nil
}

// ParseDenominationKey parses a breakdown key. Only the canonical form
// produced by DenominationKey is accepted, so one value has exactly one key.
func ParseDenominationKey(key string) (decimal.Decimal, error) {
	v, err := ParseDenomination(key)
	if err != nil {
		return decimal.Zero, err
	}
	if key != DenominationKey(v) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a canonical key (want %q)", ErrInvalidDenomination, key, DenominationKey(v))
	}
	return v, nil
}

// LookupDenomination returns the catalog entry for a key, if any.
func LookupDenomination(key string) (Denomination, bool) {
	v, err := ParseDenomination(key)
	if err != nil {
		return Denomination{}, false
	}
	for _, d := range Denominations {
		if d.Value.Equal(v) {
			return d, true
		}
	}
	return Denomination{}, false
}
