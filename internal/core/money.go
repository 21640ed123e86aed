package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a non-negative amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. An empty string
// is zero, matching an untouched form field.
//
// Examples:
//
//	ParseAmount("200")    -> 200, nil
//	ParseAmount("12,50")  -> 12.5, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
//	ParseAmount("1.005")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseQuantity converts a form field to a piece count. Empty means zero.
// Negative or non-integer input is ErrInvalidQuantity.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidQuantity, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidQuantity, n)
	}
	return n, nil
}

// Amounts are kept as decimals end to end; rounding to two places only
// happens when they are formatted for display.

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatSigned renders an over/short value with an explicit sign. Values
// that round to zero cents print as "0.00".
func FormatSigned(d decimal.Decimal) string {
	d = d.Round(2)
	switch d.Sign() {
	case 1:
		return "+" + d.StringFixed(2)
	case 0:
		return "0.00"
	}
	return d.StringFixed(2)
}
