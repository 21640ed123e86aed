// Package core holds the cash count domain: registries, cash counts and the
// denomination breakdown calculator used to reconcile a drawer.
package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Breakdown maps a canonical denomination key to the number of pieces counted.
// A missing key reads as zero.
type Breakdown map[string]int

// Summary is the derived view of a single breakdown.
type Summary struct {
	Total decimal.Decimal
	Bills decimal.Decimal
	Coins decimal.Decimal
}

// Reconciliation bundles every derived quantity of a cash count form.
// It is always produced as a whole by Reconcile.
type Reconciliation struct {
	Reported  decimal.Decimal
	Actual    Summary
	Leftover  Summary
	OverShort decimal.Decimal
}

// Status describes the over/short sign: "over", "short" or "exact".
func (r Reconciliation) Status() string {
	return OverShortStatus(r.OverShort)
}

// OverShortStatus maps a signed discrepancy to "over", "short" or "exact".
// The sign is taken at cent precision, the same as FormatSigned shows it.
func OverShortStatus(d decimal.Decimal) string {
	switch d.Round(2).Sign() {
	case 1:
		return "over"
	case -1:
		return "short"
	default:
		return "exact"
	}
}

// Quantity returns the recorded quantity for a denomination value.
func (b Breakdown) Quantity(value decimal.Decimal) int {
	return b[DenominationKey(value)]
}

// Keys returns the breakdown keys ordered by descending denomination value.
// Non-canonical keys sort last, alphabetically.
func (b Breakdown) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, erri := ParseDenominationKey(keys[i])
		vj, errj := ParseDenominationKey(keys[j])
		switch {
		case erri == nil && errj == nil:
			return vi.GreaterThan(vj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Validate checks every key and quantity of the breakdown.
func (b Breakdown) Validate() error {
	for _, k := range b.Keys() {
		if _, err := ParseDenominationKey(k); err != nil {
			return err
		}
		if b[k] < 0 {
			return fmt.Errorf("%w: %d pieces of %s", ErrInvalidQuantity, b[k], k)
		}
	}
	return nil
}

// Clone returns an independent copy; a nil breakdown clones to an empty one.
func (b Breakdown) Clone() Breakdown {
	out := make(Breakdown, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// SetDenominationQuantity returns a copy of b with the quantity for value replaced.
// The input breakdown is left untouched. An explicit zero is stored as an entry.
func SetDenominationQuantity(b Breakdown, value decimal.Decimal, quantity int) (Breakdown, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidDenomination, value.String())
	}
	if !value.Equal(value.Round(2)) {
		return nil, fmt.Errorf("%w: %s has more than two decimals", ErrInvalidDenomination, value.String())
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	out := b.Clone()
	out[DenominationKey(value)] = quantity
	return out, nil
}

// ComputeTotal sums value x quantity over the breakdown.
func ComputeTotal(b Breakdown) (decimal.Decimal, error) {
	s, err := summarize(b)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Total, nil
}

// SplitBillsAndCoins returns the bills (value >= 1.00) and coins (value < 1.00) totals.
func SplitBillsAndCoins(b Breakdown) (bills, coins decimal.Decimal, err error) {
	s, err := summarize(b)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return s.Bills, s.Coins, nil
}

// ComputeOverShort returns actual minus reported, unrounded.
// Positive means the drawer is over, negative means it is short.
func ComputeOverShort(actualTotal, reported decimal.Decimal) decimal.Decimal {
	return actualTotal.Sub(reported)
}

// Summarize computes total, bills and coins of a breakdown in one pass.
func Summarize(b Breakdown) (Summary, error) {
	return summarize(b)
}

// Reconcile derives every total of a cash count form at once.
// Only the actual breakdown is compared against the reported amount.
func Reconcile(actual, leftover Breakdown, reported decimal.Decimal) (Reconciliation, error) {
	a, err := summarize(actual)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("actual breakdown: %w", err)
	}
	l, err := summarize(leftover)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("leftover breakdown: %w", err)
	}
	return Reconciliation{
		Reported:  reported,
		Actual:    a,
		Leftover:  l,
		OverShort: ComputeOverShort(a.Total, reported),
	}, nil
}

func summarize(b Breakdown) (Summary, error) {
	s := Summary{Total: decimal.Zero, Bills: decimal.Zero, Coins: decimal.Zero}
	for key, qty := range b {
		value, err := ParseDenominationKey(key)
		if err != nil {
			return Summary{}, err
		}
		if qty < 0 {
			return Summary{}, fmt.Errorf("%w: %d pieces of %s", ErrInvalidQuantity, qty, key)
		}
		amount := value.Mul(decimal.NewFromInt(int64(qty)))
		if value.GreaterThanOrEqual(BillThreshold) {
			s.Bills = s.Bills.Add(amount)
		} else {
			s.Coins = s.Coins.Add(amount)
		}
	}
	s.Total = s.Bills.Add(s.Coins)
	return s, nil
}
