package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type (
	// Credentials are the basic-auth pair attached to every remote API call.
	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	// Registry is a named cash drawer.
	Registry struct {
		ID   int64
		Name string
	}

	// CashCount is one reconciliation event for a registry.
	CashCount struct {
		ID                 int64
		RegistryID         int64
		RegistryName       string // display only, joined from the registry list
		DateCounted        time.Time
		ReportedAmount     decimal.Decimal
		ActualBreakdown    Breakdown
		ActualTotal        decimal.Decimal
		LeftoverBreakdown  Breakdown
		LeftoverTotal      decimal.Decimal
		OverShort          decimal.Decimal
		BillsTotal         decimal.Decimal
		CoinsTotal         decimal.Decimal
		LeftoverBillsTotal decimal.Decimal
		LeftoverCoinsTotal decimal.Decimal
		Note               string
	}
)

var (
	ErrInvalidDenomination = errors.New("invalid denomination")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyUsername       = errors.New("empty username")
	ErrEmptyPassword       = errors.New("empty password")
	ErrRegistryNameShort   = errors.New("registry name must be at least 2 characters")
	ErrRegistryNameLong    = errors.New("registry name too long (max 100 characters)")
	ErrMissingRegistry     = errors.New("registry is required")
	ErrMissingDate         = errors.New("date counted is required")
	ErrNoteTooLong         = errors.New("note too long (max 500 characters)")
)

const (
	minRegistryName = 2
	maxRegistryName = 100
	maxNoteLength   = 500
)

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return ErrEmptyUsername
	}
	if c.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// IsZero reports whether no credentials are set.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// ValidateRegistryName checks the trimmed name length.
func ValidateRegistryName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minRegistryName {
		return ErrRegistryNameShort
	}
	if n > maxRegistryName {
		return ErrRegistryNameLong
	}
	return nil
}

func (r Registry) Validate() error {
	return ValidateRegistryName(r.Name)
}

// NewCashCount builds a cash count with every derived total filled in from
// the two breakdowns and the reported amount.
func NewCashCount(registryID int64, dateCounted time.Time, reported decimal.Decimal, actual, leftover Breakdown, note string) (CashCount, error) {
	rec, err := Reconcile(actual, leftover, reported)
	if err != nil {
		return CashCount{}, err
	}
	cc := CashCount{
		RegistryID:        registryID,
		DateCounted:       dateCounted.UTC(),
		ReportedAmount:    reported,
		ActualBreakdown:   actual.Clone(),
		LeftoverBreakdown: leftover.Clone(),
		Note:              strings.TrimSpace(note),
	}
	cc.ApplyReconciliation(rec)
	return cc, cc.Validate()
}

// ApplyReconciliation copies the derived totals onto the cash count.
func (cc *CashCount) ApplyReconciliation(rec Reconciliation) {
	cc.ActualTotal = rec.Actual.Total
	cc.BillsTotal = rec.Actual.Bills
	cc.CoinsTotal = rec.Actual.Coins
	cc.LeftoverTotal = rec.Leftover.Total
	cc.LeftoverBillsTotal = rec.Leftover.Bills
	cc.LeftoverCoinsTotal = rec.Leftover.Coins
	cc.OverShort = rec.OverShort
}

// Status describes the over/short sign of the count.
func (cc CashCount) Status() string {
	return OverShortStatus(cc.OverShort)
}

func (cc CashCount) Validate() error {
	if cc.RegistryID <= 0 {
		return ErrMissingRegistry
	}
	if cc.DateCounted.IsZero() {
		return ErrMissingDate
	}
	if cc.ReportedAmount.IsNegative() {
		return fmt.Errorf("%w: reported amount is negative", ErrInvalidAmount)
	}
	if !cc.ReportedAmount.Equal(cc.ReportedAmount.Round(2)) {
		return fmt.Errorf("%w: reported amount has more than two decimals", ErrInvalidAmount)
	}
	if err := cc.ActualBreakdown.Validate(); err != nil {
		return fmt.Errorf("actual breakdown: %w", err)
	}
	if err := cc.LeftoverBreakdown.Validate(); err != nil {
		return fmt.Errorf("leftover breakdown: %w", err)
	}
	if utf8.RuneCountInString(cc.Note) > maxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}
