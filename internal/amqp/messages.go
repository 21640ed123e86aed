package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cashcount/internal/core"
)

// CashCountCreated is published after the API accepted a new cash count.
// It carries everything the exporter writes, so the worker never needs
// user credentials to call back into the API.
type CashCountCreated struct {
	ID                 int64           `json:"id"`
	RegistryID         int64           `json:"registry_id"`
	RegistryName       string          `json:"registry_name"`
	DateCounted        time.Time       `json:"date_counted"`
	ReportedAmount     decimal.Decimal `json:"reported_amount"`
	ActualTotal        decimal.Decimal `json:"actual_total"`
	LeftoverTotal      decimal.Decimal `json:"leftover_total"`
	BillsTotal         decimal.Decimal `json:"bills_total"`
	CoinsTotal         decimal.Decimal `json:"coins_total"`
	LeftoverBillsTotal decimal.Decimal `json:"leftover_bills_total"`
	LeftoverCoinsTotal decimal.Decimal `json:"leftover_coins_total"`
	OverShort          decimal.Decimal `json:"over_short"`
	Note               string          `json:"note"`
	CountedBy          string          `json:"counted_by"`
	Timestamp          time.Time       `json:"timestamp"`
}

var errMissingID = errors.New("cash count id is required")

func NewCashCountCreated(cc core.CashCount, countedBy string) *CashCountCreated {
	return &CashCountCreated{
		ID:                 cc.ID,
		RegistryID:         cc.RegistryID,
		RegistryName:       cc.RegistryName,
		DateCounted:        cc.DateCounted.UTC(),
		ReportedAmount:     cc.ReportedAmount,
		ActualTotal:        cc.ActualTotal,
		LeftoverTotal:      cc.LeftoverTotal,
		BillsTotal:         cc.BillsTotal,
		CoinsTotal:         cc.CoinsTotal,
		LeftoverBillsTotal: cc.LeftoverBillsTotal,
		LeftoverCoinsTotal: cc.LeftoverCoinsTotal,
		OverShort:          cc.OverShort,
		Note:               cc.Note,
		CountedBy:          countedBy,
		Timestamp:          time.Now().UTC(),
	}
}

// CashCount rebuilds the totals-only view of the count. Breakdowns are not
// carried on the wire.
func (m *CashCountCreated) CashCount() core.CashCount {
	return core.CashCount{
		ID:                 m.ID,
		RegistryID:         m.RegistryID,
		RegistryName:       m.RegistryName,
		DateCounted:        m.DateCounted,
		ReportedAmount:     m.ReportedAmount,
		ActualTotal:        m.ActualTotal,
		LeftoverTotal:      m.LeftoverTotal,
		BillsTotal:         m.BillsTotal,
		CoinsTotal:         m.CoinsTotal,
		LeftoverBillsTotal: m.LeftoverBillsTotal,
		LeftoverCoinsTotal: m.LeftoverCoinsTotal,
		OverShort:          m.OverShort,
		Note:               m.Note,
	}
}

func (m *CashCountCreated) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CashCountCreatedFromJSON decodes and sanity-checks a message body.
func CashCountCreatedFromJSON(data []byte) (*CashCountCreated, error) {
	var msg CashCountCreated
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, errMissingID
	}
	if msg.RegistryID <= 0 {
		return nil, fmt.Errorf("cash count %d: %w", msg.ID, core.ErrMissingRegistry)
	}
	return &msg, nil
}
