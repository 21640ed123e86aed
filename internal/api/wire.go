package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashcount/internal/core"
)

// amount encodes a decimal as a bare JSON number, which is what the API
// expects; decoding accepts numbers and quoted strings.
type amount struct {
	decimal.Decimal
}

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// timestamp accepts RFC 3339 as well as the zone-less layouts some API
// deployments emit. Zone-less values are read as UTC.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date_counted: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("date_counted: unrecognised timestamp %q", s)
}

type registryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (r registryDTO) toCore() core.Registry {
	return core.Registry{ID: r.ID, Name: r.Name}
}

// cashCountDTO mirrors the API's cash count record. Field names follow the
// API, including its camelCase bill/coin totals.
type cashCountDTO struct {
	ID                 int64          `json:"id,omitempty"`
	RegistryID         int64          `json:"registry_id"`
	DateCounted        timestamp      `json:"date_counted"`
	ReportedAmount     amount         `json:"reported_amount"`
	ActualBreakdown    core.Breakdown `json:"actual_breakdown"`
	ActualTotal        amount         `json:"actual_total"`
	LeftoverBreakdown  core.Breakdown `json:"leftover_breakdown"`
	LeftoverTotal      amount         `json:"leftover_total"`
	OverShort          amount         `json:"over_short"`
	Note               string         `json:"note"`
	BillsTotal         amount         `json:"billsTotal"`
	CoinsTotal         amount         `json:"coinsTotal"`
	LeftoverBillsTotal amount         `json:"leftoverBillsTotal"`
	LeftoverCoinsTotal amount         `json:"leftoverCoinsTotal"`
}

func cashCountFromCore(cc core.CashCount) cashCountDTO {
	actual := cc.ActualBreakdown
	if actual == nil {
		actual = core.Breakdown{}
	}
	leftover := cc.LeftoverBreakdown
	if leftover == nil {
		leftover = core.Breakdown{}
	}
	return cashCountDTO{
		ID:                 cc.ID,
		RegistryID:         cc.RegistryID,
		DateCounted:        timestamp{cc.DateCounted},
		ReportedAmount:     amount{cc.ReportedAmount},
		ActualBreakdown:    actual,
		ActualTotal:        amount{cc.ActualTotal},
		LeftoverBreakdown:  leftover,
		LeftoverTotal:      amount{cc.LeftoverTotal},
		OverShort:          amount{cc.OverShort},
		Note:               cc.Note,
		BillsTotal:         amount{cc.BillsTotal},
		CoinsTotal:         amount{cc.CoinsTotal},
		LeftoverBillsTotal: amount{cc.LeftoverBillsTotal},
		LeftoverCoinsTotal: amount{cc.LeftoverCoinsTotal},
	}
}

func (d cashCountDTO) toCore() core.CashCount {
	return core.CashCount{
		ID:                 d.ID,
		RegistryID:         d.RegistryID,
		DateCounted:        d.DateCounted.Time,
		ReportedAmount:     d.ReportedAmount.Decimal,
		ActualBreakdown:    d.ActualBreakdown,
		ActualTotal:        d.ActualTotal.Decimal,
		LeftoverBreakdown:  d.LeftoverBreakdown,
		LeftoverTotal:      d.LeftoverTotal.Decimal,
		OverShort:          d.OverShort.Decimal,
		Note:               d.Note,
		BillsTotal:         d.BillsTotal.Decimal,
		CoinsTotal:         d.CoinsTotal.Decimal,
		LeftoverBillsTotal: d.LeftoverBillsTotal.Decimal,
		LeftoverCoinsTotal: d.LeftoverCoinsTotal.Decimal,
	}
}
