package http

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"cashcount/internal/core"
)

// pageData is what the layout template receives.
type pageData struct {
	Title   string
	User    string
	Active  string
	Flash   string
	Error   string
	Content any
}

type loginView struct {
	Username string
	Next     string
	Error    string
}

type registriesView struct {
	Registries []core.Registry
	Name       string
	Error      string
}

type cashCountRow struct {
	ID        int64
	Registry  string
	Date      string
	Age       string
	Reported  string
	Actual    string
	Leftover  string
	OverShort string
	Status    string
	Note      string
}

type cashCountsView struct {
	Rows []cashCountRow
}

// denomField is one quantity input of a breakdown grid.
type denomField struct {
	Label string
	Name  string
	Value string
	Error string
}

// totalsView is the whole totals panel. It is always built from a single
// core.Reconciliation, or left empty when the inputs do not parse.
type totalsView struct {
	Ready         bool
	Reported      string
	ActualTotal   string
	Bills         string
	Coins         string
	LeftoverTotal string
	LeftoverBills string
	LeftoverCoins string
	OverShort     string
	Status        string
	Errors        []string
}

type cashCountFormView struct {
	Registries  []core.Registry
	RegistryID  int64
	DateCounted string
	Reported    string
	Note        string
	Actual      []denomField
	Leftover    []denomField
	Totals      totalsView
	Errors      map[string]string
	Created     int64
	Error       string
}

func newCashCountRow(cc core.CashCount, now time.Time, loc *time.Location) cashCountRow {
	registry := cc.RegistryName
	if registry == "" {
		registry = "#" + strconv.FormatInt(cc.RegistryID, 10)
	}
	return cashCountRow{
		ID:        cc.ID,
		Registry:  registry,
		Date:      formatDateCounted(cc.DateCounted, loc),
		Age:       relativeTime(cc.DateCounted, now),
		Reported:  formatMoney(cc.ReportedAmount),
		Actual:    formatMoney(cc.ActualTotal),
		Leftover:  formatMoney(cc.LeftoverTotal),
		OverShort: formatSignedMoney(cc.OverShort),
		Status:    overShortClass(cc.OverShort),
		Note:      cc.Note,
	}
}

// newTotalsView reconciles the parsed inputs. Field errors win over totals
// so a half-valid form never shows numbers.
func newTotalsView(f cashCountForm) totalsView {
	if !f.Valid() {
		var errs []string
		for _, field := range totalsFields() {
			if msg, ok := f.Errors[field]; ok {
				errs = append(errs, msg)
			}
		}
		if len(errs) > 0 {
			return totalsView{Errors: errs}
		}
	}
	rec, err := core.Reconcile(f.Actual, f.Leftover, f.Reported)
	if err != nil {
		return totalsView{Errors: []string{err.Error()}}
	}
	return totalsView{
		Ready:         true,
		Reported:      formatMoney(rec.Reported),
		ActualTotal:   formatMoney(rec.Actual.Total),
		Bills:         formatMoney(rec.Actual.Bills),
		Coins:         formatMoney(rec.Actual.Coins),
		LeftoverTotal: formatMoney(rec.Leftover.Total),
		LeftoverBills: formatMoney(rec.Leftover.Bills),
		LeftoverCoins: formatMoney(rec.Leftover.Coins),
		OverShort:     formatSignedMoney(rec.OverShort),
		Status:        overShortClass(rec.OverShort),
	}
}

// totalsFields lists the inputs feeding the totals panel in display order.
func totalsFields() []string {
	fields := []string{fieldReported}
	for _, prefix := range []string{prefixActual, prefixLeftover} {
		for _, d := range core.Denominations {
			fields = append(fields, prefix+d.Key())
		}
	}
	return fields
}

func denomFields(prefix string, f cashCountForm) []denomField {
	out := make([]denomField, 0, len(core.Denominations))
	for _, d := range core.Denominations {
		name := prefix + d.Key()
		out = append(out, denomField{
			Label: d.Label,
			Name:  name,
			Value: f.Values.Get(name),
			Error: f.Errors[name],
		})
	}
	return out
}

// newCashCountFormView echoes f back into the form. A zero f renders an
// empty form dated now.
func newCashCountFormView(f cashCountForm, regs []core.Registry, now time.Time, loc *time.Location) cashCountFormView {
	date := f.Values.Get(fieldDateCounted)
	if date == "" {
		date = now.In(loc).Format(dateTimeLocalLayout)
	}
	reported := f.Values.Get(fieldReported)
	if reported == "" {
		reported = decimal.Zero.StringFixed(2)
	}
	errs := f.Errors
	if errs == nil {
		errs = map[string]string{}
	}
	return cashCountFormView{
		Registries:  regs,
		RegistryID:  f.RegistryID,
		DateCounted: date,
		Reported:    reported,
		Note:        f.Values.Get(fieldNote),
		Actual:      denomFields(prefixActual, f),
		Leftover:    denomFields(prefixLeftover, f),
		Totals:      newTotalsView(f),
		Errors:      errs,
	}
}
