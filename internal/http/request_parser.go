// This file parses the registry and cash count forms. Every field error is
// collected so the form can be re-rendered with all messages at once.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashcount/internal/core"
	"cashcount/internal/services"
)

// Form field names shared with the templates.
const (
	fieldRegistryID  = "registry_id"
	fieldDateCounted = "date_counted"
	fieldReported    = "reported_amount"
	fieldNote        = "note"
	fieldName        = "name"

	prefixActual   = "actual."
	prefixLeftover = "leftover."

	// value of <input type="datetime-local">
	dateTimeLocalLayout = "2006-01-02T15:04"
)

var errInvalidRegistryID = errors.New("select a registry")

// cashCountForm is a parsed cash count form plus the raw values needed to
// render it again.
type cashCountForm struct {
	RegistryID  int64
	DateCounted time.Time
	Reported    decimal.Decimal
	Actual      core.Breakdown
	Leftover    core.Breakdown
	Note        string

	Values url.Values
	Errors map[string]string
}

// parseCashCountForm reads a submitted cash count. An empty date means now;
// dates without a zone are read in loc.
func parseCashCountForm(form url.Values, now time.Time, loc *time.Location) cashCountForm {
	f := cashCountForm{Values: form, Errors: map[string]string{}}

	id, err := parseRegistryID(form.Get(fieldRegistryID))
	if err != nil {
		f.Errors[fieldRegistryID] = err.Error()
	}
	f.RegistryID = id

	f.DateCounted, err = parseDateCounted(form.Get(fieldDateCounted), now, loc)
	if err != nil {
		f.Errors[fieldDateCounted] = err.Error()
	}

	f.parseTotalsInputs(form)
	f.Note = sanitizeInput(form.Get(fieldNote))
	return f
}

// parseReconcileForm reads only the fields that feed the totals panel.
func parseReconcileForm(form url.Values) cashCountForm {
	f := cashCountForm{Values: form, Errors: map[string]string{}}
	f.parseTotalsInputs(form)
	return f
}

func (f *cashCountForm) parseTotalsInputs(form url.Values) {
	var err error
	f.Reported, err = core.ParseAmount(form.Get(fieldReported))
	if err != nil {
		f.Errors[fieldReported] = "Reported amount must be a non-negative number"
	}
	f.Actual = parseBreakdown(form, prefixActual, f.Errors)
	f.Leftover = parseBreakdown(form, prefixLeftover, f.Errors)
}

// Valid reports whether no field failed to parse.
func (f cashCountForm) Valid() bool {
	return len(f.Errors) == 0
}

// Input converts the form into a service request.
func (f cashCountForm) Input() services.CashCountInput {
	return services.CashCountInput{
		RegistryID:  f.RegistryID,
		DateCounted: f.DateCounted,
		Reported:    f.Reported,
		Actual:      f.Actual,
		Leftover:    f.Leftover,
		Note:        f.Note,
	}
}

// parseBreakdown reads one quantity input per catalog denomination. Blank
// inputs are left out of the breakdown; an explicit 0 is kept.
func parseBreakdown(form url.Values, prefix string, errs map[string]string) core.Breakdown {
	b := core.Breakdown{}
	for _, d := range core.Denominations {
		field := prefix + d.Key()
		raw := strings.TrimSpace(form.Get(field))
		if raw == "" {
			continue
		}
		qty, err := core.ParseQuantity(raw)
		if err != nil {
			errs[field] = d.Label + ": quantity must be a whole number of 0 or more"
			continue
		}
		next, err := core.SetDenominationQuantity(b, d.Value, qty)
		if err != nil {
			errs[field] = d.Label + ": " + err.Error()
			continue
		}
		b = next
	}
	return b
}

func parseRegistryID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidRegistryID
	}
	return id, nil
}

// parseDateCounted accepts datetime-local values (with or without seconds)
// and RFC 3339 timestamps. The result is UTC.
func parseDateCounted(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{dateTimeLocalLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("date counted must look like 2025-01-31T18:30")
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
