package http

import (
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"cashcount/internal/core"
)

// formatMoney renders an amount as "$1,234.50". Negative values get a
// leading minus.
func formatMoney(d decimal.Decimal) string {
	s := core.FormatAmount(d.Abs())
	whole, frac, _ := strings.Cut(s, ".")
	sign := ""
	if d.IsNegative() && !d.Round(2).IsZero() {
		sign = "-"
	}
	return sign + "$" + groupThousands(whole) + "." + frac
}

// formatSignedMoney is formatMoney with an explicit "+" for positive values.
func formatSignedMoney(d decimal.Decimal) string {
	if d.Round(2).IsPositive() {
		return "+" + formatMoney(d)
	}
	return formatMoney(d)
}

// groupThousands leaves digit strings too long for int64 as they are.
func groupThousands(whole string) string {
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return whole
	}
	return humanize.Comma(n)
}

// overShortClass is the css class for an over/short value as displayed.
func overShortClass(d decimal.Decimal) string {
	return core.OverShortStatus(d.Round(2))
}

// formatDateCounted renders a count timestamp in loc.
func formatDateCounted(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

// relativeTime renders "3 hours ago" style ages.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// templateFuncs are available in every page template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money":       formatMoney,
		"signedMoney": formatSignedMoney,
		"overShort":   overShortClass,
		"comma":       humanize.Comma,
	}
}
