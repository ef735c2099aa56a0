package pager

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var cents = decimal.NewFromInt(100)

// USD formats an amount as dollars and cents, e.g. "$1,234.50"
func USD(amount decimal.Decimal) string {
	return money.New(amount.Mul(cents).Round(0).IntPart(), money.USD).Display()
}

// SignedUSD is USD with an explicit "+" on non-negative amounts
func SignedUSD(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return USD(amount)
	}
	return "+" + USD(amount)
}

// Price formats a coin price. Sub-dollar coins keep six decimals.
func Price(p decimal.Decimal) string {
	if p.Abs().LessThan(decimal.NewFromInt(1)) {
		return p.StringFixed(6)
	}
	return p.StringFixed(2)
}

// SignedPrice is Price with an explicit "+" on non-negative values
func SignedPrice(p decimal.Decimal) string {
	if p.IsNegative() {
		return Price(p)
	}
	return "+" + Price(p)
}

// Percent formats a percentage, or "N/A" when there is none
func Percent(pct decimal.Decimal, ok bool) string {
	if !ok {
		return "N/A"
	}
	if pct.IsNegative() {
		return pct.StringFixed(2) + "%"
	}
	return "+" + pct.StringFixed(2) + "%"
}

// Date formats a timestamp as a UTC calendar date
func Date(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// PadRight left-aligns s in a field of width. Longer values are kept whole.
func PadRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + spaces(width-n)
}

// Truncate cuts s to width runes, ending a cut value with "…" so that two
// long values sharing a prefix still read as cut
func Truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// PadLeft right-aligns s in a field of width. Longer values are kept whole.
func PadLeft(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return spaces(width-n) + s
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
