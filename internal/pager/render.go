package pager

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trogers1052/flexbot/internal/ledger"
)

// column widths, constant across pages of a view
const (
	handleWidth = 3
	tickerWidth = 6
	sideWidth   = 5
	pnlWidth    = 12
	pctWidth    = 9
	priceWidth  = 12
	dateWidth   = 10
)

func renderPage(title string, l *ledger.Ledger, st State, maxPage int, rows []*ledger.EnrichedPosition) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "**%s**\n", title)
	}
	b.WriteString("```diff\n")
	b.WriteString(headerRow(st.View))
	b.WriteByte('\n')
	for _, p := range rows {
		b.WriteString(positionRow(st.View, p))
		b.WriteByte('\n')
	}
	if len(rows) == 0 {
		fmt.Fprintf(&b, "  no %s positions\n", strings.ToLower(st.View.String()))
	}
	b.WriteByte('\n')
	writeSummary(&b, l, st.View)
	b.WriteString("```\n")
	fmt.Fprintf(&b, "%s positions | page %d/%d", st.View, st.Page, maxPage)
	return b.String()
}

func headerRow(v ledger.View) string {
	cols := []string{
		" " + PadLeft("#", handleWidth),
		PadRight("TICKER", tickerWidth),
		PadRight("SIDE", sideWidth),
		PadLeft("P&L", pnlWidth),
		PadLeft("%", pctWidth),
		PadLeft("OPEN", priceWidth),
	}
	if v == ledger.ViewClosed {
		cols = append(cols, PadLeft("CLOSE", priceWidth), PadLeft("OPENED", dateWidth), PadLeft("CLOSED", dateWidth))
	} else {
		cols = append(cols, PadLeft("CURRENT", priceWidth), PadLeft("OPENED", dateWidth))
	}
	return strings.Join(cols, " ")
}

func positionRow(v ledger.View, p *ledger.EnrichedPosition) string {
	// the leading sign colors the row inside a diff block
	sign, pnl, current := " ", "N/A", "N/A"
	if p.Priced {
		sign = p.Direction()
		pnl = SignedPrice(p.PnL)
		current = Price(p.CurrentPrice)
	}
	handle := ""
	if p.Handle > 0 {
		handle = strconv.Itoa(p.Handle)
	}

	cols := []string{
		sign + PadLeft(handle, handleWidth),
		PadRight(Truncate(p.Ticker, tickerWidth), tickerWidth),
		PadRight(Truncate(string(p.Side), sideWidth), sideWidth),
		PadLeft(pnl, pnlWidth),
		PadLeft(Percent(p.PnLPercent()), pctWidth),
		PadLeft(Price(p.OpenPrice), priceWidth),
		PadLeft(current, priceWidth),
		PadLeft(Date(p.OpenedAt), dateWidth),
	}
	if v == ledger.ViewClosed && p.ClosedAt != nil {
		cols = append(cols, PadLeft(Date(*p.ClosedAt), dateWidth))
	}
	return strings.Join(cols, " ")
}

func writeSummary(b *strings.Builder, l *ledger.Ledger, v ledger.View) {
	s := l.Summary(v)
	fmt.Fprintf(b, "  %d open positions | %d closed positions\n", len(l.Open), len(l.Closed))
	fmt.Fprintf(b, "  Invested: %s | Value: %s\n", USD(s.Invested), USD(s.Value))
	fmt.Fprintf(b, "%s PnL: %s (%s)\n", s.Direction(), SignedUSD(s.PnL), Percent(s.PnLPercent()))
}
