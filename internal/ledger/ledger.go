// Package ledger prices a user's positions, splits them into open and closed
// partitions with per-partition totals, and opens and closes positions.
package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/flexbot/internal/models"
)

var hundred = decimal.NewFromInt(100)

// View selects one partition of a ledger
type View int

const (
	ViewOpen View = iota
	ViewClosed
)

func (v View) String() string {
	if v == ViewClosed {
		return "CLOSED"
	}
	return "OPEN"
}

// Other returns the opposite view
func (v View) Other() View {
	if v == ViewClosed {
		return ViewOpen
	}
	return ViewClosed
}

// EnrichedPosition is a position priced for one rendering session
type EnrichedPosition struct {
	models.Position

	// CurrentPrice is the close price of a closed position, else the live quote.
	CurrentPrice decimal.Decimal
	PnL          decimal.Decimal
	// Priced is false when no quote could be found for an open position.
	Priced bool
	// Handle numbers open positions 1..N by open time; 0 for closed ones.
	Handle int
}

// Direction is "+" for a non-negative P&L and "-" otherwise
func (e *EnrichedPosition) Direction() string {
	return direction(e.PnL)
}

// PnLPercent returns the P&L relative to the open price
func (e *EnrichedPosition) PnLPercent() (decimal.Decimal, bool) {
	if !e.Priced {
		return decimal.Zero, false
	}
	return percentOf(e.PnL, e.OpenPrice)
}

// Summary totals one partition. Unpriced positions are counted but not summed.
type Summary struct {
	Count    int
	Invested decimal.Decimal
	Value    decimal.Decimal
	PnL      decimal.Decimal
}

// PnLPercent returns PnL as a percentage of Invested; false when nothing is invested
func (s Summary) PnLPercent() (decimal.Decimal, bool) {
	return percentOf(s.PnL, s.Invested)
}

// Direction is "+" for a non-negative total P&L and "-" otherwise
func (s Summary) Direction() string {
	return direction(s.PnL)
}

func summarize(positions []*EnrichedPosition) Summary {
	s := Summary{Count: len(positions)}
	for _, p := range positions {
		if !p.Priced {
			continue
		}
		s.Invested = s.Invested.Add(p.OpenPrice)
		s.Value = s.Value.Add(p.CurrentPrice)
		s.PnL = s.PnL.Add(p.PnL)
	}
	return s
}

// Ledger is the priced view of one user's positions
type Ledger struct {
	OwnerID       string
	Open          []*EnrichedPosition
	Closed        []*EnrichedPosition
	OpenSummary   Summary
	ClosedSummary Summary
	// Unpriced lists the open tickers no quote was found for
	Unpriced []string
}

// Partition returns the positions of a view
func (l *Ledger) Partition(v View) []*EnrichedPosition {
	if v == ViewClosed {
		return l.Closed
	}
	return l.Open
}

// Summary returns the totals of a view
func (l *Ledger) Summary(v View) Summary {
	if v == ViewClosed {
		return l.ClosedSummary
	}
	return l.OpenSummary
}

// Err reports the tickers that could not be priced as a *models.LedgerError.
// The rest of the ledger is still usable.
func (l *Ledger) Err() error {
	if len(l.Unpriced) == 0 {
		return nil
	}
	return &models.LedgerError{Tickers: l.Unpriced}
}

// CloseResult describes a position that was just closed
type CloseResult struct {
	Handle   int
	Position models.Position
	PnL      decimal.Decimal
}

// PnLPercent returns the realized P&L relative to the open price
func (r *CloseResult) PnLPercent() (decimal.Decimal, bool) {
	return percentOf(r.PnL, r.Position.OpenPrice)
}

// Direction is "+" for a non-negative realized P&L and "-" otherwise
func (r *CloseResult) Direction() string {
	return direction(r.PnL)
}

func percentOf(part, base decimal.Decimal) (decimal.Decimal, bool) {
	if base.IsZero() {
		return decimal.Zero, false
	}
	return part.Div(base).Mul(hundred), true
}

func direction(pnl decimal.Decimal) string {
	if pnl.IsNegative() {
		return "-"
	}
	return "+"
}
