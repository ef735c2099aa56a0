package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a paper trade
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ParseSide accepts the long and short spellings used by the trade command
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "long":
		return SideLong, nil
	case "s", "short":
		return SideShort, nil
	}
	return "", fmt.Errorf("invalid side: %q", s)
}

// PnL returns the profit of holding this side from open to current
func (s Side) PnL(openPrice, currentPrice decimal.Decimal) decimal.Decimal {
	if s == SideShort {
		return openPrice.Sub(currentPrice)
	}
	return currentPrice.Sub(openPrice)
}

// Position represents a paper trade logged by a chat user. CoinID is the
// CoinGecko id the position was opened on; Ticker is only its display symbol.
// ClosePrice and ClosedAt are either both set or both empty.
type Position struct {
	ID         int                 `json:"id"`
	OwnerID    string              `json:"owner_id"`
	CoinID     string              `json:"coin_id"`
	Ticker     string              `json:"ticker"`
	Side       Side                `json:"side"`
	OpenPrice  decimal.Decimal     `json:"open_price"`
	ClosePrice decimal.NullDecimal `json:"close_price"`
	OpenedAt   time.Time           `json:"opened_at"`
	ClosedAt   *time.Time          `json:"closed_at,omitempty"`
}

// IsClosed reports whether the position has been closed
func (p *Position) IsClosed() bool {
	return p.ClosedAt != nil
}

// PositionEvent is published to Kafka whenever a position is opened or closed
type PositionEvent struct {
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	Timestamp string    `json:"timestamp"`
	Data      *Position `json:"data"`
}

const (
	EventPositionOpened = "POSITION_OPENED"
	EventPositionClosed = "POSITION_CLOSED"
)
