package models

import "github.com/shopspring/decimal"

// Quote is the current USD price of a coin
type Quote struct {
	CoinID       string          `json:"coin_id"`
	Ticker       string          `json:"ticker"`
	USD          decimal.Decimal `json:"usd"`
	USD24hChange decimal.Decimal `json:"usd_24h_change"`
}

// LookupResult splits the search terms of a price lookup into the ones that
// resolved (keyed by canonical ticker) and the ones that did not.
type LookupResult struct {
	Found   map[string]Quote `json:"found"`
	Unfound []string         `json:"unfound"`
}

// NewLookupResult returns an empty result ready for filling
func NewLookupResult() *LookupResult {
	return &LookupResult{Found: make(map[string]Quote)}
}
