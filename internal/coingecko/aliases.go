package coingecko

import "strings"

// Coin is one entry of the CoinGecko /coins/list response
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Ticker is the canonical symbol shown to users and stored with positions
func (c Coin) Ticker() string {
	return strings.ToUpper(c.Symbol)
}

// defaultPinned resolves the symbols that collide across many listed coins
var defaultPinned = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"xmr":  "monero",
	"ltc":  "litecoin",
	"doge": "dogecoin",
	"usdt": "tether",
	"usdc": "usd-coin",
	"bnb":  "binancecoin",
	"sol":  "solana",
	"ada":  "cardano",
	"xrp":  "ripple",
	"dot":  "polkadot",
	"link": "chainlink",
	"enj":  "enjincoin",
	"uni":  "uniswap",
}

// AliasTable maps free-text search terms to coins
type AliasTable struct {
	pinned   map[string]string
	byID     map[string]Coin
	bySymbol map[string]Coin
	byName   map[string]Coin
}

// NewAliasTable indexes coins by id, symbol and name. When several coins
// share a symbol or name the first listed one wins unless pinned says otherwise.
func NewAliasTable(coins []Coin, pinned map[string]string) *AliasTable {
	t := &AliasTable{
		pinned:   make(map[string]string, len(defaultPinned)+len(pinned)),
		byID:     make(map[string]Coin, len(coins)),
		bySymbol: make(map[string]Coin, len(coins)),
		byName:   make(map[string]Coin, len(coins)),
	}
	for term, id := range defaultPinned {
		t.pinned[term] = id
	}
	for term, id := range pinned {
		t.pinned[normalize(term)] = id
	}

	for _, c := range coins {
		if c.ID == "" || c.Symbol == "" {
			continue
		}
		t.byID[c.ID] = c
		if _, ok := t.bySymbol[normalize(c.Symbol)]; !ok {
			t.bySymbol[normalize(c.Symbol)] = c
		}
		if _, ok := t.byName[normalize(c.Name)]; !ok {
			t.byName[normalize(c.Name)] = c
		}
	}
	return t
}

// Resolve finds the coin a search term refers to
func (t *AliasTable) Resolve(term string) (Coin, bool) {
	key := normalize(term)
	if key == "" {
		return Coin{}, false
	}
	if id, ok := t.pinned[key]; ok {
		if c, ok := t.byID[id]; ok {
			return c, true
		}
	}
	if c, ok := t.byID[key]; ok {
		return c, true
	}
	if c, ok := t.bySymbol[key]; ok {
		return c, true
	}
	c, ok := t.byName[key]
	return c, ok
}

// Len returns the number of indexed coins
func (t *AliasTable) Len() int {
	return len(t.byID)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
