// Package coingecko resolves search terms to coins and fetches USD quotes
// from the CoinGecko public API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/flexbot/internal/models"
)

// coinListTTL bounds how long a cached coin list is reused across restarts
const coinListTTL = 24 * time.Hour

// QuoteCache is the optional cache in front of the API
type QuoteCache interface {
	GetQuotes(ctx context.Context, coinIDs []string) (map[string]models.Quote, error)
	SetQuotes(ctx context.Context, quotes map[string]models.Quote, ttl time.Duration) error
	GetCoinList(ctx context.Context) ([]byte, error)
	SetCoinList(ctx context.Context, data []byte, ttl time.Duration) error
}

// Client fetches prices from CoinGecko
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      QuoteCache
	quoteTTL   time.Duration
	pinned     map[string]string
	logger     *slog.Logger

	mu      sync.RWMutex
	aliases *AliasTable
}

// Option configures a Client
type Option func(*Client)

// WithCache puts a quote cache in front of the API
func WithCache(cache QuoteCache, quoteTTL time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.quoteTTL = quoteTTL
	}
}

// WithPinned adds search-term to coin id overrides
func WithPinned(pinned map[string]string) Option {
	return func(c *Client) { c.pinned = pinned }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a new CoinGecko client
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "coingecko"))
	return c
}

// Lookup resolves each term to a coin and fetches its quote. Every term ends
// up either in Found (keyed by ticker) or in Unfound; a term whose coin shares
// its ticker with a coin already found is unfound. Any failure of the
// backing calls fails the whole lookup with a *models.PriceServiceError.
func (c *Client) Lookup(ctx context.Context, terms []string) (*models.LookupResult, error) {
	aliases, err := c.aliasTable(ctx)
	if err != nil {
		return nil, &models.PriceServiceError{Err: err}
	}

	result := models.NewLookupResult()
	resolved := make(map[string]Coin, len(terms))
	for _, term := range terms {
		coin, ok := aliases.Resolve(term)
		if !ok {
			result.Unfound = append(result.Unfound, term)
			continue
		}
		resolved[term] = coin
	}

	ids := make([]string, 0, len(resolved))
	seen := make(map[string]bool, len(resolved))
	for _, coin := range resolved {
		if !seen[coin.ID] {
			seen[coin.ID] = true
			ids = append(ids, coin.ID)
		}
	}
	sort.Strings(ids)

	quotes, err := c.quotes(ctx, ids)
	if err != nil {
		return nil, &models.PriceServiceError{Err: err}
	}

	for _, term := range terms {
		coin, ok := resolved[term]
		if !ok {
			continue
		}
		q, ok := quotes[coin.ID]
		if !ok {
			result.Unfound = append(result.Unfound, term)
			continue
		}
		q.Ticker = coin.Ticker()
		// Found is keyed by ticker, so a second coin sharing a symbol cannot
		// be reported next to the first one.
		if prev, dup := result.Found[q.Ticker]; dup && prev.CoinID != q.CoinID {
			result.Unfound = append(result.Unfound, term)
			continue
		}
		result.Found[q.Ticker] = q
	}
	return result, nil
}

// Quotes fetches quotes by CoinGecko coin id, bypassing alias resolution.
// Ids without a price are missing from the result. Tickers are not filled in.
func (c *Client) Quotes(ctx context.Context, coinIDs []string) (map[string]models.Quote, error) {
	ids := make([]string, 0, len(coinIDs))
	seen := make(map[string]bool, len(coinIDs))
	for _, id := range coinIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	quotes, err := c.quotes(ctx, ids)
	if err != nil {
		return nil, &models.PriceServiceError{Err: err}
	}
	return quotes, nil
}

// RefreshAliases reloads the coin list from the API and returns the number of coins
func (c *Client) RefreshAliases(ctx context.Context) (int, error) {
	data, err := c.get(ctx, "/coins/list", nil)
	if err != nil {
		return 0, err
	}
	table, err := c.buildTable(data)
	if err != nil {
		return 0, err
	}
	if c.cache != nil {
		if err := c.cache.SetCoinList(ctx, data, coinListTTL); err != nil {
			c.logger.WarnContext(ctx, "failed to cache coin list", slog.String("error", err.Error()))
		}
	}

	c.mu.Lock()
	c.aliases = table
	c.mu.Unlock()
	return table.Len(), nil
}

func (c *Client) aliasTable(ctx context.Context) (*AliasTable, error) {
	c.mu.RLock()
	table := c.aliases
	c.mu.RUnlock()
	if table != nil {
		return table, nil
	}

	if c.cache != nil {
		data, err := c.cache.GetCoinList(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to read cached coin list", slog.String("error", err.Error()))
		}
		if len(data) > 0 {
			if table, err := c.buildTable(data); err == nil {
				c.mu.Lock()
				c.aliases = table
				c.mu.Unlock()
				return table, nil
			}
		}
	}

	if _, err := c.RefreshAliases(ctx); err != nil {
		return nil, fmt.Errorf("failed to load coin list: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aliases, nil
}

func (c *Client) buildTable(data []byte) (*AliasTable, error) {
	var coins []Coin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coin list: %w", err)
	}
	return NewAliasTable(coins, c.pinned), nil
}

type simplePrice struct {
	USD          decimal.NullDecimal `json:"usd"`
	USD24hChange decimal.NullDecimal `json:"usd_24h_change"`
}

// quotes returns the quotes keyed by coin id, serving what it can from the cache
func (c *Client) quotes(ctx context.Context, ids []string) (map[string]models.Quote, error) {
	out := make(map[string]models.Quote, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	missing := ids
	if c.cache != nil {
		cached, err := c.cache.GetQuotes(ctx, ids)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to read cached quotes", slog.String("error", err.Error()))
		}
		missing = missing[:0:0]
		for _, id := range ids {
			if q, ok := cached[id]; ok {
				q.CoinID = id
				out[id] = q
			} else {
				missing = append(missing, id)
			}
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(missing, ","))
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")
	data, err := c.get(ctx, "/simple/price", params)
	if err != nil {
		return nil, err
	}

	var prices map[string]simplePrice
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prices: %w", err)
	}

	fetched := make(map[string]models.Quote, len(prices))
	for _, id := range missing {
		p, ok := prices[id]
		if !ok || !p.USD.Valid {
			continue
		}
		q := models.Quote{CoinID: id, USD: p.USD.Decimal}
		if p.USD24hChange.Valid {
			q.USD24hChange = p.USD24hChange.Decimal
		}
		fetched[id] = q
		out[id] = q
	}

	if c.cache != nil && len(fetched) > 0 {
		if err := c.cache.SetQuotes(ctx, fetched, c.quoteTTL); err != nil {
			c.logger.WarnContext(ctx, "failed to cache quotes", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko API error: status=%d, body=%s", resp.StatusCode, truncate(string(body), 256))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
