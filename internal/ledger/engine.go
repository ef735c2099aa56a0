package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/flexbot/internal/models"
)

// PositionStore persists positions
type PositionStore interface {
	InsertOpen(ctx context.Context, ownerID, coinID, ticker string, side models.Side, price decimal.Decimal) (*models.Position, error)
	ClosePosition(ctx context.Context, id int, closePrice decimal.Decimal) (time.Time, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Position, error)
}

// PriceLookup resolves search terms to quotes and prices coins by id
type PriceLookup interface {
	Lookup(ctx context.Context, terms []string) (*models.LookupResult, error)
	Quotes(ctx context.Context, coinIDs []string) (map[string]models.Quote, error)
}

// EventPublisher is notified of position lifecycle changes
type EventPublisher interface {
	PublishPositionEvent(ctx context.Context, eventType string, p *models.Position) error
}

// Engine builds ledgers and opens and closes positions
type Engine struct {
	store   PositionStore
	prices  PriceLookup
	handles HandleCache
	events  []EventPublisher
	logger  *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithEvents publishes position events after each open and close
func WithEvents(events ...EventPublisher) Option {
	return func(e *Engine) { e.events = append(e.events, events...) }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a new Engine
func NewEngine(store PositionStore, prices PriceLookup, handles HandleCache, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		prices:  prices,
		handles: handles,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "ledger"))
	return e
}

// Build prices every position of ownerID and replaces the owner's handle
// cache entry with the freshly numbered open positions.
func (e *Engine) Build(ctx context.Context, ownerID string) (*Ledger, error) {
	l, err := e.build(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	entries := make([]CachedPosition, len(l.Open))
	for i, p := range l.Open {
		entries[i] = CachedPosition{Handle: p.Handle, Position: p.Position}
	}
	e.handles.Put(ownerID, entries)
	return l, nil
}

// Peek builds the ledger of ownerID without touching the handle cache. It is
// used when someone other than the owner looks at the positions.
func (e *Engine) Peek(ctx context.Context, ownerID string) (*Ledger, error) {
	return e.build(ctx, ownerID)
}

func (e *Engine) build(ctx context.Context, ownerID string) (*Ledger, error) {
	positions, err := e.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, asStoreError("get positions", err)
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})

	// Closed positions are priced at their close price, so only open
	// coins need a quote. All of them go in a single fetch, by coin id
	// since tickers are not unique across coins.
	var coinIDs []string
	seen := make(map[string]bool)
	for _, p := range positions {
		if !p.IsClosed() && !seen[p.CoinID] {
			seen[p.CoinID] = true
			coinIDs = append(coinIDs, p.CoinID)
		}
	}

	found := map[string]models.Quote{}
	if len(coinIDs) > 0 {
		quotes, err := e.prices.Quotes(ctx, coinIDs)
		if err != nil {
			return nil, asPriceServiceError(err)
		}
		found = quotes
	}

	l := &Ledger{OwnerID: ownerID}
	unpriced := make(map[string]bool)
	handle := 0
	for _, p := range positions {
		ep := &EnrichedPosition{Position: *p}
		switch {
		case p.IsClosed():
			ep.CurrentPrice = p.ClosePrice.Decimal
			ep.Priced = true
		default:
			if q, ok := found[p.CoinID]; ok {
				ep.CurrentPrice = q.USD
				ep.Priced = true
			} else if !unpriced[p.Ticker] {
				unpriced[p.Ticker] = true
				l.Unpriced = append(l.Unpriced, p.Ticker)
			}
		}
		if ep.Priced {
			ep.PnL = p.Side.PnL(p.OpenPrice, ep.CurrentPrice)
		}

		if p.IsClosed() {
			l.Closed = append(l.Closed, ep)
			continue
		}
		handle++
		ep.Handle = handle
		l.Open = append(l.Open, ep)
	}

	l.OpenSummary = summarize(l.Open)
	l.ClosedSummary = summarize(l.Closed)

	if len(l.Unpriced) > 0 {
		e.logger.WarnContext(ctx, "ledger has unpriced positions",
			slog.String("owner_id", ownerID),
			slog.Any("tickers", l.Unpriced),
		)
	}
	return l, nil
}

// Open records a new position on the coin matching term at its current price
func (e *Engine) Open(ctx context.Context, ownerID string, side models.Side, term string) (*models.Position, error) {
	res, err := e.prices.Lookup(ctx, []string{term})
	if err != nil {
		return nil, asPriceServiceError(err)
	}
	var quote models.Quote
	var found bool
	for _, q := range res.Found {
		quote, found = q, true
		break
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", models.ErrTermNotFound, term)
	}

	p, err := e.store.InsertOpen(ctx, ownerID, quote.CoinID, quote.Ticker, side, quote.USD)
	if err != nil {
		return nil, asStoreError("create position", err)
	}

	e.logger.InfoContext(ctx, "position opened",
		slog.String("owner_id", ownerID),
		slog.Int("id", p.ID),
		slog.String("coin_id", p.CoinID),
		slog.String("ticker", p.Ticker),
		slog.String("side", string(p.Side)),
		slog.String("price", p.OpenPrice.String()),
	)
	e.publish(ctx, models.EventPositionOpened, p)
	return p, nil
}

// CloseByHandle closes the open position that handle referred to in the
// owner's most recent listing, at the current price.
func (e *Engine) CloseByHandle(ctx context.Context, ownerID string, handle int) (*CloseResult, error) {
	entry, err := e.handles.Claim(ownerID, handle)
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			e.handles.Release(ownerID, handle, entry.Position.ID)
		}
	}()

	p := entry.Position
	quotes, err := e.prices.Quotes(ctx, []string{p.CoinID})
	if err != nil {
		return nil, asPriceServiceError(err)
	}
	quote, ok := quotes[p.CoinID]
	if !ok {
		return nil, &models.PriceServiceError{Err: fmt.Errorf("no quote for %s (%s)", p.Ticker, p.CoinID)}
	}

	closedAt, err := e.store.ClosePosition(ctx, p.ID, quote.USD)
	if err != nil {
		return nil, asStoreError("close position", err)
	}
	closed = true

	p.ClosePrice = decimal.NullDecimal{Decimal: quote.USD, Valid: true}
	p.ClosedAt = &closedAt
	result := &CloseResult{
		Handle:   handle,
		Position: p,
		PnL:      p.Side.PnL(p.OpenPrice, quote.USD),
	}

	e.logger.InfoContext(ctx, "position closed",
		slog.String("owner_id", ownerID),
		slog.Int("id", p.ID),
		slog.String("ticker", p.Ticker),
		slog.String("pnl", result.PnL.String()),
	)
	e.publish(ctx, models.EventPositionClosed, &p)
	return result, nil
}

func (e *Engine) publish(ctx context.Context, eventType string, p *models.Position) {
	for _, events := range e.events {
		if err := events.PublishPositionEvent(ctx, eventType, p); err != nil {
			e.logger.WarnContext(ctx, "failed to publish position event",
				slog.String("event_type", eventType),
				slog.Int("id", p.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func asPriceServiceError(err error) error {
	var psErr *models.PriceServiceError
	if errors.As(err, &psErr) {
		return err
	}
	return &models.PriceServiceError{Err: err}
}

func asStoreError(op string, err error) error {
	var storeErr *models.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &models.StoreError{Op: op, Err: err}
}
