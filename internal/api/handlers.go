package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/flexbot/internal/ledger"
	"github.com/trogers1052/flexbot/internal/models"
	"github.com/trogers1052/flexbot/internal/pager"
)

// LedgerViewer builds a ledger without numbering handles
type LedgerViewer interface {
	Peek(ctx context.Context, ownerID string) (*ledger.Ledger, error)
}

// PriceLookup resolves search terms to quotes
type PriceLookup interface {
	Lookup(ctx context.Context, terms []string) (*models.LookupResult, error)
}

// Pinger is a dependency that can report its health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ledger LedgerViewer
	prices PriceLookup
	db     Pinger
	redis  Pinger
	kafka  bool
	logger *slog.Logger
}

// NewHandler creates a new Handler. redis may be nil when the cache is disabled.
func NewHandler(ledgerViewer LedgerViewer, prices PriceLookup, db, redis Pinger, kafkaEnabled bool, logger *slog.Logger) *Handler {
	return &Handler{
		ledger: ledgerViewer,
		prices: prices,
		db:     db,
		redis:  redis,
		kafka:  kafkaEnabled,
		logger: logger.With(slog.String("component", "api")),
	}
}

type positionResponse struct {
	ID           int                 `json:"id"`
	Handle       int                 `json:"handle,omitempty"`
	CoinID       string              `json:"coin_id"`
	Ticker       string              `json:"ticker"`
	Side         models.Side         `json:"side"`
	OpenPrice    decimal.Decimal     `json:"open_price"`
	ClosePrice   decimal.NullDecimal `json:"close_price"`
	CurrentPrice *decimal.Decimal    `json:"current_price"`
	PnL          *decimal.Decimal    `json:"pnl"`
	PnLPercent   *decimal.Decimal    `json:"pnl_percent"`
	OpenedAt     time.Time           `json:"opened_at"`
	ClosedAt     *time.Time          `json:"closed_at,omitempty"`
}

type summaryResponse struct {
	Count      int              `json:"count"`
	Invested   decimal.Decimal  `json:"invested"`
	Value      decimal.Decimal  `json:"value"`
	PnL        decimal.Decimal  `json:"pnl"`
	PnLPercent *decimal.Decimal `json:"pnl_percent"`
}

type ledgerResponse struct {
	OwnerID   string             `json:"owner_id"`
	View      string             `json:"view"`
	Page      int                `json:"page"`
	MaxPage   int                `json:"max_page"`
	Positions []positionResponse `json:"positions"`
	Open      summaryResponse    `json:"open"`
	Closed    summaryResponse    `json:"closed"`
	Unpriced  []string           `json:"unpriced,omitempty"`
}

// GetPositions handles GET /api/v1/positions/{owner}?view=open|closed&page=N
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	view := ledger.ViewOpen
	switch strings.ToLower(r.URL.Query().Get("view")) {
	case "", "open":
	case "closed":
		view = ledger.ViewClosed
	default:
		http.Error(w, "view must be open or closed", http.StatusBadRequest)
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = n
	}

	l, err := h.ledger.Peek(r.Context(), owner)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	p := pager.New(l, "")
	if view == ledger.ViewClosed {
		p.Apply(pager.SignalClosedView)
	}
	p.GoTo(page)

	resp := ledgerResponse{
		OwnerID:   owner,
		View:      strings.ToLower(view.String()),
		Page:      p.State().Page,
		MaxPage:   p.MaxPage(),
		Positions: make([]positionResponse, 0, pager.PageSize),
		Open:      toSummaryResponse(l.OpenSummary),
		Closed:    toSummaryResponse(l.ClosedSummary),
		Unpriced:  l.Unpriced,
	}
	for _, ep := range p.Rows() {
		resp.Positions = append(resp.Positions, toPositionResponse(ep))
	}
	respondJSON(w, http.StatusOK, resp)
}

func toPositionResponse(ep *ledger.EnrichedPosition) positionResponse {
	out := positionResponse{
		ID:         ep.ID,
		Handle:     ep.Handle,
		CoinID:     ep.CoinID,
		Ticker:     ep.Ticker,
		Side:       ep.Side,
		OpenPrice:  ep.OpenPrice,
		ClosePrice: ep.ClosePrice,
		OpenedAt:   ep.OpenedAt,
		ClosedAt:   ep.ClosedAt,
	}
	if ep.Priced {
		current, pnl := ep.CurrentPrice, ep.PnL
		out.CurrentPrice = &current
		out.PnL = &pnl
		if pct, ok := ep.PnLPercent(); ok {
			pct = pct.Round(2)
			out.PnLPercent = &pct
		}
	}
	return out
}

func toSummaryResponse(s ledger.Summary) summaryResponse {
	out := summaryResponse{
		Count:    s.Count,
		Invested: s.Invested,
		Value:    s.Value,
		PnL:      s.PnL,
	}
	if pct, ok := s.PnLPercent(); ok {
		pct = pct.Round(2)
		out.PnLPercent = &pct
	}
	return out
}

// GetPrices handles GET /api/v1/prices?q=eth,btc&q=enjin+coin
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	var terms []string
	for _, q := range r.URL.Query()["q"] {
		for _, term := range strings.Split(q, ",") {
			if term = strings.TrimSpace(term); term != "" {
				terms = append(terms, term)
			}
		}
	}
	if len(terms) == 0 {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	res, err := h.prices.Lookup(r.Context(), terms)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if res.Unfound == nil {
		res.Unfound = []string{}
	}
	respondJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	// the quote cache is optional, so it never degrades the status
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.kafka {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		storeErr *models.StoreError
		priceErr *models.PriceServiceError
	)
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.As(err, &storeErr):
		msg = "database error"
	case errors.As(err, &priceErr):
		status, msg = http.StatusBadGateway, "price service unavailable"
	}
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, msg, status)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
