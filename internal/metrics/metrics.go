// Package metrics exposes bot activity as Prometheus metrics
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/trogers1052/flexbot/internal/models"
)

const namespace = "flexbot"

// Metrics holds the collectors registered for the process
type Metrics struct {
	commands       *prometheus.CounterVec
	signals        *prometheus.CounterVec
	sessions       prometheus.Gauge
	lookups        *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	unfoundTerms   prometheus.Counter
	positions      *prometheus.CounterVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands handled, by command and result.",
		}, []string{"command", "result"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pager_signals_total",
			Help:      "Navigation signals delivered to pager sessions.",
		}, []string{"signal"}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pager_sessions_active",
			Help:      "Pager sessions currently listening for navigation.",
		}),
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookups_total",
			Help:      "Price lookups, by result.",
		}, []string{"result"}),
		lookupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_lookup_duration_seconds",
			Help:      "Latency of price lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
		unfoundTerms: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_unfound_terms_total",
			Help:      "Search terms that resolved to no coin.",
		}),
		positions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_events_total",
			Help:      "Positions opened and closed, by event type and side.",
		}, []string{"event_type", "side"}),
	}
}

func (m *Metrics) CommandHandled(command, result string) {
	m.commands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) SessionStarted() {
	m.sessions.Inc()
}

func (m *Metrics) SessionEnded() {
	m.sessions.Dec()
}

func (m *Metrics) SignalReceived(signal string) {
	m.signals.WithLabelValues(signal).Inc()
}

// PublishPositionEvent counts a position lifecycle event
func (m *Metrics) PublishPositionEvent(_ context.Context, eventType string, p *models.Position) error {
	m.positions.WithLabelValues(eventType, string(p.Side)).Inc()
	return nil
}

// PriceLookup resolves search terms to quotes and prices coins by id
type PriceLookup interface {
	Lookup(ctx context.Context, terms []string) (*models.LookupResult, error)
	Quotes(ctx context.Context, coinIDs []string) (map[string]models.Quote, error)
}

type instrumentedLookup struct {
	next    PriceLookup
	metrics *Metrics
}

// InstrumentLookup counts and times every lookup and quote fetch made through next
func InstrumentLookup(next PriceLookup, m *Metrics) PriceLookup {
	return &instrumentedLookup{next: next, metrics: m}
}

func (l *instrumentedLookup) Lookup(ctx context.Context, terms []string) (*models.LookupResult, error) {
	start := time.Now()
	res, err := l.next.Lookup(ctx, terms)
	l.metrics.lookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		l.metrics.lookups.WithLabelValues("error").Inc()
		return nil, err
	}
	l.metrics.lookups.WithLabelValues("ok").Inc()
	l.metrics.unfoundTerms.Add(float64(len(res.Unfound)))
	return res, nil
}

func (l *instrumentedLookup) Quotes(ctx context.Context, coinIDs []string) (map[string]models.Quote, error) {
	start := time.Now()
	quotes, err := l.next.Quotes(ctx, coinIDs)
	l.metrics.lookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		l.metrics.lookups.WithLabelValues("error").Inc()
		return nil, err
	}
	l.metrics.lookups.WithLabelValues("ok").Inc()
	return quotes, nil
}
