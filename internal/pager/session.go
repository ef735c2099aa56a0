package pager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout tears down a session that received no signal for this long
const DefaultIdleTimeout = 120 * time.Second

const signalQueueSize = 16

// Display draws a pager on the chat platform
type Display interface {
	// Show replaces the page text and the navigation affordances offered.
	Show(ctx context.Context, text string, affordances []Signal) error
	// Clear removes all navigation affordances.
	Clear(ctx context.Context) error
}

// Session drives one Pager from a stream of signals. Signals are applied one
// at a time in arrival order.
type Session struct {
	ID string

	pager   *Pager
	display Display
	idle    time.Duration
	signals chan Signal
	done    chan struct{}
	logger  *slog.Logger
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithIdleTimeout overrides DefaultIdleTimeout
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithSessionLogger sets the logger
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a session; call Run to start it
func NewSession(p *Pager, display Display, opts ...SessionOption) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		pager:   p,
		display: display,
		idle:    DefaultIdleTimeout,
		signals: make(chan Signal, signalQueueSize),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "pager"), slog.String("session_id", s.ID))
	return s
}

// Pager returns the paged state
func (s *Session) Pager() *Pager {
	return s.pager
}

// Send queues a signal, waiting for room when the queue is full. It returns
// false once the session has ended or when ctx is done first.
func (s *Session) Send(ctx context.Context, sig Signal) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.signals <- sig:
		return true
	default:
	}

	s.logger.DebugContext(ctx, "signal queue full, waiting", slog.String("signal", sig.String()))
	select {
	case s.signals <- sig:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "dropped signal", slog.String("signal", sig.String()), slog.String("error", ctx.Err().Error()))
		return false
	}
}

// Done is closed when Run returns
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run shows the current page and then handles signals until the session has
// been idle for the configured window or ctx is cancelled. An idle session
// clears its affordances before returning.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	if err := s.show(ctx); err != nil {
		return fmt.Errorf("failed to show page: %w", err)
	}

	timer := time.NewTimer(s.idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			s.logger.DebugContext(ctx, "pager session idle")
			if err := s.display.Clear(ctx); err != nil {
				s.logger.WarnContext(ctx, "failed to clear navigation", slog.String("error", err.Error()))
			}
			return nil

		case sig := <-s.signals:
			timer.Reset(s.idle)
			if !s.pager.Apply(sig) {
				continue
			}
			st := s.pager.State()
			s.logger.DebugContext(ctx, "pager moved",
				slog.String("signal", sig.String()),
				slog.String("view", st.View.String()),
				slog.Int("page", st.Page),
			)
			if err := s.show(ctx); err != nil {
				s.logger.WarnContext(ctx, "failed to redraw page", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Session) show(ctx context.Context) error {
	return s.display.Show(ctx, s.pager.Render(), s.pager.Affordances())
}
