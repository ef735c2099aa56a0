// Package bot turns chat messages into price lookups and positions commands,
// and chat reactions into pager navigation.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/trogers1052/flexbot/internal/ledger"
	"github.com/trogers1052/flexbot/internal/models"
	"github.com/trogers1052/flexbot/internal/pager"
)

// LedgerService builds ledgers and opens and closes positions
type LedgerService interface {
	Build(ctx context.Context, ownerID string) (*ledger.Ledger, error)
	Peek(ctx context.Context, ownerID string) (*ledger.Ledger, error)
	Open(ctx context.Context, ownerID string, side models.Side, term string) (*models.Position, error)
	CloseByHandle(ctx context.Context, ownerID string, handle int) (*ledger.CloseResult, error)
}

// PriceLookup resolves search terms to quotes
type PriceLookup interface {
	Lookup(ctx context.Context, terms []string) (*models.LookupResult, error)
}

// Recorder receives bot activity for metrics
type Recorder interface {
	CommandHandled(command, result string)
	SessionStarted()
	SessionEnded()
	SignalReceived(signal string)
}

type nopRecorder struct{}

func (nopRecorder) CommandHandled(string, string) {}
func (nopRecorder) SessionStarted()               {}
func (nopRecorder) SessionEnded()                 {}
func (nopRecorder) SignalReceived(string)         {}

type handlerFunc func(ctx context.Context, msg Message, args []string) error

// Bot dispatches commands
type Bot struct {
	chat        Chat
	ledger      LedgerService
	prices      PriceLookup
	prefix      string
	idleTimeout time.Duration
	recorder    Recorder
	logger      *slog.Logger

	commands map[string]handlerFunc
	aliases  map[string]string
	sessions *sessionRegistry

	// sessions outlive the message that started them
	lifetime context.Context
	stop     context.CancelFunc
	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
}

// Option configures a Bot
type Option func(*Bot)

// WithPrefix sets the command prefix, "!" by default
func WithPrefix(prefix string) Option {
	return func(b *Bot) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithIdleTimeout sets how long a pager keeps listening for navigation
func WithIdleTimeout(d time.Duration) Option {
	return func(b *Bot) { b.idleTimeout = d }
}

// WithRecorder reports activity to r
func WithRecorder(r Recorder) Option {
	return func(b *Bot) { b.recorder = r }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// New creates a Bot replying through chat
func New(chat Chat, ledgerSvc LedgerService, prices PriceLookup, opts ...Option) *Bot {
	b := &Bot{
		chat:        chat,
		ledger:      ledgerSvc,
		prices:      prices,
		prefix:      "!",
		idleTimeout: pager.DefaultIdleTimeout,
		recorder:    nopRecorder{},
		logger:      slog.Default(),
		sessions:    newSessionRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(slog.String("component", "bot"))
	b.lifetime, b.stop = context.WithCancel(context.Background())

	b.commands = map[string]handlerFunc{
		"help":  b.help,
		"ping":  b.ping,
		"price": b.price,
		"trade": b.trade,
	}
	b.aliases = map[string]string{
		"h": "help",
		"p": "price",
		"t": "trade",
	}
	return b
}

// HandleMessage runs the command in msg, if it is one
func (b *Bot) HandleMessage(ctx context.Context, msg Message) {
	if !strings.HasPrefix(msg.Content, b.prefix) {
		return
	}
	args := Tokenize(strings.TrimPrefix(msg.Content, b.prefix))
	if len(args) == 0 {
		return
	}

	name := strings.ToLower(args[0])
	if canonical, ok := b.aliases[name]; ok {
		name = canonical
	}
	handler, ok := b.commands[name]
	if !ok {
		return
	}

	result := "ok"
	if err := handler(ctx, msg, args[1:]); err != nil {
		result = "error"
		b.logger.ErrorContext(ctx, "command failed",
			slog.String("command", name),
			slog.String("author_id", msg.AuthorID),
			slog.String("error", err.Error()),
		)
		b.reply(ctx, msg, errorReply(err))
	}
	b.recorder.CommandHandled(name, result)
}

// HandleReaction forwards a navigation reaction to the pager drawn in the
// reacted message. Reactions from anyone but the user who asked for the
// listing are ignored.
func (b *Bot) HandleReaction(ctx context.Context, r Reaction) {
	sig, ok := SignalFor(r.Emoji)
	if !ok {
		return
	}
	if b.sessions.route(ctx, r.MessageID, r.UserID, sig) {
		b.recorder.SignalReceived(sig.String())
	}
}

// Close stops all pager sessions and waits for them to return. No session
// starts after Close.
func (b *Bot) Close() {
	b.mu.Lock()
	b.closed = true
	b.stop()
	b.mu.Unlock()
	b.wg.Wait()
}

// startSession runs a pager drawn into messageID until it goes idle
func (b *Bot) startSession(msg Message, messageID, text string, p *pager.Pager) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	display := &messageDisplay{
		chat:      b.chat,
		channelID: msg.ChannelID,
		messageID: messageID,
		lastText:  text,
	}
	s := pager.NewSession(p, display,
		pager.WithIdleTimeout(b.idleTimeout),
		pager.WithSessionLogger(b.logger),
	)
	b.sessions.add(messageID, msg.AuthorID, s)
	b.recorder.SessionStarted()

	go func() {
		defer b.wg.Done()
		defer b.recorder.SessionEnded()
		defer b.sessions.remove(messageID)

		if err := s.Run(b.lifetime); err != nil && b.lifetime.Err() == nil {
			b.logger.Warn("pager session ended with error",
				slog.String("session_id", s.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (b *Bot) reply(ctx context.Context, msg Message, text string) string {
	id, err := b.chat.Reply(ctx, msg.ChannelID, msg.ID, text)
	if err != nil {
		b.logger.WarnContext(ctx, "failed to send reply",
			slog.String("channel_id", msg.ChannelID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return id
}
