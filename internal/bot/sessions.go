package bot

import (
	"context"
	"sync"

	"github.com/trogers1052/flexbot/internal/pager"
)

var signalEmoji = map[pager.Signal]string{
	pager.SignalFirst:      "⏪",
	pager.SignalPrev:       "👈",
	pager.SignalNext:       "👉",
	pager.SignalLast:       "⏩",
	pager.SignalOpenView:   "📗",
	pager.SignalClosedView: "📕",
}

var emojiSignal = func() map[string]pager.Signal {
	m := make(map[string]pager.Signal, len(signalEmoji))
	for sig, emoji := range signalEmoji {
		m[emoji] = sig
	}
	return m
}()

// EmojiFor returns the reaction emoji of a navigation signal
func EmojiFor(sig pager.Signal) string {
	return signalEmoji[sig]
}

// SignalFor maps a reaction emoji back to a navigation signal
func SignalFor(emoji string) (pager.Signal, bool) {
	sig, ok := emojiSignal[emoji]
	return sig, ok
}

// messageDisplay draws a pager into one chat message, offering navigation as
// reactions on it.
type messageDisplay struct {
	chat      Chat
	channelID string
	messageID string

	lastText string
}

func (d *messageDisplay) Show(ctx context.Context, text string, affordances []pager.Signal) error {
	if text != d.lastText {
		if err := d.chat.Edit(ctx, d.channelID, d.messageID, text); err != nil {
			return err
		}
		d.lastText = text
	}
	if err := d.chat.ClearReactions(ctx, d.channelID, d.messageID); err != nil {
		return err
	}
	for _, sig := range affordances {
		if err := d.chat.React(ctx, d.channelID, d.messageID, EmojiFor(sig)); err != nil {
			return err
		}
	}
	return nil
}

func (d *messageDisplay) Clear(ctx context.Context) error {
	return d.chat.ClearReactions(ctx, d.channelID, d.messageID)
}

type liveSession struct {
	ownerID string
	session *pager.Session
}

// sessionRegistry tracks running pager sessions by the message they draw into
type sessionRegistry struct {
	mu        sync.Mutex
	byMessage map[string]liveSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byMessage: make(map[string]liveSession)}
}

func (r *sessionRegistry) add(messageID, ownerID string, s *pager.Session) {
	r.mu.Lock()
	r.byMessage[messageID] = liveSession{ownerID: ownerID, session: s}
	r.mu.Unlock()
}

func (r *sessionRegistry) remove(messageID string) {
	r.mu.Lock()
	delete(r.byMessage, messageID)
	r.mu.Unlock()
}

// route forwards sig to the session on messageID if userID owns it
func (r *sessionRegistry) route(ctx context.Context, messageID, userID string, sig pager.Signal) bool {
	r.mu.Lock()
	live, ok := r.byMessage[messageID]
	r.mu.Unlock()
	if !ok || live.ownerID != userID {
		return false
	}
	return live.session.Send(ctx, sig)
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byMessage)
}
