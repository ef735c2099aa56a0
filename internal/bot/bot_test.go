package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/flexbot/internal/ledger"
	"github.com/trogers1052/flexbot/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockChat struct {
	mu        sync.Mutex
	replies   []string
	edits     []string
	reactions []string
	clears    int
	nextID    int
}

func (m *mockChat) Reply(_ context.Context, _, _, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	m.nextID++
	return "msg-" + strconv.Itoa(m.nextID), nil
}

func (m *mockChat) Edit(_ context.Context, _, _, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, text)
	return nil
}

func (m *mockChat) React(_ context.Context, _, _, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, emoji)
	return nil
}

func (m *mockChat) ClearReactions(_ context.Context, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.reactions = nil
	return nil
}

func (m *mockChat) DisplayName(_ context.Context, userID string) (string, error) {
	if userID == "u1" {
		return "Piper", nil
	}
	return "", errors.New("unknown user")
}

func (m *mockChat) Replies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.replies...)
}

func (m *mockChat) Edits() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.edits...)
}

func (m *mockChat) Reactions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reactions...)
}

type mockLedger struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	err      error
	built    []string
	peeked   []string
	opened   []string
	closeRes *ledger.CloseResult
	closeErr error
	openErr  error
}

func (m *mockLedger) Build(_ context.Context, ownerID string) (*ledger.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.built = append(m.built, ownerID)
	return m.ledger, m.err
}

func (m *mockLedger) Peek(_ context.Context, ownerID string) (*ledger.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peeked = append(m.peeked, ownerID)
	return m.ledger, m.err
}

func (m *mockLedger) Open(_ context.Context, ownerID string, side models.Side, term string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opened = append(m.opened, fmt.Sprintf("%s:%s:%s", ownerID, side, term))
	return &models.Position{ID: 1, OwnerID: ownerID, Ticker: "ETH", Side: side, OpenPrice: decimal.NewFromInt(2000)}, nil
}

func (m *mockLedger) CloseByHandle(_ context.Context, _ string, _ int) (*ledger.CloseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeRes, m.closeErr
}

type mockPrices struct {
	res   *models.LookupResult
	err   error
	terms []string
}

func (m *mockPrices) Lookup(_ context.Context, terms []string) (*models.LookupResult, error) {
	m.terms = terms
	return m.res, m.err
}

type mockRecorder struct {
	mu       sync.Mutex
	commands []string
	signals  []string
	started  int
	ended    int
}

func (m *mockRecorder) CommandHandled(command, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, command+":"+result)
}

func (m *mockRecorder) SessionStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *mockRecorder) SessionEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended++
}

func (m *mockRecorder) SignalReceived(signal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, signal)
}

func openLedger(n int) *ledger.Ledger {
	l := &ledger.Ledger{OwnerID: "u1"}
	for i := 0; i < n; i++ {
		l.Open = append(l.Open, &ledger.EnrichedPosition{
			Position: models.Position{
				ID: i + 1, OwnerID: "u1", Ticker: "ETH", Side: models.SideLong,
				OpenPrice: decimal.NewFromInt(2000),
				OpenedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			CurrentPrice: decimal.NewFromInt(2500),
			PnL:          decimal.NewFromInt(500),
			Priced:       true,
			Handle:       i + 1,
		})
	}
	l.OpenSummary = ledger.Summary{Count: n}
	return l
}

type fixture struct {
	bot      *Bot
	chat     *mockChat
	ledger   *mockLedger
	prices   *mockPrices
	recorder *mockRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chat:     &mockChat{},
		ledger:   &mockLedger{ledger: openLedger(0)},
		prices:   &mockPrices{res: models.NewLookupResult()},
		recorder: &mockRecorder{},
	}
	f.bot = New(f.chat, f.ledger, f.prices,
		WithRecorder(f.recorder),
		WithIdleTimeout(time.Second),
	)
	t.Cleanup(f.bot.Close)
	return f
}

func (f *fixture) send(author, content string) {
	f.bot.HandleMessage(context.Background(), Message{ID: "in", ChannelID: "c1", AuthorID: author, Content: content})
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestHandleMessage_IgnoresNonCommands(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "ping")
	f.send("u1", "!")
	f.send("u1", "!unknown")
	assert.Empty(t, f.chat.Replies())
	assert.Empty(t, f.recorder.commands)
}

func TestHandleMessage_PingAndHelp(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!ping")
	f.send("u1", "!h")
	f.send("u1", "!HELP")

	replies := f.chat.Replies()
	require.Len(t, replies, 3)
	assert.Equal(t, "```Pong!```", replies[0])
	assert.Contains(t, replies[1], "FlexBot Help")
	assert.Equal(t, replies[1], replies[2])
	assert.Equal(t, []string{"ping:ok", "help:ok", "help:ok"}, f.recorder.commands)
}

func TestHandleMessage_CustomPrefix(t *testing.T) {
	f := newFixture(t)
	b := New(f.chat, f.ledger, f.prices, WithPrefix("$"))
	defer b.Close()

	b.HandleMessage(context.Background(), Message{ChannelID: "c1", AuthorID: "u1", Content: "$ping"})
	b.HandleMessage(context.Background(), Message{ChannelID: "c1", AuthorID: "u1", Content: "!ping"})
	assert.Len(t, f.chat.Replies(), 1)
}

// ---------------------------------------------------------------------------
// Price
// ---------------------------------------------------------------------------

func TestPrice(t *testing.T) {
	f := newFixture(t)
	f.prices.res.Found["ETH"] = models.Quote{Ticker: "ETH", USD: decimal.NewFromFloat(2500.5), USD24hChange: decimal.NewFromFloat(1.234)}
	f.prices.res.Found["BTC"] = models.Quote{Ticker: "BTC", USD: decimal.NewFromInt(60000), USD24hChange: decimal.NewFromFloat(-2.5)}
	f.prices.res.Unfound = []string{"piper"}

	f.send("u1", `!p eth btc piper`)

	assert.Equal(t, []string{"eth", "btc", "piper"}, f.prices.terms)
	replies := f.chat.Replies()
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0], "-     BTC | $60000.00    | -2.50")
	assert.Contains(t, replies[0], "+     ETH | $2500.50     | 1.24")
	assert.Less(t, strings.Index(replies[0], "BTC"), strings.Index(replies[0], "ETH"))
	assert.Equal(t, "```Could not find search term(s): \"piper\"```", replies[1])
}

func TestPrice_DefaultsToBTC(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!price")
	assert.Equal(t, []string{"BTC"}, f.prices.terms)
	assert.Empty(t, f.chat.Replies(), "nothing found, nothing unfound")
}

func TestPrice_ServiceError(t *testing.T) {
	f := newFixture(t)
	f.prices.err = &models.PriceServiceError{Err: errors.New("timeout")}

	f.send("u1", "!p eth")
	assert.Equal(t, []string{replyServiceError}, f.chat.Replies())
	assert.Equal(t, []string{"price:error"}, f.recorder.commands)
}

// ---------------------------------------------------------------------------
// Trade
// ---------------------------------------------------------------------------

func TestTrade_Help(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!t")
	f.send("u1", "!t wat")
	replies := f.chat.Replies()
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0], "Trading Commands")
	assert.Equal(t, replies[0], replies[1])
}

func TestTrade_Open(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!t l eth")
	f.send("u1", `!trade short "enjin coin"`)

	assert.Equal(t, []string{"u1:LONG:eth", "u1:SHORT:enjin coin"}, f.ledger.opened)
	replies := f.chat.Replies()
	require.Len(t, replies, 2)
	assert.Equal(t, "```Opened LONG on ETH at $2000.00!```", replies[0])
}

func TestTrade_OpenWithoutTerm(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!t s")
	assert.Equal(t, []string{"Requires a <ticker> to short. e.g.: `!t s eth`"}, f.chat.Replies())
	assert.Empty(t, f.ledger.opened)
}

func TestTrade_OpenUnknownTerm(t *testing.T) {
	f := newFixture(t)
	f.ledger.openErr = fmt.Errorf("%w: %q", models.ErrTermNotFound, "piper")
	f.send("u1", "!t l piper")
	assert.Equal(t, []string{"```Could not find search term(s): \"piper\"```"}, f.chat.Replies())
}

func TestTrade_OpenStoreError(t *testing.T) {
	f := newFixture(t)
	f.ledger.openErr = &models.StoreError{Op: "create position", Err: errors.New("connection refused")}
	f.send("u1", "!t l eth")
	assert.Equal(t, []string{replyDatabaseError}, f.chat.Replies())
}

func TestTrade_ListNoPositions(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!t p")

	replies := f.chat.Replies()
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Piper's Portfolio")
	assert.Contains(t, replies[0], "0 open positions")
	assert.Contains(t, replies[0], "page 1/1")
	assert.Equal(t, []string{"u1"}, f.ledger.built)
	assert.Equal(t, 0, f.recorder.started, "nothing to navigate")
	assert.Empty(t, f.chat.Reactions())
}

func TestTrade_ListOtherUserPeeks(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!t p <@!42>")

	assert.Empty(t, f.ledger.built)
	assert.Equal(t, []string{"42"}, f.ledger.peeked)
	assert.Contains(t, f.chat.Replies()[0], "42's Portfolio")
}

func TestTrade_ListLedgerErrorNotice(t *testing.T) {
	f := newFixture(t)
	l := openLedger(1)
	l.Open[0].Priced = false
	l.Unpriced = []string{"ETH"}
	f.ledger.ledger = l

	f.send("u1", "!t p")
	replies := f.chat.Replies()
	require.Len(t, replies, 2)
	assert.Equal(t, "```Could not get a price for: ETH```", replies[1])
}

func TestTrade_ListPagesByReaction(t *testing.T) {
	f := newFixture(t)
	f.ledger.ledger = openLedger(7)
	f.send("u1", "!t p")

	require.Eventually(t, func() bool { return len(f.chat.Reactions()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"👉", "⏩"}, f.chat.Reactions())
	assert.Empty(t, f.chat.Edits(), "first page is already posted")

	// someone else cannot page
	f.bot.HandleReaction(context.Background(), Reaction{MessageID: "msg-1", UserID: "u2", Emoji: "👉"})
	f.bot.HandleReaction(context.Background(), Reaction{MessageID: "msg-1", UserID: "u1", Emoji: "👉"})

	require.Eventually(t, func() bool { return len(f.chat.Edits()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, f.chat.Edits()[0], "page 2/2")
	require.Eventually(t, func() bool {
		r := f.chat.Reactions()
		return len(r) == 2 && r[0] == "⏪" && r[1] == "👈"
	}, time.Second, 5*time.Millisecond)

	f.recorder.mu.Lock()
	assert.Equal(t, []string{"next"}, f.recorder.signals)
	assert.Equal(t, 1, f.recorder.started)
	f.recorder.mu.Unlock()
}

func TestTrade_ListAfterCloseStartsNoSession(t *testing.T) {
	f := newFixture(t)
	f.ledger.ledger = openLedger(7)
	f.bot.Close()

	f.send("u1", "!t p")
	require.Len(t, f.chat.Replies(), 1)
	assert.Equal(t, 0, f.bot.sessions.count())
	assert.Empty(t, f.chat.Reactions())

	f.recorder.mu.Lock()
	assert.Equal(t, 0, f.recorder.started)
	f.recorder.mu.Unlock()
}

func TestTrade_ListStartsOnRequestedPage(t *testing.T) {
	f := newFixture(t)
	f.ledger.ledger = openLedger(12)
	f.send("u1", "!t p 9")
	assert.Contains(t, f.chat.Replies()[0], "page 3/3")
}

func TestTrade_Close(t *testing.T) {
	f := newFixture(t)
	closedAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f.ledger.closeRes = &ledger.CloseResult{
		Handle: 2,
		Position: models.Position{
			ID: 7, Ticker: "ETH", Side: models.SideLong,
			OpenPrice:  decimal.NewFromInt(2000),
			ClosePrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(2500), Valid: true},
			OpenedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			ClosedAt:   &closedAt,
		},
		PnL: decimal.NewFromInt(500),
	}

	f.send("u1", "!t c 2")
	replies := f.chat.Replies()
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "+ Closed LONG on ETH (#2)")
	assert.Contains(t, replies[0], "open:  $2000.00 on 2026-03-01")
	assert.Contains(t, replies[0], "close: $2500.00")
	assert.Contains(t, replies[0], "+ PnL: +$500.00 (+25.00%)")
}

func TestTrade_CloseErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown handle", fmt.Errorf("%w: 3", models.ErrUnknownHandle), replyUnknownHandle},
		{"already closed", models.ErrAlreadyClosed, replyAlreadyClosed},
		{"price service", &models.PriceServiceError{Err: errors.New("429")}, replyServiceError},
		{"store", &models.StoreError{Op: "close position", Err: errors.New("gone")}, replyDatabaseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ledger.closeErr = tt.err
			f.send("u1", "!t close 3")
			assert.Equal(t, []string{tt.want}, f.chat.Replies())
		})
	}
}

func TestTrade_CloseUsage(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "!t c")
	f.send("u1", "!t c abc")
	replies := f.chat.Replies()
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0], "Requires a position number")
}
