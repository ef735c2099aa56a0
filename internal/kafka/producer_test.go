package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/flexbot/internal/models"
)

// ---------------------------------------------------------------------------
// Mock writer
// ---------------------------------------------------------------------------

type mockWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWriter) Messages() []kafkago.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]kafkago.Message, len(m.messages))
	copy(cp, m.messages)
	return cp
}

// ---------------------------------------------------------------------------
// PublishPositionEvent tests
// ---------------------------------------------------------------------------

func TestPublisher_PublishPositionEvent(t *testing.T) {
	writer := &mockWriter{}
	pub := NewPublisherWithWriter(writer, slog.Default())

	pos := &models.Position{
		ID: 42, OwnerID: "u1", Ticker: "ETH", Side: models.SideLong,
		OpenPrice: decimal.RequireFromString("2000.5"),
		OpenedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishPositionEvent(context.Background(), models.EventPositionOpened, pos))

	msgs := writer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "u1", string(msgs[0].Key))
	assert.Equal(t, "event_type", msgs[0].Headers[0].Key)
	assert.Equal(t, models.EventPositionOpened, string(msgs[0].Headers[0].Value))
	assert.Equal(t, "42", string(msgs[0].Headers[1].Value))

	var event models.PositionEvent
	require.NoError(t, json.Unmarshal(msgs[0].Value, &event))
	assert.Equal(t, models.EventPositionOpened, event.EventType)
	assert.Equal(t, EventSource, event.Source)
	_, err := time.Parse(time.RFC3339, event.Timestamp)
	assert.NoError(t, err)
	require.NotNil(t, event.Data)
	assert.Equal(t, "ETH", event.Data.Ticker)
	assert.True(t, event.Data.OpenPrice.Equal(pos.OpenPrice))
	assert.False(t, event.Data.ClosePrice.Valid)
	assert.Nil(t, event.Data.ClosedAt)
}

func TestPublisher_PublishClosedEvent(t *testing.T) {
	writer := &mockWriter{}
	pub := NewPublisherWithWriter(writer, slog.Default())

	closedAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	pos := &models.Position{
		ID: 7, OwnerID: "u1", Ticker: "BTC", Side: models.SideShort,
		OpenPrice:  decimal.NewFromInt(10000),
		ClosePrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(12000), Valid: true},
		ClosedAt:   &closedAt,
	}
	require.NoError(t, pub.PublishPositionEvent(context.Background(), models.EventPositionClosed, pos))

	var event models.PositionEvent
	require.NoError(t, json.Unmarshal(writer.Messages()[0].Value, &event))
	assert.Equal(t, models.EventPositionClosed, event.EventType)
	assert.True(t, event.Data.ClosePrice.Valid)
	assert.True(t, event.Data.ClosePrice.Decimal.Equal(decimal.NewFromInt(12000)))
	require.NotNil(t, event.Data.ClosedAt)
	assert.True(t, event.Data.ClosedAt.Equal(closedAt))
}

func TestPublisher_WriteError(t *testing.T) {
	writer := &mockWriter{err: errors.New("leader not available")}
	pub := NewPublisherWithWriter(writer, slog.Default())

	err := pub.PublishPositionEvent(context.Background(), models.EventPositionOpened, &models.Position{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPublisher_Close(t *testing.T) {
	writer := &mockWriter{}
	pub := NewPublisherWithWriter(writer, slog.Default())
	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}
