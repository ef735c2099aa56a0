package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/flexbot/internal/models"
)

// EventSource identifies this service in published events
const EventSource = "flexbot"

// MessageWriter is the part of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes position lifecycle events
type Publisher struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewPublisher creates a publisher writing to topic on brokers
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewPublisherWithWriter(writer, logger)
}

// NewPublisherWithWriter wraps an existing writer
func NewPublisherWithWriter(writer MessageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: writer,
		logger: logger.With(slog.String("component", "kafka")),
	}
}

// PublishPositionEvent writes one event keyed by the position owner, so that
// each owner's events stay in order on one partition.
func (p *Publisher) PublishPositionEvent(ctx context.Context, eventType string, pos *models.Position) error {
	event := models.PositionEvent{
		EventType: eventType,
		Source:    EventSource,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      pos,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal position event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(pos.OwnerID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "position_id", Value: []byte(strconv.Itoa(pos.ID))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write position event: %w", err)
	}

	p.logger.DebugContext(ctx, "published position event",
		slog.String("event_type", eventType),
		slog.Int("id", pos.ID),
	)
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
