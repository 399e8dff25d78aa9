package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cegateway/ticker-monitor/internal/models"
)

// Producer publishes alert events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishAlertTriggered publishes a notification-worthy entry transition,
// keyed by entry id so transitions of one entry stay ordered
func (p *Producer) PublishAlertTriggered(ctx context.Context, snapshot models.EntrySnapshot) error {
	event := models.AlertEvent{
		EventType: "ALERT_TRIGGERED",
		Entry:     snapshot,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, strconv.FormatInt(snapshot.ID, 10), event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.AlertEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
