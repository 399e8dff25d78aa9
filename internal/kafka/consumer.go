package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// TickerEvent is the wire format of the exchange price feed.
type TickerEvent struct {
	EventType string `json:"event_type"`
	Exchange  string `json:"exchange"`
	Pair      string `json:"pair"`
	LastPrice string `json:"last_price"`
	Timestamp string `json:"ts,omitempty"`
}

// Ticker event type constants
const (
	EventTypeTickerUpdate = "TICKER_UPDATE"
	EventTypePairDelisted = "PAIR_DELISTED"
)

// PriceCache is where consumed ticker events land. The monitor's condition
// evaluator reads prices back out of the same cache.
type PriceCache interface {
	SetLastPrice(ctx context.Context, exchange, pair string, price decimal.Decimal) error
	MarkDelisted(ctx context.Context, exchange, pair string) error
}

// Consumer ingests exchange ticker events from Kafka into the price cache.
type Consumer struct {
	reader *kafka.Reader
	cache  PriceCache
}

// NewConsumer creates a Kafka consumer for ticker events
func NewConsumer(brokers []string, topic, groupID string, cache PriceCache) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		cache:  cache,
	}
}

// Start consumes messages until the context is cancelled. A bad message is
// logged and skipped; the feed keeps flowing.
func (c *Consumer) Start(ctx context.Context) error {
	log.Infof("starting kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // context cancelled, normal shutdown
				}
				log.WithError(err).Error("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.WithError(err).Error("error processing message")
				// continue processing other messages
			}
		}
	}
}

// processMessage handles a single ticker event
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event TickerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal ticker event: %w", err)
	}

	switch event.EventType {
	case EventTypeTickerUpdate:
		price, err := decimal.NewFromString(event.LastPrice)
		if err != nil {
			return fmt.Errorf("invalid last price %q for %s:%s: %w",
				event.LastPrice, event.Exchange, event.Pair, err)
		}
		if err := c.cache.SetLastPrice(ctx, event.Exchange, event.Pair, price); err != nil {
			return fmt.Errorf("failed to cache price: %w", err)
		}
	case EventTypePairDelisted:
		log.WithFields(log.Fields{"exchange": event.Exchange, "pair": event.Pair}).Warn("pair delisted")
		if err := c.cache.MarkDelisted(ctx, event.Exchange, event.Pair); err != nil {
			return fmt.Errorf("failed to tombstone pair: %w", err)
		}
	default:
		log.Debugf("ignoring event type: %s", event.EventType)
	}

	return nil
}
