package kafka

import (
	"context"
	"fmt"
	"time"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	dombus "github.com/minicommerce/stocksync/internal/domain/eventbus"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/segmentio/kafka-go"
)

// Publisher maps domain events onto topic messages keyed by product id and
// writes them with a bounded retry. Retries live here rather than in the
// writer so the whole budget is visible in one place.
type Publisher struct {
	cfg    Config
	writer *kafka.Writer
	log    observability.Logger
}

func NewPublisher(cfg Config, logger observability.Logger) (*Publisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  1, // retried by Publish
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Publisher{
		cfg:    cfg,
		writer: writer,
		log:    logger.With(observability.F("component", "kafka_publisher")),
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, e dombus.Event) error {
	msg, err := p.message(e)
	if err != nil {
		return err
	}

	backoff := p.cfg.PublishBackoff
	for attempt := 1; ; attempt++ {
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt >= p.cfg.PublishMaxAttempts {
			break
		}

		p.log.Warn("event_publish_retry",
			observability.F("event", e.EventName()),
			observability.F("attempt", attempt),
			observability.F("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("kafka: publish %s after %d attempts: %w", e.EventName(), p.cfg.PublishMaxAttempts, err)
}

func (p *Publisher) message(e dombus.Event) (kafka.Message, error) {
	switch evt := e.(type) {
	case domstock.StockChangedEvent:
		value, err := encodeStockChanged(evt)
		if err != nil {
			return kafka.Message{}, err
		}
		return kafka.Message{
			Topic: p.cfg.StockTopic,
			Key:   []byte(evt.ProductID),
			Value: value,
		}, nil
	case domcatalog.ProductCreatedEvent:
		value, err := encodeProductCreated(evt)
		if err != nil {
			return kafka.Message{}, err
		}
		return kafka.Message{
			Topic: p.cfg.ProductTopic,
			Key:   []byte(evt.ProductID),
			Value: value,
		}, nil
	default:
		return kafka.Message{}, fmt.Errorf("kafka: no topic mapping for event %q", e.EventName())
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
