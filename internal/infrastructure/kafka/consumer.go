package kafka

import (
	"context"
	"errors"
	"io"
	"sync"

	dombus "github.com/minicommerce/stocksync/internal/domain/eventbus"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/minicommerce/stocksync/internal/observability/logctx"
	"github.com/segmentio/kafka-go"
)

// Consumer runs one reader per subscribed topic within a consumer group and
// dispatches decoded events to the registered handlers. Messages inside a
// partition are processed one at a time, preserving per-product order.
// Handler errors are logged and the offset is committed anyway: the version
// watermark on the projection side makes reprocessing unnecessary for
// convergence, and the next event for the product repairs any gap.
type Consumer struct {
	cfg Config

	mu      sync.RWMutex
	subs    map[string][]dombus.Handler
	readers []*kafka.Reader

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	log       observability.Logger
}

func NewConsumer(cfg Config, logger observability.Logger) (*Consumer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Consumer{
		cfg:  cfg,
		subs: make(map[string][]dombus.Handler),
		log:  logger.With(observability.F("component", "kafka_consumer")),
	}, nil
}

func (c *Consumer) Subscribe(eventName string, h dombus.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[eventName] = append(c.subs[eventName], h)
}

type topicBinding struct {
	topic     string
	eventName string
	decode    func([]byte) (dombus.Event, error)
}

func (c *Consumer) bindings() []topicBinding {
	return []topicBinding{
		{
			topic:     c.cfg.StockTopic,
			eventName: "stock.changed",
			decode: func(value []byte) (dombus.Event, error) {
				return decodeStockChanged(value)
			},
		},
		{
			topic:     c.cfg.ProductTopic,
			eventName: "product.created",
			decode: func(value []byte) (dombus.Event, error) {
				return decodeProductCreated(value)
			},
		},
	}
}

// Start launches a reader for every topic that has at least one subscriber.
func (c *Consumer) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel

		for _, b := range c.bindings() {
			c.mu.RLock()
			subscribed := len(c.subs[b.eventName]) > 0
			c.mu.RUnlock()
			if !subscribed {
				continue
			}

			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:        c.cfg.Brokers,
				GroupID:        c.cfg.GroupID,
				Topic:          b.topic,
				MinBytes:       1,
				MaxBytes:       10e6,
				CommitInterval: c.cfg.CommitInterval,
			})
			c.readers = append(c.readers, reader)

			c.wg.Add(1)
			go c.run(runCtx, reader, b)
		}

		c.log.Info("kafka_consumer_started",
			observability.F("group_id", c.cfg.GroupID),
			observability.F("readers", len(c.readers)),
		)
	})
}

func (c *Consumer) Stop(ctx context.Context) {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		for _, r := range c.readers {
			_ = r.Close()
		}
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
		c.log.Info("kafka_consumer_stopped")
	})
}

func (c *Consumer) run(ctx context.Context, reader *kafka.Reader, b topicBinding) {
	defer c.wg.Done()

	log := c.log.With(observability.F("topic", b.topic))
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			log.Warn("kafka_fetch_error", observability.F("error", err.Error()))
			continue
		}

		c.dispatch(ctx, log, msg, b)

		if err := reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("kafka_commit_error", observability.F("error", err.Error()))
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, log observability.Logger, msg kafka.Message, b topicBinding) {
	event, err := b.decode(msg.Value)
	if err != nil {
		log.Error("kafka_message_undecodable",
			observability.F("partition", msg.Partition),
			observability.F("offset", msg.Offset),
			observability.F("error", err.Error()),
		)
		return
	}

	c.mu.RLock()
	handlers := append([]dombus.Handler(nil), c.subs[b.eventName]...)
	c.mu.RUnlock()

	hctx := logctx.With(ctx, log.With(observability.F("event", b.eventName)))
	for _, h := range handlers {
		if err := h(hctx, event); err != nil {
			log.Warn("event_handler_error",
				observability.F("event", b.eventName),
				observability.F("partition", msg.Partition),
				observability.F("offset", msg.Offset),
				observability.F("error", err.Error()),
			)
		}
	}
}
