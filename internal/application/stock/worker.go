package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/minicommerce/stocksync/internal/domain/catalog"
	"github.com/minicommerce/stocksync/internal/domain/eventbus"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/minicommerce/stocksync/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const workerService = "stock_worker"

// Worker seeds a stock aggregate whenever the catalog announces a new
// product. Redelivered creation events are expected under at-least-once
// delivery and are absorbed as no-ops.
type Worker struct {
	subscriber eventbus.Subscriber
	engine     *Engine
	tracer     observability.Tracer
	log        observability.Logger
}

func NewWorker(subscriber eventbus.Subscriber, engine *Engine, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		engine:     engine,
		tracer:     tel.Tracer(),
		log:        tel.Logger().With(observability.F("service", workerService)),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.engine == nil {
		return
	}
	w.subscriber.Subscribe(catalog.ProductCreatedEvent{}.EventName(), w.handleProductCreated)
}

func (w *Worker) handleProductCreated(ctx context.Context, e eventbus.Event) error {
	evt, ok := e.(catalog.ProductCreatedEvent)
	if !ok {
		return nil
	}

	ctx, span := w.tracer.Start(ctx, "Worker.Stock.ProductCreated",
		attribute.String("event", e.EventName()),
		attribute.String("product.id", evt.ProductID),
	)
	defer span.End()

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("event", e.EventName()),
		observability.F("product_id", evt.ProductID),
		observability.F("sku", evt.SKU),
	)

	_, err := w.engine.CreateForProduct(ctx, evt.ProductID, evt.SKU)
	switch {
	case errors.Is(err, domstock.ErrAlreadyExists):
		// Duplicate delivery of the creation event.
		logger.Debug("stock_aggregate_exists")
		span.SetStatus(codes.Ok, "DUPLICATE")
		return nil
	case errors.Is(err, domstock.ErrPublishFailed):
		// Aggregate committed; the catalog lags until the next mutation.
		logger.Warn("stock_seed_event_not_published", observability.F("error", err.Error()))
		span.SetStatus(codes.Error, "EVENT_PUBLISH_FAILED")
		return nil
	case err != nil:
		logger.Error("stock_seed_failed", observability.F("error", err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "CREATE_FAILED")
		return fmt.Errorf("worker: seed stock for %s: %w", evt.ProductID, err)
	}

	logger.Info("stock_aggregate_seeded")
	span.SetStatus(codes.Ok, "OK")
	return nil
}
