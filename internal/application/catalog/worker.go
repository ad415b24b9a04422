package catalog

import (
	"context"
	"fmt"

	"github.com/minicommerce/stocksync/internal/application"
	"github.com/minicommerce/stocksync/internal/domain/eventbus"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/minicommerce/stocksync/internal/observability/logctx"
)

// Worker feeds inbound stock events into the projector. Events flow only
// from the stock side to the catalog, never back.
type Worker struct {
	subscriber eventbus.Subscriber
	projector  application.UseCase[domstock.StockChangedEvent, *ProjectionResult]
	log        observability.Logger
}

func NewWorker(subscriber eventbus.Subscriber, projector application.UseCase[domstock.StockChangedEvent, *ProjectionResult], tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		projector:  projector,
		log:        tel.Logger().With(observability.F("service", "catalog_worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.projector == nil {
		return
	}
	w.subscriber.Subscribe(domstock.StockChangedEvent{}.EventName(), w.handleStockChanged)
}

func (w *Worker) handleStockChanged(ctx context.Context, e eventbus.Event) error {
	evt, ok := e.(domstock.StockChangedEvent)
	if !ok {
		logctx.FromOr(ctx, w.log).Debug("event_ignored",
			observability.F("event", e.EventName()),
		)
		return nil
	}

	if _, err := w.projector.Execute(ctx, evt); err != nil {
		return fmt.Errorf("worker: apply stock event: %w", err)
	}
	return nil
}
