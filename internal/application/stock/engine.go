package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minicommerce/stocksync/internal/domain/eventbus"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/minicommerce/stocksync/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	engineService = "stock-engine"
	spanPrefix    = "UC.Stock."

	// Operation names used for spans, logs, and metric labels.
	OpCreate      = "create"
	OpSetQuantity = "set_quantity"
	OpIncrement   = "increment"
	OpDecrement   = "decrement"
	OpReserve     = "reserve"
	OpRelease     = "release"
)

// EngineConfig bounds the engine's retry loop and its waits on external
// systems. Zero values fall back to defaults.
type EngineConfig struct {
	LowStockThreshold int
	MaxRetries        int
	StorageTimeout    time.Duration
	PublishTimeout    time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.LowStockThreshold <= 0 {
		c.LowStockThreshold = domstock.DefaultLowStockThreshold
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.StorageTimeout <= 0 {
		c.StorageTimeout = 3 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
	return c
}

// Engine owns all writes to stock aggregates. Every operation is one atomic
// read-modify-write against a single aggregate: read, apply, commit, persist
// with a version compare-and-swap, then publish the resulting snapshot. A
// conflicting concurrent writer triggers a bounded retry of the whole cycle.
type Engine struct {
	repo      domstock.Repository
	publisher eventbus.Publisher
	cfg       EngineConfig

	log       observability.Logger
	tracer    observability.Tracer
	mutations observability.Counter
	durations observability.Histogram
	conflicts observability.Counter
	published observability.Counter
	pubDur    observability.Histogram
}

func NewEngine(repo domstock.Repository, publisher eventbus.Publisher, cfg EngineConfig, tel observability.Observability) *Engine {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Engine{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		log:       tel.Logger().With(observability.F("service", engineService)),
		tracer:    tel.Tracer(),
		mutations: metrics.Counter(observability.MStockMutations),
		durations: metrics.Histogram(observability.MStockMutationDuration),
		conflicts: metrics.Counter(observability.MStockVersionConflicts),
		published: metrics.Counter(observability.MEventsPublished),
		pubDur:    metrics.Histogram(observability.MEventPublishDuration),
	}
}

// CreateForProduct registers the aggregate for a newly created product with
// zero quantities and publishes the first snapshot. Duplicate registration
// for a known product id or SKU fails with ErrAlreadyExists.
func (e *Engine) CreateForProduct(ctx context.Context, productID, sku string) (*domstock.Aggregate, error) {
	ctx, finish := e.begin(ctx, OpCreate, productID)
	agg, err := domstock.NewAggregate(productID, sku)
	if err != nil {
		return nil, finish(nil, err)
	}

	createCtx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	err = e.repo.Create(createCtx, agg)
	cancel()
	if err != nil {
		return nil, finish(nil, fmt.Errorf("stock: create %s: %w", productID, err))
	}

	if perr := e.publish(ctx, domstock.NewStockChangedEvent(agg)); perr != nil {
		return agg, finish(agg, perr)
	}
	return agg, finish(agg, nil)
}

// SetQuantity overwrites the available quantity; zero is a valid target and
// marks the product out of stock.
func (e *Engine) SetQuantity(ctx context.Context, productID string, qty int) (*domstock.Aggregate, error) {
	return e.mutate(ctx, OpSetQuantity, productID, qty, func(a *domstock.Aggregate) error {
		return a.SetAvailable(qty)
	})
}

func (e *Engine) Increment(ctx context.Context, productID string, qty int) (*domstock.Aggregate, error) {
	return e.mutate(ctx, OpIncrement, productID, qty, func(a *domstock.Aggregate) error {
		return a.Increment(qty)
	})
}

func (e *Engine) Decrement(ctx context.Context, productID string, qty int) (*domstock.Aggregate, error) {
	return e.mutate(ctx, OpDecrement, productID, qty, func(a *domstock.Aggregate) error {
		return a.Decrement(qty)
	})
}

// Reserve moves quantity from available to reserved, pending fulfillment.
func (e *Engine) Reserve(ctx context.Context, productID string, qty int) (*domstock.Aggregate, error) {
	return e.mutate(ctx, OpReserve, productID, qty, func(a *domstock.Aggregate) error {
		return a.Reserve(qty)
	})
}

// Release returns reserved quantity to available.
func (e *Engine) Release(ctx context.Context, productID string, qty int) (*domstock.Aggregate, error) {
	return e.mutate(ctx, OpRelease, productID, qty, func(a *domstock.Aggregate) error {
		return a.Release(qty)
	})
}

// Get returns the current aggregate state.
func (e *Engine) Get(ctx context.Context, productID string) (*domstock.Aggregate, error) {
	getCtx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()
	return e.repo.Get(getCtx, productID)
}

// ListLowStock returns aggregates below the configured low-stock threshold.
func (e *Engine) ListLowStock(ctx context.Context) ([]*domstock.Aggregate, error) {
	listCtx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()
	return e.repo.ListBelow(listCtx, e.cfg.LowStockThreshold)
}

// mutate runs one logical mutation. Business-rule failures are terminal and
// leave the stored state untouched; only a version conflict re-enters the
// loop. A publish failure after a committed persist is surfaced alongside
// the committed aggregate - the local state is authoritative and is not
// rolled back.
func (e *Engine) mutate(ctx context.Context, operation, productID string, qty int, apply func(*domstock.Aggregate) error) (*domstock.Aggregate, error) {
	ctx, finish := e.begin(ctx, operation, productID,
		attribute.Int("stock.quantity", qty),
	)

	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		getCtx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
		agg, err := e.repo.Get(getCtx, productID)
		cancel()
		if err != nil {
			return nil, finish(nil, fmt.Errorf("stock: get %s: %w", productID, err))
		}

		expected := agg.Version
		if err := apply(agg); err != nil {
			return nil, finish(nil, err)
		}
		agg.Commit(e.cfg.LowStockThreshold)

		updCtx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
		err = e.repo.Update(updCtx, agg, expected)
		cancel()
		if errors.Is(err, domstock.ErrVersionConflict) {
			e.conflicts.Add(1, observability.L("operation", operation))
			continue
		}
		if err != nil {
			return nil, finish(nil, fmt.Errorf("stock: update %s: %w", productID, err))
		}

		if perr := e.publish(ctx, domstock.NewStockChangedEvent(agg)); perr != nil {
			return agg, finish(agg, perr)
		}
		return agg, finish(agg, nil)
	}

	return nil, finish(nil, domstock.ErrContention)
}

// publish hands the committed snapshot to the transport, bounded by the
// publish timeout. Exhausted transport retries surface as ErrPublishFailed.
func (e *Engine) publish(ctx context.Context, event domstock.StockChangedEvent) error {
	if e.publisher == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, e.cfg.PublishTimeout)
	start := time.Now()
	err := e.publisher.Publish(pubCtx, event)
	cancel()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	e.published.Add(1,
		observability.L("event", event.EventName()),
		observability.L("outcome", outcome),
	)
	e.pubDur.Observe(time.Since(start).Seconds(),
		observability.L("event", event.EventName()),
	)

	if err != nil {
		return fmt.Errorf("%w: %s v%d: %v", domstock.ErrPublishFailed, event.ProductID, event.Version, err)
	}
	return nil
}

// begin opens the span and returns a finish func recording outcome metrics
// and the use-case log line.
func (e *Engine) begin(ctx context.Context, operation, productID string, attrs ...attribute.KeyValue) (context.Context, func(*domstock.Aggregate, error) error) {
	attrs = append(attrs,
		attribute.String("use_case", "stock."+operation),
		attribute.String("product.id", productID),
	)
	ctx, span := e.tracer.Start(ctx, spanPrefix+operation, attrs...)
	start := time.Now()

	logger := logctx.FromOr(ctx, e.log).With(
		observability.F("use_case", "stock."+operation),
		observability.F("product_id", productID),
	)

	return ctx, func(agg *domstock.Aggregate, err error) error {
		latency := time.Since(start).Seconds()
		outcome, status := "success", "OK"
		switch {
		case errors.Is(err, domstock.ErrPublishFailed):
			outcome, status = "publish_failed", "EVENT_PUBLISH_FAILED"
		case errors.Is(err, domstock.ErrContention):
			outcome, status = "error", "CONTENTION"
		case err != nil:
			outcome, status = "error", "MUTATION_FAILED"
		}

		e.mutations.Add(1,
			observability.L("operation", operation),
			observability.L("outcome", outcome),
		)
		e.durations.Observe(latency, observability.L("operation", operation))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", latency),
		}
		if agg != nil {
			fields = append(fields,
				observability.F("available_quantity", agg.AvailableQuantity),
				observability.F("reserved_quantity", agg.ReservedQuantity),
				observability.F("version", agg.Version),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()

		logger.Info("use_case_done", fields...)
		return err
	}
}
