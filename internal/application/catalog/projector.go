package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/minicommerce/stocksync/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ProjectionResult reports what the projector did with one inbound snapshot.
type ProjectionResult struct {
	Outcome string
	Product *domcatalog.Product
}

// Projector applies stock snapshots to the catalog's cached inventory view.
// The per-product version watermark makes application idempotent: duplicates
// and out-of-order redeliveries compare stale and are dropped without error.
// Events for products the catalog has not seen yet are dropped with a warning
// and a metric; the gap heals with the next event for that product.
type Projector struct {
	repo domcatalog.Repository

	log    observability.Logger
	tracer observability.Tracer
	events observability.Counter
}

func NewProjector(repo domcatalog.Repository, tel observability.Observability) *Projector {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Projector{
		repo:   repo,
		log:    tel.Logger().With(observability.F("service", "catalog_projector")),
		tracer: tel.Tracer(),
		events: tel.Metrics().Counter(observability.MProjectionEvents),
	}
}

// Execute applies one snapshot. Only storage failures return an error;
// stale and unknown-product events are normal at-least-once noise.
func (p *Projector) Execute(ctx context.Context, e domstock.StockChangedEvent) (*ProjectionResult, error) {
	ctx, span := p.tracer.Start(ctx, "UC.Catalog.apply_stock",
		attribute.String("product.id", e.ProductID),
		attribute.Int64("stock.version", e.Version),
	)
	defer span.End()

	logger := logctx.FromOr(ctx, p.log).With(
		observability.F("use_case", "catalog.apply_stock"),
		observability.F("product_id", e.ProductID),
		observability.F("version", e.Version),
	)

	product, err := p.repo.Get(ctx, e.ProductID)
	if errors.Is(err, domcatalog.ErrNotFound) {
		p.count(observability.ProjectionOutcomeUnknownProduct)
		logger.Warn("stock_event_for_unknown_product")
		span.SetStatus(codes.Ok, "UNKNOWN_PRODUCT")
		return &ProjectionResult{Outcome: observability.ProjectionOutcomeUnknownProduct}, nil
	}
	if err != nil {
		p.count(observability.ProjectionOutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "LOOKUP_FAILED")
		return nil, fmt.Errorf("projector: get %s: %w", e.ProductID, err)
	}

	applied := product.ApplyInventory(domcatalog.InventorySnapshot{
		AvailableQuantity: e.AvailableQuantity,
		Status:            string(e.Status),
		InStock:           e.InStock,
		Version:           e.Version,
		ObservedAt:        observedAt(e),
	})
	if !applied {
		p.count(observability.ProjectionOutcomeStale)
		logger.Debug("stock_event_stale",
			observability.F("watermark", product.LastAppliedVersion),
		)
		span.SetStatus(codes.Ok, "STALE")
		return &ProjectionResult{Outcome: observability.ProjectionOutcomeStale, Product: product}, nil
	}

	if err := p.repo.Save(ctx, product); err != nil {
		p.count(observability.ProjectionOutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "SAVE_FAILED")
		return nil, fmt.Errorf("projector: save %s: %w", e.ProductID, err)
	}

	p.count(observability.ProjectionOutcomeApplied)
	logger.Info("stock_projection_applied",
		observability.F("available_quantity", product.AvailableQuantity),
		observability.F("status", product.InventoryStatus),
	)
	span.SetStatus(codes.Ok, "OK")
	return &ProjectionResult{Outcome: observability.ProjectionOutcomeApplied, Product: product}, nil
}

func (p *Projector) count(outcome string) {
	p.events.Add(1, observability.L("outcome", outcome))
}

func observedAt(e domstock.StockChangedEvent) time.Time {
	if e.OccurredAt.IsZero() {
		return time.Now().UTC()
	}
	return e.OccurredAt
}
