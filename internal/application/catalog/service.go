package catalog

import (
	"context"
	"fmt"
	"time"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	"github.com/minicommerce/stocksync/internal/domain/eventbus"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/minicommerce/stocksync/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	catalogService = "catalog-service"
	publishTimeout = 2 * time.Second
)

// CreateProductInput carries the caller-supplied product fields; the id is
// generated here.
type CreateProductInput struct {
	SKU  string
	Name string
}

// Service owns the catalog products and announces creations to the stock
// side. The cached inventory fields start UNSYNCED and are filled in by the
// projector once the first stock event arrives.
type Service struct {
	repo      domcatalog.Repository
	ids       IDGenerator
	publisher eventbus.Publisher

	log    observability.Logger
	tracer observability.Tracer
}

func NewService(repo domcatalog.Repository, ids IDGenerator, publisher eventbus.Publisher, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:      repo,
		ids:       ids,
		publisher: publisher,
		log:       tel.Logger().With(observability.F("service", catalogService)),
		tracer:    tel.Tracer(),
	}
}

// CreateProduct persists a new product and publishes product.created. A
// publish failure does not roll the product back; the stock aggregate stays
// missing until the event is re-sent out of band, so the error is surfaced.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (*domcatalog.Product, error) {
	ctx, span := s.tracer.Start(ctx, "UC.Catalog.create_product",
		attribute.String("product.sku", in.SKU),
	)
	defer span.End()

	product, err := domcatalog.NewProduct(s.ids.NewID(), in.SKU, in.Name)
	if err != nil {
		span.SetStatus(codes.Error, "INVALID_PRODUCT")
		return nil, err
	}

	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", "catalog.create_product"),
		observability.F("product_id", product.ID),
		observability.F("sku", product.SKU),
	)

	if err := s.repo.Create(ctx, product); err != nil {
		logger.Warn("product_create_failed", observability.F("error", err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "CREATE_FAILED")
		return nil, fmt.Errorf("catalog: create product: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	err = s.publisher.Publish(pubCtx, domcatalog.NewProductCreatedEvent(product))
	cancel()
	if err != nil {
		logger.Warn("product_created_event_not_published", observability.F("error", err.Error()))
		span.SetStatus(codes.Error, "EVENT_PUBLISH_FAILED")
		return product, fmt.Errorf("catalog: publish product.created: %w", err)
	}

	logger.Info("product_created")
	span.SetStatus(codes.Ok, "OK")
	return product, nil
}

// GetProduct returns the product with its cached inventory view.
func (s *Service) GetProduct(ctx context.Context, productID string) (*domcatalog.Product, error) {
	return s.repo.Get(ctx, productID)
}

// GetProductBySKU returns the product registered under the given SKU.
func (s *Service) GetProductBySKU(ctx context.Context, sku string) (*domcatalog.Product, error) {
	return s.repo.GetBySKU(ctx, sku)
}
