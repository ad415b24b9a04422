package catalog

import "context"

// Repository persists catalog products. The projector is the only writer of
// the cached inventory fields, so Save does not need version arbitration;
// per-product event order is guaranteed by the transport.
type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	// Create inserts a new product; ErrAlreadyExists when the id or SKU is
	// already registered.
	Create(ctx context.Context, p *Product) error
	Save(ctx context.Context, p *Product) error
}
