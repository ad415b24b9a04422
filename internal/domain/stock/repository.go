package stock

import "context"

// Repository persists aggregates with per-key optimistic concurrency. Update
// must compare against the caller-supplied version atomically and return
// ErrVersionConflict when another writer got there first.
type Repository interface {
	Get(ctx context.Context, productID string) (*Aggregate, error)
	// Create inserts a new aggregate; ErrAlreadyExists when the product id
	// or SKU is already registered.
	Create(ctx context.Context, a *Aggregate) error
	// Update persists a mutated aggregate only if the stored version still
	// equals expectedVersion.
	Update(ctx context.Context, a *Aggregate, expectedVersion int64) error
	// ListBelow returns aggregates whose available quantity is at or below
	// the given threshold, matching the low-stock status boundary.
	ListBelow(ctx context.Context, threshold int) ([]*Aggregate, error)
}
