package memory

import (
	"context"
	"sync"

	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
)

// StockRepository is a process-local aggregate store with per-key
// compare-and-swap semantics, used for local runs and tests.
type StockRepository struct {
	mu    sync.Mutex
	items map[string]*domstock.Aggregate
	skus  map[string]string // sku -> product id
}

func NewStockRepository() *StockRepository {
	return &StockRepository{
		items: make(map[string]*domstock.Aggregate),
		skus:  make(map[string]string),
	}
}

func (r *StockRepository) Get(ctx context.Context, productID string) (*domstock.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.items[productID]
	if !ok {
		return nil, domstock.ErrNotFound
	}
	return agg.Clone(), nil
}

func (r *StockRepository) Create(ctx context.Context, a *domstock.Aggregate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[a.ProductID]; ok {
		return domstock.ErrAlreadyExists
	}
	if _, ok := r.skus[a.SKU]; ok {
		return domstock.ErrAlreadyExists
	}
	r.items[a.ProductID] = a.Clone()
	r.skus[a.SKU] = a.ProductID
	return nil
}

// Update persists the mutated aggregate only when the stored version still
// matches expectedVersion, holding the lock across the compare and the swap.
func (r *StockRepository) Update(ctx context.Context, a *domstock.Aggregate, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[a.ProductID]
	if !ok {
		return domstock.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domstock.ErrVersionConflict
	}
	r.items[a.ProductID] = a.Clone()
	return nil
}

func (r *StockRepository) ListBelow(ctx context.Context, threshold int) ([]*domstock.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domstock.Aggregate
	for _, agg := range r.items {
		if agg.AvailableQuantity <= threshold {
			out = append(out, agg.Clone())
		}
	}
	return out, nil
}
