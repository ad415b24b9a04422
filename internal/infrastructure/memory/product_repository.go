package memory

import (
	"context"
	"sync"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
)

// ProductRepository is a process-local catalog store for local runs and tests.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]*domcatalog.Product
	skus  map[string]string // sku -> product id
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		items: make(map[string]*domcatalog.Product),
		skus:  make(map[string]string),
	}
}

func (r *ProductRepository) Get(ctx context.Context, productID string) (*domcatalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[productID]
	if !ok {
		return nil, domcatalog.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*domcatalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.skus[sku]
	if !ok {
		return nil, domcatalog.ErrNotFound
	}
	return r.items[id].Clone(), nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domcatalog.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[p.ID]; ok {
		return domcatalog.ErrAlreadyExists
	}
	if _, ok := r.skus[p.SKU]; ok {
		return domcatalog.ErrAlreadyExists
	}
	r.items[p.ID] = p.Clone()
	r.skus[p.SKU] = p.ID
	return nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domcatalog.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[p.ID]; !ok {
		return domcatalog.ErrNotFound
	}
	r.items[p.ID] = p.Clone()
	return nil
}
