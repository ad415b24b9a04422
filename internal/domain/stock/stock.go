package stock

import (
	"errors"
	"time"
)

var (
	ErrNotFound             = errors.New("stock: aggregate not found")
	ErrAlreadyExists        = errors.New("stock: aggregate already exists")
	ErrInvalidQuantity      = errors.New("stock: quantity must be positive")
	ErrNegativeQuantity     = errors.New("stock: quantity must not be negative")
	ErrInsufficientStock    = errors.New("stock: insufficient available quantity")
	ErrInsufficientReserved = errors.New("stock: insufficient reserved quantity")
	ErrVersionConflict      = errors.New("stock: version conflict")
	ErrContention           = errors.New("stock: concurrent update retries exhausted")
	ErrPublishFailed        = errors.New("stock: event publish failed")
)

// Aggregate is the authoritative stock record for one product. All writes go
// through the reservation engine; Version increases on every committed
// mutation and backs both the optimistic persist and downstream recency
// checks.
type Aggregate struct {
	ProductID         string
	SKU               string
	AvailableQuantity int
	ReservedQuantity  int
	Status            Status
	InStock           bool
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewAggregate seeds the stock record created alongside a product: zero
// quantities, out of stock, version 1 (creation counts as the first
// committed mutation, so the initial event passes downstream watermarks).
func NewAggregate(productID, sku string) (*Aggregate, error) {
	if productID == "" {
		return nil, errors.New("stock: product id is required")
	}
	if sku == "" {
		return nil, errors.New("stock: sku is required")
	}
	now := time.Now().UTC()
	return &Aggregate{
		ProductID: productID,
		SKU:       sku,
		Status:    StatusOutOfStock,
		InStock:   false,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetAvailable overwrites the available quantity. Zero is allowed.
func (a *Aggregate) SetAvailable(qty int) error {
	if qty < 0 {
		return ErrNegativeQuantity
	}
	a.AvailableQuantity = qty
	return nil
}

func (a *Aggregate) Increment(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	a.AvailableQuantity += qty
	return nil
}

func (a *Aggregate) Decrement(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > a.AvailableQuantity {
		return ErrInsufficientStock
	}
	a.AvailableQuantity -= qty
	return nil
}

// Reserve moves quantity from available to reserved, pending fulfillment.
func (a *Aggregate) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > a.AvailableQuantity {
		return ErrInsufficientStock
	}
	a.AvailableQuantity -= qty
	a.ReservedQuantity += qty
	return nil
}

// Release moves quantity back from reserved to available.
func (a *Aggregate) Release(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > a.ReservedQuantity {
		return ErrInsufficientReserved
	}
	a.ReservedQuantity -= qty
	a.AvailableQuantity += qty
	return nil
}

// Commit finalizes a successful mutation: status and the in-stock flag are
// recomputed from the new available quantity and the version advances.
// Callers must invoke it exactly once per applied mutation, before persisting.
func (a *Aggregate) Commit(lowStockThreshold int) {
	a.Status = StatusFor(a.AvailableQuantity, lowStockThreshold)
	a.InStock = a.AvailableQuantity > 0
	a.Version++
	a.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy detached from any store-held instance.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}
