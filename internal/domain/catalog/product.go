package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("catalog: product not found")
	ErrAlreadyExists = errors.New("catalog: product already exists")
	ErrInvalidName   = errors.New("catalog: product name is required")
	ErrInvalidSKU    = errors.New("catalog: product sku is required")
)

// SyncState tracks whether a product has received at least one inventory
// snapshot from the stock side.
type SyncState string

const (
	SyncStateUnsynced SyncState = "UNSYNCED"
	SyncStateSynced   SyncState = "SYNCED"
)

// Product is the catalog entry plus a denormalized, eventually-consistent
// copy of its stock state. The cached fields are owned exclusively by the
// projector; nothing else writes them.
type Product struct {
	ID   string
	SKU  string
	Name string

	AvailableQuantity  int
	InventoryStatus    string
	InStock            bool
	SyncState          SyncState
	LastAppliedVersion int64
	InventoryUpdatedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewProduct(id, sku, name string) (*Product, error) {
	if id == "" {
		return nil, errors.New("catalog: product id is required")
	}
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	now := time.Now().UTC()
	return &Product{
		ID:              id,
		SKU:             sku,
		Name:            name,
		InventoryStatus: "OUT_OF_STOCK",
		SyncState:       SyncStateUnsynced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// InventorySnapshot is the stock state carried by one inbound event.
type InventorySnapshot struct {
	AvailableQuantity int
	Status            string
	InStock           bool
	Version           int64
	ObservedAt        time.Time
}

// ApplyInventory overwrites the cached stock fields when the snapshot is
// strictly newer than the stored watermark. It reports whether the snapshot
// was applied; stale or duplicate snapshots leave the product untouched,
// which is what makes application idempotent under at-least-once delivery.
func (p *Product) ApplyInventory(snap InventorySnapshot) bool {
	if snap.Version <= p.LastAppliedVersion {
		return false
	}
	p.AvailableQuantity = snap.AvailableQuantity
	p.InventoryStatus = snap.Status
	p.InStock = snap.InStock
	p.LastAppliedVersion = snap.Version
	p.SyncState = SyncStateSynced
	p.InventoryUpdatedAt = snap.ObservedAt
	p.UpdatedAt = time.Now().UTC()
	return true
}

// Clone returns a copy detached from any store-held instance.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
