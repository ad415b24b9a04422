package stock

import "time"

// StockChangedEvent is emitted after every committed mutation of an
// aggregate. It carries a full snapshot rather than a delta so consumers can
// apply it idempotently with a version watermark.
type StockChangedEvent struct {
	ProductID         string
	SKU               string
	AvailableQuantity int
	Status            Status
	InStock           bool
	Version           int64
	OccurredAt        time.Time
}

func (StockChangedEvent) EventName() string { return "stock.changed" }

func NewStockChangedEvent(a *Aggregate) StockChangedEvent {
	return StockChangedEvent{
		ProductID:         a.ProductID,
		SKU:               a.SKU,
		AvailableQuantity: a.AvailableQuantity,
		Status:            a.Status,
		InStock:           a.InStock,
		Version:           a.Version,
		OccurredAt:        a.UpdatedAt,
	}
}
