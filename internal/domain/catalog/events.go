package catalog

import "time"

// ProductCreatedEvent announces a new catalog product so the stock side can
// seed its aggregate.
type ProductCreatedEvent struct {
	ProductID  string
	SKU        string
	Name       string
	OccurredAt time.Time
}

func (ProductCreatedEvent) EventName() string { return "product.created" }

func NewProductCreatedEvent(p *Product) ProductCreatedEvent {
	return ProductCreatedEvent{
		ProductID:  p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		OccurredAt: p.CreatedAt,
	}
}
