package stock

// Status describes stock availability derived from the available quantity.
type Status string

const (
	StatusInStock    Status = "IN_STOCK"
	StatusLowStock   Status = "LOW_STOCK"
	StatusOutOfStock Status = "OUT_OF_STOCK"
)

// DefaultLowStockThreshold is the authoritative low-stock boundary. It can be
// overridden through configuration but there is a single value for the whole
// pipeline.
const DefaultLowStockThreshold = 5

// StatusFor derives the status from an available quantity: zero is out of
// stock, anything up to and including the threshold is low stock.
func StatusFor(available, lowStockThreshold int) Status {
	switch {
	case available <= 0:
		return StatusOutOfStock
	case available <= lowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// ParseStatus maps a wire name onto a Status, defaulting unknown names to
// out of stock rather than failing the consumer.
func ParseStatus(name string) Status {
	switch Status(name) {
	case StatusInStock, StatusLowStock, StatusOutOfStock:
		return Status(name)
	default:
		return StatusOutOfStock
	}
}
