package catalog

// IDGenerator supplies identifiers for new products.
type IDGenerator interface {
	NewID() string
}
