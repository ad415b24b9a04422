package observability

const (
	// Stock side.
	MStockMutations        MetricKey = "stock_mutations_total"         // {operation, outcome}
	MStockMutationDuration MetricKey = "stock_mutation_duration_seconds" // {operation}
	MStockVersionConflicts MetricKey = "stock_version_conflicts_total" // {operation}

	// Event pipeline.
	MEventsPublished      MetricKey = "events_published_total"         // {event, outcome}
	MEventPublishDuration MetricKey = "event_publish_duration_seconds" // {event}

	// Catalog projection side.
	MProjectionEvents MetricKey = "projection_events_total" // {outcome}
)

// Label values for MProjectionEvents.
const (
	ProjectionOutcomeApplied        = "applied"
	ProjectionOutcomeStale          = "stale"
	ProjectionOutcomeUnknownProduct = "unknown_product"
	ProjectionOutcomeError          = "error"
)
