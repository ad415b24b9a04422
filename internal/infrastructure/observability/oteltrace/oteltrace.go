package oteltrace

import (
	"context"

	"github.com/minicommerce/stocksync/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New wraps the globally configured otel tracer. Without a registered
// TracerProvider spans are no-ops, which is the intended default for local
// runs.
func New(name string) observability.Tracer {
	if name == "" {
		name = "stocksync"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
