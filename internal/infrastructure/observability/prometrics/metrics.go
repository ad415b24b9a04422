package prometrics

import (
	"sync"

	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}

type provider struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	namespace  string
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// New registers the pipeline's instruments against the given registerer and
// exposes them behind the observability.Metrics port. Unknown keys resolve to
// no-op instruments so callers never have to nil-check.
func New(namespace string, registerer prometheus.Registerer) observability.Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	p := &provider{
		registerer: registerer,
		namespace:  namespace,
		counters:   make(map[observability.MetricKey]observability.Counter),
		histograms: make(map[observability.MetricKey]observability.Histogram),
	}

	p.counter(observability.MStockMutations,
		"Total stock mutation attempts by operation and outcome.",
		"operation", "outcome")
	p.counter(observability.MStockVersionConflicts,
		"Optimistic-concurrency conflicts observed while persisting stock mutations.",
		"operation")
	p.counter(observability.MEventsPublished,
		"Events handed to the transport by event name and outcome.",
		"event", "outcome")
	p.counter(observability.MProjectionEvents,
		"Inbound inventory events by projection outcome.",
		"outcome")

	p.histogram(observability.MStockMutationDuration,
		"Duration of stock mutations in seconds.",
		prometheus.DefBuckets, "operation")
	p.histogram(observability.MEventPublishDuration,
		"Duration of event publishes in seconds.",
		prometheus.DefBuckets, "event")

	return p
}

func (p *provider) counter(key observability.MetricKey, help string, labelKeys ...string) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace, Name: string(key), Help: help,
	}, labelKeys)
	p.registerer.MustRegister(cv)
	p.counters[key] = &counter{v: cv}
}

func (p *provider) histogram(key observability.MetricKey, help string, buckets []float64, labelKeys ...string) {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: p.namespace, Name: string(key), Help: help, Buckets: buckets,
	}, labelKeys)
	p.registerer.MustRegister(hv)
	p.histograms[key] = &histogram{v: hv}
}

func (p *provider) Counter(name observability.MetricKey) observability.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	return observability.NopMetrics().Counter(name)
}

func (p *provider) Histogram(name observability.MetricKey) observability.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	return observability.NopMetrics().Histogram(name)
}
