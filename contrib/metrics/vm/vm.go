package vm

import (
	"io"
	"net/http"

	"github.com/VictoriaMetrics/metrics"

	"github.com/rickchristie/dali"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "dali"
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector registers its metrics with this set instead of
// creating and globally registering a new one. The caller is responsible for
// exposing the set.
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

var _ dali.MetricsCollector = (*Collector)(nil)

// Collector implements dali.MetricsCollector using VictoriaMetrics.
// All metrics are pre-created in New. Safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string

	queryTotal    *metrics.Counter
	queryErrors   *metrics.Counter
	queryDuration *metrics.Histogram
}

// New creates a new VictoriaMetrics-based metrics collector.
//
// Without WithMetricsSet the collector creates its own metrics.Set and
// registers it globally.
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "dali",
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.queryTotal = c.set.NewCounter(c.prefix + "_query_total")
	c.queryErrors = c.set.NewCounter(c.prefix + "_query_errors_total")
	c.queryDuration = c.set.NewHistogram(c.prefix + "_query_duration_seconds")

	return c
}

// Set returns the metrics set the collector registers with.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler exposes metrics in Prometheus text format.
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to w.
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// IncQueryTotal increments the request counter.
func (c *Collector) IncQueryTotal() {
	c.queryTotal.Inc()
}

// IncQueryError increments the failed request counter.
func (c *Collector) IncQueryError() {
	c.queryErrors.Inc()
}

// ObserveQueryDuration records a request duration in seconds.
func (c *Collector) ObserveQueryDuration(seconds float64) {
	c.queryDuration.Update(seconds)
}
