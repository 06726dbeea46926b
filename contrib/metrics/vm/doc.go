// Package vm provides a VictoriaMetrics-based implementation of the
// dali.MetricsCollector interface.
//
// # Basic Usage
//
// Create a collector with default prefix "dali":
//
//	collector := vm.New()
//	client, _ := dali.NewClientBuilder().
//	    Metrics(collector).
//	    Build()
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("agentdb"))
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	router.Get("/metrics", collector.Handler)
//
// Or use WritePrometheus to write metrics to a custom writer.
//
// # Metrics Provided
//
//   - {prefix}_query_total - Counter of requests sent to the /sql endpoint
//   - {prefix}_query_errors_total - Counter of requests that failed
//   - {prefix}_query_duration_seconds - Histogram of request latencies
package vm
