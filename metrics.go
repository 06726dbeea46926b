package dali

// MetricsCollector receives per-request measurements from a Client.
//
// Implementations must be safe for concurrent use. See contrib/metrics/vm
// for a VictoriaMetrics-backed collector.
type MetricsCollector interface {
	// IncQueryTotal counts every request attempt.
	IncQueryTotal()

	// IncQueryError counts requests that returned an ExecutionError.
	IncQueryError()

	// ObserveQueryDuration records the request duration in seconds.
	ObserveQueryDuration(seconds float64)
}

// nopMetrics is the default collector; it discards everything.
type nopMetrics struct{}

var _ MetricsCollector = nopMetrics{}

func (nopMetrics) IncQueryTotal()                 {}
func (nopMetrics) IncQueryError()                 {}
func (nopMetrics) ObserveQueryDuration(_ float64) {}
