// Package metrics defines the types and constants used for metric collection
// and reporting inside the emulator host.
package metrics

// Policy defines the aggregation policy for metric values. It determines how
// multiple values for the same metric are combined over a time window.
type Policy int

const (
	Policy_None      Policy = iota // No specific policy; the reporting system may use a default.
	Policy_Set                     // Instantaneous value; the last reported value wins.
	Policy_Sum                     // Cumulative value, summing all reported values.
	Policy_Stopwatch               // Timing metric, measuring event durations.
)

// Value represents a metric value as a float64.
type Value float64

// Dimension represents metric dimensions as key-value pairs, providing
// contextual information such as context name or sink name.
type Dimension map[string]string

// Metrics is the base interface for all metric types.
type Metrics interface {
	// Name returns the metric name
	Name() string
	// Group returns the metric group for categorization
	Group() string
	// Policy returns the aggregation policy for this metric
	Policy() Policy
}

// Group related constants, prefixed with Group.
const (
	// GroupHalcyon is the group name for halcyon host metrics.
	GroupHalcyon = "halcyon"
)

// Metric related constants
const (
	// NameLogEnqueuedTotal: total entries accepted onto the log queue by producers.
	// group:halcyon owner:logging
	NameLogEnqueuedTotal = "log_enqueued_total"

	// NameLogDrainedTotal: total entries consumed and written by the drain goroutine.
	// group:halcyon owner:logging
	NameLogDrainedTotal = "log_drained_total"

	// NameLogWriteErrorTotal: total context file writes that failed drain-side.
	// group:halcyon owner:logging
	NameLogWriteErrorTotal = "log_write_error_total"

	// NameLogQueueDepth: entries buffered in the log queue, sampled after each drain.
	// group:halcyon owner:logging
	NameLogQueueDepth = "log_queue_depth"

	// NameLogDrainWriteMS: time spent fanning one entry out to the sink and its context file.
	// group:halcyon owner:logging
	NameLogDrainWriteMS = "log_drain_write_ms"
)

// Dimension related definitions, must be prefixed with Dim.
const (
	// DimContext is the dimension for log context name.
	// group:halcyon
	DimContext = "context"
)
