// Package model contains core data types for the project.
package model

// MetricType defines the type of a metric: timer or counter.
type MetricType string

const (
	Timer   MetricType = "ms" // Timer represents a measurement in milliseconds.
	Counter MetricType = "c"  // Counter represents an increment.
)

// KindMetric is the message discriminator carried in the __type field.
const KindMetric = "metric"

// DefaultAZ is used when the availability zone of a measurement is unknown.
const DefaultAZ = "default"

// Metric represents a single timestamped measurement pushed to the collector.
type Metric struct {
	Name        string     `json:"name"`                  // Dot-namespaced metric name.
	Value       *float64   `json:"value,omitempty"`       // Measurement, absent for failure counters.
	MetricType  MetricType `json:"metric_type"`           // Metric type: ms or c.
	Environment *string    `json:"environment,omitempty"` // Environment label.
	Zone        *string    `json:"zone,omitempty"`        // Zone label.
	AZ          string     `json:"az"`                    // Availability zone of the measured backend.
	Timestamp   string     `json:"timestamp"`             // ISO-8601 emission time.
	Kind        string     `json:"__type"`                // Always KindMetric.
}

// ValueOr returns the metric value or def when it is absent.
func (m Metric) ValueOr(def float64) float64 {
	if m.Value == nil {
		return def
	}
	return *m.Value
}
