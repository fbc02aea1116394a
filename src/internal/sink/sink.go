// FILE: logrelay/src/internal/sink/sink.go
package sink

import (
	"fmt"
	"time"

	"logrelay/src/internal/core"
)

// Sink represents an output destination for log records
type Sink interface {
	// Name returns the sink kind: "terminal", "file" or "network"
	Name() string

	// Deliver attempts to write one record. Failures are returned as *DeliveryError.
	Deliver(entry core.LogRecord) error

	// Close releases the sink's resources
	Close() error

	// GetStats returns sink statistics
	GetStats() SinkStats
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type           string
	TotalProcessed uint64
	TotalFailed    uint64
	StartTime      time.Time
	LastProcessed  time.Time
	Details        map[string]any
}

// DeliveryError reports a failed delivery to one sink. It never affects other sinks.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s sink delivery failed: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
