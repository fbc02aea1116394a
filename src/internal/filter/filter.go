// FILE: logrelay/src/internal/filter/filter.go
package filter

import (
	"sync/atomic"

	"logrelay/src/internal/core"
)

// ShouldEmit reports whether a record at level passes a sink whose minimum is min
func ShouldEmit(level, min core.Level) bool {
	return level >= min
}

// Level applies a fixed minimum severity and keeps counters for sink statistics
type Level struct {
	min core.Level

	// Statistics
	totalProcessed atomic.Uint64
	totalDropped   atomic.Uint64
}

// NewLevel creates a severity filter with the given minimum
func NewLevel(min core.Level) *Level {
	return &Level{min: min}
}

// Apply checks if a record should be passed through
func (f *Level) Apply(entry core.LogRecord) bool {
	f.totalProcessed.Add(1)
	if ShouldEmit(entry.Level, f.min) {
		return true
	}
	f.totalDropped.Add(1)
	return false
}

// Minimum returns the configured minimum level
func (f *Level) Minimum() core.Level {
	return f.min
}

// GetStats returns filter statistics
func (f *Level) GetStats() map[string]any {
	return map[string]any{
		"minimum":         f.min.String(),
		"total_processed": f.totalProcessed.Load(),
		"total_dropped":   f.totalDropped.Load(),
	}
}
