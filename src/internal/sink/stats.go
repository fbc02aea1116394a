// FILE: logrelay/src/internal/sink/stats.go
package sink

import (
	"sync/atomic"
	"time"
)

// counters holds the statistics shared by all sink kinds
type counters struct {
	startTime      time.Time
	totalProcessed atomic.Uint64
	totalFailed    atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

func newCounters() *counters {
	c := &counters{startTime: time.Now()}
	c.lastProcessed.Store(time.Time{})
	return c
}

func (c *counters) record(err error) {
	c.totalProcessed.Add(1)
	c.lastProcessed.Store(time.Now())
	if err != nil {
		c.totalFailed.Add(1)
	}
}

func (c *counters) stats(kind string, details map[string]any) SinkStats {
	lastProc, _ := c.lastProcessed.Load().(time.Time)
	return SinkStats{
		Type:           kind,
		TotalProcessed: c.totalProcessed.Load(),
		TotalFailed:    c.totalFailed.Load(),
		StartTime:      c.startTime,
		LastProcessed:  lastProc,
		Details:        details,
	}
}
