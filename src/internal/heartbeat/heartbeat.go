// FILE: logrelay/src/internal/heartbeat/heartbeat.go
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"logrelay/src/internal/core"
)

const DefaultInterval = 12 * time.Hour

// Emitter receives heartbeat records
type Emitter interface {
	Log(level core.Level, msg string)
}

type Config struct {
	Interval time.Duration
	Source   core.Source
}

// Message is the heartbeat text for src. It is logged at ERROR so alerting
// on error records is exercised even when nothing is failing.
func Message(src core.Source) string {
	return fmt.Sprintf("%s - %s: HEARTBEAT - not a real error - HEARTBEAT", src.Machine, src.Container)
}

// Run emits a heartbeat every interval until ctx is done. The first heartbeat
// is emitted one full interval after start. Ticks that fall behind are
// skipped rather than replayed.
func Run(ctx context.Context, emitter Emitter, cfg Config) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	msg := Message(cfg.Source)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Both cases may be ready at once; shutdown wins
		if ctx.Err() != nil {
			return
		}

		emitter.Log(core.LevelError, msg)
		timer.Reset(interval)
	}
}
