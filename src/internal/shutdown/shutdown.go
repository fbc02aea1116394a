// FILE: logrelay/src/internal/shutdown/shutdown.go
package shutdown

import (
	"context"
	"sync/atomic"
)

// Signal is a one-shot, process-wide stop notification. Any number of
// goroutines may wait on it; firing it more than once has no extra effect.
type Signal struct {
	ctx    context.Context
	cancel context.CancelFunc
	fired  atomic.Bool
}

// New creates an unfired Signal
func New() *Signal {
	ctx, cancel := context.WithCancel(context.Background())
	return &Signal{ctx: ctx, cancel: cancel}
}

// Fire marks the signal and wakes every waiter
func (s *Signal) Fire() {
	s.fired.Store(true)
	s.cancel()
}

// Fired reports whether Fire has been called
func (s *Signal) Fired() bool {
	return s.fired.Load()
}

// Done is closed once the signal fires
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context returns a context cancelled when the signal fires
func (s *Signal) Context() context.Context {
	return s.ctx
}
