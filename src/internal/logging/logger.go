// FILE: logrelay/src/internal/logging/logger.go
package logging

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/filter"
	"logrelay/src/internal/sink"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

var initialized atomic.Bool

// route is one sink's independent delivery path
type route struct {
	sink   sink.Sink
	filter *filter.Level

	// queue is nil in synchronous mode
	queue chan core.LogRecord
	// mu serializes synchronous deliveries
	mu sync.Mutex

	dropped atomic.Uint64
}

// routeSpec pairs a sink with its minimum level
type routeSpec struct {
	sink sink.Sink
	min  core.Level
}

// Logger fans records out to the enabled sinks. It is built once at startup
// and shared by handle; its settings never change afterwards.
type Logger struct {
	settings Settings
	routes   []*route
	terminal *route
	diag     *log.Logger

	// limits sink-failure diagnostics so a dead sink cannot flood the terminal
	diagLimiter *rate.Limiter
	// limits queue-overflow warnings
	dropLimiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Init builds the process-wide Logger. Re-initialization is not supported:
// every call after a successful one returns ErrAlreadyInitialized.
func Init(settings Settings, diag *log.Logger) (*Logger, error) {
	if !initialized.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}

	l, err := New(settings, diag)
	if err != nil {
		initialized.Store(false)
		return nil, err
	}
	return l, nil
}

// New validates settings, opens the enabled sinks and returns a ready Logger.
func New(settings Settings, diag *log.Logger) (*Logger, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var specs []routeSpec
	closeAll := func() {
		for _, spec := range specs {
			spec.sink.Close()
		}
	}

	if settings.Terminal.Enabled {
		specs = append(specs, routeSpec{
			sink: sink.NewTerminalSink(diag),
			min:  settings.Terminal.Level,
		})
	}

	if settings.File.Enabled {
		fs, err := sink.NewFileSink(sink.FileOptions{
			Path:       settings.File.Path,
			MaxSizeMB:  settings.File.MaxSizeMB,
			MaxBackups: settings.File.MaxBackups,
			MaxAgeDays: settings.File.MaxAgeDays,
			Compress:   settings.File.Compress,
		}, diag)
		if err != nil {
			closeAll()
			return nil, &InitError{Component: "file", Err: err}
		}
		specs = append(specs, routeSpec{sink: fs, min: settings.File.Level})
	}

	if settings.Network.Enabled {
		ns, err := sink.NewNetworkSink(sink.NetworkOptions{
			URL:     settings.Network.EndpointURL,
			Format:  settings.Network.Format,
			Timeout: settings.Network.Timeout,
		}, diag)
		if err != nil {
			closeAll()
			return nil, &InitError{Component: "network", Err: err}
		}
		specs = append(specs, routeSpec{sink: ns, min: settings.Network.Level})
	}

	l := newLogger(settings, diag, specs)

	diag.Info("msg", "Logger initialized",
		"component", "logger",
		"sinks", len(l.routes),
		"async", settings.Async,
		"debug_extra", settings.DebugExtra)
	return l, nil
}

func newLogger(settings Settings, diag *log.Logger, specs []routeSpec) *Logger {
	if settings.BufferSize <= 0 {
		settings.BufferSize = DefaultBufferSize
	}

	l := &Logger{
		settings:    settings,
		diag:        diag,
		diagLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		dropLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}

	for _, spec := range specs {
		r := &route{
			sink:   spec.sink,
			filter: filter.NewLevel(spec.min),
		}
		if settings.Async {
			r.queue = make(chan core.LogRecord, settings.BufferSize)
			l.wg.Add(1)
			go l.processLoop(r)
		}
		if spec.sink.Name() == "terminal" {
			l.terminal = r
		}
		l.routes = append(l.routes, r)
	}
	return l
}

// Emit dispatches a fully built record to every sink whose minimum it meets
func (l *Logger) Emit(entry core.LogRecord) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	if l.settings.Async {
		for _, r := range l.routes {
			if r.filter.Apply(entry) {
				l.enqueue(r, entry)
			}
		}
		return
	}

	var matched []*route
	for _, r := range l.routes {
		if r.filter.Apply(entry) {
			matched = append(matched, r)
		}
	}

	switch len(matched) {
	case 0:
	case 1:
		l.deliverLocked(matched[0], entry)
	default:
		// Deliver concurrently so a slow sink does not hold back the others
		var wg sync.WaitGroup
		for _, r := range matched {
			wg.Add(1)
			go func(r *route) {
				defer wg.Done()
				l.deliverLocked(r, entry)
			}(r)
		}
		wg.Wait()
	}
}

// Log builds a record with the Logger's source context and emits it
func (l *Logger) Log(level core.Level, msg string) {
	l.Emit(core.NewRecord(level, msg, l.settings.Source))
}

func (l *Logger) Trace(msg string) { l.Log(core.LevelTrace, msg) }
func (l *Logger) Debug(msg string) { l.Log(core.LevelDebug, msg) }
func (l *Logger) Info(msg string)  { l.Log(core.LevelInfo, msg) }
func (l *Logger) Warn(msg string)  { l.Log(core.LevelWarn, msg) }
func (l *Logger) Error(msg string) { l.Log(core.LevelError, msg) }

func (l *Logger) Tracef(format string, args ...any) {
	l.Log(core.LevelTrace, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) {
	l.Log(core.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.Log(core.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.Log(core.LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Log(core.LevelError, fmt.Sprintf(format, args...))
}

// DebugX emits a DEBUG record only when extra debug output is enabled
func (l *Logger) DebugX(msg string) {
	if l.settings.DebugExtra {
		l.Log(core.LevelDebug, msg)
	}
}

// Source returns the source context stamped on records
func (l *Logger) Source() core.Source {
	return l.settings.Source
}

// Shutdown stops accepting records, drains the async queues and closes the sinks.
// Records still queued when the timeout expires are abandoned.
func (l *Logger) Shutdown(timeout time.Duration) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	for _, r := range l.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("logger shutdown timed out after %s", timeout)
	}

	var firstErr error
	for _, r := range l.routes {
		if err := r.sink.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s sink: %w", r.sink.Name(), err)
		}
	}
	return firstErr
}

// GetStats returns per-sink statistics
func (l *Logger) GetStats() map[string]any {
	sinks := make(map[string]any, len(l.routes))
	for _, r := range l.routes {
		stats := r.sink.GetStats()
		sinks[r.sink.Name()] = map[string]any{
			"total_processed": stats.TotalProcessed,
			"total_failed":    stats.TotalFailed,
			"last_processed":  stats.LastProcessed,
			"dropped":         r.dropped.Load(),
			"filter":          r.filter.GetStats(),
			"details":         stats.Details,
		}
	}
	return map[string]any{
		"async": l.settings.Async,
		"sinks": sinks,
	}
}

// enqueue hands a record to an async route without blocking the caller.
// Caller must hold l.mu for reading.
func (l *Logger) enqueue(r *route, entry core.LogRecord) {
	select {
	case r.queue <- entry:
	default:
		// Drop if sink buffer is full
		total := r.dropped.Add(1)
		if l.dropLimiter.Allow() {
			l.diag.Warn("msg", "Dropped log records - sink buffer full",
				"component", "logger",
				"sink", r.sink.Name(),
				"buffer_size", cap(r.queue),
				"total_dropped", total)
		}
	}
}

func (l *Logger) processLoop(r *route) {
	defer l.wg.Done()
	for entry := range r.queue {
		l.deliver(r, entry)
	}
}

func (l *Logger) deliverLocked(r *route, entry core.LogRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.deliver(r, entry)
}

func (l *Logger) deliver(r *route, entry core.LogRecord) {
	if err := r.sink.Deliver(entry); err != nil {
		var de *sink.DeliveryError
		if !errors.As(err, &de) {
			err = &sink.DeliveryError{Sink: r.sink.Name(), Err: err}
		}
		l.reportFailure(r, err)
	}
}

// reportFailure surfaces a delivery failure locally. It is never returned to the caller.
func (l *Logger) reportFailure(failed *route, err error) {
	if !l.diagLimiter.Allow() {
		return
	}

	l.diag.Warn("msg", "Sink delivery failed",
		"component", "logger",
		"sink", failed.sink.Name(),
		"error", err)

	// The terminal cannot report its own failures and never shows records
	// below its minimum; the diagnostics logger above still has the failure
	if l.terminal == nil || failed == l.terminal {
		return
	}

	notice := core.NewRecord(core.LevelWarn, err.Error(), l.settings.Source)
	if !l.terminal.filter.Apply(notice) {
		return
	}
	if l.terminal.queue != nil {
		// Delivery goroutines run without l.mu; the queue may already be closed
		l.mu.RLock()
		if !l.closed {
			l.enqueue(l.terminal, notice)
		}
		l.mu.RUnlock()
		return
	}
	l.deliverLocked(l.terminal, notice)
}
