// FILE: logrelay/src/internal/relay/relay.go
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"
	"logrelay/src/internal/pool"
	"logrelay/src/internal/transport"

	"github.com/klauspost/compress/zstd"
	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// Logger receives the relay's own records, such as forward failures
type Logger interface {
	Log(level core.Level, msg string)
}

// Relay accepts log submissions and forwards each one, reformatted, to a
// single upstream endpoint through a bounded worker pool.
type Relay struct {
	settings Settings
	logger   Logger
	diag     *log.Logger

	formatter format.Formatter
	client    *transport.Client
	pool      *pool.Pool
	cors      *corsPolicy
	parser    *payloadParser
	zstd      *zstd.Decoder

	server   *fasthttp.Server
	listener net.Listener
	tcp      *transport.TCPServer

	// lifetime bounds work started outside HTTP requests
	lifetime context.Context
	stop     context.CancelFunc

	state     atomic.Int32
	startTime time.Time
	mu        sync.Mutex

	// Statistics
	totalRequests     atomic.Uint64
	submissions       atomic.Uint64
	recordsReceived   atomic.Uint64
	rejectedCORS      atomic.Uint64
	rejectedMalformed atomic.Uint64
	rejectedOversized atomic.Uint64
	forwarded         atomic.Uint64
	forwardFailures   atomic.Uint64
	lastForward       atomic.Value // time.Time
}

// New validates settings and builds a relay in the Starting state
func New(settings Settings, logger Logger, diag *log.Logger) (*Relay, error) {
	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	formatter, err := format.New(settings.OutputFormat)
	if err != nil {
		return nil, err
	}

	workers, err := pool.New(settings.Workers)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(uint64(settings.MaxBodyBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	r := &Relay{
		settings:  settings,
		logger:    logger,
		diag:      diag,
		formatter: formatter,
		client:    transport.NewClient(settings.ForwardTimeout),
		pool:      workers,
		cors:      newCORSPolicy(settings.CORSAllowedOrigins),
		parser:    newPayloadParser(settings.InputField),
		zstd:      decoder,
		startTime: time.Now(),
	}
	r.lifetime, r.stop = context.WithCancel(context.Background())
	r.lastForward.Store(time.Time{})
	r.state.Store(int32(StateStarting))

	r.server = &fasthttp.Server{
		Name:               "logrelay",
		Handler:            r.requestHandler,
		MaxRequestBodySize: settings.MaxBodyBytes,
		CloseOnShutdown:    true,
		DisableKeepalive:   false,
	}

	return r, nil
}

// State returns the current lifecycle state
func (r *Relay) State() State {
	return State(r.state.Load())
}

// Addr returns the bound HTTP address, or nil before Listen succeeds
func (r *Relay) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen binds the HTTP listener and, when configured, the TCP listener.
// Bind failures are reported here rather than from Serve.
func (r *Relay) Listen() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != StateStarting {
		return &Error{Op: "listen", Addr: r.settings.ListenAddress, Err: fmt.Errorf("relay is %s", r.State())}
	}

	ln, err := net.Listen("tcp", r.settings.ListenAddress)
	if err != nil {
		r.state.Store(int32(StateFailed))
		return &Error{Op: "listen", Addr: r.settings.ListenAddress, Err: err}
	}

	if r.settings.TCPListenAddress != "" {
		tcp := transport.NewTCPServer(r.settings.TCPListenAddress, r.handleLines, r.diag)
		if err := tcp.Start(); err != nil {
			ln.Close()
			r.state.Store(int32(StateFailed))
			return &Error{Op: "listen", Addr: r.settings.TCPListenAddress, Err: err}
		}
		r.tcp = tcp
	}

	r.listener = ln
	r.state.Store(int32(StateListening))

	r.diag.Info("msg", "Relay listening",
		"component", "relay",
		"address", ln.Addr().String(),
		"tcp_address", r.settings.TCPListenAddress,
		"ingest_path", r.settings.IngestPath,
		"output_url", r.settings.OutputURL,
		"output_format", r.settings.OutputFormat.String(),
		"workers", r.settings.Workers)
	return nil
}

// Serve handles traffic until ctx is cancelled, which is a clean stop and
// returns nil, or until a listener fails, which returns an *Error.
func (r *Relay) Serve(ctx context.Context) error {
	r.mu.Lock()
	ln, tcp := r.listener, r.tcp
	r.mu.Unlock()

	if ln == nil || r.State() != StateListening {
		return &Error{Op: "serve", Addr: r.settings.ListenAddress, Err: errors.New("relay is not listening")}
	}
	defer r.stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- r.server.Serve(ln)
	}()

	var tcpDone <-chan error
	if tcp != nil {
		tcpDone = tcp.Done()
	}

	select {
	case <-ctx.Done():
		r.diag.Info("msg", "Relay stopping",
			"component", "relay",
			"address", ln.Addr().String())
		r.shutdown()
		<-serveErr
		r.state.Store(int32(StateStopped))
		return nil

	case err := <-serveErr:
		if err == nil {
			err = errors.New("listener closed")
		}
		r.shutdown()
		r.state.Store(int32(StateFailed))
		return &Error{Op: "serve", Addr: r.settings.ListenAddress, Err: err}

	case err := <-tcpDone:
		if err == nil {
			err = errors.New("tcp engine stopped")
		}
		// Engine already exited, only HTTP needs stopping
		r.mu.Lock()
		r.tcp = nil
		r.mu.Unlock()
		r.shutdown()
		<-serveErr
		r.state.Store(int32(StateFailed))
		return &Error{Op: "serve", Addr: r.settings.TCPListenAddress, Err: err}
	}
}

// Run binds and serves until ctx is cancelled or the relay fails
func (r *Relay) Run(ctx context.Context) error {
	if err := r.Listen(); err != nil {
		return err
	}
	return r.Serve(ctx)
}

func (r *Relay) shutdown() {
	// Releases TCP lines waiting for a pool slot
	r.stop()

	if err := r.server.Shutdown(); err != nil {
		r.diag.Error("msg", "Error shutting down relay server",
			"component", "relay",
			"error", err)
	}

	r.mu.Lock()
	tcp := r.tcp
	r.mu.Unlock()
	if tcp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tcp.Stop(ctx); err != nil {
			r.diag.Error("msg", "Error stopping relay TCP server",
				"component", "relay",
				"error", err)
		}
	}
}

// GetStats returns relay statistics
func (r *Relay) GetStats() map[string]any {
	lastForward, _ := r.lastForward.Load().(time.Time)

	stats := map[string]any{
		"state":              r.State().String(),
		"uptime_seconds":     int64(time.Since(r.startTime).Seconds()),
		"total_requests":     r.totalRequests.Load(),
		"submissions":        r.submissions.Load(),
		"records_received":   r.recordsReceived.Load(),
		"rejected_cors":      r.rejectedCORS.Load(),
		"rejected_malformed": r.rejectedMalformed.Load(),
		"rejected_oversized": r.rejectedOversized.Load(),
		"forwarded":          r.forwarded.Load(),
		"forward_failures":   r.forwardFailures.Load(),
		"last_forward":       lastForward,
		"output_format":      r.formatter.Name(),
		"pool":               r.pool.GetStats(),
	}

	r.mu.Lock()
	if r.tcp != nil {
		stats["tcp"] = r.tcp.GetStats()
	}
	r.mu.Unlock()
	return stats
}

// forward renders records and posts them upstream once a worker slot is free.
// It returns an error only when no slot could be obtained before ctx ended;
// upstream failures are logged and reported as forwarded=false.
func (r *Relay) forward(ctx context.Context, id string, records []core.LogRecord) (bool, error) {
	ran := false
	err := r.pool.Do(ctx, func() error {
		ran = true

		var body []byte
		var err error
		if len(records) == 1 {
			body, err = r.formatter.Format(records[0])
		} else {
			body, err = r.formatter.FormatBatch(records)
		}
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		return r.client.Post(r.settings.OutputURL, r.formatter.ContentType(), body)
	})

	if !ran {
		return false, err
	}
	if err != nil {
		r.forwardFailures.Add(1)
		r.logger.Log(core.LevelWarn, fmt.Sprintf("relay forward of submission %s (%d records) to %s failed: %v",
			id, len(records), r.settings.OutputURL, err))
		return false, nil
	}

	r.forwarded.Add(1)
	r.lastForward.Store(time.Now())
	return true, nil
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(body)
}
