// FILE: logrelay/src/internal/transport/tcpserver.go
package transport

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

const (
	maxClientBufferSize = 10 * 1024 * 1024 // 10MB max per client
	maxLineLength       = 1 * 1024 * 1024  // 1MB max per line
)

// LineHandler receives the complete lines read from one connection in one read.
// It runs on the event loop; blocking in it stops reads on that loop.
type LineHandler func(remoteAddr string, lines [][]byte)

// TCPServer accepts newline-delimited traffic and hands complete lines to a handler
type TCPServer struct {
	gnet.BuiltinEventEngine

	address string
	handler LineHandler
	logger  *log.Logger

	engine   gnet.Engine
	engineMu sync.Mutex
	booted   chan struct{}
	done     chan error

	// Statistics
	activeConns  atomic.Int64
	totalLines   atomic.Uint64
	droppedConns atomic.Uint64
}

// NewTCPServer creates a line server for address (host:port)
func NewTCPServer(address string, handler LineHandler, logger *log.Logger) *TCPServer {
	return &TCPServer{
		address: address,
		handler: handler,
		logger:  logger,
		booted:  make(chan struct{}),
		done:    make(chan error, 1),
	}
}

// Start binds the listener. It returns once the engine has booted or failed.
func (s *TCPServer) Start() error {
	gnetLogger := compat.NewGnetAdapter(s.logger)

	go func() {
		s.done <- gnet.Run(s, "tcp://"+s.address,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(true),
		)
	}()

	select {
	case err := <-s.done:
		if err == nil {
			err = fmt.Errorf("tcp server on %s stopped before boot", s.address)
		}
		// Keep the result observable for Done
		s.done <- err
		return err
	case <-s.booted:
		s.logger.Info("msg", "TCP server started",
			"component", "tcp_server",
			"address", s.address)
		return nil
	}
}

// Done delivers the engine's exit result
func (s *TCPServer) Done() <-chan error {
	return s.done
}

// Stop shuts the engine down
func (s *TCPServer) Stop(ctx context.Context) error {
	s.engineMu.Lock()
	engine := s.engine
	s.engineMu.Unlock()

	return engine.Stop(ctx)
}

// GetStats returns server statistics
func (s *TCPServer) GetStats() map[string]any {
	return map[string]any{
		"address":            s.address,
		"active_connections": s.activeConns.Load(),
		"total_lines":        s.totalLines.Load(),
		"dropped_conns":      s.droppedConns.Load(),
	}
}

func (s *TCPServer) OnBoot(eng gnet.Engine) gnet.Action {
	// Store engine reference for shutdown
	s.engineMu.Lock()
	s.engine = eng
	s.engineMu.Unlock()

	close(s.booted)
	return gnet.None
}

func (s *TCPServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	c.SetContext(new(bytes.Buffer))
	newCount := s.activeConns.Add(1)
	s.logger.Debug("msg", "TCP connection opened",
		"component", "tcp_server",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", newCount)
	return nil, gnet.None
}

func (s *TCPServer) OnClose(c gnet.Conn, err error) gnet.Action {
	// Flush a final unterminated line
	if buf, ok := c.Context().(*bytes.Buffer); ok && buf.Len() > 0 {
		line := bytes.TrimRight(buf.Bytes(), "\r\n")
		if len(line) > 0 {
			s.totalLines.Add(1)
			s.handler(c.RemoteAddr().String(), [][]byte{append([]byte(nil), line...)})
		}
	}

	newCount := s.activeConns.Add(-1)
	s.logger.Debug("msg", "TCP connection closed",
		"component", "tcp_server",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", newCount,
		"error", err)
	return gnet.None
}

func (s *TCPServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, ok := c.Context().(*bytes.Buffer)
	if !ok {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		s.logger.Error("msg", "Error reading from connection",
			"component", "tcp_server",
			"error", err)
		return gnet.Close
	}

	if buf.Len()+len(data) > maxClientBufferSize {
		s.logger.Warn("msg", "Client buffer limit exceeded, closing connection",
			"component", "tcp_server",
			"remote_addr", c.RemoteAddr().String(),
			"buffer_size", buf.Len(),
			"incoming_size", len(data))
		s.droppedConns.Add(1)
		buf.Reset()
		return gnet.Close
	}
	buf.Write(data)

	var lines [][]byte
	for {
		line, err := buf.ReadBytes('\n')
		if err != nil {
			// Partial line, keep it for the next read
			if len(line) > maxLineLength {
				s.logger.Warn("msg", "Line too long without newline",
					"component", "tcp_server",
					"remote_addr", c.RemoteAddr().String(),
					"buffer_size", len(line))
				s.droppedConns.Add(1)
				buf.Reset()
				return gnet.Close
			}
			buf.Reset()
			buf.Write(line)
			break
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) > 0 {
		s.totalLines.Add(uint64(len(lines)))
		s.handler(c.RemoteAddr().String(), lines)
	}
	return gnet.None
}
