// FILE: logrelay/src/internal/logging/settings.go
package logging

import (
	"fmt"
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"
)

const DefaultBufferSize = 1000

// TerminalSettings configures the terminal sink
type TerminalSettings struct {
	Enabled bool
	Level   core.Level
}

// FileSettings configures the file sink
type FileSettings struct {
	Enabled bool
	Level   core.Level
	Path    string

	// Rotation, zero keeps the writer defaults
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NetworkSettings configures the network sink
type NetworkSettings struct {
	Enabled     bool
	Level       core.Level
	EndpointURL string
	Format      format.NetworkFormat
	Timeout     time.Duration
}

// Settings is the complete, read-only configuration of a Logger
type Settings struct {
	Terminal TerminalSettings
	File     FileSettings
	Network  NetworkSettings

	// DebugExtra enables DebugX records
	DebugExtra bool

	// Async hands records to per-sink queues instead of delivering inline
	Async bool

	// BufferSize is the per-sink queue length in async mode
	BufferSize int

	// Source is stamped on every record built by the Logger
	Source core.Source
}

// Validate checks settings that can be verified without touching resources
func (s Settings) Validate() error {
	if s.Terminal.Enabled && !s.Terminal.Level.Valid() {
		return &InitError{Component: "terminal", Err: fmt.Errorf("invalid level %d", s.Terminal.Level)}
	}
	if s.File.Enabled {
		if !s.File.Level.Valid() {
			return &InitError{Component: "file", Err: fmt.Errorf("invalid level %d", s.File.Level)}
		}
		if s.File.Path == "" {
			return &InitError{Component: "file", Err: fmt.Errorf("log file path is required")}
		}
	}
	if s.Network.Enabled {
		if !s.Network.Level.Valid() {
			return &InitError{Component: "network", Err: fmt.Errorf("invalid level %d", s.Network.Level)}
		}
		if err := format.Validate(s.Network.Format); err != nil {
			return &InitError{Component: "network", Err: err}
		}
	}
	if s.BufferSize < 0 {
		return &InitError{Component: "logger", Err: fmt.Errorf("buffer size cannot be negative: %d", s.BufferSize)}
	}
	return nil
}
