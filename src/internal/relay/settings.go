// FILE: logrelay/src/internal/relay/settings.go
package relay

import (
	"fmt"
	"strings"
	"time"

	"logrelay/src/internal/format"
	"logrelay/src/internal/sink"
)

const (
	DefaultIngestPath     = "/"
	DefaultHealthPath     = "/health"
	DefaultForwardTimeout = 10 * time.Second
	DefaultMaxBodyBytes   = 4 * 1024 * 1024
)

// Settings configures one relay. It is read-only once the relay is built.
type Settings struct {
	ListenAddress      string
	OutputURL          string
	OutputFormat       format.NetworkFormat
	CORSAllowedOrigins []string
	Workers            int

	IngestPath string
	HealthPath string

	// InputField is an extra JSON key accepted as the message of ingested records
	InputField string

	// TCPListenAddress enables line-oriented ingest when set
	TCPListenAddress string

	ForwardTimeout time.Duration
	MaxBodyBytes   int
}

func (s *Settings) applyDefaults() {
	if s.IngestPath == "" {
		s.IngestPath = DefaultIngestPath
	}
	if s.HealthPath == "" {
		s.HealthPath = DefaultHealthPath
	}
	if s.ForwardTimeout <= 0 {
		s.ForwardTimeout = DefaultForwardTimeout
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Validate checks the settings after defaults are applied
func (s Settings) Validate() error {
	if s.ListenAddress == "" {
		return fmt.Errorf("relay listen address is required")
	}
	if err := sink.ValidateURL(s.OutputURL); err != nil {
		return fmt.Errorf("invalid relay output url: %w", err)
	}
	if err := format.Validate(s.OutputFormat); err != nil {
		return fmt.Errorf("invalid relay output format: %w", err)
	}
	if s.Workers < 1 {
		return fmt.Errorf("relay workers must be at least 1, got %d", s.Workers)
	}
	if !strings.HasPrefix(s.IngestPath, "/") {
		return fmt.Errorf("ingest path must start with '/': %s", s.IngestPath)
	}
	if !strings.HasPrefix(s.HealthPath, "/") {
		return fmt.Errorf("health path must start with '/': %s", s.HealthPath)
	}
	if s.IngestPath == s.HealthPath {
		return fmt.Errorf("ingest and health paths cannot both be %s", s.IngestPath)
	}
	return nil
}
