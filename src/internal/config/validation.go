// FILE: logrelay/src/internal/config/validation.go
package config

import (
	"fmt"
	"strings"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"
	"logrelay/src/internal/sink"

	lconfig "github.com/lixenwraith/config"
)

func (c *Config) validate() error {
	for name, lvl := range map[string]string{
		"terminal_log_lvl": c.TerminalLogLvl,
		"file_log_lvl":     c.FileLogLvl,
		"network_log_lvl":  c.NetworkLogLvl,
	} {
		if _, err := core.ParseLevel(lvl); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.FileLogs {
		if err := lconfig.NonEmpty(c.LogFilePath); err != nil {
			return fmt.Errorf("log_file_path: %w", err)
		}
	}

	if c.NetworkLogs {
		if err := sink.ValidateURL(c.NetworkEndpointURL); err != nil {
			return fmt.Errorf("network_endpoint_url: %w", err)
		}
		if _, err := c.NetworkFormat.parse(); err != nil {
			return fmt.Errorf("network_format: %w", err)
		}
	}

	if c.LogBufferSize < 0 {
		return fmt.Errorf("log_buffer_size cannot be negative: %d", c.LogBufferSize)
	}
	if c.HeartbeatIntervalS <= 0 {
		return fmt.Errorf("heartbeat_interval_s must be positive: %d", c.HeartbeatIntervalS)
	}

	if err := lconfig.NonEmpty(c.RelayListenAddress); err != nil {
		return fmt.Errorf("relay_listen_address: %w", err)
	}
	if err := sink.ValidateURL(c.RelayOutputURL); err != nil {
		return fmt.Errorf("relay_output_url: %w", err)
	}
	if _, err := c.RelayOutputFormat.parse(); err != nil {
		return fmt.Errorf("relay_output_format: %w", err)
	}
	if c.RelayActixWorkers < 1 {
		return fmt.Errorf("relay_actix_workers must be at least 1: %d", c.RelayActixWorkers)
	}
	for _, origin := range c.RelayCORSAllowedOrigins {
		if origin != "*" && !strings.Contains(origin, "://") {
			return fmt.Errorf("relay_cors_allowed_origins: %q is not an origin", origin)
		}
	}

	return nil
}

func (nf NetworkFormat) parse() (format.NetworkFormat, error) {
	return format.ParseNetworkFormat(nf.Type, nf.Field)
}
