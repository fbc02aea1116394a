// FILE: logrelay/src/internal/config/settings.go
package config

import (
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/heartbeat"
	"logrelay/src/internal/logging"
	"logrelay/src/internal/relay"
)

// Source returns the identity stamped on every record
func (c *Config) Source() core.Source {
	return core.Source{Machine: c.MachineName, Container: c.ContainerName}
}

// LoggerSettings maps the validated config onto logging.Settings
func (c *Config) LoggerSettings() (logging.Settings, error) {
	// Levels were checked by validate
	terminalLvl, _ := core.ParseLevel(c.TerminalLogLvl)
	fileLvl, _ := core.ParseLevel(c.FileLogLvl)
	networkLvl, _ := core.ParseLevel(c.NetworkLogLvl)

	s := logging.Settings{
		Terminal: logging.TerminalSettings{
			Enabled: c.TerminalLogs,
			Level:   terminalLvl,
		},
		File: logging.FileSettings{
			Enabled:    c.FileLogs,
			Level:      fileLvl,
			Path:       c.LogFilePath,
			MaxSizeMB:  c.LogFileMaxSizeMB,
			MaxBackups: c.LogFileMaxBackups,
			MaxAgeDays: c.LogFileMaxAgeDays,
			Compress:   c.LogFileCompress,
		},
		Network: logging.NetworkSettings{
			Enabled:     c.NetworkLogs,
			Level:       networkLvl,
			EndpointURL: c.NetworkEndpointURL,
			Timeout:     time.Duration(c.NetworkTimeoutMS) * time.Millisecond,
		},
		DebugExtra: c.DebugExtra,
		Async:      c.AsyncLogging,
		BufferSize: c.LogBufferSize,
		Source:     c.Source(),
	}

	if c.NetworkLogs {
		nf, err := c.NetworkFormat.parse()
		if err != nil {
			return logging.Settings{}, err
		}
		s.Network.Format = nf
	}
	return s, nil
}

// RelaySettings maps the validated config onto relay.Settings
func (c *Config) RelaySettings() (relay.Settings, error) {
	nf, err := c.RelayOutputFormat.parse()
	if err != nil {
		return relay.Settings{}, err
	}

	return relay.Settings{
		ListenAddress:      c.RelayListenAddress,
		OutputURL:          c.RelayOutputURL,
		OutputFormat:       nf,
		CORSAllowedOrigins: c.RelayCORSAllowedOrigins,
		Workers:            c.RelayActixWorkers,
		IngestPath:         c.RelayIngestPath,
		HealthPath:         c.RelayHealthPath,
		InputField:         c.RelayInputField,
		TCPListenAddress:   c.RelayTCPListenAddress,
		ForwardTimeout:     time.Duration(c.RelayForwardTimeoutMS) * time.Millisecond,
		MaxBodyBytes:       c.RelayMaxBodyBytes,
	}, nil
}

// HeartbeatConfig maps the heartbeat interval and source
func (c *Config) HeartbeatConfig() heartbeat.Config {
	return heartbeat.Config{
		Interval: time.Duration(c.HeartbeatIntervalS) * time.Second,
		Source:   c.Source(),
	}
}
