// FILE: logrelay/src/internal/config/config.go
package config

// Config is the on-disk configuration. Keys keep the names of the original
// deployment files so existing config.toml files load unchanged.
type Config struct {
	// Terminal sink
	TerminalLogs   bool   `toml:"terminal_logs"`
	TerminalLogLvl string `toml:"terminal_log_lvl"`

	// Accepted for compatibility, no effect
	WasmLogging bool `toml:"wasm_logging"`

	// File sink
	FileLogs          bool   `toml:"file_logs"`
	FileLogLvl        string `toml:"file_log_lvl"`
	LogFilePath       string `toml:"log_file_path"`
	LogFileMaxSizeMB  int    `toml:"log_file_max_size_mb"`
	LogFileMaxBackups int    `toml:"log_file_max_backups"`
	LogFileMaxAgeDays int    `toml:"log_file_max_age_days"`
	LogFileCompress   bool   `toml:"log_file_compress"`

	// Network sink
	NetworkLogs        bool          `toml:"network_logs"`
	NetworkLogLvl      string        `toml:"network_log_lvl"`
	NetworkEndpointURL string        `toml:"network_endpoint_url"`
	NetworkFormat      NetworkFormat `toml:"network_format"`
	NetworkTimeoutMS   int64         `toml:"network_timeout_ms"`

	DebugExtra    bool `toml:"debug_extra"`
	AsyncLogging  bool `toml:"async_logging"`
	LogBufferSize int  `toml:"log_buffer_size"`

	MachineName   string `toml:"machine_name"`
	ContainerName string `toml:"container_name"`

	HeartbeatIntervalS int64 `toml:"heartbeat_interval_s"`

	// Relay
	RelayListenAddress      string        `toml:"relay_listen_address"`
	RelayOutputURL          string        `toml:"relay_output_url"`
	RelayOutputFormat       NetworkFormat `toml:"relay_output_format"`
	RelayCORSAllowedOrigins []string      `toml:"relay_cors_allowed_origins"`
	RelayActixWorkers       int           `toml:"relay_actix_workers"`
	RelayTCPListenAddress   string        `toml:"relay_tcp_listen_address"`
	RelayIngestPath         string        `toml:"relay_ingest_path"`
	RelayHealthPath         string        `toml:"relay_health_path"`
	RelayInputField         string        `toml:"relay_input_field"`
	RelayForwardTimeoutMS   int64         `toml:"relay_forward_timeout_ms"`
	RelayMaxBodyBytes       int           `toml:"relay_max_body_bytes"`
}

// NetworkFormat is the table form of a wire format:
// { type = "PlainText" } or { type = "JsonText", field = "msg" }
type NetworkFormat struct {
	Type  string `toml:"type"`
	Field string `toml:"field"`
}

func defaults() *Config {
	return &Config{
		TerminalLogs:   true,
		TerminalLogLvl: "info",

		FileLogs:          false,
		FileLogLvl:        "info",
		LogFilePath:       "./logs/logrelay.log",
		LogFileMaxSizeMB:  100,
		LogFileMaxBackups: 5,
		LogFileMaxAgeDays: 30,

		NetworkLogs:      false,
		NetworkLogLvl:    "warn",
		NetworkFormat:    NetworkFormat{Type: "PlainText"},
		NetworkTimeoutMS: 10000,

		AsyncLogging:  false,
		LogBufferSize: 1000,

		MachineName:   "localhost",
		ContainerName: "logrelay",

		HeartbeatIntervalS: 12 * 60 * 60,

		RelayListenAddress:    "0.0.0.0:8080",
		RelayOutputFormat:     NetworkFormat{Type: "PlainText"},
		RelayActixWorkers:     4,
		RelayIngestPath:       "/",
		RelayHealthPath:       "/health",
		RelayForwardTimeoutMS: 10000,
		RelayMaxBodyBytes:     4 * 1024 * 1024,
	}
}

// Defaults returns a copy of the built-in configuration
func Defaults() *Config {
	return defaults()
}
