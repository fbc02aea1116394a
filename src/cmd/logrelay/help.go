// FILE: logrelay/src/cmd/logrelay/help.go
package main

const helpText = `logrelay: a log forwarding relay with multi-sink logging.

Usage:
  logrelay [command]
  logrelay [--key=value ...]

Commands:
  init-config [path]       Write a default configuration (default: config.toml)
  version                  Display version information
  help                     Display this help message

Configuration:
  Settings are read from config.toml in the working directory, or from the
  file named by LOGRELAY_CONFIG_FILE. Every key can be overridden by an
  environment variable (LOGRELAY_<KEY>, e.g. LOGRELAY_RELAY_ACTIX_WORKERS=8)
  or a command line argument (--relay_actix_workers=8).

  Required:
    relay_output_url         Upstream collector that receives forwarded logs

  Common:
    relay_listen_address     HTTP ingest address (default: 0.0.0.0:8080)
    relay_output_format      { type = "PlainText" } or { type = "JsonText", field = "msg" }
    relay_cors_allowed_origins  Browser origins allowed to submit, "*" for any
    relay_actix_workers      Concurrent upstream forwards (default: 4)
    terminal_logs / file_logs / network_logs  Enable each log sink
    machine_name / container_name            Identity stamped on records

Signals:
  SIGINT, SIGTERM          Stop the relay and exit
`
