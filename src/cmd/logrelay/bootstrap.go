// FILE: logrelay/src/cmd/logrelay/bootstrap.go
package main

import (
	"fmt"
	"time"

	"logrelay/src/internal/config"

	"github.com/lixenwraith/log"
)

// initializeDiagnostics sets up the process's own logger. It writes to stderr
// only, at DEBUG when debug_extra is set and WARN otherwise.
func initializeDiagnostics(cfg *config.Config) (*log.Logger, error) {
	level := log.LevelWarn
	if cfg.DebugExtra {
		level = log.LevelDebug
	}

	logger := log.NewLogger()
	if err := logger.InitWithDefaults(
		"disable_file=true",
		"enable_stdout=true",
		"stdout_target=stderr",
		fmt.Sprintf("level=%d", int(level)),
	); err != nil {
		return nil, err
	}
	return logger, nil
}

func shutdownDiagnostics(logger *log.Logger) {
	if err := logger.Shutdown(2 * time.Second); err != nil {
		// Best effort - can't log the shutdown error
		Error("Diagnostics shutdown error: %v\n", err)
	}
}
