// FILE: logrelay/src/cmd/logrelay/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/heartbeat"
	"logrelay/src/internal/logging"
	"logrelay/src/internal/relay"
	"logrelay/src/internal/shutdown"
	"logrelay/src/internal/version"

	"github.com/lixenwraith/log"
)

func main() {
	InitOutputHandler()

	// Subcommands exit on their own
	NewCommandRouter().Route(os.Args)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		FatalError(1, "%v", err)
	}

	diag, err := initializeDiagnostics(cfg)
	if err != nil {
		FatalError(1, "failed to initialize diagnostics: %v", err)
	}

	settings, err := cfg.LoggerSettings()
	if err != nil {
		FatalError(1, "%v", err)
	}

	logger, err := logging.Init(settings, diag)
	if err != nil {
		FatalError(1, "%v", err)
	}

	diag.Info("msg", "logrelay starting",
		"version", version.String(),
		"config_file", config.GetConfigPath(),
		"machine", cfg.MachineName,
		"container", cfg.ContainerName)

	run(context.Background(), cfg, logger, diag)

	if err := logger.Shutdown(2 * time.Second); err != nil {
		Error("Logger shutdown error: %v\n", err)
	}
	shutdownDiagnostics(diag)
}

// run drives the relay to completion. The relay's result is the only thing
// that fires the shutdown signal, and run returns only after the heartbeat
// has stopped.
func run(parent context.Context, cfg *config.Config, logger *logging.Logger, diag *log.Logger) {
	sig := shutdown.New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeat.Run(sig.Context(), logger, cfg.HeartbeatConfig())
	}()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	handler := NewSignalHandler(diag)
	go func() {
		if s := handler.Handle(ctx); s != nil {
			diag.Info("msg", "Shutdown signal received, stopping relay", "signal", s)
			cancel()
		}
	}()

	err := runRelay(ctx, cfg, logger, diag)
	sig.Fire()
	handler.Stop()

	src := cfg.Source()
	if err == nil {
		logger.Warn(fmt.Sprintf("%s - %s: EXITED WITH CONDITION: \"Ok()\" If this was not planned, is an error",
			src.Machine, src.Container))
	} else {
		logger.Error(fmt.Sprintf("%s - %s: EXITED WITH CONDITION: \"Err()\" ERROR: %v",
			src.Machine, src.Container, err))
	}

	wg.Wait()
}

func runRelay(ctx context.Context, cfg *config.Config, logger *logging.Logger, diag *log.Logger) error {
	settings, err := cfg.RelaySettings()
	if err != nil {
		return err
	}

	r, err := relay.New(settings, logger, diag)
	if err != nil {
		return err
	}
	return r.Run(ctx)
}
