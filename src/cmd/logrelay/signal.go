// FILE: logrelay/src/cmd/logrelay/signal.go
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/lixenwraith/log"
)

// SignalHandler turns termination signals into a relay stop
type SignalHandler struct {
	logger   *log.Logger
	sigChan  chan os.Signal
	stopOnce sync.Once
}

func NewSignalHandler(logger *log.Logger) *SignalHandler {
	sh := &SignalHandler{
		logger:  logger,
		sigChan: make(chan os.Signal, 1),
	}
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sh
}

// Handle blocks until a termination signal arrives or ctx is done.
// It returns nil in the latter case.
func (sh *SignalHandler) Handle(ctx context.Context) os.Signal {
	select {
	case sig, ok := <-sh.sigChan:
		if !ok {
			return nil
		}
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Stop detaches the handler from OS signals
func (sh *SignalHandler) Stop() {
	sh.stopOnce.Do(func() {
		signal.Stop(sh.sigChan)
		close(sh.sigChan)
	})
}
