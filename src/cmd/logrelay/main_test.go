// FILE: logrelay/src/cmd/logrelay/main_test.go
package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"
	"logrelay/src/internal/format"
	"logrelay/src/internal/logging"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRun_ExitRecord(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	tests := []struct {
		name      string
		addr      string
		stopAfter bool
		wantLevel core.Level
		wantText  string
	}{
		{
			name:      "listen failure",
			addr:      occupied.Addr().String(),
			wantLevel: core.LevelError,
			wantText:  `localhost - logrelay: EXITED WITH CONDITION: "Err()" ERROR:`,
		},
		{
			name:      "clean stop",
			addr:      freeAddr(t),
			stopAfter: true,
			wantLevel: core.LevelWarn,
			wantText:  `localhost - logrelay: EXITED WITH CONDITION: "Ok()" If this was not planned, is an error`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "relay.log")

			cfg := config.Defaults()
			cfg.TerminalLogs = false
			cfg.FileLogs = true
			cfg.FileLogLvl = "trace"
			cfg.LogFilePath = path
			cfg.HeartbeatIntervalS = 1
			cfg.RelayListenAddress = tt.addr
			cfg.RelayOutputURL = "http://127.0.0.1:9/"

			settings, err := cfg.LoggerSettings()
			require.NoError(t, err)
			diag := log.NewLogger()
			logger, err := logging.New(settings, diag)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				run(ctx, cfg, logger, diag)
			}()

			if tt.stopAfter {
				require.Eventually(t, func() bool {
					conn, err := net.Dial("tcp", tt.addr)
					if err != nil {
						return false
					}
					conn.Close()
					return true
				}, 2*time.Second, 10*time.Millisecond)
				cancel()
			}

			// run waits for the heartbeat goroutine before returning
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return")
			}
			require.NoError(t, logger.Shutdown(time.Second))

			data, err := os.ReadFile(path)
			require.NoError(t, err)

			var records []core.LogRecord
			for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
				rec, err := format.ParsePlainText(line)
				require.NoError(t, err, "line %q", line)
				records = append(records, rec)
			}

			require.Len(t, records, 1)
			assert.Equal(t, tt.wantLevel, records[0].Level)
			assert.Contains(t, records[0].Message, tt.wantText)
			assert.NotContains(t, records[0].Message, "HEARTBEAT")
		})
	}
}
