// FILE: logrelay/src/internal/sink/file.go
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/lixenwraith/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the file sink
type FileOptions struct {
	Path string

	// Rotation, zero values keep the writer defaults
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// FileSink appends plain-text records to a file with size-based rotation
type FileSink struct {
	config    FileOptions
	writer    *lumberjack.Logger
	formatter *format.PlainFormatter
	logger    *log.Logger
	mu        sync.Mutex

	*counters
}

// NewFileSink creates a file sink, checking up front that the path is writable
func NewFileSink(opts FileOptions, logger *log.Logger) (*FileSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("file sink requires a log file path")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// The rotating writer opens lazily, so check the path now
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file is not writable: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close log file after open check: %w", err)
	}

	fs := &FileSink{
		config: opts,
		writer: &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		},
		formatter: format.NewPlainFormatter(),
		logger:    logger,
		counters:  newCounters(),
	}

	logger.Debug("msg", "File sink created",
		"component", "file_sink",
		"path", opts.Path,
		"max_size_mb", opts.MaxSizeMB)
	return fs, nil
}

func (fs *FileSink) Name() string {
	return "file"
}

func (fs *FileSink) Deliver(entry core.LogRecord) error {
	formatted, err := fs.formatter.Format(entry)
	if err != nil {
		fs.record(err)
		return &DeliveryError{Sink: fs.Name(), Err: err}
	}

	fs.mu.Lock()
	_, err = fs.writer.Write(formatted)
	fs.mu.Unlock()

	fs.record(err)
	if err != nil {
		return &DeliveryError{Sink: fs.Name(), Err: err}
	}
	return nil
}

func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writer.Close()
}

func (fs *FileSink) GetStats() SinkStats {
	return fs.stats(fs.Name(), map[string]any{
		"path": fs.config.Path,
	})
}
