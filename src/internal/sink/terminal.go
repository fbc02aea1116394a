// FILE: logrelay/src/internal/sink/terminal.go
package sink

import (
	"io"
	"os"
	"sync"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/charmbracelet/lipgloss"
	"github.com/lixenwraith/log"
	"golang.org/x/term"
)

var levelStyles = map[core.Level]lipgloss.Style{
	core.LevelTrace: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true),
	core.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	core.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	core.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	core.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// TerminalSink writes records to stdout, and error records to stderr
type TerminalSink struct {
	stdout    io.Writer
	stderr    io.Writer
	formatter *format.PlainFormatter
	logger    *log.Logger
	mu        sync.Mutex
	colored   bool

	*counters
}

// TerminalOption configures a TerminalSink
type TerminalOption func(*TerminalSink)

// WithWriters replaces the process stdout/stderr, disabling colour
func WithWriters(stdout, stderr io.Writer) TerminalOption {
	return func(s *TerminalSink) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// NewTerminalSink creates a terminal sink
func NewTerminalSink(logger *log.Logger, opts ...TerminalOption) *TerminalSink {
	s := &TerminalSink{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   logger,
		counters: newCounters(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.colored = isTerminal(s.stdout) && isTerminal(s.stderr)
	if s.colored {
		s.formatter = format.NewPlainFormatter(format.WithLevelStyle(styleLevel))
	} else {
		s.formatter = format.NewPlainFormatter()
	}

	logger.Debug("msg", "Terminal sink created",
		"component", "terminal_sink",
		"colored", s.colored)
	return s
}

func (s *TerminalSink) Name() string {
	return "terminal"
}

func (s *TerminalSink) Deliver(entry core.LogRecord) error {
	formatted, err := s.formatter.Format(entry)
	if err != nil {
		s.record(err)
		return &DeliveryError{Sink: s.Name(), Err: err}
	}

	out := s.stdout
	if entry.Level >= core.LevelError {
		out = s.stderr
	}

	s.mu.Lock()
	_, err = out.Write(formatted)
	s.mu.Unlock()

	s.record(err)
	if err != nil {
		return &DeliveryError{Sink: s.Name(), Err: err}
	}
	return nil
}

func (s *TerminalSink) Close() error {
	return nil
}

func (s *TerminalSink) GetStats() SinkStats {
	return s.stats(s.Name(), map[string]any{
		"colored": s.colored,
	})
}

func styleLevel(level core.Level, name string) string {
	style, ok := levelStyles[level]
	if !ok {
		return name
	}
	return style.Render(name)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
