// FILE: logrelay/src/internal/format/plain.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"logrelay/src/internal/core"
)

// TimestampLayout is the timestamp layout of plain-text records
const TimestampLayout = time.RFC3339Nano

var messageEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

// sourceEscaper also escapes the source context delimiters
var sourceEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "/", `\/`, "]", `\]`)

// PlainFormatter renders records as:
//
//	<timestamp> <LEVEL> [<machine>/<container>] <message>
//
// Line breaks in the message are escaped so every record is exactly one line.
// Machine and container names additionally escape '/' and ']'.
type PlainFormatter struct {
	levelStyle func(core.Level, string) string
}

// PlainOption configures a PlainFormatter
type PlainOption func(*PlainFormatter)

// WithLevelStyle decorates the level token, e.g. with terminal colours
func WithLevelStyle(style func(core.Level, string) string) PlainOption {
	return func(f *PlainFormatter) {
		f.levelStyle = style
	}
}

// NewPlainFormatter creates a plain-text formatter
func NewPlainFormatter(opts ...PlainOption) *PlainFormatter {
	f := &PlainFormatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders the record as one newline-terminated line
func (f *PlainFormatter) Format(entry core.LogRecord) ([]byte, error) {
	level := entry.Level.String()
	if f.levelStyle != nil {
		level = f.levelStyle(entry.Level, level)
	}

	var buf bytes.Buffer
	buf.WriteString(entry.Time.UTC().Format(TimestampLayout))
	buf.WriteByte(' ')
	buf.WriteString(level)
	buf.WriteString(" [")
	buf.WriteString(sourceEscaper.Replace(entry.Source.Machine))
	buf.WriteByte('/')
	buf.WriteString(sourceEscaper.Replace(entry.Source.Container))
	buf.WriteString("] ")
	buf.WriteString(messageEscaper.Replace(entry.Message))
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// FormatBatch concatenates the lines of all records
func (f *PlainFormatter) FormatBatch(entries []core.LogRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := f.Format(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// Name returns the formatter name
func (f *PlainFormatter) Name() string {
	return "plain"
}

// ContentType returns the MIME type of plain-text output
func (f *PlainFormatter) ContentType() string {
	return "text/plain; charset=utf-8"
}

// ParsePlainText is the inverse of PlainFormatter.Format for unstyled output.
func ParsePlainText(line string) (core.LogRecord, error) {
	line = strings.TrimSuffix(line, "\n")

	ts, rest, ok := strings.Cut(line, " ")
	if !ok {
		return core.LogRecord{}, fmt.Errorf("missing timestamp separator")
	}
	t, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return core.LogRecord{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	levelName, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return core.LogRecord{}, fmt.Errorf("missing level separator")
	}
	level, err := core.ParseLevel(levelName)
	if err != nil {
		return core.LogRecord{}, err
	}

	if !strings.HasPrefix(rest, "[") {
		return core.LogRecord{}, fmt.Errorf("missing source context")
	}
	machine, container, message, err := cutSource(rest[1:])
	if err != nil {
		return core.LogRecord{}, err
	}

	message, err = unescape(message)
	if err != nil {
		return core.LogRecord{}, err
	}

	return core.LogRecord{
		Time:    t,
		Level:   level,
		Message: message,
		Source:  core.Source{Machine: machine, Container: container},
	}, nil
}

// cutSource splits "<machine>/<container>] <message>" on the first
// unescaped delimiters and unescapes both names
func cutSource(s string) (machine, container, message string, err error) {
	var fields [2]strings.Builder
	field := 0

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			if i+1 == len(s) {
				return "", "", "", fmt.Errorf("dangling escape in source context")
			}
			fields[field].WriteString(s[i : i+2])
			i++
		case c == '/' && field == 0:
			field = 1
		case c == ']':
			if field == 0 {
				return "", "", "", fmt.Errorf("source context must be machine/container")
			}
			if i+1 == len(s) || s[i+1] != ' ' {
				return "", "", "", fmt.Errorf("unterminated source context")
			}
			if machine, err = unescape(fields[0].String()); err != nil {
				return "", "", "", err
			}
			if container, err = unescape(fields[1].String()); err != nil {
				return "", "", "", err
			}
			return machine, container, s[i+2:], nil
		default:
			fields[field].WriteByte(c)
		}
	}
	return "", "", "", fmt.Errorf("unterminated source context")
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("dangling escape at end of message")
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '/', ']':
			b.WriteByte(s[i])
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}
