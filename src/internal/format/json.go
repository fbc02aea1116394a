// FILE: logrelay/src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"logrelay/src/internal/core"
)

// JSONFormatter produces one JSON object per record, the message stored under a configurable key.
type JSONFormatter struct {
	field string
}

// NewJSONFormatter creates a new JSON formatter for the given format.
func NewJSONFormatter(nf JSONText) (*JSONFormatter, error) {
	if _, err := NewJSONText(nf.Field); err != nil {
		return nil, err
	}
	return &JSONFormatter{field: nf.Field}, nil
}

// Format transforms a single LogRecord into a JSON byte slice.
func (f *JSONFormatter) Format(entry core.LogRecord) ([]byte, error) {
	result, err := f.marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(result, '\n'), nil
}

// FormatBatch transforms records into a single JSON array. Records that
// cannot be encoded are skipped; an error is returned only if none could be.
func (f *JSONFormatter) FormatBatch(entries []core.LogRecord) ([]byte, error) {
	batch := make([]json.RawMessage, 0, len(entries))

	var lastErr error
	for _, entry := range entries {
		formatted, err := f.marshal(entry)
		if err != nil {
			lastErr = err
			continue
		}
		batch = append(batch, formatted)
	}

	if len(batch) == 0 && lastErr != nil {
		return nil, lastErr
	}

	result, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON batch: %w", err)
	}
	return append(result, '\n'), nil
}

func (f *JSONFormatter) marshal(entry core.LogRecord) ([]byte, error) {
	// encoding/json silently replaces invalid UTF-8, so check up front
	if !utf8.ValidString(entry.Message) {
		return nil, fmt.Errorf("%w: message is not valid UTF-8", ErrEncoding)
	}
	if !utf8.ValidString(entry.Source.Machine) || !utf8.ValidString(entry.Source.Container) {
		return nil, fmt.Errorf("%w: source context is not valid UTF-8", ErrEncoding)
	}

	output := map[string]any{
		KeyTimestamp: entry.Time.UTC().Format(TimestampLayout),
		KeyLevel:     entry.Level.String(),
		KeyMachine:   entry.Source.Machine,
		KeyContainer: entry.Source.Container,
		f.field:      entry.Message,
	}

	result, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return result, nil
}

// Name returns the formatter's type name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// ContentType returns the MIME type of JSON output
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// Field returns the key the message is stored under
func (f *JSONFormatter) Field() string {
	return f.field
}
