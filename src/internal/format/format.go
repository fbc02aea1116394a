// FILE: logrelay/src/internal/format/format.go
package format

import (
	"errors"
	"fmt"
	"strings"

	"logrelay/src/internal/core"
)

// ErrEncoding is returned when a record holds data the target encoding cannot represent
var ErrEncoding = errors.New("record cannot be encoded")

// Formatter defines the interface for transforming a LogRecord into a byte slice.
type Formatter interface {
	// Format takes a LogRecord and returns the formatted record as a byte slice.
	Format(entry core.LogRecord) ([]byte, error)

	// FormatBatch renders several records into one payload.
	FormatBatch(entries []core.LogRecord) ([]byte, error)

	// Name returns the formatter type name
	Name() string

	// ContentType returns the MIME type of the formatted output
	ContentType() string
}

// NetworkFormat selects the wire representation of records sent over the network.
// The variants are PlainText and JSONText; the unexported method keeps the set closed.
type NetworkFormat interface {
	networkFormat()
	String() string
}

// PlainText renders each record as a single text line
type PlainText struct{}

// JSONText renders each record as a JSON object with the message under Field
type JSONText struct {
	Field string
}

func (PlainText) networkFormat() {}
func (JSONText) networkFormat()  {}

func (PlainText) String() string  { return "PlainText" }
func (f JSONText) String() string { return fmt.Sprintf("JsonText{field=%s}", f.Field) }

// Keys written by the JSON formatter next to the message field
const (
	KeyTimestamp = "timestamp"
	KeyLevel     = "level"
	KeyMachine   = "machine"
	KeyContainer = "container"
)

var reservedKeys = map[string]bool{
	KeyTimestamp: true,
	KeyLevel:     true,
	KeyMachine:   true,
	KeyContainer: true,
}

// NewJSONText validates field and returns the JSONText format
func NewJSONText(field string) (JSONText, error) {
	if field == "" {
		return JSONText{}, fmt.Errorf("json message field cannot be empty")
	}
	if reservedKeys[field] {
		return JSONText{}, fmt.Errorf("json message field %q collides with a reserved key", field)
	}
	return JSONText{Field: field}, nil
}

// ParseNetworkFormat builds a NetworkFormat from its configuration name
func ParseNetworkFormat(kind, field string) (NetworkFormat, error) {
	switch strings.ToLower(kind) {
	case "plaintext", "plain", "text":
		return PlainText{}, nil
	case "jsontext", "json":
		return NewJSONText(field)
	default:
		return nil, fmt.Errorf("unknown network format type: %q", kind)
	}
}

// Validate checks the invariants of a NetworkFormat value
func Validate(nf NetworkFormat) error {
	switch f := nf.(type) {
	case PlainText:
		return nil
	case JSONText:
		_, err := NewJSONText(f.Field)
		return err
	default:
		return fmt.Errorf("unknown network format: %v", nf)
	}
}

// New creates a Formatter for the given NetworkFormat.
func New(nf NetworkFormat) (Formatter, error) {
	switch f := nf.(type) {
	case PlainText:
		return NewPlainFormatter(), nil
	case JSONText:
		return NewJSONFormatter(f)
	default:
		return nil, fmt.Errorf("unknown network format: %v", nf)
	}
}

// Render formats a single record in the given NetworkFormat
func Render(entry core.LogRecord, nf NetworkFormat) ([]byte, error) {
	formatter, err := New(nf)
	if err != nil {
		return nil, err
	}
	return formatter.Format(entry)
}
