// FILE: logrelay/src/internal/relay/ingest.go
package relay

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/valyala/fastjson"
)

var errEmptyPayload = errors.New("no log records in payload")

var parserPool fastjson.ParserPool

// payloadParser turns ingested bodies into records
type payloadParser struct {
	// messageKeys are tried in order
	messageKeys []string
	now         func() time.Time
}

func newPayloadParser(inputField string) *payloadParser {
	keys := make([]string, 0, 3)
	if inputField != "" {
		keys = append(keys, inputField)
	}
	for _, k := range []string{"message", "msg"} {
		if k != inputField {
			keys = append(keys, k)
		}
	}
	return &payloadParser{messageKeys: keys, now: time.Now}
}

// parse accepts a JSON object, a JSON array of objects, newline-delimited
// JSON objects, or plain-text lines. Plain lines in the rendered PlainText
// layout keep their level, time and source; other lines become INFO records.
func (pp *payloadParser) parse(body []byte) ([]core.LogRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errEmptyPayload
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	if looksLikeJSON(body) {
		v, err := p.ParseBytes(body)
		if err == nil {
			return pp.fromValue(v)
		}
		// A broken array is never a series of lines
		if body[0] == '[' {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		// Fall through to NDJSON
	}

	var records []core.LogRecord
	for i, line := range bytes.Split(body, []byte{'\n'}) {
		line = bytes.TrimRight(line, "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if looksLikeJSON(line) {
			v, err := p.ParseBytes(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			parsed, err := pp.fromValue(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			records = append(records, parsed...)
			continue
		}

		text := string(line)
		if rec, err := format.ParsePlainText(text); err == nil {
			records = append(records, rec)
			continue
		}
		records = append(records, core.LogRecord{
			Time:    pp.now(),
			Level:   core.LevelInfo,
			Message: text,
		})
	}

	if len(records) == 0 {
		return nil, errEmptyPayload
	}
	return records, nil
}

// looksLikeJSON reports whether b starts a JSON object or a JSON array.
// Plain lines such as "[INFO] started" do not.
func looksLikeJSON(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if b[0] == '{' {
		return true
	}
	if b[0] != '[' {
		return false
	}
	rest := bytes.TrimLeft(b[1:], " \t\r\n")
	if len(rest) == 0 {
		return true
	}
	switch rest[0] {
	case '{', '[', ']', '"':
		return true
	}
	return false
}

func (pp *payloadParser) fromValue(v *fastjson.Value) ([]core.LogRecord, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		rec, err := pp.fromObject(v)
		if err != nil {
			return nil, err
		}
		return []core.LogRecord{rec}, nil

	case fastjson.TypeArray:
		items, _ := v.Array()
		if len(items) == 0 {
			return nil, errEmptyPayload
		}
		records := make([]core.LogRecord, 0, len(items))
		for i, item := range items {
			if item.Type() != fastjson.TypeObject {
				return nil, fmt.Errorf("entry %d is not an object", i)
			}
			rec, err := pp.fromObject(item)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			records = append(records, rec)
		}
		return records, nil

	default:
		return nil, fmt.Errorf("unsupported JSON payload type: %s", v.Type())
	}
}

func (pp *payloadParser) fromObject(v *fastjson.Value) (core.LogRecord, error) {
	rec := core.LogRecord{Level: core.LevelInfo}

	found := false
	for _, key := range pp.messageKeys {
		field := v.Get(key)
		if field == nil {
			continue
		}
		if field.Type() != fastjson.TypeString {
			return rec, fmt.Errorf("field %q must be a string", key)
		}
		rec.Message = string(field.GetStringBytes())
		found = true
		break
	}
	if !found {
		return rec, fmt.Errorf("missing required field: one of %v", pp.messageKeys)
	}

	if s, ok, err := stringField(v, format.KeyLevel); err != nil {
		return rec, err
	} else if ok {
		level, err := core.ParseLevel(s)
		if err != nil {
			return rec, err
		}
		rec.Level = level
	}

	if s, ok, err := stringField(v, format.KeyTimestamp); err != nil {
		return rec, err
	} else if ok {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return rec, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		rec.Time = ts.UTC()
	} else {
		rec.Time = pp.now()
	}

	var err error
	if rec.Source.Machine, _, err = stringField(v, format.KeyMachine); err != nil {
		return rec, err
	}
	if rec.Source.Container, _, err = stringField(v, format.KeyContainer); err != nil {
		return rec, err
	}

	return rec, nil
}

// stringField returns the string value of key, whether it was present,
// and an error when it is present with another type
func stringField(v *fastjson.Value, key string) (string, bool, error) {
	field := v.Get(key)
	if field == nil || field.Type() == fastjson.TypeNull {
		return "", false, nil
	}
	if field.Type() != fastjson.TypeString {
		return "", false, fmt.Errorf("field %q must be a string", key)
	}
	return string(field.GetStringBytes()), true, nil
}
