// FILE: logrelay/src/internal/core/record.go
package core

import "time"

// Source identifies where a record was produced
type Source struct {
	Machine   string
	Container string
}

// LogRecord is a single log event. Records are passed by value and are not
// modified once built.
type LogRecord struct {
	Time    time.Time
	Level   Level
	Message string
	Source  Source
}

// NewRecord builds a record stamped with the current time
func NewRecord(level Level, message string, src Source) LogRecord {
	return LogRecord{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Source:  src,
	}
}
