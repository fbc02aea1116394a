// FILE: logrelay/src/cmd/logrelay/output.go
package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Startup failures happen before any logger exists, so they go to stderr
// prefixed with the local time.
const timestampLayout = "2006-01-02 15:04:05"

// OutputHandler writes user-facing output outside the logging pipeline
type OutputHandler struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

var output *OutputHandler

func InitOutputHandler() {
	output = &OutputHandler{
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
}

func (o *OutputHandler) Print(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.stdout, format, args...)
}

func (o *OutputHandler) Error(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.stderr, format, args...)
}

// Timestamped writes one "<local time>: <message>" line to stderr
func (o *OutputHandler) Timestamped(format string, args ...any) {
	o.Error("%s: %s\n", o.now().Format(timestampLayout), fmt.Sprintf(format, args...))
}

// FatalError writes a timestamped line to stderr and exits with code
func (o *OutputHandler) FatalError(code int, format string, args ...any) {
	o.Timestamped(format, args...)
	os.Exit(code)
}

func Print(format string, args ...any) {
	if output != nil {
		output.Print(format, args...)
	}
}

func Error(format string, args ...any) {
	if output != nil {
		output.Error(format, args...)
	}
}

func FatalError(code int, format string, args ...any) {
	if output != nil {
		output.FatalError(code, format, args...)
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
