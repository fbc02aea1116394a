// FILE: logrelay/src/internal/relay/errors.go
package relay

import "fmt"

// Error reports a relay failure that ends its run
type Error struct {
	// Op is "listen" or "serve"
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("relay %s on %s failed: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// State is the relay lifecycle position
type State int32

const (
	StateStarting State = iota
	StateListening
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
