package engine

import (
	"errors"
	"fmt"
)

// ErrEngineNotRunning is returned when PlaceOrder is called before Start
// or after Stop.
var ErrEngineNotRunning = errors.New("engine: not running")

// ErrCorruptSnapshot is returned by OrderBook.Restore when the supplied
// state cannot be reconstructed into a valid book.
var ErrCorruptSnapshot = errors.New("engine: corrupt snapshot")

// ValidationError reports one or more problems with an incoming order
// request. It is never returned to callers as a bare Go error panic; the
// engine always renders it into the wire error-response shape.
type ValidationError struct {
	Missing []string
	Reasons []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 && len(e.Reasons) > 0 {
		return fmt.Sprintf("missing fields: %v; invalid request: %v", e.Missing, e.Reasons)
	}
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing fields: %v", e.Missing)
	}
	return fmt.Sprintf("invalid request: %v", e.Reasons)
}

func (e *ValidationError) add(reason string) {
	e.Reasons = append(e.Reasons, reason)
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Reasons) == 0
}
