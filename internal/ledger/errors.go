package ledger

import "errors"

// ErrWriterNotRunning is returned by Enqueue when the writer goroutine
// has not been started, or has already been stopped. The engine treats
// this as a soft error: the trade already happened in memory.
var ErrWriterNotRunning = errors.New("ledger: writer not running")

// ErrQueueFull is returned by Enqueue when the bounded trade queue has
// no free capacity. The caller is expected to log and move on; trade
// durability backpressure never blocks the matching actor.
var ErrQueueFull = errors.New("ledger: queue full")
