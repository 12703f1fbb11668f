package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// shutdownCheckInterval bounds how long Stop can take to notice the
// queue has drained: the writer loop re-checks the shutdown flag at
// most this often instead of blocking forever on an empty channel.
const shutdownCheckInterval = 500 * time.Millisecond

// DefaultQueueCapacity is used when a TradeWriter is constructed with a
// non-positive capacity.
const DefaultQueueCapacity = 1024

// record is the on-disk shape of one ledger line. It mirrors the wire
// Trade shape (spec section 6) rather than models.Trade directly so the
// ledger file stays a stable append-only format even if the in-memory
// Trade type grows fields later.
type record struct {
	TradeID      uint64          `json:"trade_id"`
	BuyOrderID   uint64          `json:"buy_order_id"`
	SellOrderID  uint64          `json:"sell_order_id"`
	BuyClientID  string          `json:"buy_client_id"`
	SellClientID string          `json:"sell_client_id"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Timestamp    float64         `json:"timestamp"`
}

func newRecord(t models.Trade) record {
	return record{
		TradeID:      t.TradeID,
		BuyOrderID:   t.BuyOrderID,
		SellOrderID:  t.SellOrderID,
		BuyClientID:  t.BuyClientID,
		SellClientID: t.SellClientID,
		Price:        t.Price,
		Quantity:     t.Quantity,
		Timestamp:    t.WireSeconds(),
	}
}

// TradeWriter is the engine's asynchronous, durable trade ledger. A
// single goroutine owns the underlying file; producers never block on
// disk I/O, only on a bounded channel send. This decouples ledger
// durability from the matching hot path, per spec section 4.3.
type TradeWriter struct {
	path     string
	queueCap int
	log      zerolog.Logger

	lifecycleMu sync.Mutex
	running     atomic.Bool
	shutdown    atomic.Bool

	queue   chan models.Trade
	pending sync.WaitGroup
	done    chan struct{}

	fileMu sync.Mutex
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// NewTradeWriter constructs a TradeWriter that appends to path. The
// writer is created in the stopped state; call Start before Enqueue.
func NewTradeWriter(path string, queueCap int, log zerolog.Logger) *TradeWriter {
	if queueCap <= 0 {
		queueCap = DefaultQueueCapacity
	}
	return &TradeWriter{
		path:     path,
		queueCap: queueCap,
		log:      log,
	}
}

// Start opens the ledger file for append and launches the writer
// goroutine. Idempotent: calling Start while already running is a
// no-op. If the file cannot be opened, the writer stays stopped and
// every Enqueue call will report ErrWriterNotRunning.
func (w *TradeWriter) Start() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.running.Load() {
		return
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("failed to open trade ledger")
		return
	}

	w.fileMu.Lock()
	w.file = file
	w.writer = bufio.NewWriter(file)
	w.enc = json.NewEncoder(w.writer)
	w.fileMu.Unlock()

	w.queue = make(chan models.Trade, w.queueCap)
	w.done = make(chan struct{})
	w.shutdown.Store(false)
	w.running.Store(true)

	go w.loop()
}

// Enqueue hands a trade to the writer goroutine. It never blocks on
// disk I/O: it either succeeds immediately, fails fast with
// ErrQueueFull when the bounded queue is saturated, or fails with
// ErrWriterNotRunning when the writer hasn't been started or has
// already been stopped. Per spec section 7 this is a soft error: the
// trade has already happened in the book regardless of whether it was
// durably logged.
func (w *TradeWriter) Enqueue(t models.Trade) error {
	if !w.running.Load() || w.shutdown.Load() {
		return ErrWriterNotRunning
	}

	w.pending.Add(1)
	select {
	case w.queue <- t:
		return nil
	default:
		w.pending.Done()
		return ErrQueueFull
	}
}

// Flush blocks until every trade enqueued before this call returns has
// been durably appended to the ledger file's buffer and flushed to the
// OS.
func (w *TradeWriter) Flush() {
	w.pending.Wait()
	w.flushBuffer()
}

// Stop signals the writer goroutine to drain and exit, then closes the
// ledger file. Idempotent, and safe to call even if Start was never
// called or failed to open the file.
func (w *TradeWriter) Stop() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if !w.running.Load() {
		return
	}

	w.shutdown.Store(true)
	<-w.done

	w.flushBuffer()

	w.fileMu.Lock()
	if err := w.file.Close(); err != nil {
		w.log.Error().Err(err).Msg("failed to close trade ledger")
	}
	w.fileMu.Unlock()

	w.running.Store(false)
}

// IsRunning reports whether the writer goroutine is active.
func (w *TradeWriter) IsRunning() bool {
	return w.running.Load()
}

// loop is the sole goroutine that ever touches the ledger file. It
// takes one trade at a time with a bounded wait; on each timeout it
// re-checks the shutdown flag and whether the queue has drained, and
// terminates only once both hold.
func (w *TradeWriter) loop() {
	defer close(w.done)

	ticker := time.NewTicker(shutdownCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case t := <-w.queue:
			w.appendTrade(t)
			w.pending.Done()
		case <-ticker.C:
			if w.shutdown.Load() && len(w.queue) == 0 {
				return
			}
		}
	}
}

func (w *TradeWriter) appendTrade(t models.Trade) {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	if err := w.enc.Encode(newRecord(t)); err != nil {
		w.log.Error().Err(err).Uint64("trade_id", t.TradeID).Msg("failed to append trade to ledger")
	}
}

func (w *TradeWriter) flushBuffer() {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	if w.writer == nil {
		return
	}
	if err := w.writer.Flush(); err != nil {
		w.log.Error().Err(err).Msg("failed to flush trade ledger")
	}
}
