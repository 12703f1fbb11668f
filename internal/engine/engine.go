package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// tradeSink is the subset of ledger.TradeWriter the engine depends on.
// Declaring it here (rather than importing the concrete type into every
// signature) keeps the matching actor testable with a fake.
type tradeSink interface {
	Start()
	Enqueue(models.Trade) error
	Flush()
	Stop()
	IsRunning() bool
}

// snapshotStore is the subset of store.OrderStore the engine depends on.
type snapshotStore interface {
	Save(orders []*models.Order) error
	Load() ([]*models.Order, error)
}

// job is one unit of work handed to the matching actor goroutine: match
// the already-built order, assign trade IDs, hand back the result. Running
// all of this on a single goroutine is what gives place_order its
// per-request atomicity and total order (spec section 5) without any
// locking inside the matching algorithm itself.
type job struct {
	order    *models.Order
	resultCh chan matchResult
}

// matchResult is what the matching actor hands back for one job. err is
// only ever set when the match itself panicked; it is never a business
// error (those are rejected by validate before a job is ever built).
type matchResult struct {
	trades []models.Trade
	err    error
}

// Engine is the matching engine orchestrator: lifecycle, validation,
// ID/timestamp assignment, response shaping and trade emission.
type Engine struct {
	book    *OrderBook
	matcher *Matcher
	writer  tradeSink
	store   snapshotStore
	log     zerolog.Logger

	orderIDs *idGenerator
	tradeIDs *idGenerator

	lifecycleMu sync.Mutex
	running     bool
	requestCh   chan job
	ctx         context.Context
	cancel      context.CancelFunc
	actorDone   sync.WaitGroup
}

// NewEngine constructs an Engine around the given book, trade writer and
// (optional) snapshot store. The engine is created in the Stopped state;
// call Start before PlaceOrder.
func NewEngine(book *OrderBook, writer tradeSink, store snapshotStore, log zerolog.Logger) *Engine {
	return &Engine{
		book:     book,
		matcher:  NewMatcher(),
		writer:   writer,
		store:    store,
		log:      log,
		orderIDs: newIDGenerator(),
		tradeIDs: newIDGenerator(),
	}
}

// Start transitions Stopped -> Running. Idempotent: calling Start while
// already running is a no-op. It launches the single matching actor
// goroutine, starts the trade writer, and best-effort restores any
// persisted order snapshot into the book.
func (e *Engine) Start() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if e.running {
		return
	}

	if e.store != nil {
		if orders, err := e.store.Load(); err != nil {
			e.log.Warn().Err(err).Msg("snapshot load failed, starting with an empty book")
		} else if len(orders) > 0 {
			if err := e.book.Restore(orders); err != nil {
				e.log.Warn().Err(err).Msg("snapshot restore failed, starting with an empty book")
			} else {
				e.log.Info().Int("orders", len(orders)).Msg("restored order book from snapshot")
			}
		}
	}

	e.writer.Start()

	e.requestCh = make(chan job)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.actorDone.Add(1)
	go e.runActor()

	e.running = true
	e.log.Info().Msg("engine started")
}

// Stop transitions Running -> Stopped. Idempotent, and safe to call even
// if Start was never called. It stops accepting new requests, flushes
// and stops the trade writer, and optionally snapshots the book.
func (e *Engine) Stop() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if !e.running {
		return
	}

	e.cancel()
	e.actorDone.Wait()

	e.writer.Flush()
	e.writer.Stop()

	if e.store != nil {
		if err := e.store.Save(e.book.Snapshot()); err != nil {
			e.log.Warn().Err(err).Msg("snapshot save failed")
		}
	}

	e.running = false
	e.log.Info().Msg("engine stopped")
}

// IsRunning reports whether the engine currently accepts orders.
func (e *Engine) IsRunning() bool {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	return e.running
}

// runActor is the sole goroutine that ever touches the order book. It
// never suspends mid-match: each job runs to completion before the next
// is taken off requestCh.
func (e *Engine) runActor() {
	defer e.actorDone.Done()
	for {
		select {
		case j := <-e.requestCh:
			j.resultCh <- e.runOneMatch(j.order)
		case <-e.ctx.Done():
			return
		}
	}
}

// runOneMatch runs exactly one job and recovers from a panic inside the
// matcher, so a single bad order can never take down the actor
// goroutine (and with it, every in-flight and future request). Grounds:
// the teacher's tx.Rollback()-under-recover pattern in engine.go,
// generalized from "roll back the DB transaction" to "reject this one
// order" since there is no longer a transaction to roll back.
func (e *Engine) runOneMatch(order *models.Order) (result matchResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Uint64("order_id", order.OrderID).Msg("matching actor recovered from panic")
			result = matchResult{err: fmt.Errorf("matching failed: %v", r)}
		}
	}()

	trades := e.matcher.Match(e.book, order, time.Now())
	for i := range trades {
		trades[i].TradeID = e.tradeIDs.Next()
	}
	return matchResult{trades: trades}
}

// PlaceOrder is the sole client-facing entry point: validate, stamp,
// match, emit trades, and shape exactly one response.
func (e *Engine) PlaceOrder(req OrderRequest) Response {
	e.lifecycleMu.Lock()
	running := e.running
	ctx := e.ctx
	requestCh := e.requestCh
	e.lifecycleMu.Unlock()

	if !running {
		return errorResponse(req.Quantity, ErrEngineNotRunning.Error())
	}

	if verr := validate(req); !verr.empty() {
		return errorResponse(req.Quantity, verr.Error())
	}

	order := &models.Order{
		OrderID:           e.orderIDs.Next(),
		ClientID:          req.ClientID,
		User:              req.User,
		Side:              req.Side,
		Type:              req.Type,
		Price:             req.Price,
		OriginalQuantity:  req.Quantity,
		RemainingQuantity: req.Quantity,
		Timestamp:         time.Now(),
		Status:            models.StatusNew,
	}

	resultCh := make(chan matchResult, 1)
	select {
	case requestCh <- job{order: order, resultCh: resultCh}:
	case <-ctx.Done():
		return errorResponse(req.Quantity, ErrEngineNotRunning.Error())
	}

	var result matchResult
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		return errorResponse(req.Quantity, ErrEngineNotRunning.Error())
	}

	if result.err != nil {
		return errorResponse(req.Quantity, result.err.Error())
	}
	trades := result.trades

	for _, t := range trades {
		if err := e.writer.Enqueue(t); err != nil {
			// spec section 7: a failed enqueue after stop is a soft
			// error. The trade already happened in memory; the client
			// still gets a success response.
			e.log.Warn().Err(err).Uint64("trade_id", t.TradeID).Msg("trade enqueue failed")
		}
	}

	orderID := order.OrderID
	return Response{
		Accepted:          true,
		OrderID:           &orderID,
		Trades:            trades,
		RemainingQuantity: order.RemainingQuantity,
		Timestamp:         time.Now(),
		Message:           executionMessage(trades, order.RemainingQuantity),
	}
}

func executionMessage(trades []models.Trade, remaining decimal.Decimal) string {
	if len(trades) == 0 {
		return "Order accepted and placed in order book"
	}
	if remaining.IsZero() {
		return "Order fully executed"
	}
	return "Order partially executed"
}

// TopLevels exposes read-only book introspection (aggregated top-N
// price levels). It is not part of the matching contract and may be
// called concurrently with PlaceOrder; OrderBook's own mutex protects
// it.
func (e *Engine) TopLevels(depth int) (bids []models.Order, asks []models.Order) {
	return e.book.TopLevels(depth)
}
