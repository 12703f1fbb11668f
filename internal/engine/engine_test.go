package engine

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"order-matching-engine/internal/models"
)

var errWriterStub = errors.New("fake writer stopped")

// fakeSink is a minimal tradeSink that records what it's told, without
// touching disk, so engine tests can run independently of internal/ledger.
type fakeSink struct {
	started bool
	trades  []models.Trade
	running bool
	failing bool
}

func (f *fakeSink) Start()      { f.started = true; f.running = true }
func (f *fakeSink) Flush()      {}
func (f *fakeSink) Stop()       { f.running = false }
func (f *fakeSink) IsRunning() bool { return f.running }
func (f *fakeSink) Enqueue(t models.Trade) error {
	if f.failing {
		return errWriterStub
	}
	f.trades = append(f.trades, t)
	return nil
}

type fakeStore struct {
	saved   []*models.Order
	loadErr error
	saveErr error
}

func (s *fakeStore) Save(orders []*models.Order) error {
	s.saved = orders
	return s.saveErr
}
func (s *fakeStore) Load() ([]*models.Order, error) {
	return s.saved, s.loadErr
}

func newTestEngine() (*Engine, *fakeSink) {
	sink := &fakeSink{}
	eng := NewEngine(NewOrderBook(), sink, nil, zerolog.Nop())
	return eng, sink
}

func limitRequest(side models.Side, price, qty int64) OrderRequest {
	p := decimal.NewFromInt(price)
	return OrderRequest{
		User:     "alice",
		ClientID: "c1",
		Side:     side,
		Type:     models.TypeLimit,
		Quantity: decimal.NewFromInt(qty),
		Price:    &p,
	}
}

func TestEnginePlaceOrderBeforeStartIsRejected(t *testing.T) {
	eng, _ := newTestEngine()
	resp := eng.PlaceOrder(limitRequest(models.SideBuy, 100, 10))
	require.False(t, resp.Accepted)
}

func TestEngineStartStopIdempotent(t *testing.T) {
	eng, sink := newTestEngine()
	eng.Start()
	eng.Start()
	require.True(t, eng.IsRunning())
	require.True(t, sink.started)

	eng.Stop()
	eng.Stop()
	require.False(t, eng.IsRunning())
	require.False(t, sink.running)
}

func TestEnginePlaceOrderNoMatchRests(t *testing.T) {
	eng, _ := newTestEngine()
	eng.Start()
	defer eng.Stop()

	resp := eng.PlaceOrder(limitRequest(models.SideBuy, 100, 10))
	require.True(t, resp.Accepted)
	require.NotNil(t, resp.OrderID)
	require.Empty(t, resp.Trades)
	require.Equal(t, "Order accepted and placed in order book", resp.Message)
}

func TestEnginePlaceOrderFullMatch(t *testing.T) {
	eng, sink := newTestEngine()
	eng.Start()
	defer eng.Stop()

	eng.PlaceOrder(OrderRequest{
		User: "seller", ClientID: "s1", Side: models.SideSell,
		Type: models.TypeLimit, Quantity: decimal.NewFromInt(10), Price: priceOf(100),
	})
	resp := eng.PlaceOrder(OrderRequest{
		User: "buyer", ClientID: "b1", Side: models.SideBuy,
		Type: models.TypeLimit, Quantity: decimal.NewFromInt(10), Price: priceOf(100),
	})

	require.True(t, resp.Accepted)
	require.Len(t, resp.Trades, 1)
	require.Equal(t, "Order fully executed", resp.Message)
	require.True(t, resp.RemainingQuantity.IsZero())
	require.Len(t, sink.trades, 1)
}

func TestEnginePlaceOrderInvalidRequestReportsMissingFields(t *testing.T) {
	eng, _ := newTestEngine()
	eng.Start()
	defer eng.Stop()

	resp := eng.PlaceOrder(OrderRequest{
		User: "alice", ClientID: "c1", Side: models.SideBuy,
		Type: models.TypeLimit, Quantity: decimal.NewFromInt(10),
	})

	require.False(t, resp.Accepted)
	require.Nil(t, resp.OrderID)
	require.Contains(t, resp.Message, "price")
}

func TestEngineTradeEnqueueFailureIsSoftError(t *testing.T) {
	eng, sink := newTestEngine()
	eng.Start()
	defer eng.Stop()
	sink.failing = true

	eng.PlaceOrder(OrderRequest{
		User: "seller", ClientID: "s1", Side: models.SideSell,
		Type: models.TypeLimit, Quantity: decimal.NewFromInt(10), Price: priceOf(100),
	})
	resp := eng.PlaceOrder(OrderRequest{
		User: "buyer", ClientID: "b1", Side: models.SideBuy,
		Type: models.TypeLimit, Quantity: decimal.NewFromInt(10), Price: priceOf(100),
	})

	require.True(t, resp.Accepted, "a failed ledger enqueue must not fail the client response")
	require.Len(t, resp.Trades, 1)
}

func TestEngineStartRestoresSnapshotAndStopSavesIt(t *testing.T) {
	price := decimal.NewFromInt(100)
	qty := decimal.NewFromInt(10)
	seed := &models.Order{
		OrderID: 1, ClientID: "c1", Side: models.SideBuy, Type: models.TypeLimit,
		Price: &price, OriginalQuantity: qty, RemainingQuantity: qty, Status: models.StatusNew,
	}
	fs := &fakeStore{saved: []*models.Order{seed}}

	eng := NewEngine(NewOrderBook(), &fakeSink{}, fs, zerolog.Nop())
	eng.Start()

	best := eng.book.BestBid()
	require.NotNil(t, best)
	require.Equal(t, uint64(1), best.OrderID)

	eng.Stop()
	require.NotNil(t, fs.saved)
}

// TestEngineRecoversFromMatcherPanic forces a corrupt resting order
// (nil price, which AddOrder itself would refuse) directly into the
// book's internals to trigger a nil-pointer panic inside the matcher,
// then asserts the engine survives it: the request gets an error
// response and the actor keeps serving later requests.
func TestEngineRecoversFromMatcherPanic(t *testing.T) {
	eng, _ := newTestEngine()
	eng.Start()
	defer eng.Stop()

	corrupt := &models.Order{
		OrderID: 999, ClientID: "corrupt", Side: models.SideSell, Type: models.TypeLimit,
		Price: nil, OriginalQuantity: decimal.NewFromInt(1), RemainingQuantity: decimal.NewFromInt(1),
		Status: models.StatusNew,
	}
	price := decimal.NewFromInt(100)
	eng.book.asks[price.String()] = &PriceLevel{Price: price, Orders: []*models.Order{corrupt}}
	eng.book.askIndex.ReplaceOrInsert(askKey{price: price})

	resp := eng.PlaceOrder(limitRequest(models.SideBuy, 100, 1))
	require.False(t, resp.Accepted, "a panicking match must surface as an error response, not crash the engine")

	// the actor goroutine must still be alive and serving requests.
	resp2 := eng.PlaceOrder(limitRequest(models.SideBuy, 50, 1))
	require.True(t, resp2.Accepted)
}

func priceOf(v int64) *decimal.Decimal {
	p := decimal.NewFromInt(v)
	return &p
}
