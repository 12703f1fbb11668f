package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

func incomingOrder(id uint64, side models.Side, orderType models.Type, price int64, qty int64, ts time.Time) *models.Order {
	q := decimal.NewFromInt(qty)
	o := &models.Order{
		OrderID:           id,
		ClientID:          "taker",
		Side:              side,
		Type:              orderType,
		OriginalQuantity:  q,
		RemainingQuantity: q,
		Timestamp:         ts,
		Status:            models.StatusNew,
	}
	if orderType == models.TypeLimit {
		p := decimal.NewFromInt(price)
		o.Price = &p
	}
	return o
}

// Scenario 1: SELL LIMIT qty=10 @100 ; then BUY LIMIT qty=10 @100.
func TestMatchExactFill(t *testing.T) {
	ob := NewOrderBook()
	m := NewMatcher()
	now := time.Now()

	sell := incomingOrder(1, models.SideSell, models.TypeLimit, 100, 10, now)
	m.Match(ob, sell, now)

	buy := incomingOrder(2, models.SideBuy, models.TypeLimit, 100, 10, now)
	trades := m.Match(ob, buy, now)

	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if !trades[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("trade quantity = %s, want 10", trades[0].Quantity)
	}
	if !trades[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("trade price = %s, want 100", trades[0].Price)
	}
	if buy.Status != models.StatusFilled {
		t.Errorf("buy status = %s, want FILLED", buy.Status)
	}
	if sell.Status != models.StatusFilled {
		t.Errorf("sell status = %s, want FILLED", sell.Status)
	}
	if ob.BestAsk() != nil {
		t.Errorf("expected empty ask side, got resting order %d", ob.BestAsk().OrderID)
	}
}

// Scenario 2: SELL LIMIT qty=10 @100 ; then BUY LIMIT qty=15 @100.
func TestMatchPartialFillRestsResidual(t *testing.T) {
	ob := NewOrderBook()
	m := NewMatcher()
	now := time.Now()

	sell := incomingOrder(1, models.SideSell, models.TypeLimit, 100, 10, now)
	m.Match(ob, sell, now)

	buy := incomingOrder(2, models.SideBuy, models.TypeLimit, 100, 15, now)
	trades := m.Match(ob, buy, now)

	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if buy.Status != models.StatusPartiallyFilled {
		t.Errorf("buy status = %s, want PARTIALLY_FILLED", buy.Status)
	}
	if !buy.RemainingQuantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("buy remaining = %s, want 5", buy.RemainingQuantity)
	}
	best := ob.BestBid()
	if best == nil || best.OrderID != buy.OrderID {
		t.Fatalf("expected residual buy order resting on book")
	}
}

// Scenario 3: SELL LIMIT qty=5 @100, SELL LIMIT qty=5 @101 ; then BUY
// LIMIT qty=8 @101.
func TestMatchWalksMultiplePriceLevels(t *testing.T) {
	ob := NewOrderBook()
	m := NewMatcher()
	now := time.Now()

	s1 := incomingOrder(1, models.SideSell, models.TypeLimit, 100, 5, now)
	m.Match(ob, s1, now)
	s2 := incomingOrder(2, models.SideSell, models.TypeLimit, 101, 5, now)
	m.Match(ob, s2, now)

	buy := incomingOrder(3, models.SideBuy, models.TypeLimit, 101, 8, now)
	trades := m.Match(ob, buy, now)

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if !trades[0].Price.Equal(decimal.NewFromInt(100)) || !trades[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("trade 0 = price %s qty %s, want price 100 qty 5", trades[0].Price, trades[0].Quantity)
	}
	if !trades[1].Price.Equal(decimal.NewFromInt(101)) || !trades[1].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("trade 1 = price %s qty %s, want price 101 qty 3", trades[1].Price, trades[1].Quantity)
	}
	best := ob.BestAsk()
	if best == nil || !best.RemainingQuantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected 2 remaining at the 101 level")
	}
}

// Scenario 4: SELL LIMIT qty=5 @100 ts=1, SELL LIMIT qty=5 @100 ts=2 ;
// then BUY MARKET qty=7.
func TestMatchMarketOrderRespectsTimePriorityAtSamePrice(t *testing.T) {
	ob := NewOrderBook()
	m := NewMatcher()
	t1 := time.Now()
	t2 := t1.Add(time.Millisecond)

	s1 := incomingOrder(1, models.SideSell, models.TypeLimit, 100, 5, t1)
	m.Match(ob, s1, t1)
	s2 := incomingOrder(2, models.SideSell, models.TypeLimit, 100, 5, t2)
	m.Match(ob, s2, t2)

	buy := incomingOrder(3, models.SideBuy, models.TypeMarket, 0, 7, t2)
	trades := m.Match(ob, buy, t2)

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].SellOrderID != 1 || !trades[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("trade 0 sell order = %d qty %s, want order 1 qty 5", trades[0].SellOrderID, trades[0].Quantity)
	}
	if trades[1].SellOrderID != 2 || !trades[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("trade 1 sell order = %d qty %s, want order 2 qty 2", trades[1].SellOrderID, trades[1].Quantity)
	}
	if buy.Status != models.StatusFilled {
		t.Errorf("market buy status = %s, want FILLED", buy.Status)
	}
}

// Scenario 5: BUY MARKET qty=10 with empty sell book never rests.
func TestMatchMarketOrderResidualIsDiscarded(t *testing.T) {
	ob := NewOrderBook()
	m := NewMatcher()
	now := time.Now()

	buy := incomingOrder(1, models.SideBuy, models.TypeMarket, 0, 10, now)
	trades := m.Match(ob, buy, now)

	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0", len(trades))
	}
	if !buy.RemainingQuantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("remaining = %s, want 10 (unfilled, not rested)", buy.RemainingQuantity)
	}
	if ob.BestBid() != nil {
		t.Errorf("market order must never rest on the book")
	}
}

func TestMatchPriceImprovementUsesRestingPrice(t *testing.T) {
	ob := NewOrderBook()
	m := NewMatcher()
	now := time.Now()

	sell := incomingOrder(1, models.SideSell, models.TypeLimit, 95, 10, now)
	m.Match(ob, sell, now)

	buy := incomingOrder(2, models.SideBuy, models.TypeLimit, 100, 10, now)
	trades := m.Match(ob, buy, now)

	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if !trades[0].Price.Equal(decimal.NewFromInt(95)) {
		t.Errorf("trade price = %s, want 95 (the resting order's price)", trades[0].Price)
	}
}
