package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents which book an order rests on.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type represents whether an order carries a limit price or matches at
// whatever price the book currently offers.
type Type string

const (
	TypeLimit  Type = "LIMIT"
	TypeMarket Type = "MARKET"
)

// Status tracks an order's fill lifecycle. Price, side, type, original
// quantity, timestamp and order ID never change after creation; only
// RemainingQuantity and Status move as fills are applied.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
)

// Order is the engine's value object for a single limit or market order.
// The book owns every resting Order; client_id is never used for
// identity, only order_id is.
type Order struct {
	OrderID           uint64          `json:"order_id"`
	ClientID          string          `json:"client_id"`
	User              string          `json:"user"`
	Side              Side            `json:"side"`
	Type              Type            `json:"order_type"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	OriginalQuantity  decimal.Decimal `json:"original_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Timestamp         time.Time       `json:"timestamp"`
	Status            Status          `json:"status"`
}

// ApplyFill reduces RemainingQuantity by qty and recomputes Status. It
// must be called for every fill applied to this order, on both the
// resting and the taker side of a trade.
func (o *Order) ApplyFill(qty decimal.Decimal) {
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	switch {
	case o.RemainingQuantity.IsZero():
		o.Status = StatusFilled
	case o.RemainingQuantity.LessThan(o.OriginalQuantity):
		o.Status = StatusPartiallyFilled
	default:
		o.Status = StatusNew
	}
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.RemainingQuantity.IsZero()
}

// IsActive reports whether the order can still be matched or rested.
func (o *Order) IsActive() bool {
	return !o.RemainingQuantity.IsZero() && o.Status != StatusCancelled
}

// Trade is a single execution record. Once created it is never mutated.
type Trade struct {
	TradeID      uint64          `json:"trade_id"`
	BuyOrderID   uint64          `json:"buy_order_id"`
	SellOrderID  uint64          `json:"sell_order_id"`
	BuyClientID  string          `json:"buy_client_id"`
	SellClientID string          `json:"sell_client_id"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Timestamp    time.Time       `json:"timestamp"`
}

// WireSeconds renders the trade's timestamp as float seconds since epoch,
// the representation spec section 6 uses on the wire and in the ledger.
func (t Trade) WireSeconds() float64 {
	return float64(t.Timestamp.UnixNano()) / 1e9
}
