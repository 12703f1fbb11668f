// Package wire implements the engine's network front door: newline-
// delimited JSON requests and responses over a plain TCP stream, per
// spec section 6. It owns only encode/decode and connection handling;
// all order semantics live in internal/engine.
package wire

import (
	"github.com/shopspring/decimal"

	"order-matching-engine/internal/engine"
	"order-matching-engine/internal/models"
)

// requestDTO is the on-the-wire shape of an incoming order. Unknown
// fields are ignored by encoding/json; missing required fields surface
// as zero values, which engine.validate reports as InvalidRequest.
type requestDTO struct {
	User      string           `json:"user"`
	ClientID  string           `json:"client_id"`
	Side      string           `json:"side"`
	OrderType string           `json:"order_type"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

func (r requestDTO) toOrderRequest() engine.OrderRequest {
	return engine.OrderRequest{
		User:     r.User,
		ClientID: r.ClientID,
		Side:     models.Side(r.Side),
		Type:     models.Type(r.OrderType),
		Quantity: r.Quantity,
		Price:    r.Price,
	}
}

// tradeDTO is the on-the-wire shape of a Trade, per spec section 6.
type tradeDTO struct {
	TradeID      uint64          `json:"trade_id"`
	BuyOrderID   uint64          `json:"buy_order_id"`
	SellOrderID  uint64          `json:"sell_order_id"`
	BuyClientID  string          `json:"buy_client_id"`
	SellClientID string          `json:"sell_client_id"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Timestamp    float64         `json:"timestamp"`
}

func newTradeDTO(t models.Trade) tradeDTO {
	return tradeDTO{
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

// responseDTO is the on-the-wire shape of exactly one response per
// request, per spec section 6.
type responseDTO struct {
	Accepted          bool             `json:"accepted"`
	OrderID           *uint64          `json:"order_id"`
	Trades            []tradeDTO       `json:"trades"`
	RemainingQuantity decimal.Decimal  `json:"remaining_quantity"`
	Timestamp         float64          `json:"timestamp"`
	Message           string           `json:"message"`
}

func newResponseDTO(r engine.Response) responseDTO {
	trades := make([]tradeDTO, len(r.Trades))
	for i, t := range r.Trades {
		trades[i] = newTradeDTO(t)
	}
	return responseDTO{
		Accepted:          r.Accepted,
		OrderID:           r.OrderID,
		Trades:            trades,
		RemainingQuantity: r.RemainingQuantity,
		Timestamp:         float64(r.Timestamp.UnixNano()) / 1e9,
		Message:           r.Message,
	}
}

// decodeErrorResponse is returned when a request line cannot be parsed
// as JSON at all: accepted=false, order_id=null, trades=[], quantity
// is unknowable so remaining_quantity echoes 0, per spec section 6.
func decodeErrorResponse(message string) responseDTO {
	return responseDTO{
		Accepted:          false,
		OrderID:           nil,
		Trades:            []tradeDTO{},
		RemainingQuantity: decimal.Zero,
		Message:           message,
	}
}
