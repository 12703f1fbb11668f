package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// OrderRequest is the engine-facing shape of an incoming client order,
// already decoded from the wire by internal/wire but not yet validated,
// stamped, or otherwise touched by the engine.
type OrderRequest struct {
	User     string
	ClientID string
	Side     models.Side
	Type     models.Type
	Quantity decimal.Decimal
	Price    *decimal.Decimal
}

// Response is the single response PlaceOrder returns for every request,
// success or failure, per spec section 6's wire response shape.
type Response struct {
	Accepted          bool
	OrderID           *uint64
	Trades            []models.Trade
	RemainingQuantity decimal.Decimal
	Timestamp         time.Time
	Message           string
}

func errorResponse(quantity decimal.Decimal, message string) Response {
	return Response{
		Accepted:          false,
		OrderID:           nil,
		Trades:            nil,
		RemainingQuantity: quantity,
		Timestamp:         time.Now(),
		Message:           message,
	}
}
