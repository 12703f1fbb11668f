package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// Matcher implements the price-time matching algorithm of spec section
// 4.2: a LIMIT order matches while the opposite best price still
// crosses it and rests any residual; a MARKET order consumes the
// opposite book unconditionally until it is filled or the book is
// empty, and is never rested.
type Matcher struct{}

// NewMatcher returns a ready-to-use Matcher. It carries no state of its
// own; all state lives in the OrderBook it is given.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match runs one incoming order against ob and returns the trades
// produced, in the order they executed. incoming is mutated in place:
// its RemainingQuantity and Status reflect the post-match state, and if
// it is a LIMIT order with quantity left over, Match rests it on the
// book before returning. Trade.TradeID is left zero; Engine assigns
// trade IDs so all ID issuance stays in one place.
func (m *Matcher) Match(ob *OrderBook, incoming *models.Order, now time.Time) []models.Trade {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	var trades []models.Trade
	switch incoming.Side {
	case models.SideBuy:
		trades = m.walk(ob, incoming, ob.bestAskLocked, now)
	case models.SideSell:
		trades = m.walk(ob, incoming, ob.bestBidLocked, now)
	}

	switch {
	case incoming.RemainingQuantity.IsZero():
		incoming.Status = models.StatusFilled
	case incoming.Type == models.TypeLimit:
		if incoming.RemainingQuantity.LessThan(incoming.OriginalQuantity) {
			incoming.Status = models.StatusPartiallyFilled
		}
		// Residual rests at the engine-assigned acceptance timestamp
		// already carried on incoming.Timestamp: priority reflects
		// arrival, not residual creation.
		_ = ob.addOrderLocked(incoming)
	default:
		// MARKET residual is discarded, never rested (spec 3, 4.2).
	}

	return trades
}

// walk repeatedly takes the best opposite-side resting order from
// bestFn and crosses it against incoming until incoming is filled, the
// opposite side is empty, or (for LIMIT incoming) the best price no
// longer crosses.
func (m *Matcher) walk(ob *OrderBook, incoming *models.Order, bestFn func() *models.Order, now time.Time) []models.Trade {
	var trades []models.Trade

	for !incoming.RemainingQuantity.IsZero() {
		resting := bestFn()
		if resting == nil {
			return trades
		}
		if !canCross(incoming, resting) {
			return trades
		}

		qty := incoming.RemainingQuantity
		if resting.RemainingQuantity.LessThan(qty) {
			qty = resting.RemainingQuantity
		}

		incoming.ApplyFill(qty)
		resting.ApplyFill(qty)

		trades = append(trades, newTrade(incoming, resting, qty, now))

		if resting.RemainingQuantity.IsZero() {
			ob.removeOrderLocked(resting)
		}
	}

	return trades
}

// canCross reports whether incoming can trade against resting.
// MARKET orders cross unconditionally; LIMIT orders require the
// incoming price to be at least as good as the resting price.
func canCross(incoming, resting *models.Order) bool {
	if incoming.Type == models.TypeMarket {
		return true
	}
	if incoming.Price == nil {
		return false
	}
	if incoming.Side == models.SideBuy {
		return incoming.Price.GreaterThanOrEqual(*resting.Price)
	}
	return incoming.Price.LessThanOrEqual(*resting.Price)
}

// newTrade builds a Trade priced at the resting order's price (price
// improvement: the taker never pays worse than the resting quote, and
// never better than what the maker offered).
func newTrade(incoming, resting *models.Order, qty decimal.Decimal, now time.Time) models.Trade {
	buyOrder, sellOrder := incoming, resting
	if incoming.Side == models.SideSell {
		buyOrder, sellOrder = resting, incoming
	}
	return models.Trade{
		BuyOrderID:   buyOrder.OrderID,
		SellOrderID:  sellOrder.OrderID,
		BuyClientID:  buyOrder.ClientID,
		SellClientID: sellOrder.ClientID,
		Price:        *resting.Price,
		Quantity:     qty,
		Timestamp:    now,
	}
}
