package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// PriceLevel is a FIFO queue of resting orders at a single price.
type PriceLevel struct {
	Price  decimal.Decimal
	Orders []*models.Order
}

// Add appends an order to the end of the price level (FIFO).
func (pl *PriceLevel) Add(order *models.Order) {
	pl.Orders = append(pl.Orders, order)
}

// Remove removes an order by ID, preserving FIFO order of the rest.
func (pl *PriceLevel) Remove(orderID uint64) bool {
	for i, order := range pl.Orders {
		if order.OrderID == orderID {
			pl.Orders = append(pl.Orders[:i], pl.Orders[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the price level has no resting orders.
func (pl *PriceLevel) IsEmpty() bool {
	return len(pl.Orders) == 0
}

// TotalQuantity sums remaining quantity across the level.
func (pl *PriceLevel) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, o := range pl.Orders {
		total = total.Add(o.RemainingQuantity)
	}
	return total
}

// bidKey orders the buy-side index by descending price, so the btree's
// Min() item is the best (highest) bid.
type bidKey struct{ price decimal.Decimal }

func (k bidKey) Less(than btree.Item) bool {
	return k.price.GreaterThan(than.(bidKey).price)
}

// askKey orders the sell-side index by ascending price, so the btree's
// Min() item is the best (lowest) ask.
type askKey struct{ price decimal.Decimal }

func (k askKey) Less(than btree.Item) bool {
	return k.price.LessThan(than.(askKey).price)
}

// OrderBook holds the two one-sided price-time priority structures for
// the venue's single implicit instrument. Only active orders
// (remaining_quantity > 0) ever appear in it; the book exclusively owns
// every resting order and never uses client_id for identity.
type OrderBook struct {
	mutex sync.RWMutex

	bids     map[string]*PriceLevel // price.String() -> level
	asks     map[string]*PriceLevel
	bidIndex *btree.BTree // of bidKey, sorted best-first
	askIndex *btree.BTree // of askKey, sorted best-first
}

// NewOrderBook constructs an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:     make(map[string]*PriceLevel),
		asks:     make(map[string]*PriceLevel),
		bidIndex: btree.New(32),
		askIndex: btree.New(32),
	}
}

// AddOrder inserts a LIMIT order into the book. Market orders are never
// rested and are rejected here; callers must not pass one.
func (ob *OrderBook) AddOrder(order *models.Order) error {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	return ob.addOrderLocked(order)
}

// addOrderLocked is AddOrder's body without acquiring the lock; callers
// that already hold ob.mutex (the matcher, mid-match) use this directly.
func (ob *OrderBook) addOrderLocked(order *models.Order) error {
	if order.Type == models.TypeMarket {
		return fmt.Errorf("orderbook: cannot rest a market order")
	}
	if order.Price == nil {
		return fmt.Errorf("orderbook: cannot rest an order with no price")
	}

	key := order.Price.String()
	if order.Side == models.SideBuy {
		pl, ok := ob.bids[key]
		if !ok {
			pl = &PriceLevel{Price: *order.Price}
			ob.bids[key] = pl
			ob.bidIndex.ReplaceOrInsert(bidKey{price: *order.Price})
		}
		pl.Add(order)
		return nil
	}

	pl, ok := ob.asks[key]
	if !ok {
		pl = &PriceLevel{Price: *order.Price}
		ob.asks[key] = pl
		ob.askIndex.ReplaceOrInsert(askKey{price: *order.Price})
	}
	pl.Add(order)
	return nil
}

// removeOrderLocked deletes an order from its resting side. Callers must
// hold ob.mutex for writing.
func (ob *OrderBook) removeOrderLocked(order *models.Order) {
	key := order.Price.String()
	if order.Side == models.SideBuy {
		pl, ok := ob.bids[key]
		if !ok {
			return
		}
		pl.Remove(order.OrderID)
		if pl.IsEmpty() {
			delete(ob.bids, key)
			ob.bidIndex.Delete(bidKey{price: pl.Price})
		}
		return
	}
	pl, ok := ob.asks[key]
	if !ok {
		return
	}
	pl.Remove(order.OrderID)
	if pl.IsEmpty() {
		delete(ob.asks, key)
		ob.askIndex.Delete(askKey{price: pl.Price})
	}
}

// BestBid returns the oldest order at the highest bid price, or nil.
func (ob *OrderBook) BestBid() *models.Order {
	ob.mutex.RLock()
	defer ob.mutex.RUnlock()
	return ob.bestBidLocked()
}

func (ob *OrderBook) bestBidLocked() *models.Order {
	item := ob.bidIndex.Min()
	if item == nil {
		return nil
	}
	pl := ob.bids[item.(bidKey).price.String()]
	if pl == nil || pl.IsEmpty() {
		return nil
	}
	return pl.Orders[0]
}

// BestAsk returns the oldest order at the lowest ask price, or nil.
func (ob *OrderBook) BestAsk() *models.Order {
	ob.mutex.RLock()
	defer ob.mutex.RUnlock()
	return ob.bestAskLocked()
}

func (ob *OrderBook) bestAskLocked() *models.Order {
	item := ob.askIndex.Min()
	if item == nil {
		return nil
	}
	pl := ob.asks[item.(askKey).price.String()]
	if pl == nil || pl.IsEmpty() {
		return nil
	}
	return pl.Orders[0]
}

// TopLevels returns up to depth aggregated price levels for each side,
// best price first. The returned Order values carry only Price and
// RemainingQuantity (the aggregated level total); they are not resting
// orders.
func (ob *OrderBook) TopLevels(depth int) (bids []models.Order, asks []models.Order) {
	ob.mutex.RLock()
	defer ob.mutex.RUnlock()

	collectBids := func() []models.Order {
		var out []models.Order
		ob.bidIndex.Ascend(func(item btree.Item) bool {
			if len(out) >= depth {
				return false
			}
			price := item.(bidKey).price
			if pl := ob.bids[price.String()]; pl != nil && !pl.IsEmpty() {
				out = append(out, models.Order{Price: &pl.Price, RemainingQuantity: pl.TotalQuantity()})
			}
			return true
		})
		return out
	}
	collectAsks := func() []models.Order {
		var out []models.Order
		ob.askIndex.Ascend(func(item btree.Item) bool {
			if len(out) >= depth {
				return false
			}
			price := item.(askKey).price
			if pl := ob.asks[price.String()]; pl != nil && !pl.IsEmpty() {
				out = append(out, models.Order{Price: &pl.Price, RemainingQuantity: pl.TotalQuantity()})
			}
			return true
		})
		return out
	}

	return collectBids(), collectAsks()
}

// Snapshot returns every active resting order on both sides, in no
// particular cross-side order.
func (ob *OrderBook) Snapshot() []*models.Order {
	ob.mutex.RLock()
	defer ob.mutex.RUnlock()

	var out []*models.Order
	for _, pl := range ob.bids {
		out = append(out, pl.Orders...)
	}
	for _, pl := range ob.asks {
		out = append(out, pl.Orders...)
	}
	return out
}

// Restore clears both sides and re-inserts the given orders verbatim,
// preserving their stored order_id/timestamp/remaining quantity.
// Priority is reconstructed from those fields alone, not from load
// order. A malformed order in orders yields ErrCorruptSnapshot and
// leaves the book empty.
func (ob *OrderBook) Restore(orders []*models.Order) error {
	reset := func() {
		ob.mutex.Lock()
		ob.bids = make(map[string]*PriceLevel)
		ob.asks = make(map[string]*PriceLevel)
		ob.bidIndex = btree.New(32)
		ob.askIndex = btree.New(32)
		ob.mutex.Unlock()
	}
	reset()

	for _, o := range orders {
		if o == nil || o.Price == nil {
			reset()
			return ErrCorruptSnapshot
		}
		if o.Side != models.SideBuy && o.Side != models.SideSell {
			reset()
			return ErrCorruptSnapshot
		}
		if err := ob.AddOrder(o); err != nil {
			reset()
			return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
	}

	// addOrderLocked appends in call order, which is only the snapshot's
	// slice order, not necessarily timestamp order. Re-sort each level by
	// the stored Timestamp so same-price priority comes from that field
	// alone, independent of how the snapshot happened to list orders.
	ob.mutex.Lock()
	for _, pl := range ob.bids {
		sortByTimestamp(pl.Orders)
	}
	for _, pl := range ob.asks {
		sortByTimestamp(pl.Orders)
	}
	ob.mutex.Unlock()

	return nil
}

// sortByTimestamp orders a price level's resting orders earliest-first, so
// index 0 is always the order with the oldest timestamp (highest priority).
func sortByTimestamp(orders []*models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp.Before(orders[j].Timestamp)
	})
}
