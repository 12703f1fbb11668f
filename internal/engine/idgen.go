package engine

import "sync/atomic"

// idGenerator hands out monotonically increasing, engine-lifetime-unique
// identifiers. A counter is used instead of a random 128-bit value:
// spec section 4.1 explicitly permits counters "for testability", and a
// counter makes the fixture-style scenario tests in this package
// reproducible.
type idGenerator struct {
	next uint64
}

// newIDGenerator returns a generator whose first Next() call yields 1,
// reserving 0 to mean "no order"/"no trade" on the wire.
func newIDGenerator() *idGenerator {
	return &idGenerator{next: 0}
}

// Next returns the next unique id.
func (g *idGenerator) Next() uint64 {
	return atomic.AddUint64(&g.next, 1)
}
