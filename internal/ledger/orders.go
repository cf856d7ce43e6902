package ledger

import (
	"papertrade/internal/domain"
)

// OrderBook holds the open orders of one account plus the append-only
// history of settled orders. An order is in exactly one of the two sets at
// any time; Settle moves it from open to settled in a single step.
//
// Like Account, an OrderBook is not safe for concurrent use on its own.
type OrderBook struct {
	open    map[string]*domain.Order
	settled []*domain.Order
}

// NewOrderBook creates an empty OrderBook.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		open: make(map[string]*domain.Order),
	}
}

// Add appends an order to the open set.
func (b *OrderBook) Add(o *domain.Order) {
	b.open[o.ID] = o
}

// Open returns the open order with the given ID, or nil.
func (b *OrderBook) Open(id string) *domain.Order {
	return b.open[id]
}

// Settled returns the settled order with the given ID, or nil.
func (b *OrderBook) Settled(id string) *domain.Order {
	for _, o := range b.settled {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Remove deletes an open order without settling it, returning whether it
// was present. Used by cancellation; removed orders leave no record.
func (b *OrderBook) Remove(id string) bool {
	if _, ok := b.open[id]; !ok {
		return false
	}
	delete(b.open, id)
	return true
}

// Settle moves an open order into the settled history, marking it filled.
// It is a no-op if the order is not in the open set.
func (b *OrderBook) Settle(o *domain.Order) {
	if _, ok := b.open[o.ID]; !ok {
		return
	}
	delete(b.open, o.ID)
	o.Status = domain.OrderStatusFilled
	b.settled = append(b.settled, o)
}

// Snapshot returns a copy of the open set as a slice, ordered by creation
// time. The execution pass iterates this snapshot so that settling orders
// never mutates the collection being ranged over.
func (b *OrderBook) Snapshot() []*domain.Order {
	out := make([]*domain.Order, 0, len(b.open))
	for _, o := range b.open {
		out = append(out, o)
	}
	sortByCreation(out)
	return out
}

// OpenQtyByKind sums the quantity of open orders of the given kind for one
// symbol.
func (b *OrderBook) OpenQtyByKind(symbol string, kind domain.OrderKind) int64 {
	var total int64
	for _, o := range b.open {
		if o.Symbol == symbol && o.Kind == kind {
			total += o.Qty
		}
	}
	return total
}

// OpenCount returns the number of open orders.
func (b *OrderBook) OpenCount() int {
	return len(b.open)
}

// SettledCount returns the number of settled orders.
func (b *OrderBook) SettledCount() int {
	return len(b.settled)
}

func sortByCreation(orders []*domain.Order) {
	// Insertion sort: the open set is small and mostly ordered already.
	for i := 1; i < len(orders); i++ {
		for j := i; j > 0 && orders[j].CreatedAt.Before(orders[j-1].CreatedAt); j-- {
			orders[j], orders[j-1] = orders[j-1], orders[j]
		}
	}
}
