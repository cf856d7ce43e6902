// Package ledger owns the mutable state of a simulated account: the cash
// balance with per-symbol holdings, and the open/settled order sets. All
// cash and position changes in the system go through the Account type;
// all order lifecycle changes go through the OrderBook type.
package ledger

import (
	"errors"
	"fmt"
)

// ErrNegativeHoldings indicates a position adjustment would drive a holding
// below zero. The submission checks make this unreachable; seeing it means
// the ledger and the order book have drifted apart.
var ErrNegativeHoldings = errors.New("ledger: holdings would go negative")

// Account tracks cash and holdings for one simulated brokerage account.
// It is not safe for concurrent use; the owning broker serializes access.
type Account struct {
	cash     float64
	initial  float64
	holdings map[string]int64
}

// NewAccount creates an Account with the given starting cash balance.
func NewAccount(initialBalance float64) *Account {
	return &Account{
		cash:     initialBalance,
		initial:  initialBalance,
		holdings: make(map[string]int64),
	}
}

// Debit removes amount from the cash balance.
func (a *Account) Debit(amount float64) {
	a.cash -= amount
}

// Credit adds amount to the cash balance.
func (a *Account) Credit(amount float64) {
	a.cash += amount
}

// AdjustPosition changes the held quantity for symbol by delta, which may be
// negative. A holding driven to exactly zero is removed from the map rather
// than kept as a zero entry. A delta that would take the holding below zero
// returns ErrNegativeHoldings and leaves the account unchanged.
func (a *Account) AdjustPosition(symbol string, delta int64) error {
	next := a.holdings[symbol] + delta
	if next < 0 {
		return fmt.Errorf("%w: %s %d%+d", ErrNegativeHoldings, symbol, a.holdings[symbol], delta)
	}
	if next == 0 {
		delete(a.holdings, symbol)
		return nil
	}
	a.holdings[symbol] = next
	return nil
}

// Balance returns the current cash balance.
func (a *Account) Balance() float64 {
	return a.cash
}

// InitialBalance returns the balance the account was created with.
func (a *Account) InitialBalance() float64 {
	return a.initial
}

// Position returns the held quantity for symbol, or 0 if none.
func (a *Account) Position(symbol string) int64 {
	return a.holdings[symbol]
}

// Holdings returns a copy of the holdings map.
func (a *Account) Holdings() map[string]int64 {
	out := make(map[string]int64, len(a.holdings))
	for sym, qty := range a.holdings {
		out[sym] = qty
	}
	return out
}
