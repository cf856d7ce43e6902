// Package domain defines the shared types used across the papertrade
// simulator: orders, quotes, bars, account snapshots, and signals.
package domain

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Markets
// ---------------------------------------------------------------------------

// Market identifies a trading venue's market, used to select session hours
// and storage layout.
type Market string

const (
	MarketUS Market = "us"
	MarketIN Market = "in"
)

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// Side is the direction of a trade instruction or signal.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide converts a wire string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// OrderKind is the tagged kind of a trading instruction. The kind fixes the
// fill rule and which side of the account was reserved at submission time.
type OrderKind string

const (
	// KindBuy is a plain buy: cash reserved at submission, fills at the next
	// execution pass unconditionally.
	KindBuy OrderKind = "buy"

	// KindSell is a plain sell: shares reserved at submission, fills at the
	// next execution pass unconditionally.
	KindSell OrderKind = "sell"

	// KindLimitBuy fills only once the quote drops to the limit price or
	// below. Cash reserved at submission at the limit price.
	KindLimitBuy OrderKind = "limit_buy"

	// KindLimitSell fills only once the quote rises to the limit price or
	// above. Shares reserved at submission.
	KindLimitSell OrderKind = "limit_sell"

	// KindStopSell is a protective exit attached to a buy. It carries no
	// reservation of its own; its fill settles cash and shares together.
	KindStopSell OrderKind = "sl_sell"

	// KindStopBuy is a protective buy-back attached to a sell. It carries no
	// reservation of its own; its fill settles cash and shares together.
	KindStopBuy OrderKind = "sl_buy"
)

// Valid reports whether k is one of the defined order kinds.
func (k OrderKind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindLimitBuy, KindLimitSell, KindStopSell, KindStopBuy:
		return true
	}
	return false
}

// BuySide reports whether a fill of this kind adds shares to the account.
func (k OrderKind) BuySide() bool {
	return k == KindBuy || k == KindLimitBuy || k == KindStopBuy
}

// StopLoss reports whether k is a stop-loss child order.
func (k OrderKind) StopLoss() bool {
	return k == KindStopSell || k == KindStopBuy
}

// Limit reports whether k is a limit order.
func (k OrderKind) Limit() bool {
	return k == KindLimitBuy || k == KindLimitSell
}

// ParseOrderKind converts a wire string into an OrderKind.
func ParseOrderKind(s string) (OrderKind, error) {
	k := OrderKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown order kind %q", s)
	}
	return k, nil
}

// OrderStatus is the lifecycle state of an order. There is no cancelled
// state: cancelled orders are removed from the ledger entirely.
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusFilled OrderStatus = "filled"
)

// Order is a single trading instruction. Qty and Price are fixed at
// creation; only Status and FilledAt change, and only when the order fills.
type Order struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Qty       int64       `json:"qty"`
	Price     float64     `json:"price"`
	Kind      OrderKind   `json:"kind"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	FilledAt  time.Time   `json:"filled_at,omitzero"`
}

// Notional returns the order's cash value at its reference price.
func (o *Order) Notional() float64 {
	return float64(o.Qty) * o.Price
}

// ---------------------------------------------------------------------------
// Fills
// ---------------------------------------------------------------------------

// Fill is the settled record of an executed order, as journaled.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Kind     OrderKind `json:"kind"`
	Qty      int64     `json:"qty"`
	Price    float64   `json:"price"`
	FilledAt time.Time `json:"filled_at"`
}

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// Bar is a single OHLCV bar.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"trade_count"`
	VWAP       float64   `json:"vwap"`
}

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

// AccountSummary is a snapshot of the simulated account, marked to market.
// Degraded is set when one or more holdings could not be quoted; those
// holdings contribute zero to Equity.
type AccountSummary struct {
	Cash           float64          `json:"cash"`
	InitialBalance float64          `json:"initial_balance"`
	Holdings       map[string]int64 `json:"holdings"`
	Equity         float64          `json:"equity"`
	ReturnPct      float64          `json:"return_pct"`
	Degraded       bool             `json:"degraded"`
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Signal is a trading signal emitted by a strategy.
type Signal struct {
	StrategyID string    `json:"strategy_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Qty        int64     `json:"qty"`
	StopLoss   float64   `json:"stop_loss,omitempty"` // 0 = no stop
	Limit      float64   `json:"limit,omitempty"`     // 0 = no limit
	CreatedAt  time.Time `json:"created_at"`
}
