// Package broker defines the Broker interface for order submission and
// account queries, and provides the paper-trading implementation that
// simulates order resolution against quoted prices, plus a thin live
// implementation over the Alpaca brokerage API.
package broker

import (
	"context"
	"errors"

	"papertrade/internal/domain"
)

// Submission and cancellation failure modes. All are validation errors
// recovered locally: when one is returned, no account or ledger state has
// changed.
var (
	// ErrInvalidQuote means the oracle returned no usable (strictly
	// positive) price for the order's symbol at submission time.
	ErrInvalidQuote = errors.New("broker: invalid quote")

	// ErrInsufficientBalance means a buy's cost exceeds the cash balance.
	ErrInsufficientBalance = errors.New("broker: insufficient balance")

	// ErrInsufficientHoldings means a sell's quantity exceeds the held
	// position.
	ErrInsufficientHoldings = errors.New("broker: insufficient holdings")

	// ErrInvalidOrderKind means a generic submission carried an unknown
	// side or kind.
	ErrInvalidOrderKind = errors.New("broker: invalid order kind")

	// ErrOrderNotFound means no open order matches the given identifier.
	// Settled orders are never cancellable.
	ErrOrderNotFound = errors.New("broker: order not found")
)

// TradeRequest describes a buy or sell instruction. StopLoss and Limit are
// optional; zero means absent.
type TradeRequest struct {
	Symbol   string
	Qty      int64
	StopLoss float64
	Limit    float64
}

// AssetLister enumerates the symbols available in a market. The parquet
// bar store satisfies it.
type AssetLister interface {
	ListSymbols(ctx context.Context, m domain.Market) ([]string, error)
}

// Broker abstracts brokerage operations for order submission and account
// queries, implemented by the paper simulator and by live brokerages.
type Broker interface {
	// Name returns the broker identifier (e.g. "paper", "alpaca").
	Name() string

	// SubmitBuy places a buy for req.Symbol, with optional limit and
	// attached stop-loss. It returns the created order IDs, parent first.
	SubmitBuy(ctx context.Context, req TradeRequest) ([]string, error)

	// SubmitSell places a sell for req.Symbol, with optional limit and
	// attached stop-loss. It returns the created order IDs, parent first.
	SubmitSell(ctx context.Context, req TradeRequest) ([]string, error)

	// Submit places an order on the given side ("buy" or "sell"), for
	// callers working from wire input. The limit price, when any, rides in
	// req.Limit.
	Submit(ctx context.Context, side string, req TradeRequest) ([]string, error)

	// CancelOrder cancels an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error

	// OrderStatus reports whether the order is open or filled.
	OrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error)

	// OpenOrders returns copies of all currently open orders.
	OpenOrders(ctx context.Context) ([]domain.Order, error)

	// Quote returns the current price for a symbol.
	Quote(ctx context.Context, symbol string) (float64, error)

	// MarketOpen reports whether the broker's market currently permits
	// trading.
	MarketOpen() bool

	// Assets lists the symbols available to trade.
	Assets(ctx context.Context) ([]string, error)

	// AccountSummary returns the account's balance, holdings, and
	// mark-to-market return.
	AccountSummary(ctx context.Context) (*domain.AccountSummary, error)
}
