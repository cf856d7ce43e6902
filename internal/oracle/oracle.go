// Package oracle defines the price oracle contract and provides
// implementations backed by a fixed table, by replayed bar data, and by the
// Alpaca market-data API.
package oracle

import (
	"context"
	"errors"
)

// ErrQuoteUnavailable indicates no usable quote exists for a symbol right
// now. It is transient: the caller may retry on a later pass.
var ErrQuoteUnavailable = errors.New("oracle: quote unavailable")

// Oracle returns current prices for symbols. A returned price is always
// strictly positive; anything else surfaces as ErrQuoteUnavailable.
type Oracle interface {
	// Quote returns the current price for one symbol.
	Quote(ctx context.Context, symbol string) (float64, error)

	// QuoteBatch returns prices for multiple symbols. Symbols without a
	// usable quote are absent from the result; the call fails only on
	// whole-batch errors.
	QuoteBatch(ctx context.Context, symbols []string) (map[string]float64, error)
}
