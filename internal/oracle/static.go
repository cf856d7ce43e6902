package oracle

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time interface check.
var _ Oracle = (*Static)(nil)

// Static serves quotes from an in-memory table. It is the oracle used in
// tests and manual paper-trading sessions; SetPrice moves the market.
type Static struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStatic creates a Static oracle seeded with the given prices. The map
// may be nil.
func NewStatic(prices map[string]float64) *Static {
	s := &Static{prices: make(map[string]float64, len(prices))}
	for sym, p := range prices {
		s.prices[sym] = p
	}
	return s
}

// SetPrice sets or updates the quote for a symbol.
func (s *Static) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	s.prices[symbol] = price
	s.mu.Unlock()
}

// Quote returns the table price for symbol, or ErrQuoteUnavailable if the
// symbol is absent or its price is not strictly positive.
func (s *Static) Quote(_ context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	price, ok := s.prices[symbol]
	s.mu.RUnlock()
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}
	return price, nil
}

// QuoteBatch returns table prices for the symbols that have one.
func (s *Static) QuoteBatch(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sym := range symbols {
		if price, ok := s.prices[sym]; ok && price > 0 {
			out[sym] = price
		}
	}
	return out, nil
}
