package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertrade/internal/domain"
)

// Compile-time interface check.
var _ Oracle = (*Replay)(nil)

// Replay serves quotes from bar data being replayed by a backtest. The
// backtester advances it one bar at a time; the quote for a symbol is the
// close of its most recent bar.
type Replay struct {
	mu     sync.RWMutex
	closes map[string]float64
	now    time.Time
}

// NewReplay creates an empty Replay oracle.
func NewReplay() *Replay {
	return &Replay{closes: make(map[string]float64)}
}

// Advance records a bar as the current market state for its symbol.
func (r *Replay) Advance(bar domain.Bar) {
	r.mu.Lock()
	r.closes[bar.Symbol] = bar.Close
	if bar.Timestamp.After(r.now) {
		r.now = bar.Timestamp
	}
	r.mu.Unlock()
}

// Now returns the timestamp of the most recently replayed bar.
func (r *Replay) Now() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now
}

// Quote returns the last replayed close for symbol.
func (r *Replay) Quote(_ context.Context, symbol string) (float64, error) {
	r.mu.RLock()
	price, ok := r.closes[symbol]
	r.mu.RUnlock()
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%w: %s (not yet replayed)", ErrQuoteUnavailable, symbol)
	}
	return price, nil
}

// QuoteBatch returns the last replayed closes for the symbols that have one.
func (r *Replay) QuoteBatch(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sym := range symbols {
		if price, ok := r.closes[sym]; ok && price > 0 {
			out[sym] = price
		}
	}
	return out, nil
}
