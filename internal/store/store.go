// Package store persists historical market data used by backtests.
package store

import (
	"context"
	"time"

	"papertrade/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market, merging
	// with any bars already stored.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns the symbol's bars within [start, end], oldest first.
	ReadBars(ctx context.Context, market domain.Market, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all symbols with stored bars in the market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}
