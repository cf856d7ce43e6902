package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"papertrade/internal/util"
)

// Compile-time interface check.
var _ Oracle = (*Alpaca)(nil)

// Alpaca serves live quotes from the Alpaca market-data API, using the
// latest trade price. Outbound calls go through a shared rate limiter and a
// short retry to smooth over transient API errors.
type Alpaca struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
}

// NewAlpaca creates an Alpaca oracle with the given credentials. dataURL
// may be empty to use the SDK default. rateLimitPerMin caps outbound quote
// calls per minute.
func NewAlpaca(apiKey, apiSecret, dataURL string, rateLimitPerMin int) *Alpaca {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &Alpaca{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(rateLimitPerMin),
	}
}

// Quote returns the latest trade price for symbol.
func (a *Alpaca) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var price float64
	err := util.Retry(ctx, 3, 200*time.Millisecond, func() error {
		trade, err := a.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return fmt.Errorf("GetLatestTrade(%s): %w", symbol, err)
		}
		price = trade.Price
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: %s: non-positive price %v", ErrQuoteUnavailable, symbol, price)
	}
	return price, nil
}

// QuoteBatch returns latest trade prices for multiple symbols in a single
// API call. Symbols with no trade, or with a non-positive price, are left
// out of the result.
func (a *Alpaca) QuoteBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	trades, err := a.client.GetLatestTrades(symbols, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return nil, fmt.Errorf("GetLatestTrades: %w", err)
	}

	out := make(map[string]float64, len(trades))
	for sym, trade := range trades {
		if trade.Price > 0 {
			out[sym] = trade.Price
		}
	}
	return out, nil
}
