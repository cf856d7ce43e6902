package market

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// Compile-time interface check.
var _ Calendar = (*AlpacaCalendar)(nil)

// AlpacaCalendar answers IsTradingOpen from the Alpaca clock endpoint, which
// accounts for exchange holidays and half days. Responses are cached briefly
// so an execution pass over many orders costs one API call at most.
type AlpacaCalendar struct {
	client *alpaca.Client
	log    *slog.Logger

	mu        sync.Mutex
	cachedAt  time.Time
	cached    bool
	cacheOpen bool
}

// cacheTTL bounds how stale a clock answer may be.
const cacheTTL = 30 * time.Second

// NewAlpacaCalendar creates an AlpacaCalendar with the given credentials.
// baseURL may be empty to use the SDK default.
func NewAlpacaCalendar(apiKey, apiSecret, baseURL string, log *slog.Logger) *AlpacaCalendar {
	return &AlpacaCalendar{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		log: log,
	}
}

// IsTradingOpen queries the Alpaca clock, falling back to the last cached
// answer (or closed, if none) when the API is unreachable. Failing closed
// means orders stay open rather than filling against stale prices.
func (c *AlpacaCalendar) IsTradingOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached && time.Since(c.cachedAt) < cacheTTL {
		return c.cacheOpen
	}

	clock, err := c.client.GetClock()
	if err != nil {
		c.log.Warn("alpaca clock unavailable", "error", err)
		if c.cached {
			return c.cacheOpen
		}
		return false
	}

	c.cached = true
	c.cachedAt = time.Now()
	c.cacheOpen = clock.IsOpen
	return clock.IsOpen
}
