package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/oracle"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker routes orders to an Alpaca brokerage account. Point it at
// the paper endpoint for dry runs or the live endpoint for real money.
// Stop-loss requests become bracket legs on the parent order, so unlike the
// simulator a submission always yields a single order ID. Quotes are
// answered by the given oracle; market hours come from the Alpaca clock.
type AlpacaBroker struct {
	client *alpaca.Client
	quotes oracle.Oracle
	log    *slog.Logger
}

// NewAlpacaBroker creates a broker against the given Alpaca trading
// endpoint.
func NewAlpacaBroker(apiKey, apiSecret, baseURL string, quotes oracle.Oracle, log *slog.Logger) *AlpacaBroker {
	return &AlpacaBroker{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		quotes: quotes,
		log:    log.With("broker", "alpaca"),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string { return "alpaca" }

// SubmitBuy places a buy order, as a day limit order when a limit price is
// given and a market order otherwise.
func (b *AlpacaBroker) SubmitBuy(_ context.Context, req TradeRequest) ([]string, error) {
	return b.place(alpaca.Buy, req)
}

// SubmitSell places a sell order, as a day limit order when a limit price
// is given and a market order otherwise.
func (b *AlpacaBroker) SubmitSell(_ context.Context, req TradeRequest) ([]string, error) {
	return b.place(alpaca.Sell, req)
}

// Submit places an order from a side given as a string, for callers working
// from wire input.
func (b *AlpacaBroker) Submit(ctx context.Context, side string, req TradeRequest) ([]string, error) {
	s, err := domain.ParseSide(side)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrderKind, err)
	}
	if s == domain.SideSell {
		return b.SubmitSell(ctx, req)
	}
	return b.SubmitBuy(ctx, req)
}

func (b *AlpacaBroker) place(side alpaca.Side, req TradeRequest) ([]string, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrderKind, req.Qty)
	}

	qty := decimal.NewFromInt(req.Qty)
	por := alpaca.PlaceOrderRequest{
		Symbol:      req.Symbol,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	}
	if req.Limit > 0 {
		limit := decimal.NewFromFloat(req.Limit)
		por.Type = alpaca.Limit
		por.LimitPrice = &limit
	}
	if req.StopLoss > 0 {
		stop := decimal.NewFromFloat(req.StopLoss)
		por.StopLoss = &alpaca.StopLoss{StopPrice: &stop}
	}

	order, err := b.client.PlaceOrder(por)
	if err != nil {
		return nil, fmt.Errorf("placing %s order for %s: %w", side, req.Symbol, err)
	}

	b.log.Info("order placed",
		"id", order.ID,
		"symbol", req.Symbol,
		"side", side,
		"qty", req.Qty,
		"type", por.Type,
	)
	return []string{order.ID}, nil
}

// CancelOrder cancels an open order by its Alpaca order ID.
func (b *AlpacaBroker) CancelOrder(_ context.Context, orderID string) error {
	if err := b.client.CancelOrder(orderID); err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	b.log.Info("order cancelled", "id", orderID)
	return nil
}

// OrderStatus maps Alpaca's order lifecycle onto open/filled. Terminal
// non-fill states (cancelled, expired, rejected) report as not found,
// matching the simulator where such orders no longer exist.
func (b *AlpacaBroker) OrderStatus(_ context.Context, orderID string) (domain.OrderStatus, error) {
	order, err := b.client.GetOrder(orderID)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrOrderNotFound, orderID, err)
	}
	switch order.Status {
	case "filled":
		return domain.OrderStatusFilled, nil
	case "canceled", "expired", "rejected":
		return "", fmt.Errorf("%w: %s (status %s)", ErrOrderNotFound, orderID, order.Status)
	default:
		return domain.OrderStatusOpen, nil
	}
}

// OpenOrders lists the account's open orders.
func (b *AlpacaBroker) OpenOrders(_ context.Context) ([]domain.Order, error) {
	orders, err := b.client.GetOrders(alpaca.GetOrdersRequest{Status: "open"})
	if err != nil {
		return nil, fmt.Errorf("listing open orders: %w", err)
	}

	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, convertOrder(o))
	}
	return out, nil
}

func convertOrder(o alpaca.Order) domain.Order {
	var qty int64
	if o.Qty != nil {
		qty = o.Qty.IntPart()
	}
	var price float64
	if o.LimitPrice != nil {
		price, _ = o.LimitPrice.Float64()
	}

	kind := domain.KindBuy
	switch {
	case o.Side == alpaca.Buy && o.Type == alpaca.Limit:
		kind = domain.KindLimitBuy
	case o.Side == alpaca.Sell && o.Type == alpaca.Limit:
		kind = domain.KindLimitSell
	case o.Side == alpaca.Sell:
		kind = domain.KindSell
	}

	return domain.Order{
		ID:        o.ID,
		Symbol:    o.Symbol,
		Qty:       qty,
		Price:     price,
		Kind:      kind,
		Status:    domain.OrderStatusOpen,
		CreatedAt: o.CreatedAt,
	}
}

// Quote passes a quote request through to the price oracle.
func (b *AlpacaBroker) Quote(ctx context.Context, symbol string) (float64, error) {
	return b.quotes.Quote(ctx, symbol)
}

// MarketOpen queries the Alpaca clock. A clock failure reports closed.
func (b *AlpacaBroker) MarketOpen() bool {
	clock, err := b.client.GetClock()
	if err != nil {
		b.log.Warn("clock query failed, reporting closed", "error", err)
		return false
	}
	return clock.IsOpen
}

// Assets lists the active, tradable symbols on the account's exchange.
func (b *AlpacaBroker) Assets(_ context.Context) ([]string, error) {
	assets, err := b.client.GetAssets(alpaca.GetAssetsRequest{Status: "active"})
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	symbols := make([]string, 0, len(assets))
	for _, a := range assets {
		if !a.Tradable {
			continue
		}
		symbols = append(symbols, a.Symbol)
	}
	return symbols, nil
}

// AccountSummary reports the live account's cash, equity, and positions.
// Alpaca marks positions to market itself, so the summary is never
// degraded.
func (b *AlpacaBroker) AccountSummary(_ context.Context) (*domain.AccountSummary, error) {
	acct, err := b.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	positions, err := b.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	holdings := make(map[string]int64, len(positions))
	for _, p := range positions {
		holdings[p.Symbol] = p.Qty.IntPart()
	}

	cash, _ := acct.Cash.Float64()
	equity, _ := acct.Equity.Float64()
	lastEquity, _ := acct.LastEquity.Float64()

	summary := &domain.AccountSummary{
		Cash:           cash,
		InitialBalance: lastEquity,
		Holdings:       holdings,
		Equity:         equity,
	}
	if lastEquity != 0 {
		summary.ReturnPct = (equity - lastEquity) / lastEquity * 100
	}
	return summary, nil
}
