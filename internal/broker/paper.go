package broker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"papertrade/internal/domain"
	"papertrade/internal/journal"
	"papertrade/internal/ledger"
	"papertrade/internal/market"
	"papertrade/internal/oracle"
)

// Compile-time interface check.
var _ Broker = (*PaperBroker)(nil)

// summaryQuoteWorkers bounds the concurrent quote fan-out in AccountSummary.
const summaryQuoteWorkers = 4

// PaperBroker simulates a single brokerage account. Orders reserve their
// cash (buys) or shares (sells) at submission time; the execution pass then
// resolves open orders against current quotes, so a fill only applies the
// half of the settlement the reservation didn't. Stop-loss children are the
// exception: they carry no reservation and settle both halves at fill.
//
// All state lives behind one mutex. A matching pass holds it for its whole
// snapshot-iterate-settle cycle, so submission and cancellation can never
// interleave with an order being filled.
type PaperBroker struct {
	mu      sync.Mutex
	account *ledger.Account
	book    *ledger.OrderBook

	oracle   oracle.Oracle
	calendar market.Calendar
	journal  journal.FillJournal // optional
	assets   AssetLister         // optional
	market   domain.Market
	log      *slog.Logger

	quoteTimeout time.Duration
	now          func() time.Time
}

// PaperOption configures a PaperBroker.
type PaperOption func(*PaperBroker)

// WithJournal attaches a fill journal. Journal failures are logged and do
// not block fills.
func WithJournal(j journal.FillJournal) PaperOption {
	return func(b *PaperBroker) { b.journal = j }
}

// WithQuoteTimeout bounds each oracle call made by the broker.
func WithQuoteTimeout(d time.Duration) PaperOption {
	return func(b *PaperBroker) { b.quoteTimeout = d }
}

// WithAssets backs the Assets query with a symbol lister for the given
// market. Without one, Assets falls back to the currently held symbols.
func WithAssets(lister AssetLister, m domain.Market) PaperOption {
	return func(b *PaperBroker) {
		b.assets = lister
		b.market = m
	}
}

// NewPaperBroker creates a paper broker with the given starting balance,
// price oracle, trading calendar, and logger.
func NewPaperBroker(initialBalance float64, o oracle.Oracle, cal market.Calendar, log *slog.Logger, opts ...PaperOption) *PaperBroker {
	b := &PaperBroker{
		account:      ledger.NewAccount(initialBalance),
		book:         ledger.NewOrderBook(),
		oracle:       o,
		calendar:     cal,
		market:       domain.MarketUS,
		log:          log.With("broker", "paper"),
		quoteTimeout: 5 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "paper".
func (b *PaperBroker) Name() string { return "paper" }

// ---------------------------------------------------------------------------
// Submission
// ---------------------------------------------------------------------------

// SubmitBuy places a buy order. The order's cost is debited from the cash
// balance immediately; the later fill only credits the position. When a
// limit below the current quote is given the order becomes a limit buy
// reserved at the limit price. A stop-loss creates an unreserved sl_sell
// child at the stop price. On any validation failure nothing is created
// and no state changes.
func (b *PaperBroker) SubmitBuy(ctx context.Context, req TradeRequest) ([]string, error) {
	return b.submit(ctx, domain.SideBuy, req)
}

// SubmitSell places a sell order. The sold quantity is removed from
// holdings immediately; the later fill only credits cash. A qualifying
// limit above the current quote makes it a limit sell. A stop-loss creates
// an unreserved sl_buy child at the stop price.
func (b *PaperBroker) SubmitSell(ctx context.Context, req TradeRequest) ([]string, error) {
	return b.submit(ctx, domain.SideSell, req)
}

// Submit places an order from a side given as a string, for callers working
// from wire input.
func (b *PaperBroker) Submit(ctx context.Context, side string, req TradeRequest) ([]string, error) {
	s, err := domain.ParseSide(side)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrderKind, err)
	}
	return b.submit(ctx, s, req)
}

func (b *PaperBroker) submit(ctx context.Context, side domain.Side, req TradeRequest) ([]string, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrderKind, req.Qty)
	}

	quote, err := b.fetchQuote(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidQuote, req.Symbol, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var parent *domain.Order
	switch side {
	case domain.SideBuy:
		parent, err = b.reserveBuy(req, quote)
	case domain.SideSell:
		parent, err = b.reserveSell(req, quote)
	default:
		return nil, fmt.Errorf("%w: side %q", ErrInvalidOrderKind, side)
	}
	if err != nil {
		return nil, err
	}

	b.book.Add(parent)
	ids := []string{parent.ID}

	// The stop-loss child reverses the parent's direction and carries no
	// reservation of its own: the parent already took it.
	if req.StopLoss > 0 {
		childKind := domain.KindStopSell
		if side == domain.SideSell {
			childKind = domain.KindStopBuy
		}
		child := b.newOrder(req.Symbol, req.Qty, req.StopLoss, childKind)
		b.book.Add(child)
		ids = append(ids, child.ID)
	}

	b.log.Info("order submitted",
		"symbol", req.Symbol,
		"side", side,
		"qty", req.Qty,
		"kind", parent.Kind,
		"price", parent.Price,
		"orders", len(ids),
	)

	// Resolve immediately: plain orders fill on this pass, limit and stop
	// orders wait for a qualifying quote. A pass failure here is transient
	// and must not fail the submission that already succeeded.
	if _, err := b.executeLocked(ctx); err != nil {
		b.log.Warn("post-submit execution pass failed", "error", err)
	}

	return ids, nil
}

// reserveBuy validates a buy and applies its cash reservation.
func (b *PaperBroker) reserveBuy(req TradeRequest, quote float64) (*domain.Order, error) {
	price := quote
	kind := domain.KindBuy
	if req.Limit > 0 && req.Limit < quote {
		price = req.Limit
		kind = domain.KindLimitBuy
	}

	cost := float64(req.Qty) * price
	if cost > b.account.Balance() {
		return nil, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientBalance, cost, b.account.Balance())
	}
	b.account.Debit(cost)

	return b.newOrder(req.Symbol, req.Qty, price, kind), nil
}

// reserveSell validates a sell and applies its share reservation. Open
// sl_sell children were never reserved and take their shares at fill, so
// the quantity they will need is off limits here: selling it would leave
// the stop to drive the position negative when it triggers.
func (b *PaperBroker) reserveSell(req TradeRequest, quote float64) (*domain.Order, error) {
	held := b.account.Position(req.Symbol)
	claimed := b.book.OpenQtyByKind(req.Symbol, domain.KindStopSell)
	if held-claimed < req.Qty {
		return nil, fmt.Errorf("%w: %s: need %d, have %d (%d claimed by open stop-loss orders)",
			ErrInsufficientHoldings, req.Symbol, req.Qty, held, claimed)
	}

	price := quote
	kind := domain.KindSell
	if req.Limit > 0 && req.Limit > quote {
		price = req.Limit
		kind = domain.KindLimitSell
	}

	if err := b.account.AdjustPosition(req.Symbol, -req.Qty); err != nil {
		// Unreachable: the held-quantity check above covers it.
		return nil, err
	}

	return b.newOrder(req.Symbol, req.Qty, price, kind), nil
}

func (b *PaperBroker) newOrder(symbol string, qty int64, price float64, kind domain.OrderKind) *domain.Order {
	return &domain.Order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Qty:       qty,
		Price:     price,
		Kind:      kind,
		Status:    domain.OrderStatusOpen,
		CreatedAt: b.now(),
	}
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// ExecuteOpenOrders runs one matching pass over the open orders and returns
// the number of fills. While the calendar reports the market closed the
// pass is a no-op. An order whose quote is unavailable is skipped and
// retried on the next pass.
func (b *PaperBroker) ExecuteOpenOrders(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executeLocked(ctx)
}

// executeLocked is the matching pass. Callers must hold b.mu.
func (b *PaperBroker) executeLocked(ctx context.Context) (int, error) {
	if !b.calendar.IsTradingOpen() {
		return 0, nil
	}

	snapshot := b.book.Snapshot()
	if len(snapshot) == 0 {
		return 0, nil
	}

	quotes, err := b.fetchQuotes(ctx, snapshot)
	if err != nil {
		return 0, fmt.Errorf("fetching quotes for execution pass: %w", err)
	}

	filled := 0
	for _, order := range snapshot {
		quote, ok := quotes[order.Symbol]
		if !ok {
			b.log.Warn("no quote, order skipped this pass", "id", order.ID, "symbol", order.Symbol)
			continue
		}

		ok, err := b.tryFill(order, quote)
		if err != nil {
			// A ledger error mid-pass means the reservation bookkeeping has
			// drifted; surface it rather than keep mutating.
			return filled, err
		}
		if !ok {
			continue
		}

		order.FilledAt = b.now()
		b.book.Settle(order)
		filled++

		if b.journal != nil {
			fill := domain.Fill{
				OrderID:  order.ID,
				Symbol:   order.Symbol,
				Kind:     order.Kind,
				Qty:      order.Qty,
				Price:    order.Price,
				FilledAt: order.FilledAt,
			}
			if err := b.journal.Append(ctx, fill); err != nil {
				b.log.Error("journaling fill failed", "id", order.ID, "error", err)
			}
		}

		b.log.Info("order filled",
			"id", order.ID,
			"symbol", order.Symbol,
			"kind", order.Kind,
			"qty", order.Qty,
			"price", order.Price,
			"quote", quote,
		)
	}

	return filled, nil
}

// tryFill applies the fill rule for the order's kind against the quote and,
// on a fill, the half of the settlement not covered by the submission-time
// reservation. Plain and limit buys already paid cash, so filling only adds
// shares; plain and limit sells already gave up shares, so filling only
// adds cash. Stop-loss children were never funded: their fill moves cash
// and shares together.
func (b *PaperBroker) tryFill(order *domain.Order, quote float64) (bool, error) {
	switch order.Kind {
	case domain.KindBuy:
		return true, b.account.AdjustPosition(order.Symbol, order.Qty)

	case domain.KindSell:
		b.account.Credit(order.Notional())
		return true, nil

	case domain.KindLimitBuy:
		if quote > order.Price {
			return false, nil
		}
		return true, b.account.AdjustPosition(order.Symbol, order.Qty)

	case domain.KindLimitSell:
		if quote < order.Price {
			return false, nil
		}
		b.account.Credit(order.Notional())
		return true, nil

	case domain.KindStopSell:
		if quote > order.Price {
			return false, nil
		}
		if err := b.account.AdjustPosition(order.Symbol, -order.Qty); err != nil {
			return false, err
		}
		b.account.Credit(order.Notional())
		return true, nil

	case domain.KindStopBuy:
		if quote < order.Price {
			return false, nil
		}
		b.account.Debit(order.Notional())
		return true, b.account.AdjustPosition(order.Symbol, order.Qty)

	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidOrderKind, order.Kind)
	}
}

// ---------------------------------------------------------------------------
// Cancellation
// ---------------------------------------------------------------------------

// CancelOrder removes an open order and reverses exactly the reservation
// its submission applied: buys get their cash back, sells get their shares
// back, stop-loss children (never funded) get nothing back. Settled orders
// are not cancellable.
func (b *PaperBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	order := b.book.Open(orderID)
	if order == nil {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	b.book.Remove(orderID)

	switch {
	case order.Kind.StopLoss():
		// No reservation to reverse.
	case order.Kind.BuySide():
		b.account.Credit(order.Notional())
	default:
		if err := b.account.AdjustPosition(order.Symbol, order.Qty); err != nil {
			// Unreachable: restoring reserved shares cannot go negative.
			return err
		}
	}

	b.log.Info("order cancelled", "id", orderID, "symbol", order.Symbol, "kind", order.Kind)
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// OrderStatus reports Open for orders in the open set and Filled for orders
// in the settled history.
func (b *PaperBroker) OrderStatus(_ context.Context, orderID string) (domain.OrderStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.book.Open(orderID) != nil {
		return domain.OrderStatusOpen, nil
	}
	if b.book.Settled(orderID) != nil {
		return domain.OrderStatusFilled, nil
	}
	return "", fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
}

// OpenOrders returns copies of all open orders, oldest first.
func (b *PaperBroker) OpenOrders(_ context.Context) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.book.Snapshot()
	out := make([]domain.Order, len(snapshot))
	for i, o := range snapshot {
		out[i] = *o
	}
	return out, nil
}

// Quote passes a quote request through to the price oracle under the
// configured timeout.
func (b *PaperBroker) Quote(ctx context.Context, symbol string) (float64, error) {
	return b.fetchQuote(ctx, symbol)
}

// MarketOpen reports whether the trading calendar currently permits
// execution passes.
func (b *PaperBroker) MarketOpen() bool {
	return b.calendar.IsTradingOpen()
}

// Assets lists the tradable symbols from the configured lister, or the
// currently held symbols when no lister is attached.
func (b *PaperBroker) Assets(ctx context.Context) ([]string, error) {
	if b.assets != nil {
		return b.assets.ListSymbols(ctx, b.market)
	}

	b.mu.Lock()
	holdings := b.account.Holdings()
	b.mu.Unlock()

	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)
	return symbols, nil
}

// Balance returns the current cash balance.
func (b *PaperBroker) Balance() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account.Balance()
}

// Holdings returns a copy of the current holdings.
func (b *PaperBroker) Holdings() map[string]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account.Holdings()
}

// AccountSummary marks the account to market. Holdings are quoted
// concurrently; a symbol whose quote fails contributes zero to equity and
// flags the summary as degraded instead of failing it.
func (b *PaperBroker) AccountSummary(ctx context.Context) (*domain.AccountSummary, error) {
	b.mu.Lock()
	cash := b.account.Balance()
	initial := b.account.InitialBalance()
	holdings := b.account.Holdings()
	b.mu.Unlock()

	var (
		quotesMu sync.Mutex
		quotes   = make(map[string]float64, len(holdings))
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryQuoteWorkers)
	for symbol := range holdings {
		g.Go(func() error {
			price, err := b.fetchQuote(gctx, symbol)
			quotesMu.Lock()
			defer quotesMu.Unlock()
			if err != nil {
				b.log.Warn("summary quote failed, valued at zero", "symbol", symbol, "error", err)
				degraded = true
				return nil
			}
			quotes[symbol] = price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	equity := cash
	for symbol, qty := range holdings {
		equity += float64(qty) * quotes[symbol]
	}

	summary := &domain.AccountSummary{
		Cash:           cash,
		InitialBalance: initial,
		Holdings:       holdings,
		Equity:         equity,
		Degraded:       degraded,
	}
	if initial != 0 {
		summary.ReturnPct = (equity - initial) / initial * 100
	}
	return summary, nil
}

// ---------------------------------------------------------------------------
// Quote helpers
// ---------------------------------------------------------------------------

// fetchQuote queries the oracle for one symbol under the configured timeout.
func (b *PaperBroker) fetchQuote(ctx context.Context, symbol string) (float64, error) {
	qctx, cancel := context.WithTimeout(ctx, b.quoteTimeout)
	defer cancel()
	return b.oracle.Quote(qctx, symbol)
}

// fetchQuotes batch-quotes the distinct symbols of the given orders.
func (b *PaperBroker) fetchQuotes(ctx context.Context, orders []*domain.Order) (map[string]float64, error) {
	seen := make(map[string]struct{}, len(orders))
	symbols := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.Symbol]; ok {
			continue
		}
		seen[o.Symbol] = struct{}{}
		symbols = append(symbols, o.Symbol)
	}

	qctx, cancel := context.WithTimeout(ctx, b.quoteTimeout)
	defer cancel()
	return b.oracle.QuoteBatch(qctx, symbols)
}
