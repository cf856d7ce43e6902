package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"papertrade/internal/broker"
	"papertrade/internal/domain"
	"papertrade/internal/journal"
	"papertrade/internal/market"
	"papertrade/internal/oracle"
)

func newTestServer(t *testing.T) (*Server, *broker.PaperBroker) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := oracle.NewStatic(map[string]float64{"AAPL": 155, "MSFT": 400})
	b := broker.NewPaperBroker(100000, o, market.Always{}, log)
	return NewServer(b, nil, log), b
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitBuyEndpoint(t *testing.T) {
	s, b := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/orders/buy",
		OrderRequest{Symbol: "AAPL", Qty: 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/orders/buy status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp OrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.OrderIDs) != 1 {
		t.Fatalf("OrderIDs = %v, want one id", resp.OrderIDs)
	}
	if got := b.Holdings()["AAPL"]; got != 10 {
		t.Errorf("Holdings()[AAPL] = %v, want 10", got)
	}
}

func TestSubmitBuyWithStopReturnsBothIDs(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/orders/buy",
		OrderRequest{Symbol: "AAPL", Qty: 10, StopLoss: 140})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp OrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.OrderIDs) != 2 {
		t.Errorf("OrderIDs = %v, want parent and stop ids", resp.OrderIDs)
	}
}

func TestSubmitValidation(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing symbol", OrderRequest{Qty: 10}, http.StatusBadRequest},
		{"zero qty", OrderRequest{Symbol: "AAPL"}, http.StatusBadRequest},
		{"unknown symbol", OrderRequest{Symbol: "NOPE", Qty: 1}, http.StatusBadRequest},
		{"unaffordable", OrderRequest{Symbol: "MSFT", Qty: 10000}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/orders/buy", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestSellWithoutHoldings(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/orders/sell",
		OrderRequest{Symbol: "AAPL", Qty: 5})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	// A limit buy below the quote stays open.
	rec := doJSON(t, h, http.MethodPost, "/api/orders/buy",
		OrderRequest{Symbol: "AAPL", Qty: 10, Limit: 150})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body)
	}
	var created OrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	id := created.OrderIDs[0]

	rec = doJSON(t, h, http.MethodGet, "/api/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/orders status = %d", rec.Code)
	}
	var list OrdersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding orders: %v", err)
	}
	if len(list.Orders) != 1 || list.Orders[0].Kind != domain.KindLimitBuy {
		t.Fatalf("orders = %+v, want one limit_buy", list.Orders)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/orders/"+id, nil)
	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Status != domain.OrderStatusOpen {
		t.Errorf("status = %v, want open", status.Status)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/orders/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/orders/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET cancelled order status = %d, want 404", rec.Code)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodDelete, "/api/orders/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAccountEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	doJSON(t, h, http.MethodPost, "/api/orders/buy", OrderRequest{Symbol: "AAPL", Qty: 10})

	rec := doJSON(t, h, http.MethodGet, "/api/account", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/account status = %d", rec.Code)
	}
	var sum domain.AccountSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if sum.Cash != 98450 {
		t.Errorf("Cash = %v, want 98450", sum.Cash)
	}
	if sum.Holdings["AAPL"] != 10 {
		t.Errorf("Holdings[AAPL] = %v, want 10", sum.Holdings["AAPL"])
	}
}

func TestFillsEndpoint(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := oracle.NewStatic(map[string]float64{"AAPL": 155})

	j, err := journal.NewSQLiteJournal(t.TempDir() + "/fills.db")
	if err != nil {
		t.Fatalf("NewSQLiteJournal: %v", err)
	}
	defer j.Close()

	b := broker.NewPaperBroker(100000, o, market.Always{}, log, broker.WithJournal(j))
	h := NewServer(b, j, log).Handler()

	doJSON(t, h, http.MethodPost, "/api/orders/buy", OrderRequest{Symbol: "AAPL", Qty: 10})

	rec := doJSON(t, h, http.MethodGet, "/api/fills", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/fills status = %d", rec.Code)
	}
	var fills FillsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &fills); err != nil {
		t.Fatalf("decoding fills: %v", err)
	}
	if len(fills.Fills) != 1 || fills.Fills[0].Symbol != "AAPL" {
		t.Errorf("fills = %+v, want one AAPL fill", fills.Fills)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/fills?limit=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/fills?limit=bogus status = %d, want 400", rec.Code)
	}
}

func TestFillsEndpointWithoutJournal(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/fills", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAssetsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	// Buy two symbols; without a lister the broker reports held symbols.
	for _, sym := range []string{"MSFT", "AAPL"} {
		rec := doJSON(t, h, http.MethodPost, "/api/orders/buy",
			OrderRequest{Symbol: sym, Qty: 1})
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST /api/orders/buy %s status = %d, want 201: %s", sym, rec.Code, rec.Body)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/assets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/assets status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp AssetsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Symbols) != 2 || resp.Symbols[0] != "AAPL" || resp.Symbols[1] != "MSFT" {
		t.Errorf("Symbols = %v, want [AAPL MSFT]", resp.Symbols)
	}
}
