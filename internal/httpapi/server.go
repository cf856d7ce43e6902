// Package httpapi exposes the broker over a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"papertrade/internal/broker"
	"papertrade/internal/journal"
)

// Server serves the trading HTTP API over a Broker. The fill journal is
// optional; without one the fills endpoint reports 404.
type Server struct {
	broker  broker.Broker
	journal journal.FillJournal
	log     *slog.Logger
}

// NewServer creates a Server over the given broker. journal may be nil.
func NewServer(b broker.Broker, j journal.FillJournal, log *slog.Logger) *Server {
	return &Server{
		broker:  b,
		journal: j,
		log:     log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders/buy", s.handleBuy)
	mux.HandleFunc("POST /api/orders/sell", s.handleSell)
	mux.HandleFunc("GET /api/orders", s.handleListOrders)
	mux.HandleFunc("GET /api/orders/{id}", s.handleOrderStatus)
	mux.HandleFunc("DELETE /api/orders/{id}", s.handleCancelOrder)
	mux.HandleFunc("GET /api/account", s.handleAccount)
	mux.HandleFunc("GET /api/assets", s.handleAssets)
	mux.HandleFunc("GET /api/fills", s.handleFills)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleSubmit(w, r, s.broker.SubmitBuy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleSubmit(w, r, s.broker.SubmitSell)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, submit submitFunc) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	if req.Qty <= 0 {
		writeError(w, http.StatusBadRequest, "qty must be positive")
		return
	}

	ids, err := submit(r.Context(), broker.TradeRequest{
		Symbol:   req.Symbol,
		Qty:      req.Qty,
		StopLoss: req.StopLoss,
		Limit:    req.Limit,
	})
	if err != nil {
		s.writeBrokerError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, OrderResponse{OrderIDs: ids})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.broker.OpenOrders(r.Context())
	if err != nil {
		s.writeBrokerError(w, err)
		return
	}
	writeJSON(w, OrdersResponse{Orders: orders})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := s.broker.OrderStatus(r.Context(), id)
	if err != nil {
		s.writeBrokerError(w, err)
		return
	}
	writeJSON(w, StatusResponse{OrderID: id, Status: status})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.broker.CancelOrder(r.Context(), id); err != nil {
		s.writeBrokerError(w, err)
		return
	}
	writeJSON(w, CancelResponse{OrderID: id, Cancelled: true})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	summary, err := s.broker.AccountSummary(r.Context())
	if err != nil {
		s.writeBrokerError(w, err)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.broker.Assets(r.Context())
	if err != nil {
		s.writeBrokerError(w, err)
		return
	}
	writeJSON(w, AssetsResponse{Symbols: symbols})
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "fill journal not configured")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	fills, err := s.journal.List(r.Context(), limit)
	if err != nil {
		s.log.Error("listing fills", "error", err)
		writeError(w, http.StatusInternalServerError, "listing fills failed")
		return
	}
	writeJSON(w, FillsResponse{Fills: fills})
}

// writeBrokerError maps broker sentinel errors onto HTTP statuses.
func (s *Server) writeBrokerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, broker.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, broker.ErrInsufficientBalance),
		errors.Is(err, broker.ErrInsufficientHoldings):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, broker.ErrInvalidQuote),
		errors.Is(err, broker.ErrInvalidOrderKind):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("broker call failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
