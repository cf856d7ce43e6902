package httpapi

import (
	"context"

	"papertrade/internal/broker"
	"papertrade/internal/domain"
)

type submitFunc func(ctx context.Context, req broker.TradeRequest) ([]string, error)

// OrderRequest is the body for buy and sell submissions. StopLoss and Limit
// are optional; zero means absent.
type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Qty      int64   `json:"qty"`
	StopLoss float64 `json:"stop_loss,omitempty"`
	Limit    float64 `json:"limit,omitempty"`
}

// OrderResponse returns the IDs of the created orders, parent first.
type OrderResponse struct {
	OrderIDs []string `json:"order_ids"`
}

// OrdersResponse lists open orders.
type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// StatusResponse holds one order's lifecycle state.
type StatusResponse struct {
	OrderID string             `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
}

// CancelResponse acknowledges a cancellation.
type CancelResponse struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
}

// FillsResponse lists journaled fills, newest first.
type FillsResponse struct {
	Fills []domain.Fill `json:"fills"`
}

// AssetsResponse lists the tradable symbols.
type AssetsResponse struct {
	Symbols []string `json:"symbols"`
}
