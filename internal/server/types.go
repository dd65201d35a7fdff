package server

import "github.com/MeKo-Tech/shelfocr/internal/store"

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ProductsResponse is returned by /api/v1/products.
type ProductsResponse struct {
	Products []store.Product `json:"products"`
	Count    int             `json:"count"`
}

// WebSocketMatchResponse is sent for each binary frame on /ws/match.
type WebSocketMatchResponse struct {
	Type      string `json:"type"`
	Status    string `json:"status"` // "completed" or "error"
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id"`
}
