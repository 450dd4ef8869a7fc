package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		RequestID(),
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Runners
	mux.Handle("GET /api/v1/runners", chain(http.HandlerFunc(h.ListRunners)))
	mux.Handle("POST /api/v1/runners", chain(http.HandlerFunc(h.RegisterRunner)))
	mux.Handle("GET /api/v1/runners/{id}", chain(http.HandlerFunc(h.GetRunner)))
	mux.Handle("DELETE /api/v1/runners/{id}", chain(http.HandlerFunc(h.DeregisterRunner)))
	mux.Handle("POST /api/v1/runners/{id}/heartbeat", chain(http.HandlerFunc(h.HeartbeatRunner)))

	// Orders
	mux.Handle("POST /api/v1/runners/{id}/orders", chain(http.HandlerFunc(h.SubmitOrder)))
	mux.Handle("GET /api/v1/runners/{id}/orders", chain(http.HandlerFunc(h.ListRunnerOrders)))
	mux.Handle("GET /api/v1/orders/{id}", chain(http.HandlerFunc(h.GetOrder)))

	// Evidence
	mux.Handle("GET /api/v1/evidences", chain(http.HandlerFunc(h.ListEvidences)))
	mux.Handle("GET /api/v1/evidences/{id}", chain(http.HandlerFunc(h.GetEvidence)))

	// Facts
	mux.Handle("GET /api/v1/runners/{id}/facts", chain(http.HandlerFunc(h.GetRunnerFacts)))
	mux.Handle("GET /api/v1/runners/{id}/facts/latest", chain(http.HandlerFunc(h.GetRunnerLatestFacts)))
}
