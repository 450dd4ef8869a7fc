package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// SubmitOrder создаёт новый order для runner'а.
// POST /api/v1/runners/{id}/orders
//
// Ответ 201 — order создан и поставлен в очередь; 200 — идемпотентный
// повтор по client_request_id, возвращён ранее созданный order.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	runnerID := r.PathValue("id")

	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	order, created, err := h.submitter.Submit(r.Context(), runnerID, req.Type, req.ClientRequestID)
	if HandleError(w, h.logger, err, "runner not found") {
		return
	}

	if created {
		Created(w, OrderFromDomain(*order))
	} else {
		Success(w, OrderFromDomain(*order))
	}
}

// GetOrder возвращает order по ID.
// GET /api/v1/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid order id")
		return
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if HandleError(w, h.logger, err, "order not found") {
		return
	}

	Success(w, OrderFromDomain(*order))
}

// ListRunnerOrders возвращает orders runner'а, новые первыми.
// GET /api/v1/runners/{id}/orders?limit=...
func (h *Handler) ListRunnerOrders(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.registry.Get(r.Context(), id); HandleError(w, h.logger, err, "runner not found") {
		return
	}

	orders, err := h.orders.ListByRunner(r.Context(), id, parseLimit(r))
	if HandleError(w, h.logger, err, "") {
		return
	}

	result := make([]OrderResponse, len(orders))
	for i, order := range orders {
		result[i] = OrderFromDomain(order)
	}

	List(w, result, len(result))
}
