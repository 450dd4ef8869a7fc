package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/repo"
)

// ListEvidences возвращает evidences по фильтру, новые первыми.
// GET /api/v1/evidences?runner_id=...&order_id=...&limit=...
//
// Требуется хотя бы один фильтр: выборка всех evidences без ограничения
// не поддерживается.
func (h *Handler) ListEvidences(w http.ResponseWriter, r *http.Request) {
	filter := repo.EvidenceFilter{
		RunnerID: r.URL.Query().Get("runner_id"),
		Limit:    parseLimit(r),
	}

	if orderIDStr := r.URL.Query().Get("order_id"); orderIDStr != "" {
		orderID, err := uuid.Parse(orderIDStr)
		if err != nil {
			BadRequest(w, "invalid order_id")
			return
		}
		filter.OrderID = &orderID
	}

	if filter.RunnerID == "" && filter.OrderID == nil {
		BadRequest(w, "either runner_id or order_id is required")
		return
	}

	evidences, err := h.evidences.List(r.Context(), filter)
	if HandleError(w, h.logger, err, "") {
		return
	}

	result := make([]EvidenceResponse, len(evidences))
	for i, ev := range evidences {
		result[i] = EvidenceFromDomain(ev)
	}

	List(w, result, len(result))
}

// GetEvidence возвращает evidence по ID.
// GET /api/v1/evidences/{id}
func (h *Handler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid evidence id")
		return
	}

	evidence, err := h.evidences.GetByID(r.Context(), id)
	if HandleError(w, h.logger, err, "evidence not found") {
		return
	}

	Success(w, EvidenceFromDomain(*evidence))
}
