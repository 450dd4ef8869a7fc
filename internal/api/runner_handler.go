package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shaiso/Foreman/internal/telemetry"
)

// ListRunners возвращает всех runner'ов со статусом liveness.
// GET /api/v1/runners
func (h *Handler) ListRunners(w http.ResponseWriter, r *http.Request) {
	views, err := h.registry.List(r.Context())
	if HandleError(w, h.logger, err, "") {
		return
	}

	result := make([]RunnerResponse, len(views))
	for i, v := range views {
		result[i] = RunnerFromView(v)
	}

	List(w, result, len(result))
}

// RegisterRunner регистрирует нового runner'а.
// POST /api/v1/runners
func (h *Handler) RegisterRunner(w http.ResponseWriter, r *http.Request) {
	var req RegisterRunnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	runner, err := h.registry.Register(r.Context(), req.ID, req.Name, req.TTLSeconds, req.Labels)
	if HandleError(w, h.logger, err, "") {
		return
	}

	view, err := h.registry.Get(r.Context(), runner.ID)
	if HandleError(w, h.logger, err, "") {
		return
	}

	Created(w, RunnerFromView(*view))
}

// GetRunner возвращает runner'а по ID.
// GET /api/v1/runners/{id}
func (h *Handler) GetRunner(w http.ResponseWriter, r *http.Request) {
	view, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err, "runner not found") {
		return
	}

	Success(w, RunnerFromView(*view))
}

// DeregisterRunner удаляет runner'а из реестра.
// DELETE /api/v1/runners/{id}
func (h *Handler) DeregisterRunner(w http.ResponseWriter, r *http.Request) {
	err := h.registry.Deregister(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err, "runner not found") {
		return
	}

	NoContent(w)
}

// HeartbeatRunner фиксирует признак жизни runner'а.
// POST /api/v1/runners/{id}/heartbeat
func (h *Handler) HeartbeatRunner(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	seenAt, err := h.registry.Heartbeat(r.Context(), id)
	if HandleError(w, h.logger, err, "runner not found") {
		return
	}

	telemetry.HeartbeatsReceived.WithLabelValues("http").Inc()

	Success(w, HeartbeatResponse{RunnerID: id, LastSeenAt: seenAt})
}

// GetRunnerFacts возвращает историю facts runner'а, новые первыми.
// GET /api/v1/runners/{id}/facts?limit=...
func (h *Handler) GetRunnerFacts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Runner должен существовать: пустая история — 200 с пустым списком,
	// несуществующий runner — 404.
	if _, err := h.registry.Get(r.Context(), id); HandleError(w, h.logger, err, "runner not found") {
		return
	}

	facts, err := h.facts.ListByRunner(r.Context(), id, parseLimit(r))
	if HandleError(w, h.logger, err, "") {
		return
	}

	result := make([]FactsResponse, len(facts))
	for i, f := range facts {
		result[i] = FactsFromDomain(f)
	}

	List(w, result, len(result))
}

// GetRunnerLatestFacts возвращает последние facts runner'а.
// GET /api/v1/runners/{id}/facts/latest
func (h *Handler) GetRunnerLatestFacts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.registry.Get(r.Context(), id); HandleError(w, h.logger, err, "runner not found") {
		return
	}

	facts, err := h.facts.LatestByRunner(r.Context(), id)
	if HandleError(w, h.logger, err, "no facts recorded for runner") {
		return
	}

	Success(w, FactsFromDomain(*facts))
}

// parseLimit извлекает limit из query-параметров.
// Нечисловое или отсутствующее значение — 0 (дефолт решает репозиторий).
func parseLimit(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0
	}
	return limit
}
