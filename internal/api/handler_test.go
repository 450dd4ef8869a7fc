package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/dispatcher"
	"github.com/shaiso/Foreman/internal/registry"
	"github.com/shaiso/Foreman/internal/repo"
)

// --- Fakes ---

type fakeRegistry struct {
	runners map[string]*domain.Runner
}

func newFakeRegistry(ids ...string) *fakeRegistry {
	f := &fakeRegistry{runners: make(map[string]*domain.Runner)}
	for _, id := range ids {
		f.runners[id] = &domain.Runner{
			ID: id, Name: "runner " + id, TTLSeconds: 60,
			CreatedAt: time.Now(), LastSeenAt: time.Now(),
		}
	}
	return f
}

func (f *fakeRegistry) Register(_ context.Context, id, name string, ttlSeconds int, labels map[string]string) (*domain.Runner, error) {
	if id == "" || name == "" {
		return nil, fmt.Errorf("%w: empty field", registry.ErrInvalidRunner)
	}
	if _, ok := f.runners[id]; ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrRunnerExists, id)
	}
	runner := &domain.Runner{ID: id, Name: name, TTLSeconds: ttlSeconds, LastSeenAt: time.Now()}
	f.runners[id] = runner
	return runner, nil
}

func (f *fakeRegistry) Deregister(_ context.Context, id string) error {
	if _, ok := f.runners[id]; !ok {
		return fmt.Errorf("%w: %s", registry.ErrRunnerNotFound, id)
	}
	delete(f.runners, id)
	return nil
}

func (f *fakeRegistry) Heartbeat(_ context.Context, id string) (time.Time, error) {
	if _, ok := f.runners[id]; !ok {
		return time.Time{}, fmt.Errorf("%w: %s", registry.ErrRunnerNotFound, id)
	}
	return time.Now(), nil
}

func (f *fakeRegistry) Get(_ context.Context, id string) (*registry.RunnerView, error) {
	runner, ok := f.runners[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrRunnerNotFound, id)
	}
	return &registry.RunnerView{Runner: *runner, Online: true}, nil
}

func (f *fakeRegistry) List(_ context.Context) ([]registry.RunnerView, error) {
	var views []registry.RunnerView
	for _, runner := range f.runners {
		views = append(views, registry.RunnerView{Runner: *runner, Online: true})
	}
	return views, nil
}

type fakeSubmitter struct {
	byKey map[string]*domain.Order
}

func (f *fakeSubmitter) Submit(_ context.Context, runnerID, orderType, clientRequestID string) (*domain.Order, bool, error) {
	if !domain.OrderType(orderType).IsValid() {
		return nil, false, fmt.Errorf("%w: %q", dispatcher.ErrInvalidOrderType, orderType)
	}
	if runnerID == "ghost" {
		return nil, false, fmt.Errorf("%w: %s", dispatcher.ErrRunnerNotFound, runnerID)
	}

	if clientRequestID != "" {
		if existing, ok := f.byKey[clientRequestID]; ok {
			return existing, false, nil
		}
	}

	order := &domain.Order{
		ID:       uuid.New(),
		RunnerID: runnerID,
		Type:     domain.OrderType(orderType),
		Status:   domain.OrderStatusQueued,
	}
	if clientRequestID != "" {
		if f.byKey == nil {
			f.byKey = make(map[string]*domain.Order)
		}
		f.byKey[clientRequestID] = order
	}
	return order, true, nil
}

type fakeOrders struct {
	orders map[uuid.UUID]*domain.Order
}

func (f *fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrders) ListByRunner(_ context.Context, runnerID string, _ int) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range f.orders {
		if order.RunnerID == runnerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

type fakeEvidences struct {
	evidences []domain.Evidence
}

func (f *fakeEvidences) GetByID(_ context.Context, id uuid.UUID) (*domain.Evidence, error) {
	for i := range f.evidences {
		if f.evidences[i].ID == id {
			return &f.evidences[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeEvidences) List(_ context.Context, filter repo.EvidenceFilter) ([]domain.Evidence, error) {
	var out []domain.Evidence
	for _, ev := range f.evidences {
		if filter.OrderID != nil && ev.OrderID != *filter.OrderID {
			continue
		}
		if filter.RunnerID != "" && ev.RunnerID != filter.RunnerID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type fakeFacts struct {
	facts []domain.Facts
}

func (f *fakeFacts) LatestByRunner(_ context.Context, runnerID string) (*domain.Facts, error) {
	for i := range f.facts {
		if f.facts[i].RunnerID == runnerID {
			return &f.facts[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeFacts) ListByRunner(_ context.Context, runnerID string, _ int) ([]domain.Facts, error) {
	var out []domain.Facts
	for _, facts := range f.facts {
		if facts.RunnerID == runnerID {
			out = append(out, facts)
		}
	}
	return out, nil
}

// --- Helpers ---

func newTestServer(t *testing.T) (*httptest.Server, *fakeRegistry, *fakeOrders, *fakeEvidences, *fakeFacts) {
	t.Helper()

	reg := newFakeRegistry("r1")
	orders := &fakeOrders{orders: make(map[uuid.UUID]*domain.Order)}
	evidences := &fakeEvidences{}
	facts := &fakeFacts{}

	h := NewHandler(Config{
		Registry:  reg,
		Submitter: &fakeSubmitter{},
		Orders:    orders,
		Evidences: evidences,
		Facts:     facts,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, reg, orders, evidences, facts
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode != http.StatusNoContent {
		t.Fatalf("decode response: %v", err)
	}
	return resp, parsed
}

// --- Tests ---

func TestRegisterRunner(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners",
		`{"id":"r2","name":"second","ttl_seconds":30}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	data := body["data"].(map[string]any)
	if data["id"] != "r2" {
		t.Errorf("unexpected runner id %v", data["id"])
	}

	// Повторная регистрация — конфликт.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners",
		`{"id":"r2","name":"imposter"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}

	// Пустое имя — валидация.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners", `{"id":"r3"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHeartbeatRunner(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners/r1/heartbeat", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	data := body["data"].(map[string]any)
	if data["runner_id"] != "r1" {
		t.Errorf("unexpected runner_id %v", data["runner_id"])
	}

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners/ghost/heartbeat", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitOrder(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	// Новый order — 201.
	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners/r1/orders",
		`{"type":"runner.selftest","client_request_id":"req-1"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	firstID := body["data"].(map[string]any)["id"]

	// Повтор того же запроса — 200 с тем же order.
	resp, body = doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners/r1/orders",
		`{"type":"runner.selftest","client_request_id":"req-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", resp.StatusCode)
	}
	if got := body["data"].(map[string]any)["id"]; got != firstID {
		t.Errorf("replay returned different order: %v vs %v", got, firstID)
	}

	// Неизвестный тип — 400.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners/r1/orders",
		`{"type":"runner.explode"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	// Несуществующий runner — 404.
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/runners/ghost/orders",
		`{"type":"runner.selftest"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetOrder(t *testing.T) {
	srv, _, orders, _, _ := newTestServer(t)

	order := &domain.Order{
		ID: uuid.New(), RunnerID: "r1",
		Type: domain.OrderTypeSelfTest, Status: domain.OrderStatusSucceeded,
	}
	orders.orders[order.ID] = order

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/orders/"+order.ID.String(), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := body["data"].(map[string]any)["status"]; got != "succeeded" {
		t.Errorf("unexpected status %v", got)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/orders/not-a-uuid", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/orders/"+uuid.NewString(), "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListEvidences_RequiresFilter(t *testing.T) {
	srv, _, _, evidences, _ := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/evidences", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without filter, got %d", resp.StatusCode)
	}

	evidences.evidences = append(evidences.evidences, domain.Evidence{
		ID: uuid.New(), RunnerID: "r1", OrderID: uuid.New(),
	})
	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/evidences?runner_id=r1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if total := body["total"].(float64); total != 1 {
		t.Errorf("expected 1 evidence, got %v", total)
	}
}

func TestGetRunnerFacts(t *testing.T) {
	srv, _, _, _, facts := newTestServer(t)

	facts.facts = append(facts.facts, domain.Facts{
		ID: uuid.New(), Component: domain.FactsComponentRunner, RunnerID: "r1",
		Checks: map[string]bool{"filesystem_ok": true},
	})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/runners/r1/facts/latest", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	data := body["data"].(map[string]any)
	if data["component"] != "runner" {
		t.Errorf("unexpected component %v", data["component"])
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/runners/ghost/facts", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown runner, got %d", resp.StatusCode)
	}
}

func TestDeregisterRunner(t *testing.T) {
	srv, reg, _, _, _ := newTestServer(t)

	resp, _ := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/runners/r1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if _, ok := reg.runners["r1"]; ok {
		t.Error("runner should be removed")
	}

	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/runners/r1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
