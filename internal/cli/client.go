package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FactsRefResponse — указатель на последние facts runner'а.
type FactsRefResponse struct {
	FactsID    string `json:"facts_id"`
	OrderID    string `json:"order_id,omitempty"`
	EvidenceID string `json:"evidence_id,omitempty"`
	CheckedAt  string `json:"checked_at"`
}

// RunnerResponse — runner из API.
type RunnerResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	CreatedAt  string            `json:"created_at"`
	LastSeenAt string            `json:"last_seen_at"`
	TTLSeconds int               `json:"ttl_seconds"`
	Labels     map[string]string `json:"labels,omitempty"`
	Online     bool              `json:"online"`
	FactsRef   *FactsRefResponse `json:"facts_ref,omitempty"`
}

// HeartbeatResponse — ответ на heartbeat.
type HeartbeatResponse struct {
	RunnerID   string `json:"runner_id"`
	LastSeenAt string `json:"last_seen_at"`
}

// OrderResponse — order из API.
type OrderResponse struct {
	ID              string `json:"id"`
	RunnerID        string `json:"runner_id"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	StartedAt       string `json:"started_at,omitempty"`
	FinishedAt      string `json:"finished_at,omitempty"`
	ExitCode        *int   `json:"exit_code,omitempty"`
	Summary         string `json:"summary,omitempty"`
	EvidenceID      string `json:"evidence_id,omitempty"`
	ClientRequestID string `json:"client_request_id,omitempty"`
}

// EvidenceResponse — evidence из API.
type EvidenceResponse struct {
	ID        string `json:"id"`
	RunnerID  string `json:"runner_id"`
	OrderID   string `json:"order_id"`
	CreatedAt string `json:"created_at"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
}

// FactsResponse — facts из API.
type FactsResponse struct {
	ID         string          `json:"id"`
	Component  string          `json:"component"`
	RunnerID   string          `json:"runner_id"`
	OrderID    string          `json:"order_id,omitempty"`
	EvidenceID string          `json:"evidence_id,omitempty"`
	CheckedAt  string          `json:"checked_at"`
	Checks     map[string]bool `json:"checks"`
	Raw        map[string]any  `json:"raw,omitempty"`
}

// --- Request types ---

// RegisterRunnerRequest — регистрация runner'а.
type RegisterRunnerRequest struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	TTLSeconds int               `json:"ttl_seconds,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// SubmitOrderRequest — создание order.
type SubmitOrderRequest struct {
	Type            string `json:"type"`
	ClientRequestID string `json:"client_request_id,omitempty"`
}

// ListEvidencesOpts — параметры фильтрации evidences.
type ListEvidencesOpts struct {
	RunnerID string
	OrderID  string
	Limit    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Foreman API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runners ---

// ListRunners возвращает всех runner'ов.
func (c *Client) ListRunners() ([]RunnerResponse, error) {
	var runners []RunnerResponse
	err := c.list("/api/v1/runners", nil, &runners)
	return runners, err
}

// RegisterRunner регистрирует нового runner'а.
func (c *Client) RegisterRunner(req RegisterRunnerRequest) (*RunnerResponse, error) {
	var runner RunnerResponse
	err := c.post("/api/v1/runners", req, &runner)
	return &runner, err
}

// GetRunner возвращает runner'а по ID.
func (c *Client) GetRunner(id string) (*RunnerResponse, error) {
	var runner RunnerResponse
	err := c.get("/api/v1/runners/"+id, &runner)
	return &runner, err
}

// DeregisterRunner удаляет runner'а.
func (c *Client) DeregisterRunner(id string) error {
	return c.delete("/api/v1/runners/" + id)
}

// HeartbeatRunner отправляет heartbeat runner'а.
func (c *Client) HeartbeatRunner(id string) (*HeartbeatResponse, error) {
	var hb HeartbeatResponse
	err := c.post("/api/v1/runners/"+id+"/heartbeat", nil, &hb)
	return &hb, err
}

// --- Orders ---

// SubmitOrder создаёт order для runner'а.
// Второе возвращаемое значение — true, если order создан (HTTP 201),
// false — идемпотентный повтор (HTTP 200).
func (c *Client) SubmitOrder(runnerID string, req SubmitOrderRequest) (*OrderResponse, bool, error) {
	resp, err := c.do(http.MethodPost, "/api/v1/runners/"+runnerID+"/orders", req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, false, err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}

	var order OrderResponse
	if err := json.Unmarshal(dr.Data, &order); err != nil {
		return nil, false, err
	}
	return &order, resp.StatusCode == http.StatusCreated, nil
}

// GetOrder возвращает order по ID.
func (c *Client) GetOrder(id string) (*OrderResponse, error) {
	var order OrderResponse
	err := c.get("/api/v1/orders/"+id, &order)
	return &order, err
}

// ListRunnerOrders возвращает orders runner'а.
func (c *Client) ListRunnerOrders(runnerID string, limit int) ([]OrderResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var orders []OrderResponse
	err := c.list("/api/v1/runners/"+runnerID+"/orders", params, &orders)
	return orders, err
}

// --- Evidence ---

// ListEvidences возвращает evidences по фильтру.
func (c *Client) ListEvidences(opts ListEvidencesOpts) ([]EvidenceResponse, error) {
	params := url.Values{}
	if opts.RunnerID != "" {
		params.Set("runner_id", opts.RunnerID)
	}
	if opts.OrderID != "" {
		params.Set("order_id", opts.OrderID)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var evidences []EvidenceResponse
	err := c.list("/api/v1/evidences", params, &evidences)
	return evidences, err
}

// GetEvidence возвращает evidence по ID.
func (c *Client) GetEvidence(id string) (*EvidenceResponse, error) {
	var evidence EvidenceResponse
	err := c.get("/api/v1/evidences/"+id, &evidence)
	return &evidence, err
}

// --- Facts ---

// ListRunnerFacts возвращает историю facts runner'а.
func (c *Client) ListRunnerFacts(runnerID string, limit int) ([]FactsResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var facts []FactsResponse
	err := c.list("/api/v1/runners/"+runnerID+"/facts", params, &facts)
	return facts, err
}

// GetRunnerLatestFacts возвращает последние facts runner'а.
func (c *Client) GetRunnerLatestFacts(runnerID string) (*FactsResponse, error) {
	var facts FactsResponse
	err := c.get("/api/v1/runners/"+runnerID+"/facts/latest", &facts)
	return &facts, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
