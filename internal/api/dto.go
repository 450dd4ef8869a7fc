package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/registry"
)

// Runner DTOs

// RegisterRunnerRequest — запрос на регистрацию runner'а.
type RegisterRunnerRequest struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	TTLSeconds int               `json:"ttl_seconds,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// FactsRefResponse — указатель runner'а на последние facts.
type FactsRefResponse struct {
	FactsID    uuid.UUID  `json:"facts_id"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
	EvidenceID *uuid.UUID `json:"evidence_id,omitempty"`
	CheckedAt  time.Time  `json:"checked_at"`
}

// RunnerResponse — ответ с runner'ом.
type RunnerResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	CreatedAt  time.Time         `json:"created_at"`
	LastSeenAt time.Time         `json:"last_seen_at"`
	TTLSeconds int               `json:"ttl_seconds"`
	Labels     map[string]string `json:"labels,omitempty"`
	Online     bool              `json:"online"`
	FactsRef   *FactsRefResponse `json:"facts_ref,omitempty"`
}

// RunnerFromView конвертирует registry.RunnerView в RunnerResponse.
func RunnerFromView(v registry.RunnerView) RunnerResponse {
	resp := RunnerResponse{
		ID:         v.ID,
		Name:       v.Name,
		CreatedAt:  v.CreatedAt,
		LastSeenAt: v.LastSeenAt,
		TTLSeconds: v.TTLSeconds,
		Labels:     v.Labels,
		Online:     v.Online,
	}
	if v.FactsRef != nil {
		resp.FactsRef = &FactsRefResponse{
			FactsID:    v.FactsRef.FactsID,
			OrderID:    v.FactsRef.OrderID,
			EvidenceID: v.FactsRef.EvidenceID,
			CheckedAt:  v.FactsRef.CheckedAt,
		}
	}
	return resp
}

// HeartbeatResponse — ответ на heartbeat.
type HeartbeatResponse struct {
	RunnerID   string    `json:"runner_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Order DTOs

// SubmitOrderRequest — запрос на создание order.
type SubmitOrderRequest struct {
	Type            string `json:"type"`
	ClientRequestID string `json:"client_request_id,omitempty"`
}

// OrderResponse — ответ с order.
type OrderResponse struct {
	ID              uuid.UUID  `json:"id"`
	RunnerID        string     `json:"runner_id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	ExitCode        *int       `json:"exit_code,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	EvidenceID      *uuid.UUID `json:"evidence_id,omitempty"`
	ClientRequestID string     `json:"client_request_id,omitempty"`
}

// OrderFromDomain конвертирует domain.Order в OrderResponse.
func OrderFromDomain(o domain.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		RunnerID:        o.RunnerID,
		Type:            string(o.Type),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		StartedAt:       o.StartedAt,
		FinishedAt:      o.FinishedAt,
		ExitCode:        o.ExitCode,
		Summary:         o.Summary,
		EvidenceID:      o.EvidenceID,
		ClientRequestID: o.ClientRequestID,
	}
}

// Evidence DTOs

// EvidenceResponse — ответ с evidence.
type EvidenceResponse struct {
	ID        uuid.UUID `json:"id"`
	RunnerID  string    `json:"runner_id"`
	OrderID   uuid.UUID `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
	Stdout    string    `json:"stdout"`
	Stderr    string    `json:"stderr"`
	ExitCode  int       `json:"exit_code"`
}

// EvidenceFromDomain конвертирует domain.Evidence в EvidenceResponse.
func EvidenceFromDomain(e domain.Evidence) EvidenceResponse {
	return EvidenceResponse{
		ID:        e.ID,
		RunnerID:  e.RunnerID,
		OrderID:   e.OrderID,
		CreatedAt: e.CreatedAt,
		Stdout:    e.Stdout,
		Stderr:    e.Stderr,
		ExitCode:  e.ExitCode,
	}
}

// Facts DTOs

// FactsResponse — ответ с facts.
type FactsResponse struct {
	ID         uuid.UUID       `json:"id"`
	Component  string          `json:"component"`
	RunnerID   string          `json:"runner_id"`
	OrderID    *uuid.UUID      `json:"order_id,omitempty"`
	EvidenceID *uuid.UUID      `json:"evidence_id,omitempty"`
	CheckedAt  time.Time       `json:"checked_at"`
	Checks     map[string]bool `json:"checks"`
	Raw        map[string]any  `json:"raw,omitempty"`
}

// FactsFromDomain конвертирует domain.Facts в FactsResponse.
func FactsFromDomain(f domain.Facts) FactsResponse {
	return FactsResponse{
		ID:         f.ID,
		Component:  f.Component,
		RunnerID:   f.RunnerID,
		OrderID:    f.OrderID,
		EvidenceID: f.EvidenceID,
		CheckedAt:  f.CheckedAt,
		Checks:     f.Checks,
		Raw:        f.Raw,
	}
}
