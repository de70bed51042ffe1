package retention

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/retention"
	"github.com/google/uuid"
)

// CreatePolicyRequest represents a request to create a retention policy
type CreatePolicyRequest struct {
	Name          string            `json:"name" binding:"required,min=1,max=100"`
	TargetTable   string            `json:"target_table" binding:"required"`
	Category      string            `json:"category" binding:"max=50"`
	RetentionDays int               `json:"retention_days" binding:"required,min=1"`
	Action        string            `json:"action" binding:"required,oneof=DELETE ARCHIVE ANONYMIZE delete archive anonymize"`
	Conditions    map[string]string `json:"conditions"`
	IntervalHours int               `json:"interval_hours" binding:"min=0"`
	FirstRun      *time.Time        `json:"first_run"`
}

// PolicyResponse represents a retention policy in API responses
type PolicyResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	TargetTable    string            `json:"target_table"`
	Category       string            `json:"category,omitempty"`
	RetentionDays  int               `json:"retention_days"`
	Action         string            `json:"action"`
	Conditions     map[string]string `json:"conditions,omitempty"`
	IntervalHours  int               `json:"interval_hours"`
	NextExecution  time.Time         `json:"next_execution"`
	IsActive       bool              `json:"is_active"`
	LastExecutedAt *time.Time        `json:"last_executed_at,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ExecutionResponse represents one policy run
type ExecutionResponse struct {
	ID         uuid.UUID  `json:"id"`
	PolicyID   uuid.UUID  `json:"policy_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int64      `json:"processed"`
	Deleted    int64      `json:"deleted"`
	Archived   int64      `json:"archived"`
	Anonymized int64      `json:"anonymized"`
	DurationMs int64      `json:"duration_ms"`
	Error      string     `json:"error,omitempty"`
}

func normalizeAction(s string) retention.Action {
	return retention.Action(strings.ToUpper(strings.TrimSpace(s)))
}

// ToPolicyResponse converts a domain Policy to PolicyResponse
func ToPolicyResponse(p *retention.Policy) PolicyResponse {
	return PolicyResponse{
		ID:             p.ID,
		Name:           p.Name,
		TargetTable:    p.TargetTable,
		Category:       p.Category,
		RetentionDays:  p.RetentionDays,
		Action:         string(p.Action),
		Conditions:     p.Conditions,
		IntervalHours:  p.IntervalHours,
		NextExecution:  p.NextExecution,
		IsActive:       p.IsActive,
		LastExecutedAt: p.LastExecutedAt,
		LastError:      p.LastError,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToExecutionResponse converts a domain Execution to ExecutionResponse
func ToExecutionResponse(e *retention.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:         e.ID,
		PolicyID:   e.PolicyID,
		Status:     string(e.Status),
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
		Processed:  e.Processed,
		Deleted:    e.Deleted,
		Archived:   e.Archived,
		Anonymized: e.Anonymized,
		DurationMs: e.DurationMs,
		Error:      e.Error,
	}
}
