package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/google/uuid"
)

// LogResponse is the read model of an audit record
type LogResponse struct {
	ID            uuid.UUID       `json:"id"`
	ActorID       *uuid.UUID      `json:"actor_id,omitempty"`
	Module        string          `json:"module"`
	Action        string          `json:"action"`
	ResourceType  string          `json:"resource_type"`
	ResourceID    uuid.UUID       `json:"resource_id"`
	Before        json.RawMessage `json:"before,omitempty"`
	After         json.RawMessage `json:"after,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Service lists audit records
type Service struct {
	repo audit.Repository
}

// NewService creates a new audit Service
func NewService(repo audit.Repository) *Service {
	return &Service{repo: repo}
}

// List returns audit records newest first
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter audit.Filter) ([]LogResponse, error) {
	logs, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]LogResponse, len(logs))
	for i, l := range logs {
		out[i] = LogResponse{
			ID:            l.ID,
			ActorID:       l.ActorID,
			Module:        l.Module,
			Action:        l.Action,
			ResourceType:  l.ResourceType,
			ResourceID:    l.ResourceID,
			Before:        l.Before,
			After:         l.After,
			CorrelationID: l.CorrelationID,
			CreatedAt:     l.CreatedAt,
		}
	}
	return out, nil
}
