package retention

import (
	"context"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	retentionModule = "RETENTION"
	policyResource  = "retention_policy"
)

// Service manages retention policies and on-demand runs
type Service struct {
	uow      unitofwork.UnitOfWork
	executor *Executor
	audit    *auditapp.Recorder
	logger   *zap.Logger
}

// NewService creates a new retention Service
func NewService(uow unitofwork.UnitOfWork, executor *Executor, recorder *auditapp.Recorder, logger *zap.Logger) *Service {
	return &Service{uow: uow, executor: executor, audit: recorder, logger: logger}
}

// CreatePolicy validates and stores a new active policy
func (s *Service) CreatePolicy(ctx context.Context, tenantID, actorID uuid.UUID, req CreatePolicyRequest) (*PolicyResponse, error) {
	var firstRun time.Time
	if req.FirstRun != nil {
		firstRun = *req.FirstRun
	}
	policy, err := retention.NewPolicy(tenantID, req.Name, req.TargetTable, req.Category,
		req.RetentionDays, normalizeAction(req.Action), req.Conditions, req.IntervalHours, firstRun)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		if err := repos.RetentionPolicies().Create(ctx, policy); err != nil {
			return err
		}
		return s.audit.Record(ctx, repos.Audit(), auditapp.Entry{
			TenantID:     tenantID,
			ActorID:      actorID,
			Module:       retentionModule,
			Action:       audit.ActionCreate,
			ResourceType: policyResource,
			ResourceID:   policy.ID,
			After:        ToPolicyResponse(policy),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("retention policy created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("policy", policy.Name),
		zap.String("table", policy.TargetTable),
		zap.String("action", string(policy.Action)),
	)
	resp := ToPolicyResponse(policy)
	return &resp, nil
}

// ListPolicies returns the tenant's policies
func (s *Service) ListPolicies(ctx context.Context, tenantID uuid.UUID) ([]PolicyResponse, error) {
	policies, err := s.uow.Repos().RetentionPolicies().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]PolicyResponse, len(policies))
	for i, p := range policies {
		out[i] = ToPolicyResponse(p)
	}
	return out, nil
}

// ListExecutions returns the most recent runs of a policy
func (s *Service) ListExecutions(ctx context.Context, tenantID, policyID uuid.UUID, limit int) ([]ExecutionResponse, error) {
	if _, err := s.uow.Repos().RetentionPolicies().FindByID(ctx, tenantID, policyID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	execs, err := s.uow.Repos().RetentionExecutions().ListByPolicy(ctx, tenantID, policyID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ExecutionResponse, len(execs))
	for i, e := range execs {
		out[i] = ToExecutionResponse(e)
	}
	return out, nil
}

// RunPolicy runs a policy now. A failed run still returns its execution
// together with the error.
func (s *Service) RunPolicy(ctx context.Context, tenantID, policyID uuid.UUID) (*ExecutionResponse, error) {
	exec, err := s.executor.RunNow(ctx, tenantID, policyID)
	if exec == nil {
		return nil, err
	}
	resp := ToExecutionResponse(exec)
	return &resp, err
}
