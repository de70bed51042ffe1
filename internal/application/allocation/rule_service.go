package allocation

import (
	"context"
	"errors"
	"strings"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ruleResource = "allocation_rule"

// RuleService manages allocation rules and reads allocations
type RuleService struct {
	uow    unitofwork.UnitOfWork
	audit  *auditapp.Recorder
	logger *zap.Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(uow unitofwork.UnitOfWork, recorder *auditapp.Recorder, logger *zap.Logger) *RuleService {
	return &RuleService{uow: uow, audit: recorder, logger: logger}
}

// CreateRule validates and stores an active rule. Every target and the
// optional source account must exist and be active.
func (s *RuleService) CreateRule(ctx context.Context, tenantID, actorID uuid.UUID, req CreateRuleRequest) (*RuleResponse, error) {
	targets := make([]allocation.Target, len(req.Targets))
	for i, t := range req.Targets {
		targets[i] = allocation.Target(t)
	}
	rule, err := allocation.NewRule(tenantID, req.Code, req.Name, allocation.Method(strings.ToUpper(req.Method)), targets, req.EffectiveFrom)
	if err != nil {
		return nil, err
	}
	rule.SourceAccountID = req.SourceAccountID
	rule.Priority = req.Priority
	if req.EffectiveTo != nil {
		to := ledger.CivilDate(*req.EffectiveTo)
		rule.EffectiveTo = &to
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		if _, err := repos.AllocationRules().FindByCode(ctx, tenantID, rule.Code); err == nil {
			return ledger.ErrDuplicateCode.WithDetail("rule_code", rule.Code)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		ids := make([]uuid.UUID, 0, len(targets)+1)
		for _, t := range targets {
			ids = append(ids, t.AccountID)
		}
		if rule.SourceAccountID != nil {
			ids = append(ids, *rule.SourceAccountID)
		}
		accounts, err := repos.Accounts().FindByIDs(ctx, tenantID, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			acct, ok := accounts[id]
			if !ok {
				return ledger.ErrUnknownAccount.WithDetail("account_id", id.String())
			}
			if !acct.IsActive {
				return ledger.ErrInactiveAccount.WithDetail("account_id", id.String())
			}
		}

		if err := repos.AllocationRules().Create(ctx, rule); err != nil {
			return err
		}
		return s.record(ctx, repos, actorID, rule, audit.ActionCreate, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("allocation rule created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("code", rule.Code),
		zap.String("method", string(rule.Method)),
	)
	resp := ToRuleResponse(rule)
	return &resp, nil
}

// SetRuleStatus activates or deactivates a rule
func (s *RuleService) SetRuleStatus(ctx context.Context, tenantID, actorID, ruleID uuid.UUID, req SetRuleStatusRequest) (*RuleResponse, error) {
	var rule *allocation.Rule
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		rule, err = repos.AllocationRules().FindByID(ctx, tenantID, ruleID)
		if err != nil {
			return err
		}
		before := ToRuleResponse(rule)
		if err := rule.SetStatus(allocation.RuleStatus(strings.ToUpper(req.Status))); err != nil {
			return err
		}
		if err := repos.AllocationRules().Save(ctx, rule); err != nil {
			return err
		}
		return s.record(ctx, repos, actorID, rule, audit.ActionUpdate, before)
	})
	if err != nil {
		return nil, err
	}
	resp := ToRuleResponse(rule)
	return &resp, nil
}

// ListRules returns rules ordered by priority then code
func (s *RuleService) ListRules(ctx context.Context, tenantID uuid.UUID, filter RuleListFilter) ([]RuleResponse, error) {
	rules, err := s.uow.Repos().AllocationRules().List(ctx, tenantID, allocation.RuleFilter{
		Status: allocation.RuleStatus(strings.ToUpper(filter.Status)),
	})
	if err != nil {
		return nil, err
	}
	out := make([]RuleResponse, len(rules))
	for i, r := range rules {
		out[i] = ToRuleResponse(r)
	}
	return out, nil
}

// GetRule returns a rule by id
func (s *RuleService) GetRule(ctx context.Context, tenantID, ruleID uuid.UUID) (*RuleResponse, error) {
	rule, err := s.uow.Repos().AllocationRules().FindByID(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	resp := ToRuleResponse(rule)
	return &resp, nil
}

// GetAllocation returns an allocation with its entries
func (s *RuleService) GetAllocation(ctx context.Context, tenantID, allocationID uuid.UUID) (*AllocationResponse, error) {
	a, err := s.uow.Repos().Allocations().FindByID(ctx, tenantID, allocationID)
	if err != nil {
		return nil, err
	}
	resp := ToAllocationResponse(a)
	return &resp, nil
}

// GetAllocationBySource returns the allocation made for a source entry
func (s *RuleService) GetAllocationBySource(ctx context.Context, tenantID, entryID uuid.UUID) (*AllocationResponse, error) {
	a, err := s.uow.Repos().Allocations().FindBySourceEntry(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	resp := ToAllocationResponse(a)
	return &resp, nil
}

func (s *RuleService) record(ctx context.Context, repos unitofwork.Repositories, actorID uuid.UUID, r *allocation.Rule, action string, before any) error {
	return s.audit.Record(ctx, repos.Audit(), auditapp.Entry{
		TenantID:     r.TenantID,
		ActorID:      actorID,
		Module:       allocationModule,
		Action:       action,
		ResourceType: ruleResource,
		ResourceID:   r.ID,
		Before:       before,
		After:        ToRuleResponse(r),
	})
}
