// Package allocation runs allocation rules against posted journal entries.
package allocation

import (
	"context"
	"errors"
	"fmt"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	allocationModule   = "ALLOCATION"
	allocationResource = "allocation"
)

// Engine distributes posted source entries over rule targets. Each target
// share becomes its own posted ALLOCATION entry; the allocation either
// commits with all of its entries or not at all.
type Engine struct {
	uow      unitofwork.UnitOfWork
	journal  *ledgerapp.JournalService
	audit    *auditapp.Recorder
	settings ledgerapp.Settings
	metrics  *telemetry.LedgerMetrics
	logger   *zap.Logger
}

// NewEngine creates a new Engine
func NewEngine(uow unitofwork.UnitOfWork, journal *ledgerapp.JournalService, recorder *auditapp.Recorder, settings ledgerapp.Settings, logger *zap.Logger) *Engine {
	return &Engine{
		uow:      uow,
		journal:  journal,
		audit:    recorder,
		settings: settings,
		logger:   logger,
	}
}

// SetMetrics attaches ledger metrics
func (e *Engine) SetMetrics(m *telemetry.LedgerMetrics) {
	e.metrics = m
}

// Process allocates one posted entry. An entry that was already allocated
// returns the existing allocation. No matching rule is not an error.
func (e *Engine) Process(ctx context.Context, tenantID, actorID, entryID uuid.UUID) (*ProcessResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "allocation", "process", attribute.String("entry_id", entryID.String()))
	var result *ProcessResult
	err := e.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		result, err = e.processIn(ctx, repos, tenantID, actorID, entryID, false)
		return err
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		e.metrics.AllocationRun(ctx, string(OutcomeFailed))
		e.logger.Warn("allocation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("entry_id", entryID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	e.metrics.AllocationRun(ctx, string(result.Outcome))
	return result, nil
}

// ProcessPeriod allocates every posted, unallocated entry dated in the
// period, one transaction per entry. Cancellation is checked between entries.
func (e *Engine) ProcessPeriod(ctx context.Context, tenantID, actorID, periodID uuid.UUID) (*PeriodResult, error) {
	period, err := e.uow.Repos().Periods().FindByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	ids, err := e.uow.Repos().Entries().PostedInRange(ctx, tenantID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}

	summary := &PeriodResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := e.Process(ctx, tenantID, actorID, id)
		if err != nil {
			return summary, err
		}
		summary.add(res.Outcome)
	}
	return summary, nil
}

// RunCloseTask allocates the closing period's entries inside the close
// task's transaction. Postings are made in close scope.
func (e *Engine) RunCloseTask(ctx context.Context, repos unitofwork.Repositories, period *ledger.AccountingPeriod, actorID uuid.UUID) (string, error) {
	ids, err := repos.Entries().PostedInRange(ctx, period.TenantID, period.StartDate, period.EndDate)
	if err != nil {
		return "", err
	}
	summary := &PeriodResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		res, err := e.processIn(ctx, repos, period.TenantID, actorID, id, true)
		if err != nil {
			return "", err
		}
		e.metrics.AllocationRun(ctx, string(res.Outcome))
		summary.add(res.Outcome)
	}
	return fmt.Sprintf("%d entries checked, %d allocated, %d skipped", summary.Processed, summary.Allocated, summary.Skipped), nil
}

func (r *PeriodResult) add(o Outcome) {
	r.Processed++
	if o == OutcomeAllocated {
		r.Allocated++
	} else {
		r.Skipped++
	}
}

func (e *Engine) processIn(ctx context.Context, repos unitofwork.Repositories, tenantID, actorID, entryID uuid.UUID, closeScope bool) (*ProcessResult, error) {
	result := &ProcessResult{SourceEntryID: entryID}

	existing, err := repos.Allocations().FindBySourceEntry(ctx, tenantID, entryID)
	switch {
	case err == nil:
		resp := ToAllocationResponse(existing)
		result.Outcome, result.Allocation = OutcomeExisting, &resp
		return result, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	source, err := repos.Entries().FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if !allocatable(source) {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	rules, err := repos.AllocationRules().List(ctx, tenantID, allocation.RuleFilter{Status: allocation.RuleStatusActive})
	if err != nil {
		return nil, err
	}
	rule, ok := allocation.SelectRule(rules, source.EntryDate, source.DebitAccountIDs()).Rule()
	if !ok {
		e.logger.Info("no allocation rule matches entry",
			zap.String("tenant_id", tenantID.String()),
			zap.String("entry_number", source.EntryNumber),
			zap.String("code", ledger.CodeNoMatchingRule),
		)
		result.Outcome = OutcomeNoRule
		return result, nil
	}

	base := source.TotalDebit
	shares, err := allocation.Distribute(rule, base, e.settings.Precision.Scale(e.settings.BaseCurrency))
	if err != nil {
		return nil, err
	}
	creditAccount := firstDebitAccount(source)

	alloc := allocation.NewAllocation(tenantID, rule, source.ID, base)
	for i, target := range rule.Targets {
		// a zero share posts nothing, so the target gets no allocation entry
		if shares[i].IsZero() {
			continue
		}
		entry, err := e.journal.PostDraft(ctx, repos, tenantID, actorID, ledgerapp.DraftEntryRequest{
			EntryDate:    source.EntryDate,
			Description:  fmt.Sprintf("Allocation %s of %s", rule.Code, source.EntryNumber),
			Reference:    source.EntryNumber,
			SourceModule: string(ledger.SourceAllocation),
			SourceID:     &source.ID,
			Lines: []ledgerapp.LineRequest{
				{AccountID: target.AccountID, Description: target.Description, Debit: shares[i]},
				{AccountID: creditAccount, Description: "Allocated out", Credit: shares[i]},
			},
		}, ledgerapp.PostOptions{CloseScope: closeScope})
		if err != nil {
			return nil, err
		}
		alloc.AddEntry(target.AccountID, shares[i], entry.ID)
	}

	if err := repos.Allocations().Create(ctx, alloc); err != nil {
		return nil, err
	}
	alloc.Complete()
	if err := repos.Events().Record(ctx, alloc.GetDomainEvents()...); err != nil {
		return nil, err
	}
	alloc.ClearDomainEvents()

	resp := ToAllocationResponse(alloc)
	if err := e.audit.Record(ctx, repos.Audit(), auditapp.Entry{
		TenantID:     tenantID,
		ActorID:      actorID,
		Module:       allocationModule,
		Action:       audit.ActionAllocate,
		ResourceType: allocationResource,
		ResourceID:   alloc.ID,
		After:        resp,
	}); err != nil {
		return nil, err
	}

	e.logger.Info("entry allocated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entry_number", source.EntryNumber),
		zap.String("rule", rule.Code),
		zap.Int("targets", len(alloc.Entries)),
	)
	result.Outcome, result.Allocation = OutcomeAllocated, &resp
	return result, nil
}

// allocatable excludes entries the engine produced itself, closing entries
// and reversals, which would otherwise be allocated again.
func allocatable(e *ledger.JournalEntry) bool {
	if e.Status != ledger.EntryStatusPosted {
		return false
	}
	if e.SourceModule == ledger.SourceAllocation || e.SourceModule == ledger.SourceClose {
		return false
	}
	return e.ReversalOfID == nil
}

func firstDebitAccount(e *ledger.JournalEntry) uuid.UUID {
	for _, l := range e.Lines {
		if l.Debit.IsPositive() {
			return l.AccountID
		}
	}
	return uuid.Nil
}
