package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/reporting"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	periodResource = "accounting_period"
	closeResource  = "close_process"
	closeModule    = "CLOSE"
)

// CloseTaskRunner performs an automated close task for a closing period
// inside the task's transaction and returns a short result summary.
// Implementations check ctx between discrete steps.
type CloseTaskRunner interface {
	RunCloseTask(ctx context.Context, repos unitofwork.Repositories, period *ledger.AccountingPeriod, actorID uuid.UUID) (string, error)
}

// CloseTaskRunnerFunc adapts a function to CloseTaskRunner
type CloseTaskRunnerFunc func(ctx context.Context, repos unitofwork.Repositories, period *ledger.AccountingPeriod, actorID uuid.UUID) (string, error)

// RunCloseTask calls f
func (f CloseTaskRunnerFunc) RunCloseTask(ctx context.Context, repos unitofwork.Repositories, period *ledger.AccountingPeriod, actorID uuid.UUID) (string, error) {
	return f(ctx, repos, period, actorID)
}

// taskFailure marks an error raised by the task itself, as opposed to the
// bookkeeping around it, so that the failure can be recorded on the task.
type taskFailure struct {
	err error
}

func (f *taskFailure) Error() string { return f.err.Error() }
func (f *taskFailure) Unwrap() error { return f.err }

// PeriodService manages accounting periods and the close workflow
type PeriodService struct {
	uow      unitofwork.UnitOfWork
	journal  *JournalService
	audit    *auditapp.Recorder
	settings Settings
	runners  map[ledger.TaskCode]CloseTaskRunner
	metrics  *telemetry.LedgerMetrics
	logger   *zap.Logger
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(uow unitofwork.UnitOfWork, journal *JournalService, recorder *auditapp.Recorder, settings Settings, logger *zap.Logger) *PeriodService {
	return &PeriodService{
		uow:      uow,
		journal:  journal,
		audit:    recorder,
		settings: settings,
		runners:  make(map[ledger.TaskCode]CloseTaskRunner),
		logger:   logger,
	}
}

// SetMetrics attaches ledger metrics
func (s *PeriodService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// RegisterTaskRunner binds an automated close task to the subsystem that performs it
func (s *PeriodService) RegisterTaskRunner(code ledger.TaskCode, runner CloseTaskRunner) {
	s.runners[code] = runner
}

// CreatePeriod opens a new period. Periods of a tenant never overlap.
func (s *PeriodService) CreatePeriod(ctx context.Context, tenantID, actorID uuid.UUID, req CreatePeriodRequest) (*PeriodResponse, error) {
	period, err := ledger.NewAccountingPeriod(tenantID, req.Label, ledger.PeriodType(strings.ToUpper(req.PeriodType)), req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		overlapping, err := repos.Periods().FindOverlapping(ctx, tenantID, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return ledger.ErrOverlappingPeriod.
				WithDetail("label", period.Label).
				WithDetail("overlaps", overlapping[0].Label)
		}
		if err := repos.Periods().Create(ctx, period); err != nil {
			return err
		}
		return s.recordPeriod(ctx, repos, actorID, period, audit.ActionCreate, nil)
	})
	if err != nil {
		return nil, err
	}
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// ListPeriods returns periods ordered by start date
func (s *PeriodService) ListPeriods(ctx context.Context, tenantID uuid.UUID) ([]PeriodResponse, error) {
	periods, err := s.uow.Repos().Periods().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]PeriodResponse, len(periods))
	for i, p := range periods {
		out[i] = ToPeriodResponse(p)
	}
	return out, nil
}

// GetPeriod returns a period by id
func (s *PeriodService) GetPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*PeriodResponse, error) {
	period, err := s.uow.Repos().Periods().FindByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// InitiateClose moves an open period to closing and creates its close
// process. From here on only close-workflow postings are accepted in the period,
// so approved entries dated in it must be posted first.
func (s *PeriodService) InitiateClose(ctx context.Context, tenantID, actorID, periodID uuid.UUID) (*CloseProcessResponse, error) {
	var process *ledger.CloseProcess
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		period, err := repos.Periods().LockByID(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if period.Status == ledger.PeriodStatusOpen {
			approved, err := repos.Entries().CountInRange(ctx, tenantID, ledger.CloseBlockingStatuses, period.StartDate, period.EndDate)
			if err != nil {
				return err
			}
			if approved > 0 {
				return ledger.ErrUnpostedEntries.
					WithDetail("period_id", period.ID.String()).
					WithDetail("status", string(ledger.EntryStatusApproved)).
					WithDetail("count", strconv.FormatInt(approved, 10))
			}
		}
		before := ToPeriodResponse(period)
		if err := period.BeginClose(); err != nil {
			return err
		}
		if err := repos.Periods().Save(ctx, period); err != nil {
			return err
		}
		process = ledger.NewCloseProcess(tenantID, period.ID, actorID)
		if err := repos.Closes().Create(ctx, process); err != nil {
			return err
		}
		return s.recordPeriod(ctx, repos, actorID, period, audit.ActionInitClose, before)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("period close initiated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("period_id", periodID.String()),
		zap.String("close_id", process.ID.String()),
	)
	resp := ToCloseProcessResponse(process)
	return &resp, nil
}

// GetCloseProcess returns a close process with its tasks
func (s *PeriodService) GetCloseProcess(ctx context.Context, tenantID, closeID uuid.UUID) (*CloseProcessResponse, error) {
	process, err := s.uow.Repos().Closes().FindByID(ctx, tenantID, closeID)
	if err != nil {
		return nil, err
	}
	resp := ToCloseProcessResponse(process)
	return &resp, nil
}

// GetCloseProcessByPeriod returns the close process of a period
func (s *PeriodService) GetCloseProcessByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*CloseProcessResponse, error) {
	process, err := s.uow.Repos().Closes().FindByPeriod(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	resp := ToCloseProcessResponse(process)
	return &resp, nil
}

// ExecuteTask runs one close task. Manual tasks complete with the actor
// recorded; automated tasks call their registered runner. A runner error
// rolls back the runner's work, marks the task failed and is returned.
// Failed tasks may be executed again.
func (s *PeriodService) ExecuteTask(ctx context.Context, tenantID, actorID, taskID uuid.UUID) (*CloseProcessResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "close", "execute_task", attribute.String("task_id", taskID.String()))
	var process *ledger.CloseProcess
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		process, err = repos.Closes().FindByTaskID(ctx, tenantID, taskID)
		if err != nil {
			return err
		}
		if process.Status != ledger.CloseStatusInProgress {
			return ledger.ErrWrongStatus.
				WithDetail("close_id", process.ID.String()).
				WithDetail("status", string(process.Status))
		}
		task, err := process.Task(taskID)
		if err != nil {
			return err
		}
		before := *task
		if err := task.Start(); err != nil {
			return err
		}

		result := "completed"
		if task.Automated {
			period, err := repos.Periods().FindByID(ctx, tenantID, process.PeriodID)
			if err != nil {
				return err
			}
			result, err = s.runTask(ctx, repos, task.Code, period, actorID)
			if err != nil {
				return &taskFailure{err: err}
			}
		}
		if err := task.Complete(actorID, result); err != nil {
			return err
		}
		if err := repos.Closes().Save(ctx, process); err != nil {
			return err
		}
		return s.recordTask(ctx, repos, actorID, process, before, *task)
	})

	var failure *taskFailure
	if errors.As(err, &failure) {
		s.logger.Warn("close task failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("task_id", taskID.String()),
			zap.Error(failure.err),
		)
		if recErr := s.recordTaskFailure(ctx, tenantID, actorID, taskID, failure.err); recErr != nil {
			s.logger.Error("could not record close task failure", zap.Error(recErr))
		}
		err = failure.err
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	resp := ToCloseProcessResponse(process)
	return &resp, nil
}

func (s *PeriodService) runTask(ctx context.Context, repos unitofwork.Repositories, code ledger.TaskCode, period *ledger.AccountingPeriod, actorID uuid.UUID) (string, error) {
	runner, ok := s.runners[code]
	if !ok {
		return "", fmt.Errorf("no runner registered for close task %s", code)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return runner.RunCloseTask(ctx, repos, period, actorID)
}

func (s *PeriodService) recordTaskFailure(ctx context.Context, tenantID, actorID, taskID uuid.UUID, cause error) error {
	return s.uow.Do(context.WithoutCancel(ctx), func(ctx context.Context, repos unitofwork.Repositories) error {
		process, err := repos.Closes().FindByTaskID(ctx, tenantID, taskID)
		if err != nil {
			return err
		}
		task, err := process.Task(taskID)
		if err != nil {
			return err
		}
		before := *task
		if err := task.Start(); err != nil {
			return err
		}
		if err := task.Fail(cause.Error()); err != nil {
			return err
		}
		if err := repos.Closes().Save(ctx, process); err != nil {
			return err
		}
		return s.recordTask(ctx, repos, actorID, process, before, *task)
	})
}

// CompleteClose posts the closing entry and locks the period. Every
// required task must be completed, no entry dated in the period may be
// unposted and the trial balance at period end must be equal.
func (s *PeriodService) CompleteClose(ctx context.Context, tenantID, actorID, closeID uuid.UUID) (*CompleteCloseResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "close", "complete", attribute.String("close_id", closeID.String()))
	resp := &CompleteCloseResponse{}
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		process, err := repos.Closes().FindByID(ctx, tenantID, closeID)
		if err != nil {
			return err
		}
		if process.Status != ledger.CloseStatusInProgress {
			return ledger.ErrWrongStatus.
				WithDetail("close_id", closeID.String()).
				WithDetail("status", string(process.Status))
		}
		if pending := process.IncompleteTasks(); len(pending) > 0 {
			return ledger.ErrTasksIncomplete.
				WithDetail("close_id", closeID.String()).
				WithDetail("tasks", strings.Join(pending, ","))
		}

		period, err := repos.Periods().LockByID(ctx, tenantID, process.PeriodID)
		if err != nil {
			return err
		}
		if period.Status != ledger.PeriodStatusClosing {
			return ledger.ErrWrongStatus.
				WithDetail("period_id", period.ID.String()).
				WithDetail("status", string(period.Status))
		}
		before := ToPeriodResponse(period)

		unposted, err := repos.Entries().CountInRange(ctx, tenantID, ledger.UnpostedStatuses, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		if unposted > 0 {
			return ledger.ErrUnpostedEntries.
				WithDetail("period_id", period.ID.String()).
				WithDetail("count", strconv.FormatInt(unposted, 10))
		}

		accounts, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{})
		if err != nil {
			return err
		}
		end := period.EndDate
		lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{To: &end})
		if err != nil {
			return err
		}
		totals := reporting.SumByAccount(lines)
		if tb, err := reporting.BuildTrialBalance(tenantID, end, accounts, totals); err != nil {
			return ledger.ErrOutOfBalance.
				WithDetail("period_id", period.ID.String()).
				WithDetail("total_debit", tb.TotalDebit.String()).
				WithDetail("total_credit", tb.TotalCredit.String())
		}

		var balances []ledger.AccountBalance
		for _, acct := range accounts {
			if acct.Type.IsTemporary() {
				balances = append(balances, ledger.AccountBalance{Account: acct, Balance: reporting.NetBalance(acct, totals[acct.ID])})
			}
		}
		retained, err := ResolveControlAccount(ctx, repos.Accounts(), tenantID, "retained_earnings", s.settings.Controls.RetainedEarnings)
		if err != nil {
			return err
		}
		closingLines, net := ledger.BuildClosingLines(balances, retained.ID)
		resp.NetIncome = net

		var closingEntryID *uuid.UUID
		if len(closingLines) > 0 {
			entry, err := s.journal.PostDraft(ctx, repos, tenantID, actorID, DraftEntryRequest{
				EntryDate:    period.EndDate,
				Description:  "Closing entry " + period.Label,
				Reference:    period.Label,
				SourceModule: string(ledger.SourceClose),
				SourceID:     &period.ID,
				Lines:        toLineRequests(closingLines),
			}, PostOptions{CloseScope: true})
			if err != nil {
				return err
			}
			closingEntryID = &entry.ID
			closing := ToEntryResponse(entry)
			resp.ClosingEntry = &closing
		}

		if err := period.Close(actorID, closingEntryID); err != nil {
			return err
		}
		if err := repos.Periods().Save(ctx, period); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, period.GetDomainEvents()...); err != nil {
			return err
		}
		period.ClearDomainEvents()
		if err := process.Finish(actorID, closingEntryID); err != nil {
			return err
		}
		if err := repos.Closes().Save(ctx, process); err != nil {
			return err
		}
		resp.Period = ToPeriodResponse(period)
		return s.recordPeriod(ctx, repos, actorID, period, audit.ActionClose, before)
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logger.Info("period close rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("close_id", closeID.String()),
			zap.String("code", errorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.PeriodClosed(ctx)
	s.logger.Info("period closed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("period", resp.Period.Label),
		zap.String("net_income", resp.NetIncome.String()),
	)
	return resp, nil
}

func (s *PeriodService) recordPeriod(ctx context.Context, repos unitofwork.Repositories, actorID uuid.UUID, p *ledger.AccountingPeriod, action string, before any) error {
	return s.audit.Record(ctx, repos.Audit(), auditapp.Entry{
		TenantID:     p.TenantID,
		ActorID:      actorID,
		Module:       closeModule,
		Action:       action,
		ResourceType: periodResource,
		ResourceID:   p.ID,
		Before:       before,
		After:        ToPeriodResponse(p),
	})
}

func (s *PeriodService) recordTask(ctx context.Context, repos unitofwork.Repositories, actorID uuid.UUID, cp *ledger.CloseProcess, before, after ledger.CloseTask) error {
	return s.audit.Record(ctx, repos.Audit(), auditapp.Entry{
		TenantID:     cp.TenantID,
		ActorID:      actorID,
		Module:       closeModule,
		Action:       audit.ActionExecuteTask,
		ResourceType: closeResource,
		ResourceID:   cp.ID,
		Before:       map[string]string{"task": string(before.Code), "status": string(before.Status)},
		After:        map[string]string{"task": string(after.Code), "status": string(after.Status), "result": after.Result, "error": after.Error},
	})
}

func toLineRequests(lines []ledger.JournalLine) []LineRequest {
	out := make([]LineRequest, len(lines))
	for i, l := range lines {
		out[i] = LineRequest{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}
	return out
}
