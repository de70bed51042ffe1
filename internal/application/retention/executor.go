// Package retention runs data retention policies against registered tables.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// JobKind is the scheduler job kind of one policy run
const JobKind = "retention"

// DefaultBatchSize is used when no batch size is configured
const DefaultBatchSize = 500

// Executor applies due retention policies. Rows are processed in key order,
// one batch at a time; policy and execution state go through the unit of work.
type Executor struct {
	uow       unitofwork.UnitOfWork
	store     retention.RecordStore
	sink      retention.ArchiveSink
	batchSize int
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewExecutor creates a new Executor. A nil sink rejects archive policies at run time.
func NewExecutor(uow unitofwork.UnitOfWork, store retention.RecordStore, sink retention.ArchiveSink, batchSize int, logger *zap.Logger) *Executor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Executor{
		uow:       uow,
		store:     store,
		sink:      sink,
		batchSize: batchSize,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics attaches ledger metrics
func (e *Executor) SetMetrics(m *telemetry.LedgerMetrics) {
	e.metrics = m
}

// RunDue executes every policy due at now and returns their executions.
// A failing policy does not stop the others.
func (e *Executor) RunDue(ctx context.Context, now time.Time) ([]*retention.Execution, error) {
	policies, err := e.uow.Repos().RetentionPolicies().ListDue(ctx, now)
	if err != nil {
		return nil, err
	}

	executions := make([]*retention.Execution, 0, len(policies))
	for _, policy := range policies {
		if err := ctx.Err(); err != nil {
			return executions, err
		}
		exec, err := e.RunPolicy(ctx, policy, now)
		if exec != nil {
			executions = append(executions, exec)
		}
		if err != nil {
			e.logger.Warn("retention policy failed",
				zap.String("policy_id", policy.ID.String()),
				zap.String("table", policy.TargetTable),
				zap.Error(err),
			)
		}
	}
	return executions, nil
}

// RunPolicy applies one policy. The returned execution is persisted whether
// or not the run succeeds; the error is the run's failure, if any.
func (e *Executor) RunPolicy(ctx context.Context, policy *retention.Policy, now time.Time) (*retention.Execution, error) {
	ctx, span := telemetry.StartSpan(ctx, "retention", "run_policy",
		attribute.String("policy_id", policy.ID.String()),
		attribute.String("table", policy.TargetTable),
		attribute.String("action", string(policy.Action)),
	)

	exec := retention.NewExecution(policy, e.now())
	if err := e.uow.Repos().RetentionExecutions().Create(ctx, exec); err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}

	runErr := e.apply(ctx, policy, exec, now)
	exec.Finish(e.now(), runErr)
	if runErr != nil {
		policy.MarkFailed(now, runErr.Error())
	} else {
		policy.MarkSucceeded(now)
	}

	err := e.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		if err := repos.RetentionExecutions().Save(ctx, exec); err != nil {
			return err
		}
		return repos.RetentionPolicies().Save(ctx, policy)
	})
	if err == nil {
		err = runErr
	}
	telemetry.EndSpan(span, err)

	e.logger.Info("retention policy executed",
		zap.String("tenant_id", policy.TenantID.String()),
		zap.String("policy", policy.Name),
		zap.String("table", policy.TargetTable),
		zap.String("status", string(exec.Status)),
		zap.Int64("processed", exec.Processed),
		zap.Int64("deleted", exec.Deleted),
		zap.Int64("archived", exec.Archived),
		zap.Int64("anonymized", exec.Anonymized),
		zap.Int64("duration_ms", exec.DurationMs),
	)
	return exec, err
}

func (e *Executor) apply(ctx context.Context, policy *retention.Policy, exec *retention.Execution, now time.Time) error {
	target, ok := retention.LookupTarget(policy.TargetTable)
	if !ok {
		return fmt.Errorf("unsupported retention target %q", policy.TargetTable)
	}
	if policy.Action == retention.ActionArchive && e.sink == nil {
		return fmt.Errorf("no archive sink configured for policy %s", policy.ID)
	}

	sel := retention.Selection{
		Target:     target,
		TenantID:   policy.TenantID,
		Cutoff:     policy.Cutoff(now),
		Conditions: policy.Conditions,
		Limit:      e.batchSize,
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := e.store.Select(ctx, sel)
		if err != nil {
			return fmt.Errorf("select %s: %w", target.Table, err)
		}
		if len(records) == 0 {
			return nil
		}
		keys := make([]any, len(records))
		for i, rec := range records {
			keys[i] = rec[target.KeyColumn]
		}
		exec.Processed += int64(len(records))

		if err := e.applyBatch(ctx, policy, target, exec, records, keys); err != nil {
			return err
		}
		if len(records) < e.batchSize {
			return nil
		}
		sel.AfterKey = keys[len(keys)-1]
	}
}

func (e *Executor) applyBatch(ctx context.Context, policy *retention.Policy, target retention.Target, exec *retention.Execution, records []retention.Record, keys []any) error {
	action := string(policy.Action)
	switch policy.Action {
	case retention.ActionArchive:
		if err := e.sink.Archive(ctx, retention.ArchiveBatch{
			TenantID:   policy.TenantID,
			PolicyID:   policy.ID,
			Table:      target.Table,
			Records:    records,
			ArchivedAt: e.now(),
		}); err != nil {
			return fmt.Errorf("archive %s: %w", target.Table, err)
		}
		n, err := e.store.Delete(ctx, target, policy.TenantID, keys)
		if err != nil {
			return fmt.Errorf("delete archived %s: %w", target.Table, err)
		}
		exec.Archived += n
		e.metrics.RetentionRows(ctx, target.Table, action, n)
	case retention.ActionAnonymize:
		n, err := e.store.Anonymize(ctx, target, policy.TenantID, keys)
		if err != nil {
			return fmt.Errorf("anonymize %s: %w", target.Table, err)
		}
		exec.Anonymized += n
		e.metrics.RetentionRows(ctx, target.Table, action, n)
	default:
		n, err := e.store.Delete(ctx, target, policy.TenantID, keys)
		if err != nil {
			return fmt.Errorf("delete %s: %w", target.Table, err)
		}
		exec.Deleted += n
		e.metrics.RetentionRows(ctx, target.Table, action, n)
	}
	return nil
}

// DueJobs is the trigger source: one job per due policy
func (e *Executor) DueJobs(ctx context.Context, now time.Time) ([]*scheduler.Job, error) {
	policies, err := e.uow.Repos().RetentionPolicies().ListDue(ctx, now)
	if err != nil {
		return nil, err
	}
	jobs := make([]*scheduler.Job, len(policies))
	for i, p := range policies {
		jobs[i] = scheduler.NewJob(JobKind, p.TenantID, p.ID, 0)
	}
	return jobs, nil
}

// Execute runs the policy named by a scheduler job. A policy that is no
// longer due by the time the job runs is skipped.
func (e *Executor) Execute(ctx context.Context, job *scheduler.Job) error {
	policy, err := e.uow.Repos().RetentionPolicies().FindByID(ctx, job.TenantID, job.SubjectID)
	if err != nil {
		return err
	}
	now := e.now()
	if !policy.IsDue(now) {
		return nil
	}
	_, err = e.RunPolicy(ctx, policy, now)
	return err
}

// RunNow runs one policy immediately regardless of its schedule
func (e *Executor) RunNow(ctx context.Context, tenantID, policyID uuid.UUID) (*retention.Execution, error) {
	policy, err := e.uow.Repos().RetentionPolicies().FindByID(ctx, tenantID, policyID)
	if err != nil {
		return nil, err
	}
	return e.RunPolicy(ctx, policy, e.now())
}

// Ensure Executor implements JobExecutor
var _ scheduler.JobExecutor = (*Executor)(nil)
