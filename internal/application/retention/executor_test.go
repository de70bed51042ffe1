package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	tenantID uuid.UUID
	actorID  uuid.UUID
	executor *Executor
	service  *Service
	reader   *sdkmetric.ManualReader
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	uow := persistence.NewGormUnitOfWork(db, nil)
	logger := zap.NewNop()

	reader := sdkmetric.NewManualReader()
	metrics, err := telemetry.NewLedgerMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	executor := NewExecutor(uow, persistence.NewGormRecordStore(db), persistence.NewGormArchiveSink(db), batchSize, logger)
	executor.SetMetrics(metrics)
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		tenantID: testutil.TestTenantID(),
		actorID:  testutil.TestUserID(),
		executor: executor,
		service:  NewService(uow, executor, auditapp.NewRecorder(time.Second, logger), logger),
		reader:   reader,
	}
}

// seedAudit inserts n audit rows for module created age ago
func (f *fixture) seedAudit(module string, age time.Duration, n int) {
	f.t.Helper()
	actor := uuid.New()
	for i := 0; i < n; i++ {
		require.NoError(f.t, f.db.Create(&models.AuditLogModel{
			ID:            uuid.New(),
			TenantID:      f.tenantID,
			ActorID:       &actor,
			Module:        module,
			Action:        "POST",
			ResourceType:  "journal_entry",
			ResourceID:    uuid.New(),
			AfterData:     []byte(`{"amount":"10.00"}`),
			CorrelationID: "req-1",
			CreatedAt:     time.Now().UTC().Add(-age),
		}).Error)
	}
}

func (f *fixture) countAudit(where string, args ...any) int64 {
	f.t.Helper()
	var n int64
	q := f.db.Model(&models.AuditLogModel{}).Where("tenant_id = ?", f.tenantID)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

func (f *fixture) policy(req CreatePolicyRequest) *retention.Policy {
	f.t.Helper()
	if req.Name == "" {
		req.Name = "audit cleanup"
	}
	if req.TargetTable == "" {
		req.TargetTable = "audit_logs"
	}
	if req.RetentionDays == 0 {
		req.RetentionDays = 365
	}
	if req.FirstRun == nil {
		past := time.Now().UTC().Add(-time.Minute)
		req.FirstRun = &past
	}
	resp, err := f.service.CreatePolicy(f.ctx, f.tenantID, f.actorID, req)
	require.NoError(f.t, err)
	p, err := persistence.NewGormRetentionPolicyRepository(f.db).FindByID(f.ctx, f.tenantID, resp.ID)
	require.NoError(f.t, err)
	return p
}

const year = 400 * 24 * time.Hour

func TestExecutor_DeleteInBatchesWithConditions(t *testing.T) {
	f := newFixture(t, 2)
	f.seedAudit("LEDGER", year, 5)
	f.seedAudit("AR", year, 2)
	f.seedAudit("LEDGER", time.Hour, 2)
	p := f.policy(CreatePolicyRequest{Action: "delete", Conditions: map[string]string{"module": "LEDGER"}})

	now := time.Now().UTC()
	exec, err := f.executor.RunPolicy(f.ctx, p, now)
	require.NoError(t, err)
	assert.Equal(t, retention.ExecutionCompleted, exec.Status)
	assert.Equal(t, int64(5), exec.Processed)
	assert.Equal(t, int64(5), exec.Deleted)
	assert.NotNil(t, exec.FinishedAt)

	assert.Equal(t, int64(2), f.countAudit("module = ?", "LEDGER"))
	assert.Equal(t, int64(2), f.countAudit("module = ?", "AR"))

	stored, err := persistence.NewGormRetentionPolicyRepository(f.db).FindByID(f.ctx, f.tenantID, p.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(24*time.Hour), stored.NextExecution, time.Second)
	assert.Empty(t, stored.LastError)

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(f.ctx, &rm))
	var rows int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "ledger.retention.rows" {
				for _, dp := range sum.DataPoints {
					rows += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(5), rows)
}

func TestExecutor_ArchiveCopiesThenDeletes(t *testing.T) {
	f := newFixture(t, 3)
	f.seedAudit("AP", year, 4)
	p := f.policy(CreatePolicyRequest{Action: "ARCHIVE"})

	exec, err := f.executor.RunPolicy(f.ctx, p, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(4), exec.Archived)
	assert.Zero(t, exec.Deleted)
	assert.Equal(t, int64(0), f.countAudit("module = ?", "AP"))

	var archived []models.ArchivedRecordModel
	require.NoError(t, f.db.Where("policy_id = ?", p.ID).Find(&archived).Error)
	require.Len(t, archived, 4)
	for _, a := range archived {
		assert.Equal(t, "audit_logs", a.SourceTable)
		assert.Contains(t, string(a.Payload), "journal_entry")
	}
}

func TestExecutor_AnonymizeKeepsRows(t *testing.T) {
	f := newFixture(t, 2)
	f.seedAudit("GL", year, 3)
	p := f.policy(CreatePolicyRequest{Action: "anonymize", Conditions: map[string]string{"module": "GL"}})

	exec, err := f.executor.RunPolicy(f.ctx, p, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(3), exec.Processed)
	assert.Equal(t, int64(3), exec.Anonymized)

	var rows []models.AuditLogModel
	require.NoError(t, f.db.Where("tenant_id = ? AND module = ?", f.tenantID, "GL").Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Nil(t, r.ActorID)
		assert.Empty(t, r.AfterData)
		assert.Equal(t, "anonymized", r.CorrelationID)
		assert.NotEqual(t, uuid.Nil, r.ResourceID)
	}
}

type failingStore struct {
	retention.RecordStore
}

func (failingStore) Select(context.Context, retention.Selection) ([]retention.Record, error) {
	return nil, errors.New("connection reset")
}

func TestExecutor_FailureLeavesScheduleUnchanged(t *testing.T) {
	f := newFixture(t, 10)
	p := f.policy(CreatePolicyRequest{Action: "DELETE"})
	next := p.NextExecution
	f.executor.store = failingStore{}

	exec, err := f.executor.RunPolicy(f.ctx, p, time.Now().UTC())
	require.Error(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, retention.ExecutionFailed, exec.Status)
	assert.Contains(t, exec.Error, "connection reset")

	stored, err := persistence.NewGormRetentionPolicyRepository(f.db).FindByID(f.ctx, f.tenantID, p.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, next, stored.NextExecution, time.Millisecond)
	assert.Contains(t, stored.LastError, "connection reset")
	assert.NotNil(t, stored.LastExecutedAt)

	execs, err := f.service.ListExecutions(f.ctx, f.tenantID, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, string(retention.ExecutionFailed), execs[0].Status)
}

func TestExecutor_RunDueSkipsFuturePolicies(t *testing.T) {
	f := newFixture(t, 10)
	f.seedAudit("GL", year, 1)
	due := f.policy(CreatePolicyRequest{Name: "due", Action: "DELETE"})
	later := time.Now().UTC().Add(time.Hour)
	f.policy(CreatePolicyRequest{Name: "later", Action: "DELETE", FirstRun: &later})

	execs, err := f.executor.RunDue(f.ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, due.ID, execs[0].PolicyID)
	assert.Equal(t, int64(1), execs[0].Deleted)
}

func TestExecutor_SchedulerJobs(t *testing.T) {
	f := newFixture(t, 10)
	f.seedAudit("GL", year, 2)
	p := f.policy(CreatePolicyRequest{Action: "DELETE"})

	jobs, err := f.executor.DueJobs(f.ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, JobKind, jobs[0].Kind)
	assert.Equal(t, p.ID, jobs[0].SubjectID)

	require.NoError(t, f.executor.Execute(f.ctx, jobs[0]))
	assert.Equal(t, int64(0), f.countAudit("module = ?", "GL"))

	// The policy is no longer due, so a stale job does nothing
	require.NoError(t, f.executor.Execute(f.ctx, scheduler.NewJob(JobKind, f.tenantID, p.ID, 0)))
	execs, err := f.service.ListExecutions(f.ctx, f.tenantID, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestService_CreatePolicyValidation(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.service.CreatePolicy(f.ctx, f.tenantID, f.actorID, CreatePolicyRequest{
		Name: "x", TargetTable: "journal_entries", RetentionDays: 30, Action: "DELETE",
	})
	assert.Error(t, err)

	_, err = f.service.CreatePolicy(f.ctx, f.tenantID, f.actorID, CreatePolicyRequest{
		Name: "x", TargetTable: "audit_logs", RetentionDays: 30, Action: "DELETE",
		Conditions: map[string]string{"actor_id": "someone"},
	})
	assert.Error(t, err)

	resp, err := f.service.CreatePolicy(f.ctx, f.tenantID, f.actorID, CreatePolicyRequest{
		Name: "outbox", TargetTable: "outbox_events", RetentionDays: 30, Action: "delete",
		Conditions: map[string]string{"status": "PROCESSED"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DELETE", resp.Action)
	assert.Equal(t, 24, resp.IntervalHours)
	assert.Equal(t, int64(1), f.countAudit("resource_type = ?", policyResource))

	list, err := f.service.ListPolicies(f.ctx, f.tenantID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_RunPolicyNow(t *testing.T) {
	f := newFixture(t, 10)
	f.seedAudit("AR", year, 3)
	later := time.Now().UTC().Add(48 * time.Hour)
	p := f.policy(CreatePolicyRequest{Action: "DELETE", FirstRun: &later})

	resp, err := f.service.RunPolicy(f.ctx, f.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Deleted)
	assert.Equal(t, string(retention.ExecutionCompleted), resp.Status)

	_, err = f.service.RunPolicy(f.ctx, f.tenantID, uuid.New())
	assert.Error(t, err)
}
