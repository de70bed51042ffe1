package retention

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the outcome of one policy run
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
)

// Execution records the counts and duration of one policy run
type Execution struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	PolicyID   uuid.UUID
	Status     ExecutionStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int64
	Deleted    int64
	Archived   int64
	Anonymized int64
	DurationMs int64
	Error      string
}

// NewExecution starts an execution record
func NewExecution(policy *Policy, now time.Time) *Execution {
	return &Execution{
		ID:        uuid.New(),
		TenantID:  policy.TenantID,
		PolicyID:  policy.ID,
		Status:    ExecutionRunning,
		StartedAt: now.UTC(),
	}
}

// Finish stamps the end time and status
func (e *Execution) Finish(now time.Time, err error) {
	t := now.UTC()
	e.FinishedAt = &t
	e.DurationMs = t.Sub(e.StartedAt).Milliseconds()
	if err != nil {
		e.Status = ExecutionFailed
		e.Error = err.Error()
		return
	}
	e.Status = ExecutionCompleted
}

// Record is one selected row keyed by column name
type Record map[string]any

// Selection identifies the expired rows of a policy
type Selection struct {
	Target     Target
	TenantID   uuid.UUID
	Cutoff     time.Time
	Conditions map[string]string
	Limit      int
	// AfterKey restricts the selection to keys greater than it; nil starts at the first key
	AfterKey any
}

// RecordStore reads and mutates rows of registered targets
type RecordStore interface {
	Select(ctx context.Context, sel Selection) ([]Record, error)
	Delete(ctx context.Context, target Target, tenantID uuid.UUID, keys []any) (int64, error)
	Anonymize(ctx context.Context, target Target, tenantID uuid.UUID, keys []any) (int64, error)
}

// ArchiveBatch is a set of rows copied out before deletion
type ArchiveBatch struct {
	TenantID   uuid.UUID
	PolicyID   uuid.UUID
	Table      string
	Records    []Record
	ArchivedAt time.Time
}

// ArchiveSink stores archived rows in a parallel location
type ArchiveSink interface {
	Archive(ctx context.Context, batch ArchiveBatch) error
}

// PolicyRepository persists retention policies
type PolicyRepository interface {
	Create(ctx context.Context, policy *Policy) error
	Save(ctx context.Context, policy *Policy) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Policy, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*Policy, error)
	// ListDue returns active policies of all tenants with next_execution <= now
	ListDue(ctx context.Context, now time.Time) ([]*Policy, error)
}

// ExecutionRepository persists execution records
type ExecutionRepository interface {
	Create(ctx context.Context, exec *Execution) error
	Save(ctx context.Context, exec *Execution) error
	ListByPolicy(ctx context.Context, tenantID, policyID uuid.UUID, limit int) ([]*Execution, error)
}
