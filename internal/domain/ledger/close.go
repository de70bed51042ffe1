package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// CloseStatus is the state of a close process
type CloseStatus string

const (
	CloseStatusInProgress CloseStatus = "IN_PROGRESS"
	CloseStatusClosed     CloseStatus = "CLOSED"
)

// TaskStatus is the state of a single close task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// TaskCode identifies a standard close task
type TaskCode string

const (
	TaskReviewEntries      TaskCode = "review_entries"
	TaskProcessAccruals    TaskCode = "process_accruals"
	TaskRunDepreciation    TaskCode = "run_depreciation"
	TaskRunAllocations     TaskCode = "run_allocations"
	TaskReconcileBank      TaskCode = "reconcile_bank"
	TaskGenerateStatements TaskCode = "generate_statements"
	TaskFinalReview        TaskCode = "review"
)

// IsAutomated reports whether the task runs a subsystem rather than waiting on a person
func (c TaskCode) IsAutomated() bool {
	switch c {
	case TaskRunDepreciation, TaskRunAllocations, TaskGenerateStatements:
		return true
	}
	return false
}

type taskTemplate struct {
	code TaskCode
	name string
}

var standardTasks = []taskTemplate{
	{TaskReviewEntries, "Review entries"},
	{TaskProcessAccruals, "Process accruals"},
	{TaskRunDepreciation, "Run depreciation"},
	{TaskRunAllocations, "Run allocations"},
	{TaskReconcileBank, "Reconcile bank accounts"},
	{TaskGenerateStatements, "Generate statements"},
	{TaskFinalReview, "Final review"},
}

// CloseTask is one ordered step of a close process
type CloseTask struct {
	ID          uuid.UUID
	ProcessID   uuid.UUID
	Code        TaskCode
	Name        string
	Sequence    int
	Automated   bool
	Required    bool
	Status      TaskStatus
	Result      string
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CompletedBy *uuid.UUID
}

// Start moves a pending or failed task to in_progress. Failed tasks may be re-run.
func (t *CloseTask) Start() error {
	if t.Status != TaskStatusPending && t.Status != TaskStatusFailed {
		return ErrWrongStatus.
			WithDetail("task_id", t.ID.String()).
			WithDetail("status", string(t.Status))
	}
	now := time.Now().UTC()
	t.Status = TaskStatusInProgress
	t.StartedAt = &now
	t.Error = ""
	return nil
}

// Complete marks the task done with a result summary
func (t *CloseTask) Complete(actor uuid.UUID, result string) error {
	if t.Status != TaskStatusInProgress {
		return ErrWrongStatus.WithDetail("task_id", t.ID.String())
	}
	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.CompletedBy = actorPtr(actor)
	t.Result = result
	return nil
}

// Fail records an error on an in-progress task
func (t *CloseTask) Fail(errMsg string) error {
	if t.Status != TaskStatusInProgress {
		return ErrWrongStatus.WithDetail("task_id", t.ID.String())
	}
	t.Status = TaskStatusFailed
	t.Error = errMsg
	return nil
}

// CloseProcess tracks the close workflow of one period
type CloseProcess struct {
	shared.TenantAggregateRoot
	PeriodID       uuid.UUID
	Status         CloseStatus
	Tasks          []CloseTask
	ClosingEntryID *uuid.UUID
	CompletedAt    *time.Time
	CompletedBy    *uuid.UUID
}

// NewCloseProcess creates a process with the standard ordered task list
func NewCloseProcess(tenantID, periodID, actor uuid.UUID) *CloseProcess {
	cp := &CloseProcess{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, actor),
		PeriodID:            periodID,
		Status:              CloseStatusInProgress,
	}
	for i, tpl := range standardTasks {
		cp.Tasks = append(cp.Tasks, CloseTask{
			ID:        uuid.New(),
			ProcessID: cp.ID,
			Code:      tpl.code,
			Name:      tpl.name,
			Sequence:  i + 1,
			Automated: tpl.code.IsAutomated(),
			Required:  true,
			Status:    TaskStatusPending,
		})
	}
	return cp
}

// Task returns a pointer to the task with id
func (cp *CloseProcess) Task(id uuid.UUID) (*CloseTask, error) {
	for i := range cp.Tasks {
		if cp.Tasks[i].ID == id {
			return &cp.Tasks[i], nil
		}
	}
	return nil, shared.ErrNotFound.WithDetail("task_id", id.String())
}

// IncompleteTasks returns codes of required tasks not yet completed
func (cp *CloseProcess) IncompleteTasks() []string {
	var out []string
	for _, t := range cp.Tasks {
		if t.Required && t.Status != TaskStatusCompleted {
			out = append(out, string(t.Code))
		}
	}
	return out
}

// Finish closes the process
func (cp *CloseProcess) Finish(actor uuid.UUID, closingEntryID *uuid.UUID) error {
	if cp.Status != CloseStatusInProgress {
		return ErrWrongStatus.WithDetail("close_id", cp.ID.String())
	}
	if pending := cp.IncompleteTasks(); len(pending) > 0 {
		err := ErrTasksIncomplete.WithDetail("close_id", cp.ID.String())
		for _, code := range pending {
			err = err.WithDetail(code, "incomplete")
		}
		return err
	}
	now := time.Now().UTC()
	cp.Status = CloseStatusClosed
	cp.ClosingEntryID = closingEntryID
	cp.CompletedAt = &now
	cp.CompletedBy = actorPtr(actor)
	cp.Touch()
	return nil
}
