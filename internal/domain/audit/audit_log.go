package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the accounting core
const (
	ActionCreate      = "CREATE"
	ActionUpdate      = "UPDATE"
	ActionDelete      = "DELETE"
	ActionDeactivate  = "DEACTIVATE"
	ActionSubmit      = "SUBMIT"
	ActionApprove     = "APPROVE"
	ActionPost        = "POST"
	ActionReverse     = "REVERSE"
	ActionVoid        = "VOID"
	ActionInitClose   = "INITIATE_CLOSE"
	ActionExecuteTask = "EXECUTE_TASK"
	ActionClose       = "CLOSE"
	ActionAllocate    = "ALLOCATE"
	ActionRebuild     = "REBUILD_BALANCES"
	ActionSend        = "SEND"
	ActionPay         = "PAY"
	ActionDepreciate  = "DEPRECIATE"
	ActionDispose     = "DISPOSE"
	ActionReconcile   = "RECONCILE"
)

// Log is an append-only record of a state transition
type Log struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ActorID       *uuid.UUID
	Module        string
	Action        string
	ResourceType  string
	ResourceID    uuid.UUID
	Before        json.RawMessage
	After         json.RawMessage
	CorrelationID string
	CreatedAt     time.Time
}

// Filter narrows audit log listings
type Filter struct {
	ResourceType string
	ResourceID   *uuid.UUID
	Action       string
	From         *time.Time
	To           *time.Time
	Limit        int
}

// Repository appends and reads audit logs. There is no update; deletion is
// reserved for the retention executor.
type Repository interface {
	Append(ctx context.Context, log *Log) error
	List(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]*Log, error)
}
