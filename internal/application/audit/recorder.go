// Package audit writes and reads the append-only audit trail of ledger transitions.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds an audit write when none is configured
const DefaultTimeout = 2 * time.Second

// Entry describes one transition to record. Before and After are marshalled
// to JSON; nil means no snapshot.
type Entry struct {
	TenantID     uuid.UUID
	ActorID      uuid.UUID
	Module       string
	Action       string
	ResourceType string
	ResourceID   uuid.UUID
	Before       any
	After        any
}

// Recorder appends audit logs inside the caller's transaction. A write that
// fails or exceeds the timeout fails the triggering operation.
type Recorder struct {
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder
func NewRecorder(timeout time.Duration, logger *zap.Logger) *Recorder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Recorder{timeout: timeout, logger: logger, now: time.Now}
}

// Record writes entry through repo. The request id on ctx becomes the correlation id.
func (r *Recorder) Record(ctx context.Context, repo audit.Repository, entry Entry) error {
	before, err := snapshot(entry.Before)
	if err != nil {
		return ledger.ErrAuditWriteFailed.WithDetail("cause", err.Error())
	}
	after, err := snapshot(entry.After)
	if err != nil {
		return ledger.ErrAuditWriteFailed.WithDetail("cause", err.Error())
	}

	log := &audit.Log{
		ID:            uuid.New(),
		TenantID:      entry.TenantID,
		Module:        entry.Module,
		Action:        entry.Action,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		Before:        before,
		After:         after,
		CorrelationID: logger.GetRequestID(ctx),
		CreatedAt:     r.now().UTC(),
	}
	if entry.ActorID != uuid.Nil {
		actor := entry.ActorID
		log.ActorID = &actor
	}

	wctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = repo.Append(wctx, log)
	if errors.Is(wctx.Err(), context.DeadlineExceeded) {
		// the driver may report cancellation as a generic failure or not at all
		err = context.DeadlineExceeded
	}
	if err != nil {
		r.logger.Error("audit write failed",
			zap.String("action", entry.Action),
			zap.String("resource_type", entry.ResourceType),
			zap.String("resource_id", entry.ResourceID.String()),
			zap.Error(err),
		)
		return ledger.ErrAuditWriteFailed.
			WithDetail("resource_id", entry.ResourceID.String()).
			WithDetail("cause", err.Error())
	}
	return nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
