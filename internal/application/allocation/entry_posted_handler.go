package allocation

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntryPostedHandler runs the allocation engine when an entry posts. The
// outbox delivers after the posting commits, so the source is visible.
type EntryPostedHandler struct {
	engine *Engine
	logger *zap.Logger
}

// NewEntryPostedHandler creates a new handler for entry posted events
func NewEntryPostedHandler(engine *Engine, logger *zap.Logger) *EntryPostedHandler {
	return &EntryPostedHandler{engine: engine, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *EntryPostedHandler) EventTypes() []string {
	return []string{ledger.EventTypeEntryPosted}
}

// Handle processes an EntryPostedEvent
func (h *EntryPostedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	posted, ok := event.(*ledger.EntryPostedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", ledger.EventTypeEntryPosted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			ledger.EventTypeEntryPosted, event.EventType())
	}

	// Generated and closing entries are never allocated
	if posted.SourceModule == ledger.SourceAllocation || posted.SourceModule == ledger.SourceClose {
		return nil
	}

	result, err := h.engine.Process(ctx, posted.TenantID(), uuid.Nil, posted.EntryID)
	if err != nil {
		return fmt.Errorf("allocate entry %s: %w", posted.EntryNumber, err)
	}
	h.logger.Debug("entry posted event handled",
		zap.String("entry_number", posted.EntryNumber),
		zap.String("outcome", string(result.Outcome)),
	)
	return nil
}
