package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSink_FiltersByType(t *testing.T) {
	sink := NewEventSink("EntryPosted", "PeriodClosed")
	assert.Equal(t, []string{"EntryPosted", "PeriodClosed"}, sink.EventTypes())

	tenantID := uuid.New()
	posted := NewTestEvent("EntryPosted", tenantID)
	closed := NewTestEvent("PeriodClosed", tenantID)
	require.NoError(t, sink.Handle(context.Background(), posted))
	require.NoError(t, sink.Handle(context.Background(), closed))
	require.NoError(t, sink.Handle(context.Background(), NewTestEvent("EntryPosted", tenantID)))

	assert.Len(t, sink.Events(), 3)
	assert.Len(t, sink.OfType("EntryPosted"), 2)
	assert.Equal(t, posted, sink.OfType("EntryPosted")[0])
	require.Len(t, sink.OfType("PeriodClosed"), 1)
	assert.Equal(t, closed, sink.OfType("PeriodClosed")[0])
	assert.Empty(t, sink.OfType("EntryReversed"))
}

func TestEventSink_EventsIsACopy(t *testing.T) {
	sink := NewEventSink()
	require.NoError(t, sink.Handle(context.Background(), NewTestEvent("EntryPosted", uuid.New())))

	events := sink.Events()
	events[0] = nil
	assert.NotNil(t, sink.Events()[0])
}

func TestRequireDelivered_WaitsForAsyncDelivery(t *testing.T) {
	sink := NewEventSink("AllocationCompleted")
	tenantID := uuid.New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = sink.Handle(context.Background(), NewTestEvent("AllocationCompleted", tenantID))
		_ = sink.Handle(context.Background(), NewTestEvent("AllocationCompleted", tenantID))
	}()

	events := RequireDelivered(t, sink, "AllocationCompleted", 2, time.Second)
	require.Len(t, events, 2)
	assert.Equal(t, tenantID, events[1].TenantID())
}

func TestNewTestEvent(t *testing.T) {
	tenantID := uuid.New()
	event := NewTestEvent("SomethingElse", tenantID)

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.Equal(t, "SomethingElse", event.EventType())
	assert.Equal(t, tenantID, event.TenantID())
	assert.False(t, event.OccurredAt().IsZero())
}
